package shipment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/transit241/port-logistics/internal"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/metrics"
	"github.com/transit241/port-logistics/internal/notification"
)

// LifecycleRepository is the storage the transition function needs. Every
// call is expected to run on the transaction carried by ctx.
type LifecycleRepository interface {
	GetByID(ctx context.Context, id string) (*shipmentDatamodel.Shipment, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	InsertEvent(ctx context.Context, event *shipmentDatamodel.StatusEvent) error
	ClientEmail(ctx context.Context, clientID string) (string, error)
}

// Transition asks for a shipment to move to Status.
type Transition struct {
	ShipmentID string
	Status     Status
	Location   string
	Notes      string
	ActorID    string
}

// Change is the outcome of an applied Transition.
type Change struct {
	Shipment *Shipment
	Event    *StatusEvent
	Previous Status
}

// Lifecycle owns every write to a shipment's status. Appending a status,
// recording a pickup and approving a declaration all go through Apply, so the
// ledger and the shipment's current status never disagree.
type Lifecycle struct {
	repo      LifecycleRepository
	notifier  notification.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewLifecycle(repo LifecycleRepository, notifier notification.Notifier, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply records t. It must be called inside the caller's transaction: the
// event row, the status overwrite and the outbox row commit or roll back
// together. Apply does not publish; call Announce once the transaction has
// committed.
func (l *Lifecycle) Apply(ctx context.Context, t Transition) (*Change, error) {
	if !t.Status.Valid() {
		return nil, internal.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", t.Status), internal.ErrCodeInvalidStatus)
	}

	row, err := l.repo.GetByID(ctx, t.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if row == nil {
		return nil, internal.ErrShipmentNotFound
	}

	at := l.now()
	event := &shipmentDatamodel.StatusEvent{
		ShipmentID: row.ID,
		Status:     string(t.Status),
		Location:   t.Location,
		OccurredAt: at,
		Notes:      t.Notes,
	}
	if t.ActorID != "" {
		actor := t.ActorID
		event.ActorID = &actor
	}
	if err := l.repo.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert status event: %w", err)
	}
	if err := l.repo.UpdateStatus(ctx, row.ID, string(t.Status), at); err != nil {
		return nil, fmt.Errorf("update shipment status: %w", err)
	}

	previous := Status(row.Status)
	row.Status = string(t.Status)
	row.UpdatedAt = at
	shipment := FromDataModel(row)

	l.notifyClient(ctx, shipment, t.Location)

	return &Change{
		Shipment: shipment,
		Event:    EventFromDataModel(event),
		Previous: previous,
	}, nil
}

// Announce publishes the status change and counts it. Safe to call with nil.
func (l *Lifecycle) Announce(ctx context.Context, c *Change) {
	if c == nil {
		return
	}
	l.metrics.ObserveTransition(string(c.Event.Status))

	ev := events.NewLogisticsEvent(ctx, events.EventTypeShipmentStatusChanged, "shipment", c.Shipment.ID, map[string]interface{}{
		"from":           string(c.Previous),
		"to":             string(c.Event.Status),
		"location":       c.Event.Location,
		"bill_of_lading": c.Shipment.BillOfLading,
	})
	if err := l.publisher.Publish(ctx, ev); err != nil {
		l.logger.Warn("failed to publish event", "event_type", ev.EventType(), "error", err)
	}
	l.logger.Info("shipment status changed",
		"shipment_id", c.Shipment.ID,
		"from", c.Previous,
		"to", c.Event.Status,
	)
}

// notifyClient never fails the transition. A missing address or an outbox
// error is logged and the status change still commits.
func (l *Lifecycle) notifyClient(ctx context.Context, s *Shipment, location string) {
	to, err := l.repo.ClientEmail(ctx, s.ClientID)
	if err != nil {
		l.logger.Error("failed to resolve client email", "shipment_id", s.ID, "error", err)
		return
	}
	if to == "" {
		return
	}
	email := notification.StatusUpdateEmail(to, s.ID, s.BillOfLading, s.Status.Label(), location)
	if err := l.notifier.Enqueue(ctx, email); err != nil {
		l.logger.Error("failed to queue status notification", "shipment_id", s.ID, "error", err)
	}
}
