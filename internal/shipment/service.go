package shipment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"

	"github.com/google/uuid"
)

type RepositoryAPI interface {
	LifecycleRepository
	Create(ctx context.Context, s *shipmentDatamodel.Shipment) error
	GetByBillOfLading(ctx context.Context, bl string) (*shipmentDatamodel.Shipment, error)
	List(ctx context.Context, filter Filter) ([]*shipmentDatamodel.Shipment, int64, error)
	History(ctx context.Context, shipmentID string) ([]*shipmentDatamodel.StatusEvent, error)
	CountTransactions(ctx context.Context, shipmentID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	lifecycle *Lifecycle
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, lifecycle *Lifecycle, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		lifecycle: lifecycle,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers an arrival. The shipment starts AWAITING_UNLOAD with no
// history; the first ledger entry is the first status appended to it.
func (s *Service) Create(ctx context.Context, dto CreateShipmentDTO) (*Shipment, error) {
	dto.BillOfLading = strings.ToUpper(strings.TrimSpace(dto.BillOfLading))
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	email, err := s.repo.ClientEmail(ctx, dto.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if email == "" {
		return nil, internal.ErrAccountNotFound
	}

	existing, err := s.repo.GetByBillOfLading(ctx, dto.BillOfLading)
	if err != nil {
		return nil, fmt.Errorf("get shipment by bill of lading: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateBillOfLading
	}

	now := s.now()
	row := &shipmentDatamodel.Shipment{
		ID:              uuid.NewString(),
		BillOfLading:    dto.BillOfLading,
		Description:     dto.Description,
		WeightKg:        dto.WeightKg,
		Dimensions:      dto.Dimensions,
		ArrivedAt:       now,
		ClientID:        dto.ClientID,
		StorageLocation: dto.StorageLocation,
		Status:          string(StatusAwaitingUnload),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, internal.ErrDuplicateBillOfLading
		}
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeShipmentCreated, "shipment", row.ID, map[string]interface{}{
		"bill_of_lading": row.BillOfLading,
		"client_id":      row.ClientID,
	}))
	s.logger.Info("shipment created", "shipment_id", row.ID, "bill_of_lading", row.BillOfLading)
	return FromDataModel(row), nil
}

// Get returns a shipment the principal may see. Clients asking for someone
// else's shipment get NotFound, not Forbidden.
func (s *Service) Get(ctx context.Context, id string) (*Shipment, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if row == nil {
		return nil, internal.ErrShipmentNotFound
	}
	if owner := scopedClient(ctx); owner != "" && row.ClientID != owner {
		return nil, internal.ErrShipmentNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Shipment, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, internal.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", filter.Status), internal.ErrCodeInvalidStatus)
	}
	if owner := scopedClient(ctx); owner != "" {
		filter.ClientID = owner
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	out := make([]*Shipment, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, total, nil
}

// PublicView is the anonymous tracking page.
func (s *Service) PublicView(ctx context.Context, id string) (*PublicView, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if row == nil {
		return nil, internal.ErrShipmentNotFound
	}

	history, err := s.history(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	status := Status(row.Status)
	return &PublicView{
		ID:          row.ID,
		Description: row.Description,
		Status:      status,
		StatusLabel: status.Label(),
		History:     history,
	}, nil
}

// Delete cascades to the shipment's history, pickup, invoice and
// declaration. It is refused while payment transactions reference it.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		row, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		if row == nil {
			return internal.ErrShipmentNotFound
		}

		n, err := s.repo.CountTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if n > 0 {
			return internal.ErrShipmentProtected
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeShipmentDeleted, "shipment", id, nil))
	s.logger.Info("shipment deleted", "shipment_id", id)
	return nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", ev.EventType(), "error", err)
	}
}

// scopedClient returns the account id a listing must be restricted to, or ""
// when the principal may see every shipment.
func scopedClient(ctx context.Context) string {
	u, ok := internal.UserFromContext(ctx)
	if !ok {
		return ""
	}
	if u.IsStaff || u.IsSuperuser {
		return ""
	}
	if u.HasAnyPermission(account.PermViewShipments, account.PermManageShipments) {
		return ""
	}
	return u.ID
}
