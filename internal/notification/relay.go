package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	outboxDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	"github.com/transit241/port-logistics/internal/metrics"
)

// Enqueuer hands a message to the delivery queue. Enqueueing the same
// outbox id twice must not produce two deliveries.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailPayload) error
}

// Relay moves undispatched outbox rows onto the task queue.
type Relay struct {
	repo      Repository
	queue     Enqueuer
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewRelay(repo Repository, queue Enqueuer, batchSize int, m *metrics.Metrics, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		repo:      repo,
		queue:     queue,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// RunOnce relays one batch and reports how many rows were handed off.
// A row that fails to enqueue stays pending and is retried on the next tick.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox messages: %w", err)
	}

	relayed := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return relayed, ctx.Err()
		}
		if err := r.relay(ctx, msg); err != nil {
			r.metrics.IncNotificationsFailed()
			r.logger.Warn("outbox relay failed", "outbox_id", msg.ID, "error", err)
			if markErr := r.repo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				r.logger.Error("failed to record outbox failure", "outbox_id", msg.ID, "error", markErr)
			}
			continue
		}
		relayed++
	}

	if relayed > 0 {
		r.logger.Info("outbox batch relayed", "relayed", relayed, "pending", len(msgs)-relayed)
	}
	return relayed, nil
}

func (r *Relay) relay(ctx context.Context, msg *outboxDatamodel.Message) error {
	payload := EmailPayload{
		OutboxID: msg.ID,
		Kind:     msg.Kind,
		To:       msg.Recipient,
		Subject:  msg.Subject,
		Body:     msg.Body,
	}
	if err := r.queue.EnqueueEmail(ctx, payload); err != nil {
		return err
	}
	if err := r.repo.MarkDispatched(ctx, msg.ID, r.now().UTC()); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	r.metrics.IncNotificationsRelayed()
	return nil
}
