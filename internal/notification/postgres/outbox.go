package postgres

import (
	"context"
	"time"

	outboxDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create runs under a savepoint when a transaction is bound to ctx, so a
// failed insert leaves the caller's transaction usable.
func (r *OutboxRepository) Create(ctx context.Context, msg *outboxDatamodel.Message) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(msg).Error
	})
}

// ListPending returns undispatched messages, oldest first.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]*outboxDatamodel.Message, error) {
	var msgs []*outboxDatamodel.Message
	err := database.Conn(ctx, r.db).
		Where("dispatched_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	return database.Conn(ctx, r.db).Model(&outboxDatamodel.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"dispatched_at": at,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
		}).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return database.Conn(ctx, r.db).Model(&outboxDatamodel.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&outboxDatamodel.Message{}).
		Where("dispatched_at IS NULL").
		Count(&n).Error
	return n, err
}
