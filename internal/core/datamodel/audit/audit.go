package audit

import "time"

// Entry mirrors the audit_entries table. The audit store reads and writes it
// through sqlx, so it carries db tags alongside the gorm ones used by the
// test schema.
type Entry struct {
	ID           int64     `db:"id" gorm:"primaryKey"`
	ActorID      *string   `db:"actor_id" gorm:"column:actor_id;size:36;index"`
	ActorEmail   string    `db:"actor_email" gorm:"column:actor_email"`
	ActionType   string    `db:"action_type" gorm:"column:action_type;index;not null"`
	ResourceName string    `db:"resource_name" gorm:"column:resource_name;index;not null"`
	ResourceID   string    `db:"resource_id" gorm:"column:resource_id"`
	OccurredAt   time.Time `db:"occurred_at" gorm:"column:occurred_at;index;not null"`
	OriginIP     string    `db:"origin_ip" gorm:"column:origin_ip"`
	Details      string    `db:"details" gorm:"column:details"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
