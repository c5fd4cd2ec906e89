package outbox

import "time"

type Message struct {
	ID           int64      `gorm:"primaryKey"`
	Kind         string     `gorm:"column:kind;not null"`
	Recipient    string     `gorm:"column:recipient;not null"`
	Subject      string     `gorm:"column:subject;not null"`
	Body         string     `gorm:"column:body;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;index;not null"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at;index"`
	Attempts     int        `gorm:"column:attempts;not null"`
	LastError    string     `gorm:"column:last_error"`
}

func (Message) TableName() string {
	return "outbox_messages"
}
