package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationChannel defines how a candidate link is delivered
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
)

// NotificationStatus is the outcome of one delivery attempt
type NotificationStatus string

const (
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
	NotificationStatusSkipped NotificationStatus = "skipped"
)

// NotificationLog records the delivery attempt of a candidate link on one channel.
type NotificationLog struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID  uuid.UUID           `gorm:"type:uuid;not null;index" json:"recordId"`
	Channel   NotificationChannel `gorm:"size:20;not null" json:"channel"`
	Recipient string              `gorm:"size:150" json:"recipient"`
	Status    NotificationStatus  `gorm:"size:20;not null" json:"status"`
	Detail    string              `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// ReferenceCounter backs the per-year reference number sequence.
type ReferenceCounter struct {
	Year  int   `gorm:"primaryKey;autoIncrement:false"`
	Value int64 `gorm:"not null;default:0"`
}

func (ReferenceCounter) TableName() string {
	return "reference_counters"
}
