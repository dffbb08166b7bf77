package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseTransition is the audit trail row written for every applied status change.
type CaseTransition struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"recordId"`
	FromStatus CaseStatus     `gorm:"size:30;not null" json:"fromStatus"`
	ToStatus   CaseStatus     `gorm:"size:30;not null" json:"toStatus"`
	Action     string         `gorm:"size:50;not null" json:"action"`
	ActorID    string         `gorm:"size:255" json:"actorId,omitempty"`
	ActorRole  string         `gorm:"size:30" json:"actorRole,omitempty"`
	Comment    string         `gorm:"type:text" json:"comment,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (CaseTransition) TableName() string {
	return "case_transitions"
}

func (t *CaseTransition) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
