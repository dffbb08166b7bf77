package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CandidateToken gates a candidate's self-submission for one Record.
type CandidateToken struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Token           string         `gorm:"size:64;uniqueIndex;not null" json:"-"`
	RecordID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"recordId"`
	CandidateName   string         `gorm:"size:150" json:"candidateName"`
	CandidateEmail  string         `gorm:"size:150" json:"candidateEmail,omitempty"`
	CandidateMobile string         `gorm:"size:20" json:"candidateMobile,omitempty"`
	ExpiresAt       time.Time      `gorm:"not null;index" json:"expiresAt"`
	IsUsed          bool           `gorm:"default:false;index" json:"isUsed"`
	UsedAt          *time.Time     `json:"usedAt,omitempty"`
	IPAddress       string         `gorm:"size:64" json:"ipAddress,omitempty"`
	Channels        pq.StringArray `gorm:"type:text[]" json:"channels,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (CandidateToken) TableName() string {
	return "candidate_tokens"
}

func (t *CandidateToken) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// ShortLink is a short opaque code redirecting to the long tokenized URL.
// It carries its own expiry independent of the token it points at.
type ShortLink struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string     `gorm:"size:6;uniqueIndex;not null" json:"code"`
	TargetURL string     `gorm:"type:text;not null" json:"targetUrl"`
	RecordID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"recordId"`
	TokenID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tokenId"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	IsUsed    bool       `gorm:"default:false" json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (ShortLink) TableName() string {
	return "short_links"
}

func (s *ShortLink) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
