package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationSource tells which submission path produced a Verification.
type VerificationSource string

const (
	SourceFieldOfficer VerificationSource = "field_officer"
	SourceCandidate    VerificationSource = "candidate"
)

// Verification holds the evidence gathered for a Record. One per record.
type Verification struct {
	ID       uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"recordId"`
	Source   VerificationSource `gorm:"size:20;not null" json:"source"`
	Status   CaseStatus         `gorm:"size:30;not null" json:"status"` // submitted or insufficient

	RespondentName     string `gorm:"size:150" json:"respondentName,omitempty"`
	RespondentRelation string `gorm:"size:50" json:"respondentRelation,omitempty"`
	RespondentContact  string `gorm:"size:20" json:"respondentContact,omitempty"`
	OwnershipType      string `gorm:"size:50" json:"ownershipType,omitempty"`
	PeriodOfStay       string `gorm:"size:50" json:"periodOfStay,omitempty"`
	Remarks            string `gorm:"type:text" json:"remarks,omitempty"`

	GpsLat float64 `json:"gpsLat"`
	GpsLng float64 `json:"gpsLng"`

	Photos    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"photos"`
	Documents datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"documents"`

	SelfieURL              string `gorm:"type:text" json:"selfieUrl,omitempty"`
	IDProofURL             string `gorm:"type:text" json:"idProofUrl,omitempty"`
	HouseDoorURL           string `gorm:"type:text" json:"houseDoorUrl,omitempty"`
	RespondentSignatureURL string `gorm:"type:text" json:"respondentSignatureUrl,omitempty"`
	OfficerSignatureURL    string `gorm:"type:text" json:"officerSignatureUrl,omitempty"`

	SubmittedBy string    `gorm:"size:255" json:"submittedBy"`
	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (v *Verification) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}

// PhotoList decodes the stored photo references.
func (v *Verification) PhotoList() []string {
	return decodeRefs(v.Photos)
}

// DocumentList decodes the stored document references.
func (v *Verification) DocumentList() []string {
	return decodeRefs(v.Documents)
}

// RefsJSON encodes a list of references for a jsonb column.
func RefsJSON(refs []string) datatypes.JSON {
	if refs == nil {
		refs = []string{}
	}
	b, _ := json.Marshal(refs)
	return datatypes.JSON(b)
}

func decodeRefs(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
