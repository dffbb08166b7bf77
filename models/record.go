package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is a single verification case tracked from upload to approval.
type Record struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseNumber      string    `gorm:"size:100;uniqueIndex;not null" json:"caseNumber"`
	ReferenceNumber string    `gorm:"size:20;uniqueIndex;not null" json:"referenceNumber"`

	// Subject
	Name        string `gorm:"size:150;not null" json:"name"`
	FatherName  string `gorm:"size:150" json:"fatherName,omitempty"`
	Contact     string `gorm:"size:20" json:"contact,omitempty"`
	AddressLine string `gorm:"type:text;not null" json:"addressLine"`
	City        string `gorm:"size:100" json:"city,omitempty"`
	State       string `gorm:"size:100" json:"state,omitempty"`
	Pincode     string `gorm:"size:10" json:"pincode,omitempty"`

	// Assignment
	VendorID         *uuid.UUID `gorm:"type:uuid;index" json:"vendorId,omitempty"`
	VendorName       string     `gorm:"size:150" json:"vendorName,omitempty"`
	FieldOfficerID   *uuid.UUID `gorm:"type:uuid;index" json:"fieldOfficerId,omitempty"`
	FieldOfficerName string     `gorm:"size:150" json:"fieldOfficerName,omitempty"`

	// Candidate self-submission
	CandidateName   string `gorm:"size:150" json:"candidateName,omitempty"`
	CandidateEmail  string `gorm:"size:150" json:"candidateEmail,omitempty"`
	CandidateMobile string `gorm:"size:20" json:"candidateMobile,omitempty"`

	Status           CaseStatus `gorm:"size:30;not null;default:'pending';index" json:"status"`
	StatusBeforeStop CaseStatus `gorm:"size:30" json:"statusBeforeStop,omitempty"`

	AssignedDate   *time.Time `json:"assignedDate,omitempty"`
	TatDueDate     *time.Time `gorm:"index" json:"tatDueDate,omitempty"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`

	GpsLat            *float64 `json:"gpsLat,omitempty"`
	GpsLng            *float64 `json:"gpsLng,omitempty"`
	SubmittedGpsLat   *float64 `json:"submittedGpsLat,omitempty"`
	SubmittedGpsLng   *float64 `json:"submittedGpsLng,omitempty"`
	GpsDistanceMeters *float64 `json:"gpsDistanceMeters,omitempty"`
	IsLateSubmission  bool     `gorm:"default:false" json:"isLateSubmission"`

	Remarks   string    `gorm:"type:text" json:"remarks,omitempty"`
	CreatedBy string    `gorm:"size:255" json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *Record) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ClearAssignment wipes everything a fresh assignment cycle would set.
func (r *Record) ClearAssignment() {
	r.VendorID = nil
	r.VendorName = ""
	r.FieldOfficerID = nil
	r.FieldOfficerName = ""
	r.CandidateName = ""
	r.CandidateEmail = ""
	r.CandidateMobile = ""
	r.AssignedDate = nil
	r.TatDueDate = nil
	r.CompletionDate = nil
	r.SubmittedAt = nil
	r.SubmittedGpsLat = nil
	r.SubmittedGpsLng = nil
	r.GpsDistanceMeters = nil
	r.IsLateSubmission = false
	r.StatusBeforeStop = ""
}
