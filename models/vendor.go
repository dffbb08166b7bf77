package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a verification company that receives cases from admins.
type Vendor struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string        `gorm:"size:150;not null" json:"name"`
	Email        string        `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Phone        string        `gorm:"size:20" json:"phone,omitempty"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Status       AccountStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`

	FieldOfficers []FieldOfficer `gorm:"foreignKey:VendorID" json:"fieldOfficers,omitempty"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}

// IsActive reports whether the vendor may receive work.
func (v *Vendor) IsActive() bool {
	return v.Status == AccountActive
}

// FieldOfficer visits addresses on behalf of exactly one vendor.
type FieldOfficer struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	VendorID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"vendorId"`
	Vendor       *Vendor       `gorm:"foreignKey:VendorID" json:"-"`
	Name         string        `gorm:"size:150;not null" json:"name"`
	Phone        string        `gorm:"size:20;uniqueIndex;not null" json:"phone"`
	Email        string        `gorm:"size:150" json:"email,omitempty"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Status       AccountStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (f *FieldOfficer) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

func (f *FieldOfficer) IsActive() bool {
	return f.Status == AccountActive
}
