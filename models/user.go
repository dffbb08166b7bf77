// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles carried in JWT claims.
const (
	RoleAdmin        = "admin"
	RoleVendor       = "vendor"
	RoleFieldOfficer = "field_officer"
)

// User is a back-office account (admins).
type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string        `gorm:"size:100;not null" json:"name"`
	Email        string        `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone        string        `gorm:"size:15" json:"phone,omitempty"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Role         string        `gorm:"size:30;not null;default:'admin'" json:"role"`
	Status       AccountStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
