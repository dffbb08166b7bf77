// Package store is the persistence boundary for cases, accounts, tokens and
// verifications. The Postgres implementation lives in gorm.go; memstore
// provides the same semantics in memory for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"p9e.in/verifyops/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned by conditional updates whose guard no longer holds.
	ErrStale = errors.New("record changed concurrently")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// RecordFilter narrows ListRecords. Zero values mean "any".
type RecordFilter struct {
	Statuses       []models.CaseStatus
	VendorID       *uuid.UUID
	FieldOfficerID *uuid.UUID
	Search         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Page           int
	Limit          int
}

// Offset returns the row offset for the page, defaulting page 1 / limit 20.
func (f RecordFilter) Offset() (offset, limit int) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return (page - 1) * limit, limit
}

// Store is implemented by GormStore and memstore.Store.
type Store interface {
	// InTx runs fn against a store bound to one transaction. Returning an
	// error rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// NextReferenceSeq atomically increments and returns the counter for year.
	NextReferenceSeq(ctx context.Context, year int) (int64, error)

	CreateRecord(ctx context.Context, rec *models.Record) error
	GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error)
	ListRecords(ctx context.Context, f RecordFilter) ([]models.Record, int64, error)
	// UpdateRecord writes rec only if its stored status still equals expected
	// and no other write happened since rec was read (same updated_at).
	UpdateRecord(ctx context.Context, rec *models.Record, expected models.CaseStatus) error
	ListOverdue(ctx context.Context, now time.Time) ([]models.Record, error)

	CreateToken(ctx context.Context, tok *models.CandidateToken) error
	GetToken(ctx context.Context, token string) (*models.CandidateToken, error)
	// ClaimToken marks the token used iff it is unused and unexpired at now.
	ClaimToken(ctx context.Context, token, ip string, now time.Time) (bool, error)
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)

	ShortCodeExists(ctx context.Context, code string) (bool, error)
	CreateShortLink(ctx context.Context, link *models.ShortLink) error
	GetShortLink(ctx context.Context, code string) (*models.ShortLink, error)
	MarkShortLinksUsed(ctx context.Context, tokenID uuid.UUID, now time.Time) error
	DeleteExpiredShortLinks(ctx context.Context, before time.Time) (int64, error)
	// RevokeCandidateLinks marks every unused token and short link of the
	// record as used at now, returning how many tokens were revoked.
	RevokeCandidateLinks(ctx context.Context, recordID uuid.UUID, now time.Time) (int64, error)

	GetVerification(ctx context.Context, recordID uuid.UUID) (*models.Verification, error)
	UpsertVerification(ctx context.Context, v *models.Verification) error

	CreateTransition(ctx context.Context, t *models.CaseTransition) error
	ListTransitions(ctx context.Context, recordID uuid.UUID) ([]models.CaseTransition, error)
	CreateNotificationLogs(ctx context.Context, logs []models.NotificationLog) error

	CreateVendor(ctx context.Context, v *models.Vendor) error
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	// SetVendorStatus deactivating a vendor deactivates all its officers.
	SetVendorStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error

	CreateFieldOfficer(ctx context.Context, f *models.FieldOfficer) error
	GetFieldOfficer(ctx context.Context, id uuid.UUID) (*models.FieldOfficer, error)
	FindFieldOfficerByPhone(ctx context.Context, phone string) (*models.FieldOfficer, error)
	ListFieldOfficers(ctx context.Context, vendorID uuid.UUID) ([]models.FieldOfficer, error)
	SetFieldOfficerStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error

	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}
