package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/verifyops/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "duplicate key"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (g *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (g *GormStore) NextReferenceSeq(ctx context.Context, year int) (int64, error) {
	var value int64
	err := g.conn(ctx).Raw(`INSERT INTO reference_counters (year, value) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET value = reference_counters.value + 1
		RETURNING value`, year).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("next reference for %d: %w", year, err)
	}
	return value, nil
}

func (g *GormStore) CreateRecord(ctx context.Context, rec *models.Record) error {
	return translate(g.conn(ctx).Create(rec).Error)
}

func (g *GormStore) GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	var rec models.Record
	if err := g.conn(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (g *GormStore) ListRecords(ctx context.Context, f RecordFilter) ([]models.Record, int64, error) {
	query := g.conn(ctx).Model(&models.Record{})
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.VendorID != nil {
		query = query.Where("vendor_id = ?", *f.VendorID)
	}
	if f.FieldOfficerID != nil {
		query = query.Where("field_officer_id = ?", *f.FieldOfficerID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("case_number ILIKE ? OR reference_number ILIKE ? OR name ILIKE ?", like, like, like)
	}
	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at <= ?", *f.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := f.Offset()
	var records []models.Record
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (g *GormStore) UpdateRecord(ctx context.Context, rec *models.Record, expected models.CaseStatus) error {
	read := rec.UpdatedAt
	res := g.conn(ctx).Model(rec).
		Where("status = ? AND updated_at = ?", expected, read).
		Select("*").Omit("id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (g *GormStore) ListOverdue(ctx context.Context, now time.Time) ([]models.Record, error) {
	var records []models.Record
	err := g.conn(ctx).
		Where("status IN ? AND tat_due_date IS NOT NULL AND tat_due_date < ?",
			[]models.CaseStatus{models.StatusVendorAssigned, models.StatusAssigned, models.StatusCandidateAssigned}, now).
		Order("tat_due_date ASC").
		Find(&records).Error
	return records, err
}

func (g *GormStore) CreateToken(ctx context.Context, tok *models.CandidateToken) error {
	return translate(g.conn(ctx).Create(tok).Error)
}

func (g *GormStore) GetToken(ctx context.Context, token string) (*models.CandidateToken, error) {
	var tok models.CandidateToken
	if err := g.conn(ctx).First(&tok, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &tok, nil
}

func (g *GormStore) ClaimToken(ctx context.Context, token, ip string, now time.Time) (bool, error) {
	res := g.conn(ctx).Model(&models.CandidateToken{}).
		Where("token = ? AND is_used = ? AND expires_at >= ?", token, false, now).
		Updates(map[string]interface{}{"is_used": true, "used_at": now, "ip_address": ip})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (g *GormStore) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	res := g.conn(ctx).Where("is_used = ? AND expires_at < ?", false, before).Delete(&models.CandidateToken{})
	return res.RowsAffected, res.Error
}

func (g *GormStore) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := g.conn(ctx).Model(&models.ShortLink{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

func (g *GormStore) CreateShortLink(ctx context.Context, link *models.ShortLink) error {
	return translate(g.conn(ctx).Create(link).Error)
}

func (g *GormStore) GetShortLink(ctx context.Context, code string) (*models.ShortLink, error) {
	var link models.ShortLink
	if err := g.conn(ctx).First(&link, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (g *GormStore) MarkShortLinksUsed(ctx context.Context, tokenID uuid.UUID, now time.Time) error {
	return g.conn(ctx).Model(&models.ShortLink{}).
		Where("token_id = ? AND is_used = ?", tokenID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now}).Error
}

func (g *GormStore) RevokeCandidateLinks(ctx context.Context, recordID uuid.UUID, now time.Time) (int64, error) {
	db := g.conn(ctx)
	res := db.Model(&models.CandidateToken{}).
		Where("record_id = ? AND is_used = ?", recordID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now})
	if res.Error != nil {
		return 0, res.Error
	}
	err := db.Model(&models.ShortLink{}).
		Where("record_id = ? AND is_used = ?", recordID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now}).Error
	return res.RowsAffected, err
}

func (g *GormStore) DeleteExpiredShortLinks(ctx context.Context, before time.Time) (int64, error) {
	res := g.conn(ctx).Where("is_used = ? AND expires_at < ?", false, before).Delete(&models.ShortLink{})
	return res.RowsAffected, res.Error
}

func (g *GormStore) GetVerification(ctx context.Context, recordID uuid.UUID) (*models.Verification, error) {
	var v models.Verification
	if err := g.conn(ctx).First(&v, "record_id = ?", recordID).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (g *GormStore) UpsertVerification(ctx context.Context, v *models.Verification) error {
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoUpdates: clause.AssignmentColumns(verificationColumns),
	}).Create(v).Error
}

// verificationColumns are overwritten when a record is resubmitted.
var verificationColumns = []string{
	"source", "status",
	"respondent_name", "respondent_relation", "respondent_contact",
	"ownership_type", "period_of_stay", "remarks",
	"gps_lat", "gps_lng", "photos", "documents",
	"selfie_url", "id_proof_url", "house_door_url",
	"respondent_signature_url", "officer_signature_url",
	"submitted_by", "submitted_at", "updated_at",
}

func (g *GormStore) CreateTransition(ctx context.Context, t *models.CaseTransition) error {
	return g.conn(ctx).Create(t).Error
}

func (g *GormStore) ListTransitions(ctx context.Context, recordID uuid.UUID) ([]models.CaseTransition, error) {
	var out []models.CaseTransition
	err := g.conn(ctx).Where("record_id = ?", recordID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (g *GormStore) CreateNotificationLogs(ctx context.Context, logs []models.NotificationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return g.conn(ctx).Create(&logs).Error
}

func (g *GormStore) CreateVendor(ctx context.Context, v *models.Vendor) error {
	return translate(g.conn(ctx).Create(v).Error)
}

func (g *GormStore) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var v models.Vendor
	if err := g.conn(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (g *GormStore) FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var v models.Vendor
	if err := g.conn(ctx).First(&v, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (g *GormStore) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var out []models.Vendor
	err := g.conn(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (g *GormStore) SetVendorStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Vendor{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if status != models.AccountInactive {
			return nil
		}
		return tx.Model(&models.FieldOfficer{}).
			Where("vendor_id = ?", id).
			Update("status", models.AccountInactive).Error
	})
}

func (g *GormStore) CreateFieldOfficer(ctx context.Context, f *models.FieldOfficer) error {
	return translate(g.conn(ctx).Create(f).Error)
}

func (g *GormStore) GetFieldOfficer(ctx context.Context, id uuid.UUID) (*models.FieldOfficer, error) {
	var f models.FieldOfficer
	if err := g.conn(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (g *GormStore) FindFieldOfficerByPhone(ctx context.Context, phone string) (*models.FieldOfficer, error) {
	var f models.FieldOfficer
	if err := g.conn(ctx).First(&f, "phone = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (g *GormStore) ListFieldOfficers(ctx context.Context, vendorID uuid.UUID) ([]models.FieldOfficer, error) {
	var out []models.FieldOfficer
	err := g.conn(ctx).Where("vendor_id = ?", vendorID).Order("name ASC").Find(&out).Error
	return out, err
}

func (g *GormStore) SetFieldOfficerStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	res := g.conn(ctx).Model(&models.FieldOfficer{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(g.conn(ctx).Create(u).Error)
}

func (g *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := g.conn(ctx).First(&u, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (g *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := g.conn(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

var _ Store = (*GormStore)(nil)
