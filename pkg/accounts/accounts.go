// Package accounts manages vendors, field officers and admin users, and
// authenticates them for the JWT login.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/store"
)

// Login kinds accepted by Authenticate.
const (
	KindAdmin        = "admin"
	KindVendor       = "vendor"
	KindFieldOfficer = "field_officer"
)

// MinPasswordLength applies to every account type.
const MinPasswordLength = 8

var errBadCredentials = casework.NewError(casework.KindUnauthorized, "invalid credentials", nil)

// Principal is an authenticated account, ready to be put in a JWT.
type Principal struct {
	ID       uuid.UUID
	Name     string
	Role     string
	VendorID *uuid.UUID
}

// Service wraps the account tables of the store.
type Service struct {
	store store.Store
	cost  int
}

func New(st store.Store) *Service {
	return &Service{store: st, cost: bcrypt.DefaultCost}
}

// SetHashCost changes the bcrypt cost (tests use bcrypt.MinCost).
func (s *Service) SetHashCost(cost int) {
	s.cost = cost
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", casework.Validation("password", "must be at least 8 characters")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", casework.NewError(casework.KindStorage, "hash password", err)
	}
	return string(b), nil
}

func checkEmail(email string) error {
	if email == "" {
		return casework.Validation("email", "required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return casework.Validation("email", "invalid email address")
	}
	return nil
}

// VendorInput creates a vendor.
type VendorInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Service) CreateVendor(ctx context.Context, in VendorInput) (*models.Vendor, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, casework.Validation("name", "required")
	}
	if err := checkEmail(in.Email); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	v := &models.Vendor{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Status:       models.AccountActive,
	}
	if err := s.store.CreateVendor(ctx, v); err != nil {
		return nil, casework.FromStore("create vendor", err)
	}
	zap.S().Infow("vendor created", "vendorId", v.ID, "email", v.Email)
	return v, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	out, err := s.store.ListVendors(ctx)
	return out, casework.FromStore("list vendors", err)
}

func (s *Service) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		return nil, casework.FromStore("load vendor", err)
	}
	return v, nil
}

// SetVendorStatus activates or deactivates a vendor. Deactivation also
// deactivates every officer of the vendor.
func (s *Service) SetVendorStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	if status != models.AccountActive && status != models.AccountInactive {
		return casework.Validation("status", "must be active or inactive")
	}
	if err := s.store.SetVendorStatus(ctx, id, status); err != nil {
		return casework.FromStore("update vendor status", err)
	}
	zap.S().Infow("vendor status changed", "vendorId", id, "status", status)
	return nil
}

// OfficerInput creates a field officer under a vendor.
type OfficerInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) CreateFieldOfficer(ctx context.Context, vendorID uuid.UUID, in OfficerInput) (*models.FieldOfficer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, casework.Validation("name", "required")
	}
	if in.Phone == "" {
		return nil, casework.Validation("phone", "required")
	}
	if in.Email != "" {
		if err := checkEmail(in.Email); err != nil {
			return nil, err
		}
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, casework.FromStore("load vendor", err)
	}
	if !vendor.IsActive() {
		return nil, casework.Validation("vendorId", "vendor is inactive")
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	f := &models.FieldOfficer{
		VendorID:     vendorID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       models.AccountActive,
	}
	if err := s.store.CreateFieldOfficer(ctx, f); err != nil {
		return nil, casework.FromStore("create field officer", err)
	}
	zap.S().Infow("field officer created", "officerId", f.ID, "vendorId", vendorID)
	return f, nil
}

func (s *Service) ListFieldOfficers(ctx context.Context, vendorID uuid.UUID) ([]models.FieldOfficer, error) {
	out, err := s.store.ListFieldOfficers(ctx, vendorID)
	return out, casework.FromStore("list field officers", err)
}

// SetFieldOfficerStatus changes an officer's status. vendorID scopes the
// change when the caller is a vendor; pass nil for admins.
func (s *Service) SetFieldOfficerStatus(ctx context.Context, vendorID *uuid.UUID, id uuid.UUID, status models.AccountStatus) error {
	if status != models.AccountActive && status != models.AccountInactive {
		return casework.Validation("status", "must be active or inactive")
	}
	f, err := s.store.GetFieldOfficer(ctx, id)
	if err != nil {
		return casework.FromStore("load field officer", err)
	}
	if vendorID != nil && f.VendorID != *vendorID {
		return casework.NewError(casework.KindNotFound, "field officer not found", nil)
	}
	if status == models.AccountActive {
		vendor, err := s.store.GetVendor(ctx, f.VendorID)
		if err != nil {
			return casework.FromStore("load vendor", err)
		}
		if !vendor.IsActive() {
			return casework.Validation("status", "vendor is inactive")
		}
	}
	return casework.FromStore("update field officer status", s.store.SetFieldOfficerStatus(ctx, id, status))
}

// UserInput creates an admin user.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Service) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, casework.Validation("name", "required")
	}
	if err := checkEmail(in.Email); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.AccountActive,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, casework.FromStore("create user", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin when no user exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, in UserInput) (bool, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, casework.FromStore("count users", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate checks credentials for one login kind. Admins and vendors log
// in by email, field officers by phone. Inactive accounts are refused.
func (s *Service) Authenticate(ctx context.Context, kind, login, password string) (*Principal, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, casework.Validation("credentials", "login and password are required")
	}
	var (
		p      Principal
		hash   string
		active bool
		err    error
	)
	switch kind {
	case KindAdmin, "":
		var u *models.User
		u, err = s.store.FindUserByEmail(ctx, login)
		if err == nil {
			p = Principal{ID: u.ID, Name: u.Name, Role: u.Role}
			hash, active = u.PasswordHash, u.Status == models.AccountActive
		}
	case KindVendor:
		var v *models.Vendor
		v, err = s.store.FindVendorByEmail(ctx, login)
		if err == nil {
			id := v.ID
			p = Principal{ID: v.ID, Name: v.Name, Role: models.RoleVendor, VendorID: &id}
			hash, active = v.PasswordHash, v.IsActive()
		}
	case KindFieldOfficer:
		var f *models.FieldOfficer
		f, err = s.store.FindFieldOfficerByPhone(ctx, login)
		if err == nil {
			vendorID := f.VendorID
			p = Principal{ID: f.ID, Name: f.Name, Role: models.RoleFieldOfficer, VendorID: &vendorID}
			hash, active = f.PasswordHash, f.IsActive()
		}
	default:
		return nil, casework.Validation("type", "must be admin, vendor or field_officer")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, casework.FromStore("load account", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	if !active {
		return nil, casework.NewError(casework.KindForbidden, "account is inactive", nil)
	}
	return &p, nil
}
