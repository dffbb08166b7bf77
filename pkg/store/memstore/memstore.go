// Package memstore is an in-memory store.Store for tests and local demos.
// Transactions are serialized and roll back by restoring a snapshot.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/store"
)

type data struct {
	records       map[uuid.UUID]models.Record
	tokens        map[string]models.CandidateToken
	links         map[string]models.ShortLink
	verifications map[uuid.UUID]models.Verification
	transitions   []models.CaseTransition
	notifications []models.NotificationLog
	vendors       map[uuid.UUID]models.Vendor
	officers      map[uuid.UUID]models.FieldOfficer
	users         map[uuid.UUID]models.User
	counters      map[int]int64
}

func newData() *data {
	return &data{
		records:       map[uuid.UUID]models.Record{},
		tokens:        map[string]models.CandidateToken{},
		links:         map[string]models.ShortLink{},
		verifications: map[uuid.UUID]models.Verification{},
		vendors:       map[uuid.UUID]models.Vendor{},
		officers:      map[uuid.UUID]models.FieldOfficer{},
		users:         map[uuid.UUID]models.User{},
		counters:      map[int]int64{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.records {
		c.records[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.links {
		c.links[k] = v
	}
	for k, v := range d.verifications {
		c.verifications[k] = v
	}
	for k, v := range d.vendors {
		c.vendors[k] = v
	}
	for k, v := range d.officers {
		c.officers[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.counters {
		c.counters[k] = v
	}
	c.transitions = append([]models.CaseTransition(nil), d.transitions...)
	c.notifications = append([]models.NotificationLog(nil), d.notifications...)
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu   *sync.Mutex
	root **data
	inTx bool
}

// New returns an empty store.
func New() *Store {
	d := newData()
	return &Store{mu: &sync.Mutex{}, root: &d}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) d() *data {
	return *s.root
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.d().clone()
	if err := fn(&Store{mu: s.mu, root: s.root, inTx: true}); err != nil {
		*s.root = snapshot
		return err
	}
	return nil
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func duplicate(what, value string) error {
	return fmt.Errorf("%w: %s %q", store.ErrDuplicate, what, value)
}

func (s *Store) NextReferenceSeq(ctx context.Context, year int) (int64, error) {
	defer s.lock()()
	s.d().counters[year]++
	return s.d().counters[year], nil
}

func (s *Store) CreateRecord(ctx context.Context, rec *models.Record) error {
	defer s.lock()()
	for _, r := range s.d().records {
		if r.CaseNumber == rec.CaseNumber {
			return duplicate("case_number", rec.CaseNumber)
		}
		if r.ReferenceNumber == rec.ReferenceNumber {
			return duplicate("reference_number", rec.ReferenceNumber)
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	stamp(&rec.CreatedAt, &rec.UpdatedAt)
	s.d().records[rec.ID] = *rec
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	defer s.lock()()
	rec, ok := s.d().records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) ListRecords(ctx context.Context, f store.RecordFilter) ([]models.Record, int64, error) {
	defer s.lock()()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Record
	for _, r := range s.d().records {
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, r.Status) {
			continue
		}
		if f.VendorID != nil && (r.VendorID == nil || *r.VendorID != *f.VendorID) {
			continue
		}
		if f.FieldOfficerID != nil && (r.FieldOfficerID == nil || *r.FieldOfficerID != *f.FieldOfficerID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.CaseNumber+" "+r.ReferenceNumber+" "+r.Name), search) {
			continue
		}
		if f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && r.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	offset, limit := f.Offset()
	if offset >= len(out) {
		return []models.Record{}, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func hasStatus(list []models.CaseStatus, s models.CaseStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) UpdateRecord(ctx context.Context, rec *models.Record, expected models.CaseStatus) error {
	defer s.lock()()
	cur, ok := s.d().records[rec.ID]
	if !ok || cur.Status != expected || !cur.UpdatedAt.Equal(rec.UpdatedAt) {
		return store.ErrStale
	}
	rec.CreatedAt = cur.CreatedAt
	stamp(nil, &rec.UpdatedAt)
	if !rec.UpdatedAt.After(cur.UpdatedAt) {
		// keep the guard meaningful when the clock has not moved
		rec.UpdatedAt = cur.UpdatedAt.Add(time.Microsecond)
	}
	s.d().records[rec.ID] = *rec
	return nil
}

func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]models.Record, error) {
	defer s.lock()()
	active := []models.CaseStatus{models.StatusVendorAssigned, models.StatusAssigned, models.StatusCandidateAssigned}
	var out []models.Record
	for _, r := range s.d().records {
		if hasStatus(active, r.Status) && r.TatDueDate != nil && r.TatDueDate.Before(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TatDueDate.Before(*out[j].TatDueDate) })
	return out, nil
}

func (s *Store) CreateToken(ctx context.Context, tok *models.CandidateToken) error {
	defer s.lock()()
	if _, ok := s.d().tokens[tok.Token]; ok {
		return duplicate("token", "***")
	}
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	stamp(&tok.CreatedAt, nil)
	s.d().tokens[tok.Token] = *tok
	return nil
}

func (s *Store) GetToken(ctx context.Context, token string) (*models.CandidateToken, error) {
	defer s.lock()()
	tok, ok := s.d().tokens[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tok, nil
}

func (s *Store) ClaimToken(ctx context.Context, token, ip string, now time.Time) (bool, error) {
	defer s.lock()()
	tok, ok := s.d().tokens[token]
	if !ok || tok.IsUsed || tok.ExpiresAt.Before(now) {
		return false, nil
	}
	at := now
	tok.IsUsed = true
	tok.UsedAt = &at
	tok.IPAddress = ip
	s.d().tokens[token] = tok
	return true, nil
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for k, tok := range s.d().tokens {
		if !tok.IsUsed && tok.ExpiresAt.Before(before) {
			delete(s.d().tokens, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	defer s.lock()()
	_, ok := s.d().links[code]
	return ok, nil
}

func (s *Store) CreateShortLink(ctx context.Context, link *models.ShortLink) error {
	defer s.lock()()
	if _, ok := s.d().links[link.Code]; ok {
		return duplicate("code", link.Code)
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	stamp(&link.CreatedAt, nil)
	s.d().links[link.Code] = *link
	return nil
}

func (s *Store) GetShortLink(ctx context.Context, code string) (*models.ShortLink, error) {
	defer s.lock()()
	link, ok := s.d().links[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &link, nil
}

func (s *Store) MarkShortLinksUsed(ctx context.Context, tokenID uuid.UUID, now time.Time) error {
	defer s.lock()()
	for k, link := range s.d().links {
		if link.TokenID == tokenID && !link.IsUsed {
			at := now
			link.IsUsed = true
			link.UsedAt = &at
			s.d().links[k] = link
		}
	}
	return nil
}

func (s *Store) RevokeCandidateLinks(ctx context.Context, recordID uuid.UUID, now time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for k, tok := range s.d().tokens {
		if tok.RecordID == recordID && !tok.IsUsed {
			at := now
			tok.IsUsed = true
			tok.UsedAt = &at
			s.d().tokens[k] = tok
			n++
		}
	}
	for k, link := range s.d().links {
		if link.RecordID == recordID && !link.IsUsed {
			at := now
			link.IsUsed = true
			link.UsedAt = &at
			s.d().links[k] = link
		}
	}
	return n, nil
}

func (s *Store) DeleteExpiredShortLinks(ctx context.Context, before time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for k, link := range s.d().links {
		if !link.IsUsed && link.ExpiresAt.Before(before) {
			delete(s.d().links, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) GetVerification(ctx context.Context, recordID uuid.UUID) (*models.Verification, error) {
	defer s.lock()()
	v, ok := s.d().verifications[recordID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) UpsertVerification(ctx context.Context, v *models.Verification) error {
	defer s.lock()()
	if cur, ok := s.d().verifications[v.RecordID]; ok {
		v.ID = cur.ID
		v.CreatedAt = cur.CreatedAt
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	stamp(&v.CreatedAt, &v.UpdatedAt)
	s.d().verifications[v.RecordID] = *v
	return nil
}

func (s *Store) CreateTransition(ctx context.Context, t *models.CaseTransition) error {
	defer s.lock()()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stamp(&t.CreatedAt, nil)
	s.d().transitions = append(s.d().transitions, *t)
	return nil
}

func (s *Store) ListTransitions(ctx context.Context, recordID uuid.UUID) ([]models.CaseTransition, error) {
	defer s.lock()()
	var out []models.CaseTransition
	for _, t := range s.d().transitions {
		if t.RecordID == recordID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateNotificationLogs(ctx context.Context, logs []models.NotificationLog) error {
	defer s.lock()()
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		stamp(&l.CreatedAt, nil)
		s.d().notifications = append(s.d().notifications, l)
	}
	return nil
}

// NotificationLogs returns every stored delivery log for recordID.
func (s *Store) NotificationLogs(recordID uuid.UUID) []models.NotificationLog {
	defer s.lock()()
	var out []models.NotificationLog
	for _, l := range s.d().notifications {
		if l.RecordID == recordID {
			out = append(out, l)
		}
	}
	return out
}

// Tokens returns every token issued for recordID.
func (s *Store) Tokens(recordID uuid.UUID) []models.CandidateToken {
	defer s.lock()()
	var out []models.CandidateToken
	for _, t := range s.d().tokens {
		if t.RecordID == recordID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) CreateVendor(ctx context.Context, v *models.Vendor) error {
	defer s.lock()()
	for _, cur := range s.d().vendors {
		if strings.EqualFold(cur.Email, v.Email) {
			return duplicate("email", v.Email)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = models.AccountActive
	}
	stamp(&v.CreatedAt, &v.UpdatedAt)
	s.d().vendors[v.ID] = *v
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	defer s.lock()()
	v, ok := s.d().vendors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	defer s.lock()()
	for _, v := range s.d().vendors {
		if strings.EqualFold(v.Email, email) {
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	defer s.lock()()
	out := make([]models.Vendor, 0, len(s.d().vendors))
	for _, v := range s.d().vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetVendorStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	defer s.lock()()
	v, ok := s.d().vendors[id]
	if !ok {
		return store.ErrNotFound
	}
	v.Status = status
	stamp(nil, &v.UpdatedAt)
	s.d().vendors[id] = v
	if status != models.AccountInactive {
		return nil
	}
	for k, f := range s.d().officers {
		if f.VendorID == id {
			f.Status = models.AccountInactive
			s.d().officers[k] = f
		}
	}
	return nil
}

func (s *Store) CreateFieldOfficer(ctx context.Context, f *models.FieldOfficer) error {
	defer s.lock()()
	for _, cur := range s.d().officers {
		if cur.Phone == f.Phone {
			return duplicate("phone", f.Phone)
		}
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = models.AccountActive
	}
	stamp(&f.CreatedAt, &f.UpdatedAt)
	s.d().officers[f.ID] = *f
	return nil
}

func (s *Store) GetFieldOfficer(ctx context.Context, id uuid.UUID) (*models.FieldOfficer, error) {
	defer s.lock()()
	f, ok := s.d().officers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *Store) FindFieldOfficerByPhone(ctx context.Context, phone string) (*models.FieldOfficer, error) {
	defer s.lock()()
	for _, f := range s.d().officers {
		if f.Phone == phone {
			return &f, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListFieldOfficers(ctx context.Context, vendorID uuid.UUID) ([]models.FieldOfficer, error) {
	defer s.lock()()
	var out []models.FieldOfficer
	for _, f := range s.d().officers {
		if f.VendorID == vendorID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetFieldOfficerStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	defer s.lock()()
	f, ok := s.d().officers[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Status = status
	stamp(nil, &f.UpdatedAt)
	s.d().officers[id] = f
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	for _, cur := range s.d().users {
		if strings.EqualFold(cur.Email, u.Email) {
			return duplicate("email", u.Email)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Status == "" {
		u.Status = models.AccountActive
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.d().users[u.ID] = *u
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()
	for _, u := range s.d().users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len(s.d().users)), nil
}

var _ store.Store = (*Store)(nil)
