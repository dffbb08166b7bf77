// Package casework implements the case operations: creation, assignment,
// candidate routing, submissions and admin decisions. Every operation runs
// in one store transaction and returns a *Error on failure.
package casework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/notify"
	"p9e.in/verifyops/pkg/store"
)

// Notifier delivers candidate links. notify.Dispatcher satisfies it.
type Notifier interface {
	Notify(ctx context.Context, c notify.Contact, cc notify.CaseContext, ch notify.Channels) notify.Outcome
}

// Options are the tunables taken from the app config.
type Options struct {
	PublicBaseURL     string
	TokenTTLHours     int
	ShortLinkTTLHours int
	TATDays           int
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID       string
	Name     string
	Role     string
	VendorID *uuid.UUID
}

// RoleCandidate marks an actor authenticated only by a candidate token.
const RoleCandidate = "candidate"

// System is the actor used by scheduled jobs and imports.
var System = Actor{ID: "system", Name: "system", Role: models.RoleAdmin}

// Service coordinates the store, the lifecycle machine, evidence storage
// and notifications.
type Service struct {
	store    store.Store
	machine  *lifecycle.Machine
	evidence evidence.Store
	notifier Notifier
	opts     Options
	now      func() time.Time
}

// New builds a Service. Evidence references must be owned by ev.
func New(st store.Store, ev evidence.Store, n Notifier, opts Options) *Service {
	if opts.TokenTTLHours <= 0 {
		opts.TokenTTLHours = 48
	}
	if opts.ShortLinkTTLHours <= 0 {
		opts.ShortLinkTTLHours = opts.TokenTTLHours
	}
	return &Service{
		store:    st,
		machine:  lifecycle.New(opts.TATDays),
		evidence: ev,
		notifier: n,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Machine exposes the lifecycle machine in use.
func (s *Service) Machine() *lifecycle.Machine {
	return s.machine
}

// FormatReference renders a reference number, e.g. REC-2026-00042.
func FormatReference(year int, seq int64) string {
	return fmt.Sprintf("REC-%04d-%05d", year, seq)
}

// canAccess enforces vendor and field-officer scoping on a case.
func (a Actor) canAccess(rec *models.Record) error {
	switch a.Role {
	case models.RoleAdmin, RoleCandidate, "":
		// candidates are scoped by the token they present
		return nil
	case models.RoleVendor:
		if a.VendorID != nil && lifecycle.SameVendor(rec, *a.VendorID) {
			return nil
		}
	case models.RoleFieldOfficer:
		if rec.FieldOfficerID != nil && rec.FieldOfficerID.String() == a.ID {
			return nil
		}
	}
	return forbidden("case is not assigned to you")
}

// checkActive reloads the acting vendor or field officer so that a
// deactivated account is refused even while its session token is valid.
func (a Actor) checkActive(ctx context.Context, st store.Store) error {
	switch a.Role {
	case models.RoleVendor:
		if a.VendorID == nil {
			return forbidden("account is inactive")
		}
		v, err := st.GetVendor(ctx, *a.VendorID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !v.IsActive()) {
			return forbidden("account is inactive")
		}
		if err != nil {
			return fromStore("load vendor", err)
		}
	case models.RoleFieldOfficer:
		id, err := uuid.Parse(a.ID)
		if err != nil {
			return forbidden("account is inactive")
		}
		o, err := st.GetFieldOfficer(ctx, id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !o.IsActive()) {
			return forbidden("account is inactive")
		}
		if err != nil {
			return fromStore("load field officer", err)
		}
		v, err := st.GetVendor(ctx, o.VendorID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fromStore("load vendor", err)
		}
		if v == nil || !v.IsActive() {
			return forbidden("account is inactive")
		}
	}
	return nil
}

// mutation applies a change to a loaded record inside the transaction.
type mutation func(tx store.Store, rec *models.Record) (*lifecycle.Change, error)

// update loads the case, applies fn, writes it back guarded by the status it
// was read with, and appends the audit row. A concurrent writer that got
// there first turns into a Conflict.
func (s *Service) update(ctx context.Context, id uuid.UUID, actor Actor, comment string, meta map[string]interface{}, fn mutation) (*models.Record, error) {
	var out *models.Record
	err := s.store.InTx(ctx, func(tx store.Store) error {
		rec, err := tx.GetRecord(ctx, id)
		if err != nil {
			return fromStore("load case", err)
		}
		if err := actor.canAccess(rec); err != nil {
			return err
		}
		if err := actor.checkActive(ctx, tx); err != nil {
			return err
		}
		expected := rec.Status
		change, err := fn(tx, rec)
		if err != nil {
			return err
		}
		if err := tx.UpdateRecord(ctx, rec, expected); err != nil {
			return fromStore("update case", err)
		}
		if change != nil {
			if err := s.audit(ctx, tx, rec.ID, change, actor, comment, meta); err != nil {
				return err
			}
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, tx store.Store, recordID uuid.UUID, ch *lifecycle.Change, actor Actor, comment string, meta map[string]interface{}) error {
	t := &models.CaseTransition{
		RecordID:   recordID,
		FromStatus: ch.From,
		ToStatus:   ch.To,
		Action:     string(ch.Action),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Comment:    comment,
		CreatedAt:  s.now(),
	}
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err == nil {
			t.Metadata = datatypes.JSON(b)
		}
	}
	if err := tx.CreateTransition(ctx, t); err != nil {
		return fromStore("write transition", err)
	}
	zap.S().Infow("case transition",
		"recordId", recordID,
		"action", ch.Action,
		"from", ch.From,
		"to", ch.To,
		"actor", actor.ID,
	)
	return nil
}

// candidateLink is the long URL a candidate opens.
func (s *Service) candidateLink(token string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/candidate/" + token
}

func (s *Service) shortLink(code string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/s/" + code
}
