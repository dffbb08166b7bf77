package casework

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/notify"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/tokens"
)

// AssignmentInput sets a vendor, a field officer, or both in one update.
type AssignmentInput struct {
	VendorID       *uuid.UUID `json:"vendorId"`
	FieldOfficerID *uuid.UUID `json:"fieldOfficerId"`
}

// UpdateAssignment applies vendor and officer changes. Setting both on a
// pending case moves it straight to assigned and starts the TAT clock.
// Vendors may only place their own officers on their own cases.
func (s *Service) UpdateAssignment(ctx context.Context, id uuid.UUID, in AssignmentInput, actor Actor) (*models.Record, error) {
	if in.VendorID == nil && in.FieldOfficerID == nil {
		return nil, validation("assignment", "vendorId or fieldOfficerId is required")
	}
	if actor.Role == models.RoleVendor && in.VendorID != nil && (actor.VendorID == nil || *in.VendorID != *actor.VendorID) {
		return nil, forbidden("vendors cannot reassign cases to another vendor")
	}
	if actor.Role == models.RoleFieldOfficer {
		return nil, forbidden("field officers cannot assign cases")
	}

	meta := map[string]interface{}{}
	return s.update(ctx, id, actor, "", meta, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		var vendor *models.Vendor
		var officer *models.FieldOfficer
		if in.VendorID != nil {
			v, err := tx.GetVendor(ctx, *in.VendorID)
			if err != nil {
				return nil, fromStore("load vendor", err)
			}
			if !v.IsActive() {
				return nil, validation("vendorId", "vendor is inactive")
			}
			vendor = v
			meta["vendorId"] = v.ID
		}
		if in.FieldOfficerID != nil {
			f, err := tx.GetFieldOfficer(ctx, *in.FieldOfficerID)
			if err != nil {
				return nil, fromStore("load field officer", err)
			}
			if !f.IsActive() {
				return nil, validation("fieldOfficerId", "field officer is inactive")
			}
			if actor.Role == models.RoleVendor && (actor.VendorID == nil || f.VendorID != *actor.VendorID) {
				return nil, forbidden("field officer belongs to another vendor")
			}
			officer = f
			meta["fieldOfficerId"] = f.ID
		}
		ch, err := s.machine.Assign(rec, vendor, officer, s.now())
		if err != nil {
			return nil, fromTransition(err)
		}
		return ch, s.revokeLinks(ctx, tx, rec)
	})
}

// revokeLinks retires the outstanding candidate links of rec so that only
// the latest routing can be submitted.
func (s *Service) revokeLinks(ctx context.Context, tx store.Store, rec *models.Record) error {
	n, err := tx.RevokeCandidateLinks(ctx, rec.ID, s.now())
	if err != nil {
		return fromStore("revoke candidate links", err)
	}
	if n > 0 {
		zap.S().Infow("candidate links revoked", "recordId", rec.ID, "count", n)
	}
	return nil
}

// AssignVendor routes a case to a vendor.
func (s *Service) AssignVendor(ctx context.Context, id, vendorID uuid.UUID, actor Actor) (*models.Record, error) {
	return s.UpdateAssignment(ctx, id, AssignmentInput{VendorID: &vendorID}, actor)
}

// AssignFieldOfficer places one of the case vendor's officers on the case.
func (s *Service) AssignFieldOfficer(ctx context.Context, id, officerID uuid.UUID, actor Actor) (*models.Record, error) {
	return s.UpdateAssignment(ctx, id, AssignmentInput{FieldOfficerID: &officerID}, actor)
}

// CandidateRequest routes a case to candidate self-submission.
type CandidateRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Mobile      string          `json:"mobile"`
	ExpiryHours int             `json:"expiryHours"`
	Channels    notify.Channels `json:"channels"`
}

// CandidateAssignment is returned to the caller that routed the case.
type CandidateAssignment struct {
	Record       *models.Record `json:"record"`
	Link         string         `json:"link"`
	ShortLink    string         `json:"shortLink"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	Notification notify.Outcome `json:"notification"`
}

func (r *CandidateRequest) normalize() error {
	errs := fieldErrors{}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Mobile = normalizeMobile(r.Mobile)

	if r.Name == "" {
		errs.add("name", "required")
	}
	if r.Email == "" && r.Mobile == "" {
		errs.add("contact", "email or mobile is required")
	}
	if r.Email != "" {
		if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
			errs.add("email", "invalid email address")
		}
	}
	if r.Mobile != "" && !validMobile(r.Mobile) {
		errs.add("mobile", "must be 10 to 15 digits")
	}
	if r.ExpiryHours < 0 {
		errs.add("expiryHours", "must be positive")
	}
	if !r.Channels.Email && !r.Channels.SMS {
		r.Channels = notify.Channels{Email: r.Email != "", SMS: r.Mobile != ""}
	}
	return errs.err()
}

func normalizeMobile(m string) string {
	m = strings.TrimSpace(m)
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(m)
}

func validMobile(m string) bool {
	m = strings.TrimPrefix(m, "+")
	if len(m) < 10 || len(m) > 15 {
		return false
	}
	for _, r := range m {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AssignCandidate clears any officer, stores the candidate contact, issues a
// fresh token and short link, commits, and only then notifies. Notification
// failures never undo the assignment.
func (s *Service) AssignCandidate(ctx context.Context, id uuid.UUID, req CandidateRequest, actor Actor) (*CandidateAssignment, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleFieldOfficer {
		return nil, forbidden("field officers cannot route cases to candidates")
	}
	ttl := req.ExpiryHours
	if ttl == 0 {
		ttl = s.opts.TokenTTLHours
	}
	linkTTL := s.opts.ShortLinkTTLHours
	if req.ExpiryHours > 0 {
		linkTTL = req.ExpiryHours
	}

	var tok *models.CandidateToken
	var link *models.ShortLink
	meta := map[string]interface{}{"channels": req.Channels}
	rec, err := s.update(ctx, id, actor, "", meta, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		now := s.now()
		ch, err := s.machine.AssignCandidate(rec, lifecycle.Contact{Name: req.Name, Email: req.Email, Mobile: req.Mobile}, now)
		if err != nil {
			return nil, fromTransition(err)
		}
		if err := s.revokeLinks(ctx, tx, rec); err != nil {
			return nil, err
		}

		tok, err = tokens.Issue(rec.ID, tokens.Contact{Name: req.Name, Email: req.Email, Mobile: req.Mobile}, ttl, now)
		if err != nil {
			if errors.Is(err, tokens.ErrInvalidInput) {
				return nil, validation("expiryHours", err.Error())
			}
			return nil, newError(KindStorage, "generate token", err)
		}
		tok.Channels = requestedChannels(req.Channels)
		if err := tx.CreateToken(ctx, tok); err != nil {
			return nil, fromStore("store token", err)
		}

		code, err := tokens.UniqueShortCode(func(c string) (bool, error) {
			return tx.ShortCodeExists(ctx, c)
		})
		if err != nil {
			return nil, newError(KindStorage, "allocate short link", err)
		}
		link = &models.ShortLink{
			Code:      code,
			TargetURL: s.candidateLink(tok.Token),
			RecordID:  rec.ID,
			TokenID:   tok.ID,
			ExpiresAt: now.Add(time.Duration(linkTTL) * time.Hour),
		}
		if err := tx.CreateShortLink(ctx, link); err != nil {
			return nil, fromStore("store short link", err)
		}
		meta["tokenExpiresAt"] = tok.ExpiresAt
		return ch, nil
	})
	if err != nil {
		return nil, err
	}

	out := &CandidateAssignment{
		Record:    rec,
		Link:      link.TargetURL,
		ShortLink: s.shortLink(link.Code),
		ExpiresAt: tok.ExpiresAt,
	}
	out.Notification = s.notifyCandidate(ctx, rec, out, req, ttl)
	return out, nil
}

func requestedChannels(ch notify.Channels) pq.StringArray {
	var out pq.StringArray
	if ch.Email {
		out = append(out, string(models.NotificationChannelEmail))
	}
	if ch.SMS {
		out = append(out, string(models.NotificationChannelSMS))
	}
	return out
}

// notifyCandidate runs after commit. Its results are logged best-effort.
func (s *Service) notifyCandidate(ctx context.Context, rec *models.Record, a *CandidateAssignment, req CandidateRequest, ttl int) notify.Outcome {
	if s.notifier == nil {
		return notify.Outcome{
			Email: notify.Result{Status: notify.StatusSkipped, Detail: "no notifier configured"},
			SMS:   notify.Result{Status: notify.StatusSkipped, Detail: "no notifier configured"},
		}
	}
	outcome := s.notifier.Notify(ctx,
		notify.Contact{Name: req.Name, Email: req.Email, Mobile: req.Mobile},
		notify.CaseContext{
			ReferenceNumber: rec.ReferenceNumber,
			CaseNumber:      rec.CaseNumber,
			Link:            a.Link,
			ShortLink:       a.ShortLink,
			ExpiresIn:       fmt.Sprintf("%d hours", ttl),
		},
		req.Channels,
	)

	now := s.now()
	logs := []models.NotificationLog{
		notificationLog(rec.ID, models.NotificationChannelEmail, outcome.Email, now),
		notificationLog(rec.ID, models.NotificationChannelSMS, outcome.SMS, now),
	}
	if err := s.store.CreateNotificationLogs(ctx, logs); err != nil {
		zap.S().Warnw("could not store notification logs", "recordId", rec.ID, "error", err)
	}
	return outcome
}

func notificationLog(recordID uuid.UUID, ch models.NotificationChannel, r notify.Result, now time.Time) models.NotificationLog {
	return models.NotificationLog{
		RecordID:  recordID,
		Channel:   ch,
		Recipient: r.Recipient,
		Status:    models.NotificationStatus(r.Status),
		Detail:    r.Detail,
		CreatedAt: now,
	}
}
