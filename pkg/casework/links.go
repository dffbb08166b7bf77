package casework

import (
	"context"
	"errors"

	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/tokens"
)

// ResolveShortLink returns the long candidate URL behind code. The short
// link has its own expiry and used marker; the token behind it is checked
// again when the candidate opens the long URL.
func (s *Service) ResolveShortLink(ctx context.Context, code string) (string, error) {
	if !tokens.IsShortCode(code) {
		return "", notFound("link")
	}
	link, err := s.store.GetShortLink(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return "", notFound("link")
	}
	if err != nil {
		return "", fromStore("load short link", err)
	}
	switch {
	case link.IsUsed:
		return "", fromToken(tokens.ErrAlreadyUsed)
	case s.now().After(link.ExpiresAt):
		return "", fromToken(tokens.ErrExpired)
	}
	return link.TargetURL, nil
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	Tokens     int64 `json:"tokens"`
	ShortLinks int64 `json:"shortLinks"`
}

// SweepExpiredTokens deletes unused tokens and short links past expiry.
// Used ones are kept as the record of who submitted.
func (s *Service) SweepExpiredTokens(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var res SweepResult
	n, err := s.store.DeleteExpiredTokens(ctx, now)
	if err != nil {
		return res, fromStore("delete expired tokens", err)
	}
	res.Tokens = n
	n, err = s.store.DeleteExpiredShortLinks(ctx, now)
	if err != nil {
		return res, fromStore("delete expired short links", err)
	}
	res.ShortLinks = n
	return res, nil
}

// OverdueCases lists active cases whose TAT due date has passed.
func (s *Service) OverdueCases(ctx context.Context) ([]models.Record, error) {
	out, err := s.store.ListOverdue(ctx, s.now())
	if err != nil {
		return nil, fromStore("list overdue cases", err)
	}
	return out, nil
}
