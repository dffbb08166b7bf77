// Package tokens issues and validates the opaque candidate tokens and the
// short codes that front candidate links.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"p9e.in/verifyops/models"
)

// TokenBytes is the entropy of a candidate token; hex doubles it to 64 chars.
const TokenBytes = 32

// Reasons a token fails validation.
var (
	ErrNotFound     = errors.New("token not found")
	ErrAlreadyUsed  = errors.New("token already used")
	ErrExpired      = errors.New("token expired")
	ErrInvalidInput = errors.New("invalid token input")
)

// Generate returns a fresh 64-character lowercase hex secret.
func Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// LooksValid is a cheap shape check run before any store lookup.
func LooksValid(token string) bool {
	if len(token) != TokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Contact is the candidate snapshot copied onto the token.
type Contact struct {
	Name   string
	Email  string
	Mobile string
}

// Issue builds an unsaved token for recordID valid for ttlHours from now.
func Issue(recordID uuid.UUID, c Contact, ttlHours int, now time.Time) (*models.CandidateToken, error) {
	if ttlHours <= 0 {
		return nil, fmt.Errorf("%w: ttlHours must be positive, got %d", ErrInvalidInput, ttlHours)
	}
	secret, err := Generate()
	if err != nil {
		return nil, err
	}
	return &models.CandidateToken{
		ID:              uuid.New(),
		Token:           secret,
		RecordID:        recordID,
		CandidateName:   c.Name,
		CandidateEmail:  c.Email,
		CandidateMobile: c.Mobile,
		ExpiresAt:       now.Add(time.Duration(ttlHours) * time.Hour),
		CreatedAt:       now,
	}, nil
}

// Result is the outcome of Validate.
type Result struct {
	Valid    bool
	Reason   error
	RecordID uuid.UUID
}

// Validate checks, in order: existence, use, expiry. A token is accepted iff
// it is unused and now <= ExpiresAt.
func Validate(tok *models.CandidateToken, now time.Time) Result {
	switch {
	case tok == nil:
		return Result{Reason: ErrNotFound}
	case tok.IsUsed:
		return Result{Reason: ErrAlreadyUsed, RecordID: tok.RecordID}
	case now.After(tok.ExpiresAt):
		return Result{Reason: ErrExpired, RecordID: tok.RecordID}
	}
	return Result{Valid: true, RecordID: tok.RecordID}
}

const (
	shortCodeLen      = 6
	shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// MaxShortCodeAttempts bounds collision retries.
	MaxShortCodeAttempts = 5
)

// NewShortCode returns a random 6-character alphanumeric code.
func NewShortCode() (string, error) {
	out := make([]byte, shortCodeLen)
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}
		out[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// UniqueShortCode draws codes until exists reports a free one.
func UniqueShortCode(exists func(code string) (bool, error)) (string, error) {
	for attempt := 0; attempt < MaxShortCodeAttempts; attempt++ {
		code, err := NewShortCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free short code after %d attempts", MaxShortCodeAttempts)
}

// IsShortCode checks the code shape.
func IsShortCode(code string) bool {
	if len(code) != shortCodeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
