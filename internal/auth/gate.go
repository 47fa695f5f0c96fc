// Package auth is the admin session gate: a local password check against
// the digest stored in the document, plus the persisted admin-active flag.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"unicode/utf16"

	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/neubio/neubio/pkg/metrics"
)

const MinPasswordLength = 4

// PasswordLength counts UTF-16 code units, so a character outside the
// Basic Multilingual Plane counts as two, the same as browser editors.
func PasswordLength(plaintext string) int {
	return len(utf16.Encode([]rune(plaintext)))
}

// ValidatePassword rejects passwords shorter than MinPasswordLength.
func ValidatePassword(plaintext string) error {
	if PasswordLength(plaintext) < MinPasswordLength {
		return apperrors.Newf(apperrors.Validation, "change password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// HashPassword returns the lowercase hex SHA-256 of plaintext. The digest
// is unsalted so documents written by older editors keep working.
func HashPassword(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

type Gate struct {
	store    *store.Store
	sessions *sessions.Service
}

func NewGate(st *store.Store, sess *sessions.Service) *Gate {
	return &Gate{store: st, sessions: sess}
}

// AttemptLogin compares the digest of plaintext with the stored one. On a
// match the admin-active flag is set; a mismatch has no side effect.
func (g *Gate) AttemptLogin(ctx context.Context, plaintext string) (bool, error) {
	var stored string
	g.store.Read(func(d *document.Document) { stored = d.Admin.PasswordHash })

	got := HashPassword(plaintext)
	if stored == "" || subtle.ConstantTimeCompare([]byte(got), []byte(stored)) != 1 {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return false, nil
	}
	if err := g.sessions.SetAdminActive(ctx, true); err != nil {
		return false, err
	}
	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	return true, nil
}

// ChangePassword replaces the digest in the local document only; it
// reaches the remote with the next push.
func (g *Gate) ChangePassword(plaintext string) error {
	if err := ValidatePassword(plaintext); err != nil {
		return err
	}
	digest := HashPassword(plaintext)
	return g.store.Update(func(d *document.Document) error {
		d.Admin.PasswordHash = digest
		return nil
	})
}

func (g *Gate) Logout(ctx context.Context) error {
	return g.sessions.SetAdminActive(ctx, false)
}

func (g *Gate) Active(ctx context.Context) (bool, error) {
	return g.sessions.AdminActive(ctx)
}
