// internal/form/csrf.go
//
// Folio – Contact form: stateless CSRF tokens.
//
// Context
//   The rendered form embeds a hidden `csrf_token` input.  The no-JS POST
//   path must verify it to ensure the request came from a page we served.
//   Tokens are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with form.csrf_key.  Verifies authenticity.
//
//   The issue time doubles as the authenticated render timestamp used by
//   the fill-time check in submit.go.
//
// Workflow
//   •  NewSigner(key, maxAge) → decode key or generate an ephemeral one.
//   •  Signer.Token()         → token string for the renderer.
//   •  Signer.Verify(tok)     → constant-time verify plus age window.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes  = 16
	tokenBytes  = nonceBytes + 8 + sha256.Size // nonce + ts + sig
	minKeyBytes = 32

	// DefaultTokenMaxAge is the validity window when none is configured.
	DefaultTokenMaxAge = 2 * time.Hour

	clockSkew = time.Minute
)

// Signer issues and verifies CSRF tokens.  Safe for concurrent use.
type Signer struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner decodes a base64url key of at least 32 bytes.  An empty key
// generates a random one, valid until restart, and logs a warning.
func NewSigner(encodedKey string, maxAge time.Duration) (*Signer, error) {
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}

	var key []byte
	if encodedKey == "" {
		key = make([]byte, minKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("csrf key: %w", err)
		}
		zap.S().Warnw("form.csrf_key not set; using an ephemeral key, tokens die on restart")
	} else {
		b, err := base64.RawURLEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("csrf key: %w", err)
		}
		if len(b) < minKeyBytes {
			return nil, fmt.Errorf("csrf key: %d bytes, need at least %d", len(b), minKeyBytes)
		}
		key = b
	}
	return &Signer{key: key, maxAge: maxAge, now: time.Now}, nil
}

// Token creates a new token.  Call once per form render.
func (s *Signer) Token() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf[:nonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceBytes:nonceBytes+8], uint64(s.now().UnixMicro()))
	copy(buf[nonceBytes+8:], s.sign(buf[:nonceBytes+8]))
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var (
	errTokenMalformed = errors.New("malformed token")
	errTokenSignature = errors.New("bad signature")
	errTokenExpired   = errors.New("token expired")
	errTokenFuture    = errors.New("token issued in the future")
)

// Verify checks tok and returns its issue time.
func (s *Signer) Verify(tok string) (time.Time, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return time.Time{}, errTokenMalformed
	}
	if !hmac.Equal(raw[nonceBytes+8:], s.sign(raw[:nonceBytes+8])) {
		return time.Time{}, errTokenSignature
	}

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(raw[nonceBytes : nonceBytes+8])))
	now := s.now()
	switch {
	case issued.Sub(now) > clockSkew:
		return time.Time{}, errTokenFuture
	case now.Sub(issued) > s.maxAge:
		return time.Time{}, errTokenExpired
	}
	return issued, nil
}

// WithClock replaces the time source.  Intended for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// MaxAge returns the validity window.
func (s *Signer) MaxAge() time.Duration { return s.maxAge }

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
