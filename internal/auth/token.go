package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned when a token fails structural or signature
// validation, or has expired.
var ErrInvalidToken = fmt.Errorf("invalid token")

// TokenIssuer signs and verifies bearer tokens of the form
// userID.expiryUnix.signature, where the signature is the base64url-encoded
// HMAC-SHA256 of "userID.expiryUnix".
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

// NewTokenIssuer constructs an issuer with the given signing secret and
// token lifetime. A zero ttl defaults to 12 hours.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: secret, ttl: ttl, nowFn: func() time.Time { return time.Now().UTC() }}
}

// SetNowFunc overrides the issuer clock for tests.
func (t *TokenIssuer) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		t.nowFn = fn
	}
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue returns a signed token for the user expiring after the issuer TTL.
func (t *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("user id required")
	}
	if strings.Contains(userID, ".") {
		return "", time.Time{}, fmt.Errorf("user id must not contain '.'")
	}
	expiry := t.nowFn().Add(t.ttl)
	payload := fmt.Sprintf("%s.%d", userID, expiry.Unix())
	return payload + "." + t.sign(payload), expiry, nil
}

// Verify checks the token signature and expiry and returns the user ID.
func (t *TokenIssuer) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(t.sign(payload)), []byte(parts[2])) {
		return "", ErrInvalidToken
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if t.nowFn().After(time.Unix(expiry, 0)) {
		return "", ErrInvalidToken
	}
	return parts[0], nil
}

func (t *TokenIssuer) sign(payload string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
