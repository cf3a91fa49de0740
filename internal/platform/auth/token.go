package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hnms/hnms/internal/platform/policy"
)

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, wrong issuer, expiry, or claims that do not describe a
// valid principal.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by a bearer token. The subject holds the
// user id in decimal.
type Claims struct {
	jwt.RegisteredClaims
	Role       policy.Role `json:"role"`
	HospitalID *int64      `json:"hospital_id"`
	Email      string      `json:"email,omitempty"`
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewTokenManager(secret []byte, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of m that reads time from now. Used for expiry tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// Issue signs a token for p. It returns the token and its expiry.
func (m *TokenManager) Issue(p policy.Principal) (string, time.Time, error) {
	if !p.Authenticated() {
		return "", time.Time{}, fmt.Errorf("issue token: principal has no identity")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Role:       p.Role,
		HospitalID: p.HospitalID,
		Email:      p.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the token's signature, issuer and expiry and returns the
// principal it describes.
func (m *TokenManager) Verify(tokenStr string) (policy.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return policy.Principal{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || !claims.Role.Valid() {
		return policy.Principal{}, ErrInvalidToken
	}

	return policy.Principal{
		ID:         id,
		Role:       claims.Role,
		HospitalID: claims.HospitalID,
		Email:      claims.Email,
	}, nil
}
