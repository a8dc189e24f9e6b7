// Package auth provides session tokens, password hashing and the HTTP
// middleware that turns a bearer token into a caller identity.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /signup or /login verifies credentials and returns a signed JWT
//  2. The client stores the token and sends it as "Authorization: Bearer <jwt>"
//  3. RequireAuth / OptionalAuth verify it and put the Claims in the request context
//
// Tokens are stateless: the server keeps no session table and a token stays
// valid until it expires.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","email":"a@b.com","iss":"accessai-gateway","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "accessai-gateway"
	DefaultTTL = 24 * time.Hour
)

// TokenService handles JWT creation and verification.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A zero ttl means DefaultTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Claims is the verified token payload.
type Claims struct {
	UserID string
	Email  string
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Status is the outcome of verifying a token.
type Status int

const (
	StatusInvalid Status = iota
	StatusValid
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Verification is returned by Verify. Claims is only set when Status is StatusValid.
type Verification struct {
	Status Status
	Claims Claims
}

// Generate signs a token for the given user.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.generate(userID, email, s.ttl)
}

func (s *TokenService) generate(userID, email string, ttl time.Duration) (string, error) {
	now := s.now()
	c := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and checks a token. It never returns an error: every failure
// collapses into StatusExpired or StatusInvalid so callers branch on one value.
//
// CHECKS (performed by the jwt library):
//   - signature matches (HS256 only, preventing algorithm confusion)
//   - token is not expired and carries an expiry
//   - issuer is accessai-gateway
func (s *TokenService) Verify(tokenStr string) Verification {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&tokenClaims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verification{Status: StatusExpired}
		}
		return Verification{Status: StatusInvalid}
	}

	c, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return Verification{Status: StatusInvalid}
	}

	return Verification{
		Status: StatusValid,
		Claims: Claims{UserID: c.Subject, Email: c.Email},
	}
}
