package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes the purposes a signed token may be used for. A token
// is only accepted where its type matches.
type TokenType string

const (
	TokenAccess        TokenType = "access"
	TokenRefresh       TokenType = "refresh"
	TokenPasswordReset TokenType = "password_reset"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	Role Role      `json:"role,omitempty"`
	Type TokenType `json:"type"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret     []byte
	name       string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewIssuer(secret, name string, accessTTL, refreshTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		name:       name,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (i *Issuer) ttl(typ TokenType) time.Duration {
	switch typ {
	case TokenRefresh:
		return i.refreshTTL
	case TokenPasswordReset:
		return i.resetTTL
	default:
		return i.accessTTL
	}
}

// Issue signs a token of the given type for userID. Every token gets a fresh
// jti so refresh and reset tokens can be revoked individually.
func (i *Issuer) Issue(userID uuid.UUID, role Role, typ TokenType) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    i.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl(typ))),
		},
		Role: role,
		Type: typ,
	}
	if typ == TokenPasswordReset {
		claims.Role = ""
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// IssuePair issues a fresh access and refresh token.
func (i *Issuer) IssuePair(userID uuid.UUID, role Role) (*TokenPair, *Claims, error) {
	access, _, err := i.Issue(userID, role, TokenAccess)
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshClaims, err := i.Issue(userID, role, TokenRefresh)
	if err != nil {
		return nil, nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(i.accessTTL.Seconds()),
	}, refreshClaims, nil
}

// Parse verifies signature, expiry and issuer, then checks the token type.
func (i *Issuer) Parse(tokenStr string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID returns the subject as a UUID. Parse has already validated it.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}

// ExpiresAtTime returns the expiry or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
