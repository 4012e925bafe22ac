package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Kind separates the three session audiences.
type Kind string

const (
	KindStaff    Kind = "staff"
	KindPlatform Kind = "platform"
	KindCustomer Kind = "customer"
)

func (k Kind) valid() bool {
	return k == KindStaff || k == KindPlatform || k == KindCustomer
}

// CookieName is the cookie carrying sessions of this kind.
func (k Kind) CookieName() string {
	return string(k) + "-session"
}

type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// UserID is the authenticated identity (staff, admin or customer id).
func (c *Claims) UserID() string {
	return c.Subject
}

// IsExpired reports whether now is past the embedded expiry.
func (c *Claims) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return now.After(c.ExpiresAt.Time)
}

// Codec turns claims into signed cookie values and back.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the time source.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode stamps claims with now+ttl and signs them.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if !claims.Kind.valid() {
		return "", fmt.Errorf("unknown session kind %q", claims.Kind)
	}
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and payload shape. Expiry is left to IsExpired.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || !claims.Kind.valid() || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
