package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrCSRFInvalid = errors.New("invalid csrf token")

// CSRF signs tokens bound to a per-browser id kept in a cookie.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCSRF(secret string, ttl time.Duration) *CSRF {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CSRF{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (c *CSRF) NewID() string {
	return uuid.NewString()
}

func (c *CSRF) Token(cid string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   cid,
		Audience:  jwt.ClaimStrings{csrfAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	return token, nil
}

// Verify checks token was issued for cid and has not expired.
func (c *CSRF) Verify(cid, token string) error {
	if cid == "" || token == "" {
		return ErrCSRFInvalid
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(csrfAudience),
		jwt.WithSubject(cid),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return ErrCSRFInvalid
	}
	return nil
}
