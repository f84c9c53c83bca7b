// Package session issues and resolves signed session cookies and CSRF tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionAudience = "session"
	csrfAudience    = "csrf"
)

var ErrNoSession = errors.New("no active session")

type Identity struct {
	UserID    int
	SessionID string
}

type sessionClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue registers a new session for userID and returns its signed token.
func (m *Manager) Issue(ctx context.Context, userID int) (string, error) {
	sid := uuid.NewString()
	now := m.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	if err := m.store.Save(ctx, sid, userID, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve validates token and checks that its session was not revoked.
func (m *Manager) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Identity{}, ErrNoSession
	}
	userID, ok, err := m.store.Lookup(ctx, claims.ID)
	if err != nil {
		return Identity{}, err
	}
	if !ok || userID != claims.UserID {
		return Identity{}, ErrNoSession
	}
	return Identity{UserID: userID, SessionID: claims.ID}, nil
}

// Revoke ends the session behind token. Invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(token string) (*sessionClaims, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.UserID <= 0 {
		return nil, jwt.ErrTokenMalformed
	}
	return &claims, nil
}
