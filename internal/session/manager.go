package session

import (
	"context"
	"errors"
	"time"

	"storekeep/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or shape checks.
var ErrInvalidToken = errors.New("invalid or expired session token")

type tokenClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a session for u and returns the signed token that addresses it.
func (m *Manager) Issue(ctx context.Context, u *model.User) (string, *Session, error) {
	sess := &Session{ID: uuid.NewString(), UserID: u.ID, Username: u.Username, Role: u.Role}
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return "", nil, err
	}
	now := time.Now()
	claims := tokenClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve validates the token and loads the session it points to.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	id, err := m.sessionID(token)
	if err != nil {
		return nil, err
	}
	return m.store.Load(ctx, id)
}

// Update rewrites the stored bag, e.g. after a username change.
func (m *Manager) Update(ctx context.Context, sess *Session) error {
	return m.store.Save(ctx, sess, m.ttl)
}

// Revoke deletes the session. Unknown or malformed tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	id, err := m.sessionID(token)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// RevokeID deletes a session by id.
func (m *Manager) RevokeID(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

func (m *Manager) sessionID(token string) (string, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
