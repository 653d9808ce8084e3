// Package session carries the authenticated identity of a caller.
//
// A session is a small key-value bag (userId, username, role) kept in a Store and
// addressed by a random id. Clients hold the id inside a signed token.
package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"storekeep/internal/model"
	"storekeep/internal/policy"
)

// ErrNotFound is returned by stores when the session is unknown or expired.
var ErrNotFound = errors.New("session not found")

const (
	KeyUserID   = "userId"
	KeyUsername = "username"
	KeyRole     = "role"
)

// Session is one authenticated browser or API session.
type Session struct {
	ID       string
	UserID   uint
	Username string
	Role     model.Role
}

// Actor returns the policy identity of the session owner.
func (s *Session) Actor() policy.Actor {
	if s == nil {
		return policy.Actor{}
	}
	return policy.Actor{ID: s.UserID, Role: s.Role}
}

func (s *Session) values() map[string]string {
	return map[string]string{
		KeyUserID:   strconv.FormatUint(uint64(s.UserID), 10),
		KeyUsername: s.Username,
		KeyRole:     string(s.Role),
	}
}

func fromValues(id string, v map[string]string) (*Session, error) {
	raw, ok := v[KeyUserID]
	if !ok || raw == "" {
		return nil, ErrNotFound
	}
	uid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	return &Session{ID: id, UserID: uint(uid), Username: v[KeyUsername], Role: model.Role(v[KeyRole])}, nil
}

// Store persists session bags.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
