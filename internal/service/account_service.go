package service

import (
	"context"
	"errors"
	"strings"

	"storekeep/internal/apierror"
	"storekeep/internal/dto"
	"storekeep/internal/model"
	"storekeep/internal/policy"
	"storekeep/internal/repository"
	"storekeep/internal/session"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AccountService covers self-service account operations: registration, login,
// profile and session lookup.
type AccountService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.SessionResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, actor policy.Actor) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, sess *session.Session, req dto.UpdateProfileRequest) (*dto.UpdateProfileResponse, error)
	// CurrentSession resolves a token into a live session. The stored user is
	// re-read so that role changes and deactivation take effect immediately.
	CurrentSession(ctx context.Context, token string) (*session.Session, error)
	// EnsureSuperAdmin creates the bootstrap super administrator when none exists.
	// It reports whether a user was created.
	EnsureSuperAdmin(ctx context.Context, username, password string) (bool, error)
	// SeedUser creates username with the given role, or resets the password,
	// role and active flag of the existing active user. Operator tooling only.
	SeedUser(ctx context.Context, username, password string, role model.Role) (bool, error)
}

type accountService struct {
	users    repository.UserRepository
	reports  repository.ReportRepository
	sessions *session.Manager
	hasher   PasswordHasher
}

func NewAccountService(users repository.UserRepository, reports repository.ReportRepository, sessions *session.Manager, hasher PasswordHasher) AccountService {
	return &accountService{users: users, reports: reports, sessions: sessions, hasher: hasher}
}

func (s *accountService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.SessionResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apierror.Validation("username is required")
	}
	taken, err := s.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, apierror.Store("check username", err)
	}
	if taken {
		return nil, apierror.ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apierror.Validation("password cannot be used")
	}
	user := &model.User{Username: username, Password: hash, Role: model.RoleUser, IsActive: true}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.ErrDuplicateUsername
		}
		return nil, apierror.Store("create user", err)
	}
	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return s.issue(ctx, user)
}

func (s *accountService) Login(ctx context.Context, req dto.LoginRequest) (*dto.SessionResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.ErrInvalidCredentials
		}
		return nil, apierror.Store("find user", err)
	}
	if !s.hasher.Matches(user.Password, req.Password) || !user.IsActive {
		return nil, apierror.ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		log.Warn().Err(err).Msg("logout: session delete failed")
	}
	return nil
}

func (s *accountService) Profile(ctx context.Context, actor policy.Actor) (*dto.ProfileResponse, error) {
	if !actor.Authenticated() {
		return nil, apierror.ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.ErrUnauthenticated
		}
		return nil, apierror.Store("find user", err)
	}
	stats, err := s.reports.OwnerStats(ctx, user.ID)
	if err != nil {
		return nil, apierror.Store("owner stats", err)
	}
	return &dto.ProfileResponse{
		User: toUserResponse(user),
		Stats: dto.OwnerStats{
			ProductCount: stats.ProductCount,
			TotalValue:   stats.TotalValue,
			AveragePrice: stats.AveragePrice,
		},
	}, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, sess *session.Session, req dto.UpdateProfileRequest) (*dto.UpdateProfileResponse, error) {
	if !sess.Actor().Authenticated() {
		return nil, apierror.ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.ErrUnauthenticated
		}
		return nil, apierror.Store("find user", err)
	}

	if req.NewPassword != "" && !s.hasher.Matches(user.Password, req.CurrentPassword) {
		return nil, apierror.ErrWrongPassword
	}

	renamed := false
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name != "" && name != user.Username {
			taken, err := s.users.UsernameTaken(ctx, name, user.ID)
			if err != nil {
				return nil, apierror.Store("check username", err)
			}
			if taken {
				return nil, apierror.ErrDuplicateUsername
			}
			user.Username = name
			renamed = true
		}
	}

	if req.NewPassword != "" {
		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return nil, apierror.Validation("password cannot be used")
		}
		user.Password = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.ErrDuplicateUsername
		}
		if repository.IsNotFound(err) {
			return nil, apierror.ErrUnauthenticated
		}
		return nil, apierror.Store("update user", err)
	}

	if renamed {
		sess.Username = user.Username
		if err := s.sessions.Update(ctx, sess); err != nil {
			log.Warn().Err(err).Uint("user_id", user.ID).Msg("profile: session refresh failed")
		}
	}
	return &dto.UpdateProfileResponse{User: toUserResponse(user), Message: "profile updated"}, nil
}

func (s *accountService) CurrentSession(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, apierror.ErrUnauthenticated
	}
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidToken) {
			return nil, apierror.ErrUnauthenticated
		}
		return nil, apierror.Store("load session", err)
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, apierror.Store("find user", err)
	}
	if err != nil || !user.IsActive {
		_ = s.sessions.RevokeID(ctx, sess.ID)
		return nil, apierror.ErrUnauthenticated
	}

	if user.Username != sess.Username || user.Role != sess.Role {
		sess.Username = user.Username
		sess.Role = user.Role
		if err := s.sessions.Update(ctx, sess); err != nil {
			log.Warn().Err(err).Uint("user_id", user.ID).Msg("session refresh failed")
		}
	}
	return sess, nil
}

func (s *accountService) EnsureSuperAdmin(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.users.HasSuperAdmin(ctx)
	if err != nil {
		return false, apierror.Store("check super admin", err)
	}
	if exists {
		return false, nil
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return false, apierror.Validation("bootstrap super admin credentials are not configured")
	}
	taken, err := s.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return false, apierror.Store("check username", err)
	}
	if taken {
		return false, apierror.ErrDuplicateUsername
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, apierror.Validation("password cannot be used")
	}
	user := &model.User{Username: username, Password: hash, Role: model.RoleSuperAdmin, IsActive: true}
	if err := s.users.Create(ctx, user); err != nil {
		return false, apierror.Store("create super admin", err)
	}
	log.Info().Uint("user_id", user.ID).Str("username", username).Msg("bootstrap super admin created")
	return true, nil
}

func (s *accountService) SeedUser(ctx context.Context, username, password string, role model.Role) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, apierror.Validation("username and password are required")
	}
	if !role.Valid() {
		return false, apierror.Validation("unknown role " + role.String())
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, apierror.Validation("password cannot be used")
	}

	user, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		user.Password = hash
		user.Role = role
		user.IsActive = true
		if err := s.users.Update(ctx, user); err != nil {
			return false, apierror.Store("update user", err)
		}
		log.Info().Uint("user_id", user.ID).Str("role", role.String()).Msg("seeded user reset")
		return false, nil
	case !repository.IsNotFound(err):
		return false, apierror.Store("find user", err)
	}

	// Not active: the name may still belong to a trashed user.
	taken, err := s.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return false, apierror.Store("check username", err)
	}
	if taken {
		return false, apierror.ErrDuplicateUsername
	}
	user = &model.User{Username: username, Password: hash, Role: role, IsActive: true}
	if err := s.users.Create(ctx, user); err != nil {
		return false, apierror.Store("create user", err)
	}
	log.Info().Uint("user_id", user.ID).Str("role", role.String()).Msg("seeded user created")
	return true, nil
}

func (s *accountService) issue(ctx context.Context, user *model.User) (*dto.SessionResponse, error) {
	token, _, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, apierror.Store("create session", err)
	}
	return &dto.SessionResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(s.sessions.TTL().Seconds()),
		User:      toUserResponse(user),
	}, nil
}
