package service

import (
	"context"

	"storekeep/internal/apierror"
	"storekeep/internal/dto"
	"storekeep/internal/lifecycle"
	"storekeep/internal/model"
	"storekeep/internal/policy"
	"storekeep/internal/repository"

	"github.com/rs/zerolog/log"
)

// AdminService is the staff surface over users, products and the trash bin.
// Lifecycle transitions are delegated to the lifecycle engine.
type AdminService interface {
	ListUsers(ctx context.Context, actor policy.Actor) ([]dto.AdminUserResponse, error)
	ListProducts(ctx context.Context, actor policy.Actor) ([]dto.ProductResponse, error)
	UpdateUser(ctx context.Context, actor policy.Actor, id uint, req dto.UpdateUserRequest) (*dto.UserResponse, error)

	TrashUser(ctx context.Context, actor policy.Actor, id uint) (*dto.TrashUserResponse, error)
	TrashProduct(ctx context.Context, actor policy.Actor, id uint) error
	ListTrash(ctx context.Context, actor policy.Actor) (*dto.TrashResponse, error)
	RestoreUser(ctx context.Context, actor policy.Actor, id uint) (*dto.RestoreUserResponse, error)
	RestoreProduct(ctx context.Context, actor policy.Actor, id uint) error
	PurgeUser(ctx context.Context, actor policy.Actor, id uint) (*dto.PurgeResponse, error)
	PurgeProduct(ctx context.Context, actor policy.Actor, id uint) error
	ClearTrash(ctx context.Context, actor policy.Actor) (*dto.PurgeResponse, error)
}

type adminService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	engine   *lifecycle.Engine
}

func NewAdminService(users repository.UserRepository, products repository.ProductRepository, engine *lifecycle.Engine) AdminService {
	return &adminService{users: users, products: products, engine: engine}
}

func (s *adminService) ListUsers(ctx context.Context, actor policy.Actor) ([]dto.AdminUserResponse, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apierror.Store("list users", err)
	}
	resp := make([]dto.AdminUserResponse, len(users))
	for i := range users {
		resp[i] = dto.AdminUserResponse{UserResponse: toUserResponse(&users[i]), ProductCount: len(users[i].Products)}
	}
	return resp, nil
}

func (s *adminService) ListProducts(ctx context.Context, actor policy.Actor) ([]dto.ProductResponse, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return nil, err
	}
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, apierror.Store("list products", err)
	}
	return toProductResponses(products), nil
}

// UpdateUser changes the role and/or active flag of another user.
func (s *adminService) UpdateUser(ctx context.Context, actor policy.Actor, id uint, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.NotFound("user")
		}
		return nil, apierror.Store("find user", err)
	}
	target := policy.Target{ID: user.ID, Role: user.Role}
	if err := policy.Authorize(actor, policy.UpdateUser, target); err != nil {
		return nil, err
	}

	if req.Role != "" {
		role, err := model.ParseRole(req.Role)
		if err != nil {
			return nil, apierror.Validation("unknown role " + req.Role)
		}
		if role != user.Role {
			target.NewRole = role
			if err := policy.Authorize(actor, policy.AssignRole, target); err != nil {
				return nil, err
			}
			user.Role = role
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.NotFound("user")
		}
		return nil, apierror.Store("update user", err)
	}
	log.Info().Uint("user_id", user.ID).Uint("actor_id", actor.ID).Str("role", user.Role.String()).
		Bool("is_active", user.IsActive).Msg("user updated")
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *adminService) TrashUser(ctx context.Context, actor policy.Actor, id uint) (*dto.TrashUserResponse, error) {
	n, err := s.engine.TrashUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.TrashUserResponse{Message: "user moved to trash", ProductsTrashed: n}, nil
}

func (s *adminService) TrashProduct(ctx context.Context, actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return err
	}
	return s.engine.TrashProduct(ctx, actor, id)
}

func (s *adminService) ListTrash(ctx context.Context, actor policy.Actor) (*dto.TrashResponse, error) {
	trash, err := s.engine.ListTrash(ctx, actor)
	if err != nil {
		return nil, err
	}
	resp := &dto.TrashResponse{
		Users:    make([]dto.TrashedUserResponse, len(trash.Users)),
		Products: make([]dto.TrashedProductResponse, len(trash.Products)),
	}
	for i := range trash.Users {
		u := &trash.Users[i]
		item := dto.TrashedUserResponse{UserResponse: toUserResponse(u), DeletedAt: u.DeletedAt}
		if u.DeletedByUser != nil {
			name := u.DeletedByUser.Username
			item.DeletedBy = &name
		}
		resp.Users[i] = item
	}
	for i := range trash.Products {
		p := &trash.Products[i]
		resp.Products[i] = dto.TrashedProductResponse{ProductResponse: toProductResponse(p), DeletedAt: p.DeletedAt}
	}
	return resp, nil
}

func (s *adminService) RestoreUser(ctx context.Context, actor policy.Actor, id uint) (*dto.RestoreUserResponse, error) {
	n, err := s.engine.RestoreUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.RestoreUserResponse{Message: "user restored", ProductsRestored: n}, nil
}

func (s *adminService) RestoreProduct(ctx context.Context, actor policy.Actor, id uint) error {
	return s.engine.RestoreProduct(ctx, actor, id)
}

func (s *adminService) PurgeUser(ctx context.Context, actor policy.Actor, id uint) (*dto.PurgeResponse, error) {
	counts, err := s.engine.PurgeUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.PurgeResponse{Message: "user permanently deleted", Users: counts.Users, Products: counts.Products}, nil
}

func (s *adminService) PurgeProduct(ctx context.Context, actor policy.Actor, id uint) error {
	return s.engine.PurgeProduct(ctx, actor, id)
}

func (s *adminService) ClearTrash(ctx context.Context, actor policy.Actor) (*dto.PurgeResponse, error) {
	counts, err := s.engine.ClearAllTrash(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &dto.PurgeResponse{Message: "trash cleared", Users: counts.Users, Products: counts.Products}, nil
}
