// Package lifecycle implements the soft-delete state machine for users and products.
//
//	Active --Trash--> Trashed --Purge--> (row removed)
//	   ^                 |
//	   +-----Restore-----+
//
// Every transition runs the authorization policy first and applies its row changes,
// cascades included, inside a single database transaction. Stored image files are
// removed best effort: failures are logged and never block the row mutation.
package lifecycle

import (
	"context"
	"time"

	"storekeep/internal/apierror"
	"storekeep/internal/model"
	"storekeep/internal/policy"
	"storekeep/internal/repository"
	"storekeep/internal/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Trash is the content of both trash bins.
type Trash struct {
	Users    []model.User
	Products []model.Product
}

// PurgeCounts reports how many rows a purge removed.
type PurgeCounts struct {
	Users    int64
	Products int64
}

// Engine performs lifecycle transitions.
type Engine struct {
	users    repository.UserRepository
	products repository.ProductRepository
	files    storage.FileStore
	now      func() time.Time
}

func NewEngine(users repository.UserRepository, products repository.ProductRepository, files storage.FileStore) *Engine {
	return &Engine{users: users, products: products, files: files, now: func() time.Time { return time.Now().UTC() }}
}

// TrashUser soft-deletes an active user and every active product they own.
// It returns the number of products trashed alongside the user.
func (e *Engine) TrashUser(ctx context.Context, actor policy.Actor, userID uint) (int64, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return 0, err
	}
	u, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return 0, lookupErr("user", err)
	}
	if err := policy.Authorize(actor, policy.TrashUser, policy.Target{ID: u.ID, Role: u.Role}); err != nil {
		return 0, err
	}

	var trashed int64
	at := e.now()
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		if err := e.users.MarkDeletedTx(tx, u.ID, actor.ID, at); err != nil {
			return err
		}
		n, err := e.products.MarkDeletedByOwnerTx(tx, u.ID, at)
		trashed = n
		return err
	})
	if err != nil {
		return 0, txErr("trash user", err)
	}
	log.Info().Uint("user_id", u.ID).Uint("actor_id", actor.ID).Int64("products", trashed).Msg("user trashed")
	return trashed, nil
}

// TrashProduct soft-deletes one active product regardless of its owner's state.
func (e *Engine) TrashProduct(ctx context.Context, actor policy.Actor, productID uint) error {
	if !actor.Authenticated() {
		return apierror.ErrUnauthenticated
	}
	p, err := e.products.FindByID(ctx, productID)
	if err != nil {
		return lookupErr("product", err)
	}
	if err := policy.Authorize(actor, policy.TrashProduct, policy.Target{ID: p.ID, OwnerID: p.UserID}); err != nil {
		return err
	}
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		return e.products.MarkDeletedTx(tx, p.ID, e.now())
	})
	if err != nil {
		return txErr("trash product", err)
	}
	log.Info().Uint("product_id", p.ID).Uint("actor_id", actor.ID).Msg("product trashed")
	return nil
}

// ListTrash returns trashed users and trashed products.
func (e *Engine) ListTrash(ctx context.Context, actor policy.Actor) (*Trash, error) {
	if err := policy.Authorize(actor, policy.ViewTrash, policy.Target{}); err != nil {
		return nil, err
	}
	users, err := e.users.ListTrashed(ctx)
	if err != nil {
		return nil, apierror.Store("list trashed users", err)
	}
	products, err := e.products.ListTrashed(ctx)
	if err != nil {
		return nil, apierror.Store("list trashed products", err)
	}
	return &Trash{Users: users, Products: products}, nil
}

// RestoreUser reactivates a trashed user and every trashed product they own,
// including products that were trashed on their own before the user was.
func (e *Engine) RestoreUser(ctx context.Context, actor policy.Actor, userID uint) (int64, error) {
	if err := policy.Authorize(actor, policy.ViewTrash, policy.Target{}); err != nil {
		return 0, err
	}
	u, err := e.trashedUser(ctx, actor, policy.RestoreUser, userID)
	if err != nil {
		return 0, err
	}

	var restored int64
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		if err := e.users.RestoreTx(tx, u.ID); err != nil {
			return err
		}
		n, err := e.products.RestoreByOwnerTx(tx, u.ID)
		restored = n
		return err
	})
	if err != nil {
		return 0, txErr("restore user", err)
	}
	log.Info().Uint("user_id", u.ID).Uint("actor_id", actor.ID).Int64("products", restored).Msg("user restored")
	return restored, nil
}

// RestoreProduct reactivates a single trashed product.
func (e *Engine) RestoreProduct(ctx context.Context, actor policy.Actor, productID uint) error {
	if err := policy.Authorize(actor, policy.ViewTrash, policy.Target{}); err != nil {
		return err
	}
	p, err := e.trashedProduct(ctx, actor, policy.RestoreProduct, productID)
	if err != nil {
		return err
	}
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		return e.products.RestoreTx(tx, p.ID)
	})
	if err != nil {
		return txErr("restore product", err)
	}
	log.Info().Uint("product_id", p.ID).Uint("actor_id", actor.ID).Msg("product restored")
	return nil
}

// PurgeUser permanently removes a trashed user and all of their products.
// Image files of every owned product are deleted first, trashed or not.
func (e *Engine) PurgeUser(ctx context.Context, actor policy.Actor, userID uint) (PurgeCounts, error) {
	if err := policy.Authorize(actor, policy.ViewTrash, policy.Target{}); err != nil {
		return PurgeCounts{}, err
	}
	u, err := e.trashedUser(ctx, actor, policy.PurgeUser, userID)
	if err != nil {
		return PurgeCounts{}, err
	}

	e.removeOwnerImages(ctx, u.ID)

	var counts PurgeCounts
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if counts.Products, err = e.products.DeleteByOwnerTx(tx, u.ID); err != nil {
			return err
		}
		counts.Users, err = e.users.DeleteTx(tx, u.ID)
		return err
	})
	if err != nil {
		return PurgeCounts{}, txErr("purge user", err)
	}
	log.Info().Uint("user_id", u.ID).Uint("actor_id", actor.ID).Int64("products", counts.Products).Msg("user purged")
	return counts, nil
}

// PurgeProduct permanently removes a trashed product and its image.
func (e *Engine) PurgeProduct(ctx context.Context, actor policy.Actor, productID uint) error {
	if err := policy.Authorize(actor, policy.ViewTrash, policy.Target{}); err != nil {
		return err
	}
	p, err := e.trashedProduct(ctx, actor, policy.PurgeProduct, productID)
	if err != nil {
		return err
	}

	if p.ImagePath != nil {
		e.removeImage(*p.ImagePath)
	}
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		_, err := e.products.DeleteTx(tx, p.ID)
		return err
	})
	if err != nil {
		return txErr("purge product", err)
	}
	log.Info().Uint("product_id", p.ID).Uint("actor_id", actor.ID).Msg("product purged")
	return nil
}

// ClearAllTrash purges every trashed user (with their products) and then every
// remaining trashed product.
func (e *Engine) ClearAllTrash(ctx context.Context, actor policy.Actor) (PurgeCounts, error) {
	if err := policy.Authorize(actor, policy.ClearTrash, policy.Target{}); err != nil {
		return PurgeCounts{}, err
	}

	users, err := e.users.ListTrashed(ctx)
	if err != nil {
		return PurgeCounts{}, apierror.Store("list trashed users", err)
	}
	userIDs := make([]uint, 0, len(users))
	owners := make(map[uint]bool, len(users))
	for _, u := range users {
		if policy.Authorize(actor, policy.PurgeUser, policy.Target{ID: u.ID, Role: u.Role}) != nil {
			continue
		}
		userIDs = append(userIDs, u.ID)
		owners[u.ID] = true
	}

	products, err := e.products.ListTrashed(ctx)
	if err != nil {
		return PurgeCounts{}, apierror.Store("list trashed products", err)
	}
	var productIDs []uint
	var images []string
	for _, p := range products {
		if owners[p.UserID] {
			continue
		}
		productIDs = append(productIDs, p.ID)
		if p.ImagePath != nil {
			images = append(images, *p.ImagePath)
		}
	}

	e.removeOwnerImages(ctx, userIDs...)
	for _, img := range images {
		e.removeImage(img)
	}

	var counts PurgeCounts
	err = e.users.Transaction(ctx, func(tx *gorm.DB) error {
		cascaded, err := e.products.DeleteByOwnerTx(tx, userIDs...)
		if err != nil {
			return err
		}
		if counts.Users, err = e.users.DeleteTx(tx, userIDs...); err != nil {
			return err
		}
		standalone, err := e.products.DeleteTx(tx, productIDs...)
		if err != nil {
			return err
		}
		counts.Products = cascaded + standalone
		return nil
	})
	if err != nil {
		return PurgeCounts{}, txErr("clear trash", err)
	}
	log.Info().Uint("actor_id", actor.ID).Int64("users", counts.Users).Int64("products", counts.Products).Msg("trash cleared")
	return counts, nil
}

// trashedUser loads a user in any state, authorizes action against it, then
// requires it to be in the trash. Policy denials win over ErrNotInTrash.
func (e *Engine) trashedUser(ctx context.Context, actor policy.Actor, action policy.Action, id uint) (*model.User, error) {
	u, err := e.users.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.ErrNotInTrash
		}
		return nil, apierror.Store("find user", err)
	}
	if err := policy.Authorize(actor, action, policy.Target{ID: u.ID, Role: u.Role}); err != nil {
		return nil, err
	}
	if !u.IsDeleted {
		return nil, apierror.ErrNotInTrash
	}
	return u, nil
}

func (e *Engine) trashedProduct(ctx context.Context, actor policy.Actor, action policy.Action, id uint) (*model.Product, error) {
	p, err := e.products.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.ErrNotInTrash
		}
		return nil, apierror.Store("find product", err)
	}
	if err := policy.Authorize(actor, action, policy.Target{ID: p.ID, OwnerID: p.UserID}); err != nil {
		return nil, err
	}
	if !p.IsDeleted {
		return nil, apierror.ErrNotInTrash
	}
	return p, nil
}

func (e *Engine) removeOwnerImages(ctx context.Context, ownerIDs ...uint) {
	paths, err := e.products.ImagePathsByOwner(ctx, ownerIDs...)
	if err != nil {
		log.Warn().Err(err).Msg("lifecycle: could not list owner images")
		return
	}
	for _, p := range paths {
		e.removeImage(p)
	}
}

func (e *Engine) removeImage(path string) {
	if path == "" {
		return
	}
	if err := e.files.Delete(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("lifecycle: image delete failed")
	}
}

func lookupErr(what string, err error) error {
	if repository.IsNotFound(err) {
		return apierror.NotFound(what)
	}
	return apierror.Store("find "+what, err)
}

// txErr maps a failed transaction. A row that vanished between the read and the
// write surfaces as not found; anything else is a store failure.
func txErr(op string, err error) error {
	if repository.IsNotFound(err) {
		return apierror.ErrNotFound
	}
	return apierror.Store(op, err)
}
