package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"storekeep/internal/apierror"
	"storekeep/internal/dto"
	"storekeep/internal/lifecycle"
	"storekeep/internal/model"
	"storekeep/internal/policy"
	"storekeep/internal/repository"
	"storekeep/internal/storage"

	"github.com/rs/zerolog/log"
)

// allowedImageExts lists the accepted product image extensions, lower case.
var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// ImageUpload is an uploaded product image. Only the extension of Filename is used.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// CatalogService manages products on behalf of their owners and of staff.
type CatalogService interface {
	List(ctx context.Context, actor policy.Actor) ([]dto.ProductResponse, error)
	Get(ctx context.Context, actor policy.Actor, id uint) (*dto.ProductResponse, error)
	Create(ctx context.Context, actor policy.Actor, req dto.ProductRequest, image *ImageUpload) (*dto.ProductResponse, error)
	Update(ctx context.Context, actor policy.Actor, id uint, req dto.ProductRequest, image *ImageUpload) (*dto.ProductResponse, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
	// PublicListing needs no session.
	PublicListing(ctx context.Context) ([]dto.ProductResponse, error)
}

type catalogService struct {
	products repository.ProductRepository
	files    storage.FileStore
	engine   *lifecycle.Engine
}

func NewCatalogService(products repository.ProductRepository, files storage.FileStore, engine *lifecycle.Engine) CatalogService {
	return &catalogService{products: products, files: files, engine: engine}
}

func (s *catalogService) List(ctx context.Context, actor policy.Actor) ([]dto.ProductResponse, error) {
	if !actor.Authenticated() {
		return nil, apierror.ErrUnauthenticated
	}
	var (
		products []model.Product
		err      error
	)
	if actor.Role.IsStaff() {
		products, err = s.products.ListAll(ctx)
	} else {
		products, err = s.products.ListByOwner(ctx, actor.ID)
	}
	if err != nil {
		return nil, apierror.Store("list products", err)
	}
	return toProductResponses(products), nil
}

func (s *catalogService) Get(ctx context.Context, actor policy.Actor, id uint) (*dto.ProductResponse, error) {
	p, err := s.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *catalogService) Create(ctx context.Context, actor policy.Actor, req dto.ProductRequest, image *ImageUpload) (*dto.ProductResponse, error) {
	if !actor.Authenticated() {
		return nil, apierror.ErrUnauthenticated
	}
	if err := checkProduct(req); err != nil {
		return nil, err
	}
	ext, err := imageExt(image)
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price.Round(2),
		Quantity: req.Quantity,
		UserID:   actor.ID,
	}
	if image != nil {
		path, err := s.files.Save(storage.ProductImagesDir, ext, image.Content)
		if err != nil {
			return nil, apierror.Store("save image", err)
		}
		p.ImagePath = &path
	}

	if err := s.products.Create(ctx, p); err != nil {
		if p.ImagePath != nil {
			s.discard(*p.ImagePath)
		}
		return nil, apierror.Store("create product", err)
	}
	log.Info().Uint("product_id", p.ID).Uint("owner_id", p.UserID).Msg("product created")
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *catalogService) Update(ctx context.Context, actor policy.Actor, id uint, req dto.ProductRequest, image *ImageUpload) (*dto.ProductResponse, error) {
	p, err := s.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkProduct(req); err != nil {
		return nil, err
	}
	ext, err := imageExt(image)
	if err != nil {
		return nil, err
	}

	var oldImage, newImage string
	if image != nil {
		newImage, err = s.files.Save(storage.ProductImagesDir, ext, image.Content)
		if err != nil {
			return nil, apierror.Store("save image", err)
		}
		if p.ImagePath != nil {
			oldImage = *p.ImagePath
		}
		p.ImagePath = &newImage
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Price = req.Price.Round(2)
	p.Quantity = req.Quantity

	if err := s.products.Update(ctx, p); err != nil {
		if newImage != "" {
			s.discard(newImage)
		}
		if repository.IsNotFound(err) {
			return nil, apierror.NotFound("product")
		}
		return nil, apierror.Store("update product", err)
	}
	if oldImage != "" {
		s.discard(oldImage)
	}
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *catalogService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	return s.engine.TrashProduct(ctx, actor, id)
}

func (s *catalogService) PublicListing(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, apierror.Store("list products", err)
	}
	return toProductResponses(products), nil
}

// authorized loads an active product the actor may manage.
func (s *catalogService) authorized(ctx context.Context, actor policy.Actor, id uint) (*model.Product, error) {
	if !actor.Authenticated() {
		return nil, apierror.ErrUnauthenticated
	}
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.NotFound("product")
		}
		return nil, apierror.Store("find product", err)
	}
	if err := policy.Authorize(actor, policy.ManageProduct, policy.Target{ID: p.ID, OwnerID: p.UserID}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogService) discard(path string) {
	if err := s.files.Delete(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("catalog: image delete failed")
	}
}

func checkProduct(req dto.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apierror.Validation("name is required")
	}
	if req.Price.IsNegative() {
		return apierror.Validation("price must not be negative")
	}
	if req.Quantity < 0 {
		return apierror.Validation("quantity must not be negative")
	}
	return nil
}

// imageExt returns the normalized extension of an upload, or "" when there is none.
func imageExt(image *ImageUpload) (string, error) {
	if image == nil {
		return "", nil
	}
	ext := strings.ToLower(filepath.Ext(image.Filename))
	if !allowedImageExts[ext] {
		return "", apierror.ErrUnsupportedImageType
	}
	return ext, nil
}
