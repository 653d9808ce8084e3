package handler

import (
	"errors"
	"fmt"
	"net/http"

	"storekeep/internal/apierror"
	"storekeep/internal/dto"
	"storekeep/internal/middleware"
	"storekeep/internal/service"

	"github.com/gin-gonic/gin"
)

// imageField is the multipart part carrying the product image.
const imageField = "image"

type ProductsHandler struct {
	svc           service.CatalogService
	maxImageBytes int64
}

func NewProductsHandler(svc service.CatalogService, maxImageBytes int64) *ProductsHandler {
	return &ProductsHandler{svc: svc, maxImageBytes: maxImageBytes}
}

// List godoc
// @Summary List products visible to the caller
// @Description Users see their own products; staff see every active product with its owner.
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductResponse
// @Router /v1/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get one product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.ProductResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id} [get]
func (h *ProductsHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a product
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Name"
// @Param price formData number true "Unit price"
// @Param quantity formData int true "Quantity"
// @Param image formData file false "jpg, jpeg, png or gif"
// @Success 201 {object} dto.ProductResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !bindFormAndValidate(c, &req) {
		return
	}
	img, closeImg, ok := h.image(c)
	if !ok {
		return
	}
	defer closeImg()

	resp, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), req, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary Update a product
// @Description Without an image part the current image is kept.
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param name formData string true "Name"
// @Param price formData number true "Unit price"
// @Param quantity formData int true "Quantity"
// @Param image formData file false "Replacement image"
// @Success 200 {object} dto.ProductResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id} [put]
func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductRequest
	if !bindFormAndValidate(c, &req) {
		return
	}
	img, closeImg, ok := h.image(c)
	if !ok {
		return
	}
	defer closeImg()

	resp, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, req, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Move a product to the trash
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id} [delete]
func (h *ProductsHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product moved to trash"})
}

// Catalog godoc
// @Summary Public product listing
// @Tags products
// @Produce json
// @Success 200 {array} dto.ProductResponse
// @Router /v1/catalog [get]
func (h *ProductsHandler) Catalog(c *gin.Context) {
	resp, err := h.svc.PublicListing(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// image opens the optional image part. The returned close func is always safe to call.
func (h *ProductsHandler) image(c *gin.Context) (*service.ImageUpload, func(), bool) {
	noop := func() {}
	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, true
		}
		c.JSON(http.StatusBadRequest, apierror.New("invalid image upload"))
		return nil, noop, false
	}
	if h.maxImageBytes > 0 && fh.Size > h.maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New(fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes)))
		return nil, noop, false
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return nil, noop, false
	}
	return &service.ImageUpload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, true
}
