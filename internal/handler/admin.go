package handler

import (
	"net/http"

	"storekeep/internal/dto"
	"storekeep/internal/middleware"
	"storekeep/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves staff management of users, products and the trash bin.
type AdminHandler struct{ svc service.AdminService }

func NewAdminHandler(svc service.AdminService) *AdminHandler { return &AdminHandler{svc: svc} }

// ListUsers godoc
// @Summary List active users with product counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AdminUserResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	resp, err := h.svc.ListUsers(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateUser godoc
// @Summary Change a user's role or active flag
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body dto.UpdateUserRequest true "Changes"
// @Success 200 {object} dto.UserResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateUser(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrashUser godoc
// @Summary Move a user and their products to the trash
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.TrashUserResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/users/{id} [delete]
func (h *AdminHandler) TrashUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.TrashUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListProducts godoc
// @Summary List every active product with its owner
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductResponse
// @Router /v1/admin/products [get]
func (h *AdminHandler) ListProducts(c *gin.Context) {
	resp, err := h.svc.ListProducts(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrashProduct godoc
// @Summary Move a product to the trash
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.MessageResponse
// @Router /v1/admin/products/{id} [delete]
func (h *AdminHandler) TrashProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.TrashProduct(c.Request.Context(), middleware.Actor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product moved to trash"})
}

// ── Trash bin ────────────────────────────────────────────────────────────────

// ListTrash godoc
// @Summary List trashed users and products
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.TrashResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/admin/trash [get]
func (h *AdminHandler) ListTrash(c *gin.Context) {
	resp, err := h.svc.ListTrash(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RestoreUser godoc
// @Summary Restore a trashed user and all of their products
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.RestoreUserResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/trash/users/{id}/restore [post]
func (h *AdminHandler) RestoreUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RestoreUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PurgeUser godoc
// @Summary Permanently delete a trashed user
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.PurgeResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/trash/users/{id} [delete]
func (h *AdminHandler) PurgeUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.PurgeUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RestoreProduct godoc
// @Summary Restore a trashed product
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.MessageResponse
// @Router /v1/admin/trash/products/{id}/restore [post]
func (h *AdminHandler) RestoreProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RestoreProduct(c.Request.Context(), middleware.Actor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product restored"})
}

// PurgeProduct godoc
// @Summary Permanently delete a trashed product
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.MessageResponse
// @Router /v1/admin/trash/products/{id} [delete]
func (h *AdminHandler) PurgeProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.PurgeProduct(c.Request.Context(), middleware.Actor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product permanently deleted"})
}

// ClearTrash godoc
// @Summary Purge everything in the trash
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.PurgeResponse
// @Router /v1/admin/trash [delete]
func (h *AdminHandler) ClearTrash(c *gin.Context) {
	resp, err := h.svc.ClearTrash(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
