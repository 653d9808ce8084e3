package handler

import (
	"net/http"

	"storekeep/internal/dto"
	"storekeep/internal/middleware"
	"storekeep/internal/service"

	"github.com/gin-gonic/gin"
)

type BackupsHandler struct{ svc service.BackupService }

func NewBackupsHandler(svc service.BackupService) *BackupsHandler { return &BackupsHandler{svc: svc} }

// List godoc
// @Summary List backup files, newest first
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.BackupInfo
// @Failure 403 {object} apierror.APIError
// @Router /v1/admin/backups [get]
func (h *BackupsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Start a database backup
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Success 202 {object} dto.BackupJobResponse
// @Router /v1/admin/backups [post]
func (h *BackupsHandler) Create(c *gin.Context) {
	resp, err := h.svc.Create(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Restore godoc
// @Summary Restore the database from a backup file
// @Tags backups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.BackupRequest true "Backup file"
// @Success 202 {object} dto.BackupJobResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/admin/backups/restore [post]
func (h *BackupsHandler) Restore(c *gin.Context) {
	var req dto.BackupRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Restore(c.Request.Context(), middleware.Actor(c), req.Filename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Delete godoc
// @Summary Delete a backup file
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Param filename path string true "Backup file name"
// @Success 200 {object} dto.MessageResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/backups/{filename} [delete]
func (h *BackupsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), c.Param("filename")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "backup deleted"})
}

// Job godoc
// @Summary Status of a backup or restore job
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} dto.BackupJobResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/admin/backups/jobs/{id} [get]
func (h *BackupsHandler) Job(c *gin.Context) {
	resp, err := h.svc.Job(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FailedJobs godoc
// @Summary Dead-lettered backup and email jobs
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.FailedJobResponse
// @Router /v1/admin/backups/failed [get]
func (h *BackupsHandler) FailedJobs(c *gin.Context) {
	resp, err := h.svc.FailedJobs(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
