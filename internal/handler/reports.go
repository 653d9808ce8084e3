package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"storekeep/internal/middleware"
	"storekeep/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

// Dashboard godoc
// @Summary User and product totals
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/admin/dashboard [get]
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Charts godoc
// @Summary Hourly creations over the last 24h and top owners
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ChartsResponse
// @Router /v1/admin/charts [get]
func (h *ReportsHandler) Charts(c *gin.Context) {
	resp, err := h.svc.Charts(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ServerStats godoc
// @Summary Process, runtime and database statistics
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ServerStatsResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/admin/server-stats [get]
func (h *ReportsHandler) ServerStats(c *gin.Context) {
	resp, err := h.svc.ServerStats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportPDF godoc
// @Summary Dashboard and top owners as a PDF
// @Tags reports
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/admin/report.pdf [get]
func (h *ReportsHandler) ExportPDF(c *gin.Context) {
	// Rendered into memory first so failures can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.svc.ExportPDF(c.Request.Context(), middleware.Actor(c), &buf); err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("storekeep_report_%s.pdf", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
