package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/service"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// WorkSummary godoc
// @Summary Generate a summary report of the caller's published works
// @Tags Reports
// @Produce json
// @Param format query string false "Report format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/works [get]
func (h *ReportHandler) WorkSummary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ReportFormat(c.DefaultQuery("format", "pdf"))
	result, err := h.service.GenerateWorkSummary(c.Request.Context(), claims.UserID, format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated report via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	result, err := h.service.ResolveDownload(c.Param("token"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", result.File, nil)
}
