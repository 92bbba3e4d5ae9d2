package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/models"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/response"
)

type completionService interface {
	GenerateCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error)
	GetCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error)
	VerifyAndComplete(ctx context.Context, workID, submittedCode string, claims *models.JWTClaims) (*models.Work, error)
}

// CompletionHandler wires HTTP endpoints to the completion handshake service.
type CompletionHandler struct {
	service completionService
}

// NewCompletionHandler creates a new handler.
func NewCompletionHandler(svc completionService) *CompletionHandler {
	return &CompletionHandler{service: svc}
}

// GenerateCode godoc
// @Summary Generate (or regenerate) the completion code for a work item
// @Tags Completion
// @Produce json
// @Param id path string true "Work ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/completion-code [post]
func (h *CompletionHandler) GenerateCode(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	code, err := h.service.GenerateCode(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, code)
}

// GetCode godoc
// @Summary Fetch the current completion code
// @Tags Completion
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/completion-code [get]
func (h *CompletionHandler) GetCode(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	code, err := h.service.GetCode(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, code, nil)
}

// Complete godoc
// @Summary Complete a work item by submitting the completion code
// @Tags Completion
// @Accept json
// @Produce json
// @Param id path string true "Work ID"
// @Param payload body object true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/complete [post]
func (h *CompletionHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "code is required"))
		return
	}

	work, err := h.service.VerifyAndComplete(c.Request.Context(), c.Param("id"), payload.Code, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}
