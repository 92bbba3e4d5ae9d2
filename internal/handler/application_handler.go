package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/service"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/response"
)

// ApplicationHandler wires HTTP endpoints to the application service.
type ApplicationHandler struct {
	service *service.ApplicationService
}

// NewApplicationHandler creates a new handler.
func NewApplicationHandler(svc *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Apply godoc
// @Summary Apply to a work item
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Work ID"
// @Param payload body service.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}

	app, err := h.service.Apply(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, app)
}

// ListForWork godoc
// @Summary List applications for a work item
// @Tags Applications
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/applications [get]
func (h *ApplicationHandler) ListForWork(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	apps, err := h.service.ListForWork(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, apps, nil)
}

// CheckApplied godoc
// @Summary Check whether the caller has a live application
// @Tags Applications
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/applications/check [get]
func (h *ApplicationHandler) CheckApplied(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	check, err := h.service.CheckApplied(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, check, nil)
}

// UpdateStatus godoc
// @Summary Accept or reject an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status is required"))
		return
	}

	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, app, nil)
}

// Withdraw godoc
// @Summary Withdraw own application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id}/withdraw [patch]
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	app, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, app, nil)
}
