package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/models"
	"github.com/melo-app/melo-api/internal/service"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/response"
)

// WorkHandler wires HTTP endpoints to the work service.
type WorkHandler struct {
	service *service.WorkService
}

// NewWorkHandler creates a new handler.
func NewWorkHandler(svc *service.WorkService) *WorkHandler {
	return &WorkHandler{service: svc}
}

// Publish godoc
// @Summary Publish a new work item
// @Tags Works
// @Accept json
// @Produce json
// @Param payload body service.PublishWorkRequest true "Work payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /works [post]
func (h *WorkHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PublishWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work payload"))
		return
	}
	req.EmployerID = claims.UserID

	work, err := h.service.Publish(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, work)
}

// List godoc
// @Summary List works
// @Tags Works
// @Produce json
// @Param employerId query string false "Filter by employer"
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /works [get]
func (h *WorkHandler) List(c *gin.Context) {
	var filter models.WorkFilter
	filter.EmployerID = c.Query("employerId")
	filter.EmployeeID = c.Query("employeeId")
	filter.Status = strings.TrimSpace(c.Query("status"))
	filter.Category = strings.TrimSpace(c.Query("category"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	works, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, works, pagination)
}

// Get godoc
// @Summary Fetch a single work item
// @Tags Works
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id} [get]
func (h *WorkHandler) Get(c *gin.Context) {
	work, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}

// Active godoc
// @Summary Fetch the caller's active work as employee
// @Tags Works
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /works/active [get]
func (h *WorkHandler) Active(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	work, err := h.service.ActiveForEmployee(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}

// Update godoc
// @Summary Update work details
// @Tags Works
// @Accept json
// @Produce json
// @Param id path string true "Work ID"
// @Param payload body service.UpdateWorkRequest true "Work payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id} [put]
func (h *WorkHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work payload"))
		return
	}

	work, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}

// Assign godoc
// @Summary Assign an employee to a work item
// @Tags Works
// @Accept json
// @Produce json
// @Param id path string true "Work ID"
// @Param payload body service.AssignEmployeeRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/assign [patch]
func (h *WorkHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AssignEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	work, err := h.service.Assign(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}

// SetStatus godoc
// @Summary Change work status
// @Tags Works
// @Accept json
// @Produce json
// @Param id path string true "Work ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id}/status [patch]
func (h *WorkHandler) SetStatus(c *gin.Context) {
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

	work, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), payload.Status, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, work, nil)
}

// Delete godoc
// @Summary Delete a work item and its dependents
// @Tags Works
// @Produce json
// @Param id path string true "Work ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /works/{id} [delete]
func (h *WorkHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
