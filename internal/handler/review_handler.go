package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/service"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/response"
)

// ReviewHandler wires HTTP endpoints to the review service.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler creates a new handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Record godoc
// @Summary Record a review for a completed work
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body service.RecordReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews [post]
func (h *ReviewHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RecordReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	review, err := h.service.Record(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, review)
}

// ListForUser godoc
// @Summary List reviews received by a user
// @Tags Reviews
// @Produce json
// @Param id path string true "User ID"
// @Param type query string false "Review type filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/user/{id} [get]
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	reviews, err := h.service.ListForUser(c.Request.Context(), c.Param("id"), c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}

// ListForWork godoc
// @Summary List reviews attached to a work item
// @Tags Reviews
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/work/{id} [get]
func (h *ReviewHandler) ListForWork(c *gin.Context) {
	reviews, err := h.service.ListForWork(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}

// ListAuthored godoc
// @Summary List reviews written by the caller
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/authored [get]
func (h *ReviewHandler) ListAuthored(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reviews, err := h.service.ListAuthoredBy(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}

// RatingSummary godoc
// @Summary Aggregate rating for a user
// @Tags Reviews
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/rating [get]
func (h *ReviewHandler) RatingSummary(c *gin.Context) {
	summary, err := h.service.RatingSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
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
