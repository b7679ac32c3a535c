// internal/handlers/review.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/review"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// GET /reviews
func (h *ReviewHandler) GetMyReviews(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	reviews, err := h.reviewService.GetUserReviews(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, reviews)
}

// POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req review.Input
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.reviewService.CreateReview(c.Request.Context(), identity, req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, r)
}

// PUT /reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.reviewService.UpdateReview(c.Request.Context(), identity, c.Param("id"), &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, r)
}

// DELETE /reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), userID, c.Param("id")); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyReviewDeleted, nil)
}
