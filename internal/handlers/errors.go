package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-engine/internal/models"
)

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsCouponRejected(err):
		var rejected *models.CouponRejectedError
		errors.As(err, &rejected)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "coupon rejected",
			"code":   rejected.Code,
			"reason": rejected.Reason,
		})
	case models.IsInvariantViolation(err):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrTicketTypeNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrPaymentNotFound),
		errors.Is(err, models.ErrCouponNotFound),
		errors.Is(err, models.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
