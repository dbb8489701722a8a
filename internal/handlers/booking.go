package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-engine/internal/services"
)

// BookingHandler exposes the booking workflow over HTTP.
type BookingHandler struct {
	service *services.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req services.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateBooking(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetBooking handles GET /bookings/:number
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetBooking(c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelBooking handles POST /bookings/:number/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	if err := h.service.CancelBooking(c.Param("number")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}
