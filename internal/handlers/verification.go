package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-engine/internal/services"
)

// VerificationHandler exposes the door-side ticket verification surface.
type VerificationHandler struct {
	service *services.TicketService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(service *services.TicketService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// VerifyTicket handles GET /verify/:number?token=...
func (h *VerificationHandler) VerifyTicket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	ticket, err := h.service.Verify(c.Param("number"), token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket": ticket,
		"valid":  ticket.IsActive(),
	})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// CheckIn handles POST /verify/checkin
func (h *VerificationHandler) CheckIn(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.service.CheckIn(req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// RenewToken handles POST /verify/renew
func (h *VerificationHandler) RenewToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.service.RenewToken(req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
