package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketing-engine/internal/models"
	"ticketing-engine/internal/repositories"
	"ticketing-engine/internal/services"
)

// AdminHandler exposes the operator surface: catalog management,
// coupon management, stock inspection, and forced issuance.
type AdminHandler struct {
	ticketTypes *repositories.TicketTypeRepository
	coupons     *repositories.CouponRepository
	inventory   *repositories.InventoryRepository
	issuer      *services.TicketIssuer
	sweeper     *services.ExpirySweeper
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	ticketTypes *repositories.TicketTypeRepository,
	coupons *repositories.CouponRepository,
	inventory *repositories.InventoryRepository,
	issuer *services.TicketIssuer,
	sweeper *services.ExpirySweeper,
) *AdminHandler {
	return &AdminHandler{
		ticketTypes: ticketTypes,
		coupons:     coupons,
		inventory:   inventory,
		issuer:      issuer,
		sweeper:     sweeper,
	}
}

// CreateTicketType handles POST /admin/ticket-types
func (h *AdminHandler) CreateTicketType(c *gin.Context) {
	var req models.TicketTypeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tt, err := h.ticketTypes.Create(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, tt)
}

// ListTicketTypes handles GET /admin/ticket-types
func (h *AdminHandler) ListTicketTypes(c *gin.Context) {
	ticketTypes, err := h.ticketTypes.List(false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket_types": ticketTypes})
}

// GetStock handles GET /admin/ticket-types/:id/stock. It reports the
// counters together with the conservation check result.
func (h *AdminHandler) GetStock(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket type id"})
		return
	}

	counters, err := h.inventory.GetCounters(id)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"ticket_type_id": counters.ID,
		"total_stock":    counters.TotalStock,
		"available":      counters.Available,
		"reserved":       counters.Reserved,
		"sold":           counters.Sold,
	}

	if err := counters.CheckConservation(); err != nil {
		response["invariant_violation"] = err.Error()
	}

	c.JSON(http.StatusOK, response)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetTicketTypeActive handles POST /admin/ticket-types/:id/active
func (h *AdminHandler) SetTicketTypeActive(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket type id"})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ticketTypes.SetActive(id, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ticket type updated"})
}

// ListCoupons handles GET /admin/coupons
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// CreateCoupon handles POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req models.CouponCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := h.coupons.Create(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, coupon)
}

// SetCouponActive handles POST /admin/coupons/:id/active
func (h *AdminHandler) SetCouponActive(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coupons.SetActive(id, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	coupon, err := h.coupons.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, coupon)
}

// CouponUsage handles GET /admin/coupons/usage
func (h *AdminHandler) CouponUsage(c *gin.Context) {
	report, err := h.coupons.UsageReport()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": report})
}

type forceIssueRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// ForceIssue handles POST /admin/bookings/:id/issue. Issuance outside
// the payment flow requires an explicit actor for the audit trail.
func (h *AdminHandler) ForceIssue(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req forceIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := h.issuer.Issue(&services.IssueRequest{
		BookingID: id,
		Actor:     req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// Sweep handles POST /admin/sweep, running one expiry sweep on demand.
func (h *AdminHandler) Sweep(c *gin.Context) {
	swept, err := h.sweeper.SweepOnce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired_bookings": swept})
}
