package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/middleware"
	"ticketing-engine/internal/repositories"
)

// Router bundles the handlers behind the HTTP surface.
type Router struct {
	Bookings     *BookingHandler
	Webhooks     *WebhookHandler
	Admin        *AdminHandler
	Verification *VerificationHandler
	TicketTypes  *repositories.TicketTypeRepository
	Log          *logrus.Logger
}

// Setup builds the gin engine with all routes and middleware attached.
func (r *Router) Setup() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(r.Log))
	engine.Use(cors.Default())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public catalog
	engine.GET("/ticket-types", func(c *gin.Context) {
		ticketTypes, err := r.TicketTypes.List(true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ticket_types": ticketTypes})
	})

	bookings := engine.Group("/bookings")
	{
		bookings.POST("", r.Bookings.CreateBooking)
		bookings.GET("/:number", r.Bookings.GetBooking)
		bookings.POST("/:number/cancel", r.Bookings.CancelBooking)
	}

	engine.POST("/webhooks/checkout", r.Webhooks.HandleCheckoutWebhook)

	verify := engine.Group("/verify")
	{
		verify.GET("/:number", r.Verification.VerifyTicket)
		verify.POST("/checkin", r.Verification.CheckIn)
		verify.POST("/renew", r.Verification.RenewToken)
	}

	admin := engine.Group("/admin")
	{
		admin.POST("/ticket-types", r.Admin.CreateTicketType)
		admin.GET("/ticket-types", r.Admin.ListTicketTypes)
		admin.GET("/ticket-types/:id/stock", r.Admin.GetStock)
		admin.POST("/ticket-types/:id/active", r.Admin.SetTicketTypeActive)
		admin.POST("/coupons", r.Admin.CreateCoupon)
		admin.GET("/coupons", r.Admin.ListCoupons)
		admin.POST("/coupons/:id/active", r.Admin.SetCouponActive)
		admin.GET("/coupons/usage", r.Admin.CouponUsage)
		admin.POST("/bookings/:id/issue", r.Admin.ForceIssue)
		admin.POST("/sweep", r.Admin.Sweep)
	}

	return engine
}
