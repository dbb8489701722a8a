package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-engine/internal/models"
	"ticketing-engine/internal/services"
)

// SignatureHeader carries the gateway's HMAC of the raw request body.
const SignatureHeader = "X-Checkout-Signature"

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	reconciler *services.PaymentReconciler
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler *services.PaymentReconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleCheckoutWebhook handles POST /webhooks/checkout. A 5xx answer
// asks the gateway to redeliver; terminal outcomes, including coupon
// rejections persisted during issuance, answer 200 so the delivery is
// not retried forever.
func (h *WebhookHandler) HandleCheckoutWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader(SignatureHeader)

	err = h.reconciler.HandleNotification(payload, signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "notification processed"})
	case errors.Is(err, models.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case models.IsCouponRejected(err):
		c.JSON(http.StatusOK, gin.H{"message": "booking rejected, reservation released"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
