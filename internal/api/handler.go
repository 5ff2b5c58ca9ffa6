package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"paynotify/internal/gateway"
	"paynotify/internal/models"
	"paynotify/internal/service"
	"paynotify/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	recon           *service.ReconcileService
	frontendBaseURL string
}

// NewHandler creates a new HTTP handler
func NewHandler(recon *service.ReconcileService, frontendBaseURL string) *Handler {
	return &Handler{
		recon:           recon,
		frontendBaseURL: frontendBaseURL,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	payments := router.Group("/payments")
	{
		payments.POST("/notification", h.paymentNotification)
		payments.GET("/completed", h.paymentCompleted)
		payments.GET("/failed", h.paymentFailed)
		payments.GET("/unfinish", h.paymentUnfinish)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/orders/:code", h.getOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// paymentNotification handles the gateway webhook
func (h *Handler) paymentNotification(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respond(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result, err := h.recon.Reconcile(c.Request.Context(), body)
	if err != nil {
		status, message := mapReconcileError(err)
		respond(c, status, message)
		return
	}

	respond(c, http.StatusOK, result.Summary())
}

// mapReconcileError translates pipeline failures to the webhook contract.
// The gateway retries on anything but 2xx, so each branch must stay stable.
func mapReconcileError(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrMalformedPayload):
		return http.StatusBadRequest, "Invalid JSON"
	case errors.Is(err, gateway.ErrMissingField):
		return http.StatusBadRequest, "Required fields are missing in JSON"
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusForbidden, "Invalid signature"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, service.ErrAlreadyPaid):
		return http.StatusUnprocessableEntity, "The order has been paid before"
	default:
		return http.StatusInternalServerError, "Payment creation failed"
	}
}

// paymentCompleted handles the buyer returning from a finished gateway flow.
// Orders still unpaid bounce to the failed route; the webhook may simply not
// have arrived yet.
func (h *Handler) paymentCompleted(c *gin.Context) {
	code := c.Query("order_id")

	status, err := h.recon.OrderPaymentStatus(c.Request.Context(), code)
	if err != nil {
		h.orderLookupError(c, err)
		return
	}

	if status != models.OrderPaid {
		c.Redirect(http.StatusFound, "/payments/failed?order_id="+code)
		return
	}

	c.Redirect(http.StatusFound, h.frontendBaseURL+"/payments/success")
}

// paymentFailed handles the buyer returning from a failed gateway flow
func (h *Handler) paymentFailed(c *gin.Context) {
	h.redirectToReceived(c)
}

// paymentUnfinish handles the buyer abandoning the gateway flow
func (h *Handler) paymentUnfinish(c *gin.Context) {
	h.redirectToReceived(c)
}

func (h *Handler) redirectToReceived(c *gin.Context) {
	code := c.Query("order_id")

	order, _, err := h.recon.GetOrder(c.Request.Context(), code)
	if err != nil {
		h.orderLookupError(c, err)
		return
	}

	c.Redirect(http.StatusFound,
		fmt.Sprintf("%s/orders/received/%d", h.frontendBaseURL, order.ID))
}

func (h *Handler) orderLookupError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrOrderNotFound) {
		respond(c, http.StatusNotFound, "Order not found")
		return
	}
	respond(c, http.StatusInternalServerError, "Failed to look up order")
}

// getOrder handles get order by business code
func (h *Handler) getOrder(c *gin.Context) {
	code := c.Param("code")

	order, payments, err := h.recon.GetOrder(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"payments": payments,
	})
}

func respond(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
