package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/interfaces/http/handlers"
)

// PaymentRouteConfig holds dependencies for payment routes.
type PaymentRouteConfig struct {
	PaymentHandler *handlers.PaymentHandler
	// PayRateLimit guards POST /pay; nil disables limiting.
	PayRateLimit gin.HandlerFunc
}

// SetupPaymentRoutes configures payment routes.
func SetupPaymentRoutes(engine *gin.Engine, cfg *PaymentRouteConfig) {
	engine.GET("/health", cfg.PaymentHandler.Health)

	pay := []gin.HandlerFunc{cfg.PaymentHandler.Pay}
	if cfg.PayRateLimit != nil {
		pay = append([]gin.HandlerFunc{cfg.PayRateLimit}, pay...)
	}
	engine.POST("/pay", pay...)

	engine.GET("/status", cfg.PaymentHandler.Status)
	engine.GET("/unlocks", cfg.PaymentHandler.Unlocks)
}
