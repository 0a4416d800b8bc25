package http

import (
	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/interfaces/http/middleware"
	"github.com/payhole/payments/internal/interfaces/http/routes"
)

// SetupRoutes configures middleware and all HTTP routes
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.Logger(c.log.Named("access")))
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))
	c.engine.Use(middleware.SecurityHeaders())

	var payLimit gin.HandlerFunc
	if c.rateLimiter != nil {
		payLimit = middleware.RateLimit(c.rateLimiter, c.log.Named("ratelimit"))
	}

	routes.SetupPaymentRoutes(c.engine, &routes.PaymentRouteConfig{
		PaymentHandler: c.paymentHandler,
		PayRateLimit:   payLimit,
	})
}

// GetEngine returns the Gin engine
func (c *Container) GetEngine() *gin.Engine {
	return c.engine
}
