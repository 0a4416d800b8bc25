package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/infrastructure/auth"
	"github.com/payhole/payments/internal/infrastructure/config"
	"github.com/payhole/payments/internal/infrastructure/ratelimit"
	"github.com/payhole/payments/internal/interfaces/http/handlers"
	"github.com/payhole/payments/internal/shared/logger"
)

// Container holds all infrastructure components, use cases and handlers of
// the payments API. It is responsible for wiring everything together and
// providing a Shutdown() method for graceful termination.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	// Infrastructure services
	ledger      unlock.Ledger
	verifier    blockchain.PaymentVerifier
	tokens      *auth.UnlockTokenService
	notifier    notifier.UnlockNotifier
	rateLimiter ratelimit.RateLimiter

	// Resources released on shutdown, in order
	closers []namedCloser

	// Use cases
	ucs *allUseCases

	// Handlers
	paymentHandler *handlers.PaymentHandler
}

type namedCloser struct {
	name  string
	close func() error
}

// ContainerOption customizes construction, mostly for tests.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	httpClient  *http.Client
	redisClient *redis.Client
}

// WithHTTPClient sets the client used for the chain RPC and the webhook.
func WithHTTPClient(client *http.Client) ContainerOption {
	return func(o *containerOptions) { o.httpClient = client }
}

// WithRedisClient uses an existing redis client instead of dialing one.
func WithRedisClient(client *redis.Client) ContainerOption {
	return func(o *containerOptions) { o.redisClient = client }
}

// NewContainer creates a new Container with all dependencies wired together.
func NewContainer(ctx context.Context, cfg *config.Config, log logger.Interface, opts ...ContainerOption) (*Container, error) {
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		engine: gin.New(),
		cfg:    cfg,
		log:    log,
	}

	// Section 1: Infrastructure - Redis, Ledger, Verifier, Credentials
	if err := c.initInfrastructure(ctx, o); err != nil {
		c.Shutdown()
		return nil, err
	}

	// Section 2: Notifiers - Webhook, NATS, Redis Pub/Sub
	if err := c.initNotifiers(o); err != nil {
		c.Shutdown()
		return nil, err
	}

	// Section 3: Use cases and handlers
	c.initUseCases()
	c.initHandlers()

	if err := c.engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	return c, nil
}

// Shutdown releases every resource acquired by the container, in reverse
// order of acquisition.
func (c *Container) Shutdown() {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		closer := c.closers[i]
		if err := closer.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", closer.name, err))
		}
	}
	c.closers = nil

	if err := errors.Join(errs...); err != nil {
		c.log.Warnw("errors while releasing resources", "error", err)
	}
}

func (c *Container) addCloser(name string, fn func() error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

// Ledger returns the unlock ledger the container was built with.
func (c *Container) Ledger() unlock.Ledger {
	return c.ledger
}
