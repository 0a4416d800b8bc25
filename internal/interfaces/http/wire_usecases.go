package http

import (
	paymentUsecases "github.com/payhole/payments/internal/application/payment/usecases"
	"github.com/payhole/payments/internal/interfaces/http/handlers"
)

// allUseCases groups the use cases served over HTTP.
type allUseCases struct {
	verifyPaymentUC   *paymentUsecases.VerifyPaymentUseCase
	getUnlockStatusUC *paymentUsecases.GetUnlockStatusUseCase
	listUnlocksUC     *paymentUsecases.ListUnlocksUseCase
}

func (c *Container) initUseCases() {
	log := c.log.Named("payments")

	c.ucs = &allUseCases{
		verifyPaymentUC: paymentUsecases.NewVerifyPaymentUseCase(
			c.verifier,
			c.tokens,
			c.ledger,
			c.notifier,
			c.cfg.Webhook.Timeout,
			log,
		),
		getUnlockStatusUC: paymentUsecases.NewGetUnlockStatusUseCase(c.tokens, c.ledger, log),
		listUnlocksUC:     paymentUsecases.NewListUnlocksUseCase(c.ledger, log),
	}
}

func (c *Container) initHandlers() {
	c.paymentHandler = handlers.NewPaymentHandler(
		c.ucs.verifyPaymentUC,
		c.ucs.getUnlockStatusUC,
		c.ucs.listUnlocksUC,
		c.log.Named("http"),
	)
}
