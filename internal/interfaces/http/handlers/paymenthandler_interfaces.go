package handlers

import (
	"context"

	"github.com/payhole/payments/internal/application/payment/usecases"
	"github.com/payhole/payments/internal/domain/unlock"
)

// Use case interfaces for PaymentHandler

type verifyPaymentUseCase interface {
	Execute(ctx context.Context, cmd usecases.VerifyPaymentCommand) (*usecases.VerifyPaymentResult, error)
}

type getUnlockStatusUseCase interface {
	Execute(ctx context.Context, token string) (*usecases.UnlockStatusResult, error)
}

type listUnlocksUseCase interface {
	Execute(ctx context.Context, wallet string) ([]*unlock.UnlockRecord, error)
}
