package usecases

import (
	"context"
	"time"

	"github.com/payhole/payments/internal/application/payment/credential"
	"github.com/payhole/payments/internal/domain/unlock"
	apperrors "github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/logger"
)

type UnlockStatusResult struct {
	Wallet        string    `json:"wallet"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RemainingDays int       `json:"remainingDays"`
	Signature     string    `json:"signature"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GetUnlockStatusUseCase reports the ledger state of the wallet a credential
// was issued to. The ledger is authoritative: a valid credential whose
// record has been cleared is reported as not found.
type GetUnlockStatusUseCase struct {
	verifier credential.Verifier
	ledger   unlock.Ledger
	now      func() time.Time
	logger   logger.Interface
}

func NewGetUnlockStatusUseCase(verifier credential.Verifier, ledger unlock.Ledger, logger logger.Interface) *GetUnlockStatusUseCase {
	return &GetUnlockStatusUseCase{
		verifier: verifier,
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (uc *GetUnlockStatusUseCase) WithClock(now func() time.Time) *GetUnlockStatusUseCase {
	uc.now = now
	return uc
}

func (uc *GetUnlockStatusUseCase) Execute(ctx context.Context, token string) (*UnlockStatusResult, error) {
	claims, err := uc.verifier.Verify(token)
	if err != nil {
		uc.logger.Debugw("rejected unlock credential", "error", err)
		return nil, apperrors.NewUnauthorizedError("Invalid or expired token").WithCause(err)
	}

	record, err := uc.ledger.Get(ctx, claims.Wallet)
	if err != nil {
		uc.logger.Errorw("failed to read unlock record", "wallet", claims.Wallet, "error", err)
		return nil, apperrors.NewInternalError("failed to read unlock record").WithCause(err)
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("Unlock record not found")
	}

	return &UnlockStatusResult{
		Wallet:        record.Wallet,
		ExpiresAt:     record.ExpiresAt,
		RemainingDays: record.DaysRemaining(uc.now()),
		Signature:     record.Signature,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}, nil
}
