package usecases

import (
	"context"

	"github.com/payhole/payments/internal/domain/unlock"
	apperrors "github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/logger"
)

// ClearUnlocksUseCase removes every unlock record. Issued credentials stay
// cryptographically valid but status lookups report them as not found.
type ClearUnlocksUseCase struct {
	ledger unlock.Ledger
	logger logger.Interface
}

func NewClearUnlocksUseCase(ledger unlock.Ledger, logger logger.Interface) *ClearUnlocksUseCase {
	return &ClearUnlocksUseCase{ledger: ledger, logger: logger}
}

// Execute returns how many records existed before the clear.
func (uc *ClearUnlocksUseCase) Execute(ctx context.Context) (int, error) {
	records, err := uc.ledger.All(ctx)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read unlock records").WithCause(err)
	}

	if err := uc.ledger.Clear(ctx); err != nil {
		uc.logger.Errorw("failed to clear unlock records", "error", err)
		return 0, apperrors.NewInternalError("failed to clear unlock records").WithCause(err)
	}

	uc.logger.Warnw("unlock ledger cleared", "records", len(records))
	return len(records), nil
}
