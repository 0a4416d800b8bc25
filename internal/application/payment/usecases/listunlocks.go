package usecases

import (
	"context"
	"strings"

	"github.com/payhole/payments/internal/domain/unlock"
	apperrors "github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/logger"
)

// ListUnlocksUseCase returns one wallet's record, or every record newest first.
type ListUnlocksUseCase struct {
	ledger unlock.Ledger
	logger logger.Interface
}

func NewListUnlocksUseCase(ledger unlock.Ledger, logger logger.Interface) *ListUnlocksUseCase {
	return &ListUnlocksUseCase{ledger: ledger, logger: logger}
}

// Execute with an empty wallet lists everything.
func (uc *ListUnlocksUseCase) Execute(ctx context.Context, wallet string) ([]*unlock.UnlockRecord, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		records, err := uc.ledger.All(ctx)
		if err != nil {
			uc.logger.Errorw("failed to list unlock records", "error", err)
			return nil, apperrors.NewInternalError("failed to list unlock records").WithCause(err)
		}
		return records, nil
	}

	record, err := uc.ledger.Get(ctx, wallet)
	if err != nil {
		uc.logger.Errorw("failed to read unlock record", "wallet", wallet, "error", err)
		return nil, apperrors.NewInternalError("failed to read unlock record").WithCause(err)
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("Unlock record not found")
	}
	return []*unlock.UnlockRecord{record}, nil
}
