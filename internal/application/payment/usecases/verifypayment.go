package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	"github.com/payhole/payments/internal/application/payment/credential"
	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/domain/unlock"
	apperrors "github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/goroutine"
	"github.com/payhole/payments/internal/shared/logger"
)

const defaultNotifyTimeout = 5 * time.Second

type VerifyPaymentCommand struct {
	Wallet    string
	Signature string
	ClientIP  string
}

type VerifyPaymentResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Wallet    string    `json:"wallet"`
	Amount    float64   `json:"amount"`
	Mint      string    `json:"mint"`
	Slot      uint64    `json:"slot"`
}

// VerifyPaymentUseCase exchanges a confirmed on-chain payment for an unlock
// credential and records the grant in the ledger.
type VerifyPaymentUseCase struct {
	verifier      blockchain.PaymentVerifier
	issuer        credential.Issuer
	ledger        unlock.Ledger
	notifier      notifier.UnlockNotifier
	notifyTimeout time.Duration
	now           func() time.Time
	logger        logger.Interface
}

// NewVerifyPaymentUseCase creates the use case. A nil notifier disables
// downstream notification.
func NewVerifyPaymentUseCase(
	verifier blockchain.PaymentVerifier,
	issuer credential.Issuer,
	ledger unlock.Ledger,
	unlockNotifier notifier.UnlockNotifier,
	notifyTimeout time.Duration,
	logger logger.Interface,
) *VerifyPaymentUseCase {
	if unlockNotifier == nil {
		unlockNotifier = notifier.Nop{}
	}
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &VerifyPaymentUseCase{
		verifier:      verifier,
		issuer:        issuer,
		ledger:        ledger,
		notifier:      unlockNotifier,
		notifyTimeout: notifyTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

// WithClock overrides the issuance clock.
func (uc *VerifyPaymentUseCase) WithClock(now func() time.Time) *VerifyPaymentUseCase {
	uc.now = now
	return uc
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, cmd VerifyPaymentCommand) (*VerifyPaymentResult, error) {
	wallet := strings.TrimSpace(cmd.Wallet)
	signature := strings.TrimSpace(cmd.Signature)
	if wallet == "" || signature == "" {
		return nil, apperrors.NewValidationError("wallet and signature are required")
	}

	uc.logger.Infow("verifying payment",
		"wallet", wallet,
		"signature", signature,
		"client_ip", cmd.ClientIP,
	)

	payment, err := uc.verifier.Verify(ctx, wallet, signature)
	if err != nil {
		var verr *blockchain.VerificationError
		if errors.As(err, &verr) {
			uc.logger.Warnw("payment verification failed",
				"wallet", wallet,
				"signature", signature,
				"reason", verr.Reason,
				"error", err,
			)
			return nil, apperrors.NewVerificationError(verr.Message).WithCause(err)
		}
		uc.logger.Warnw("payment verification failed",
			"wallet", wallet,
			"signature", signature,
			"error", err,
		)
		return nil, apperrors.NewVerificationError("payment verification failed").WithCause(err)
	}

	cred, err := uc.issuer.Issue(wallet, uc.now())
	if err != nil {
		uc.logger.Errorw("failed to issue credential", "wallet", wallet, "error", err)
		return nil, apperrors.NewInternalError("failed to issue credential").WithCause(err)
	}

	record, err := uc.ledger.Upsert(ctx, wallet, signature, cred.ExpiresAt)
	if err != nil {
		uc.logger.Errorw("failed to persist unlock record",
			"wallet", wallet,
			"signature", signature,
			"error", err,
		)
		return nil, apperrors.NewInternalError("failed to persist unlock").WithCause(err)
	}

	uc.logger.Infow("unlock granted",
		"wallet", wallet,
		"signature", signature,
		"slot", payment.Slot,
		"amount", payment.Amount,
		"expires_at", record.ExpiresAt,
	)

	uc.dispatch(notifier.UnlockEvent{
		Wallet:    record.Wallet,
		ExpiresAt: record.ExpiresAt,
		UpdatedAt: record.UpdatedAt,
		ClientIP:  cmd.ClientIP,
	})

	return &VerifyPaymentResult{
		Token:     cred.Token,
		ExpiresAt: record.ExpiresAt,
		Wallet:    wallet,
		Amount:    payment.Amount,
		Mint:      payment.Mint,
		Slot:      payment.Slot,
	}, nil
}

// dispatch notifies in the background; the response never waits on it.
func (uc *VerifyPaymentUseCase) dispatch(event notifier.UnlockEvent) {
	if _, ok := uc.notifier.(notifier.Nop); ok {
		return
	}
	goroutine.Detach(uc.logger, "unlock-notify", uc.notifyTimeout, func(ctx context.Context) {
		if err := uc.notifier.NotifyUnlock(ctx, event); err != nil {
			uc.logger.Warnw("failed to deliver unlock notification",
				"wallet", event.Wallet,
				"error", err,
			)
		}
	})
}
