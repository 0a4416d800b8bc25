package blockchain

import (
	"context"
	"fmt"
	"math"
)

// USDCDecimals is the number of decimal places of the USDC mint.
const USDCDecimals = 6

// PaymentVerificationResult describes a confirmed transfer into the treasury.
// It is produced per verification attempt and never persisted.
type PaymentVerificationResult struct {
	Slot      uint64
	Signature string
	Amount    float64 // treasury delta in token units, display only
	AmountRaw int64   // treasury delta in base units
	Mint      string
}

// PaymentVerifier confirms that a wallet paid the treasury in a given transaction.
type PaymentVerifier interface {
	// Verify returns a *VerificationError when the transaction does not prove
	// a qualifying payment from wallet.
	Verify(ctx context.Context, wallet, signature string) (*PaymentVerificationResult, error)
}

// VerificationReason classifies why a payment could not be verified.
type VerificationReason string

const (
	ReasonRPCUnavailable         VerificationReason = "rpc_unavailable"
	ReasonRPCError               VerificationReason = "rpc_error"
	ReasonMalformedResponse      VerificationReason = "malformed_response"
	ReasonNotFound               VerificationReason = "transaction_not_found"
	ReasonFailedOnChain          VerificationReason = "transaction_failed"
	ReasonWalletNotInTransaction VerificationReason = "wallet_not_in_transaction"
	ReasonTreasuryNotInBalances  VerificationReason = "treasury_not_in_balances"
	ReasonInsufficientReceipt    VerificationReason = "insufficient_treasury_receipt"
	ReasonInsufficientDebit      VerificationReason = "insufficient_payer_debit"
)

// VerificationError reports a payment that could not be confirmed. Message is
// safe to show to the payer.
type VerificationError struct {
	Reason  VerificationReason
	Message string
	Err     error
}

func (e *VerificationError) Error() string {
	return e.Message
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// NewVerificationError builds a VerificationError with a formatted message.
func NewVerificationError(reason VerificationReason, cause error, format string, args ...any) *VerificationError {
	return &VerificationError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// ToRawAmount converts a token amount to base units, rounding to the nearest unit.
func ToRawAmount(amount float64, decimals int) int64 {
	return int64(math.Round(amount * math.Pow10(decimals)))
}

// FromRawAmount converts base units to a token amount for display.
func FromRawAmount(raw int64, decimals int) float64 {
	return float64(raw) / math.Pow10(decimals)
}
