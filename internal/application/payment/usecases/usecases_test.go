package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/infrastructure/auth"
	"github.com/payhole/payments/internal/infrastructure/ledger"
	apperrors "github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fixture wires the use cases to a real file ledger and credential service
// sharing one adjustable clock.
type fixture struct {
	now      time.Time
	verifier *mockPaymentVerifier
	notifier *channelNotifier
	tokens   *auth.UnlockTokenService
	ledger   unlock.Ledger
	pay      *VerifyPaymentUseCase
	status   *GetUnlockStatusUseCase
	list     *ListUnlocksUseCase
	clear    *ClearUnlocksUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:      baseTime,
		verifier: new(mockPaymentVerifier),
		notifier: newChannelNotifier(),
	}
	clock := func() time.Time { return f.now }

	tokens, err := auth.NewUnlockTokenService(testSecret, "payhole-payments")
	require.NoError(t, err)
	f.tokens = tokens.WithClock(clock)

	log := logger.NewNop()
	f.ledger = ledger.NewFileStore(filepath.Join(t.TempDir(), "unlocks.json"), log, ledger.WithClock(clock))

	f.pay = NewVerifyPaymentUseCase(f.verifier, f.tokens, f.ledger, f.notifier, time.Second, log).WithClock(clock)
	f.status = NewGetUnlockStatusUseCase(f.tokens, f.ledger, log).WithClock(clock)
	f.list = NewListUnlocksUseCase(f.ledger, log)
	f.clear = NewClearUnlocksUseCase(f.ledger, log)
	return f
}

func verified(signature string) *blockchain.PaymentVerificationResult {
	return &blockchain.PaymentVerificationResult{
		Slot:      100,
		Signature: signature,
		Amount:    5,
		AmountRaw: 5_000_000,
		Mint:      "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZeh9Bx",
	}
}

func (f *fixture) awaitEvent(t *testing.T) notifier.UnlockEvent {
	t.Helper()
	select {
	case ev := <-f.notifier.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not dispatched")
		return notifier.UnlockEvent{}
	}
}

func TestPaymentFlow_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(verified("S1"), nil).Once()

	res, err := f.pay.Execute(ctx, VerifyPaymentCommand{Wallet: "W1", Signature: "S1", ClientIP: "203.0.113.7"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "W1", res.Wallet)
	assert.Equal(t, uint64(100), res.Slot)
	assert.InDelta(t, 5.0, res.Amount, 1e-9)
	assert.True(t, res.ExpiresAt.Equal(baseTime.Add(unlock.ValidityPeriod)))

	ev := f.awaitEvent(t)
	assert.Equal(t, "W1", ev.Wallet)
	assert.Equal(t, "203.0.113.7", ev.ClientIP)
	assert.True(t, ev.ExpiresAt.Equal(res.ExpiresAt))

	status, err := f.status.Execute(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "W1", status.Wallet)
	assert.Equal(t, "S1", status.Signature)
	assert.Equal(t, 30, status.RemainingDays)
	firstCreated := status.CreatedAt

	// A day later the same wallet pays again with a new transaction.
	f.now = baseTime.Add(24 * time.Hour)
	f.verifier.On("Verify", mock.Anything, "W1", "S2").Return(verified("S2"), nil).Once()

	res2, err := f.pay.Execute(ctx, VerifyPaymentCommand{Wallet: "W1", Signature: "S2"})
	require.NoError(t, err)
	f.awaitEvent(t)
	assert.True(t, res2.ExpiresAt.Equal(f.now.Add(unlock.ValidityPeriod)))

	status, err = f.status.Execute(ctx, res2.Token)
	require.NoError(t, err)
	assert.Equal(t, "S2", status.Signature)
	assert.True(t, status.CreatedAt.Equal(firstCreated))
	assert.True(t, status.UpdatedAt.After(status.CreatedAt))
	assert.Equal(t, 30, status.RemainingDays)

	// The earlier credential still resolves to the current record.
	status, err = f.status.Execute(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "S2", status.Signature)

	records, err := f.list.Execute(ctx, "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	f.verifier.AssertExpectations(t)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []VerifyPaymentCommand{
		{Wallet: "", Signature: "S1"},
		{Wallet: "W1", Signature: ""},
		{Wallet: "   ", Signature: "\t"},
	} {
		res, err := f.pay.Execute(context.Background(), cmd)
		assert.Nil(t, res)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
		assert.Equal(t, "wallet and signature are required", appErr.Message)
	}

	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_VerificationFailureGrantsNothing(t *testing.T) {
	f := newFixture(t)
	verr := blockchain.NewVerificationError(blockchain.ReasonInsufficientReceipt, nil,
		"insufficient treasury receipt: received 4, required 5")
	f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(nil, verr)

	res, err := f.pay.Execute(context.Background(), VerifyPaymentCommand{Wallet: "W1", Signature: "S1"})
	assert.Nil(t, res)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeVerification, appErr.Type)
	assert.Equal(t, verr.Message, appErr.Message)
	assert.ErrorIs(t, err, verr)

	record, err := f.ledger.Get(context.Background(), "W1")
	require.NoError(t, err)
	assert.Nil(t, record)

	select {
	case <-f.notifier.events:
		t.Fatal("no notification expected for a failed verification")
	case <-time.After(50 * time.Millisecond):
	}
}

type failingLedger struct {
	unlock.Ledger
	err error
}

func (l failingLedger) Upsert(context.Context, string, string, time.Time) (*unlock.UnlockRecord, error) {
	return nil, l.err
}

func (l failingLedger) Get(context.Context, string) (*unlock.UnlockRecord, error) {
	return nil, l.err
}

func (l failingLedger) All(context.Context) ([]*unlock.UnlockRecord, error) {
	return nil, l.err
}

func TestVerifyPayment_PersistenceFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(verified("S1"), nil)
	diskErr := errors.New("disk full")

	uc := NewVerifyPaymentUseCase(f.verifier, f.tokens, failingLedger{err: diskErr}, f.notifier, time.Second, logger.NewNop())

	res, err := uc.Execute(context.Background(), VerifyPaymentCommand{Wallet: "W1", Signature: "S1"})
	assert.Nil(t, res)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
	assert.NotContains(t, appErr.Message, "disk full")
	assert.ErrorIs(t, err, diskErr)
}

func TestVerifyPayment_NotificationFailureIsIgnored(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		panics bool
	}{
		{name: "error", err: errors.New("webhook down")},
		{name: "panic", panics: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.notifier.err = tc.err
			f.notifier.panics = tc.panics
			f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(verified("S1"), nil)

			res, err := f.pay.Execute(context.Background(), VerifyPaymentCommand{Wallet: "W1", Signature: "S1"})
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
			f.awaitEvent(t)

			record, err := f.ledger.Get(context.Background(), "W1")
			require.NoError(t, err)
			require.NotNil(t, record)
		})
	}
}

func TestVerifyPayment_NilNotifier(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(verified("S1"), nil)

	uc := NewVerifyPaymentUseCase(f.verifier, f.tokens, f.ledger, nil, 0, logger.NewNop())
	_, err := uc.Execute(context.Background(), VerifyPaymentCommand{Wallet: "W1", Signature: "S1"})
	assert.NoError(t, err)
}

func TestGetUnlockStatus_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.status.Execute(ctx, "not-a-token")
	assert.True(t, apperrors.IsUnauthorizedError(err))

	cred, err := f.tokens.Issue("W1", f.now)
	require.NoError(t, err)

	// Valid credential but nothing in the ledger.
	_, err = f.status.Execute(ctx, cred.Token)
	assert.True(t, apperrors.IsNotFoundError(err))

	_, err = f.ledger.Upsert(ctx, "W1", "S1", cred.ExpiresAt)
	require.NoError(t, err)

	status, err := f.status.Execute(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, 30, status.RemainingDays)

	f.now = cred.ExpiresAt.Add(-time.Hour)
	status, err = f.status.Execute(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, status.RemainingDays)

	f.now = cred.ExpiresAt
	_, err = f.status.Execute(ctx, cred.Token)
	assert.True(t, apperrors.IsUnauthorizedError(err))
}

func TestGetUnlockStatus_ClearedLedgerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifier.On("Verify", mock.Anything, "W1", "S1").Return(verified("S1"), nil)

	res, err := f.pay.Execute(ctx, VerifyPaymentCommand{Wallet: "W1", Signature: "S1"})
	require.NoError(t, err)
	f.awaitEvent(t)

	cleared, err := f.clear.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = f.status.Execute(ctx, res.Token)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestGetUnlockStatus_LedgerFailure(t *testing.T) {
	f := newFixture(t)
	cred, err := f.tokens.Issue("W1", f.now)
	require.NoError(t, err)

	uc := NewGetUnlockStatusUseCase(f.tokens, failingLedger{err: errors.New("io")}, logger.NewNop())
	_, err = uc.Execute(context.Background(), cred.Token)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
}

func TestListUnlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	records, err := f.list.Execute(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.list.Execute(ctx, "W1")
	assert.True(t, apperrors.IsNotFoundError(err))

	for i, w := range []string{"W1", "W2", "W3"} {
		f.now = baseTime.Add(time.Duration(i) * time.Minute)
		_, err := f.ledger.Upsert(ctx, w, "S-"+w, f.now.Add(unlock.ValidityPeriod))
		require.NoError(t, err)
	}

	records, err = f.list.Execute(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "W3", records[0].Wallet)
	assert.Equal(t, "W1", records[2].Wallet)

	records, err = f.list.Execute(ctx, " W2 ")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "S-W2", records[0].Signature)
}

func TestClearUnlocks_LedgerFailure(t *testing.T) {
	uc := NewClearUnlocksUseCase(failingLedger{err: errors.New("io")}, logger.NewNop())
	_, err := uc.Execute(context.Background())
	assert.Error(t, err)
}
