package usecases

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	"github.com/payhole/payments/internal/application/payment/notifier"
)

type mockPaymentVerifier struct {
	mock.Mock
}

func (m *mockPaymentVerifier) Verify(ctx context.Context, wallet, signature string) (*blockchain.PaymentVerificationResult, error) {
	args := m.Called(ctx, wallet, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.PaymentVerificationResult), args.Error(1)
}

// channelNotifier hands every event to the test through a channel.
type channelNotifier struct {
	mu     sync.Mutex
	events chan notifier.UnlockEvent
	err    error
	panics bool
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{events: make(chan notifier.UnlockEvent, 16)}
}

func (n *channelNotifier) NotifyUnlock(_ context.Context, event notifier.UnlockEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events <- event
	if n.panics {
		panic("notifier exploded")
	}
	return n.err
}
