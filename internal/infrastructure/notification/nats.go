package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/shared/logger"
)

// natsPublisher is the subset of *nats.Conn used for publishing.
type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes unlock events to a NATS subject.
type NATSNotifier struct {
	conn    natsPublisher
	subject string
	closer  func()
	logger  logger.Interface
}

var _ notifier.UnlockNotifier = (*NATSNotifier)(nil)

// NewNATSNotifier connects to url and publishes on subject.
func NewNATSNotifier(url, subject string, logger logger.Interface) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("payhole-payments"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Infow("connected to NATS", "url", conn.ConnectedUrlRedacted(), "subject", subject)
	return &NATSNotifier{
		conn:    conn,
		subject: subject,
		closer:  conn.Close,
		logger:  logger,
	}, nil
}

// NotifyUnlock publishes the event as JSON. Publish only buffers; ctx is
// checked before handing the message to the connection.
func (n *NATSNotifier) NotifyUnlock(ctx context.Context, event notifier.UnlockEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal unlock event: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish unlock event: %w", err)
	}

	n.logger.Debugw("unlock event published", "subject", n.subject, "wallet", event.Wallet)
	return nil
}

// Close closes the underlying connection.
func (n *NATSNotifier) Close() {
	if n.closer != nil {
		n.closer()
		n.logger.Infow("NATS connection closed")
	}
}
