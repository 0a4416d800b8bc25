package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/payhole/payments/internal/application/payment/notifier"
)

// Named pairs a notifier with the label used in errors.
type Named struct {
	Name     string
	Notifier notifier.UnlockNotifier
}

// MultiNotifier fans an event out to every configured notifier.
type MultiNotifier struct {
	targets []Named
}

var _ notifier.UnlockNotifier = (*MultiNotifier)(nil)

func NewMultiNotifier(targets ...Named) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

// NotifyUnlock tries every target even when earlier ones fail and joins
// the failures.
func (m *MultiNotifier) NotifyUnlock(ctx context.Context, event notifier.UnlockEvent) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.Notifier.NotifyUnlock(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}
