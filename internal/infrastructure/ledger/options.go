// Package ledger provides the storage backends for the unlock ledger: a JSON
// file, a sqlite database through gorm, and a redis hash.
package ledger

import "time"

type options struct {
	now func() time.Time
}

// Option configures a ledger backend.
type Option func(*options)

// WithClock overrides the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
