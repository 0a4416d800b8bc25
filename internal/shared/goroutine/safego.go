// Package goroutine launches detached work that must never take the process down.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/payhole/payments/internal/shared/logger"
)

// SafeGo launches fn on its own goroutine and logs, rather than propagates,
// any panic.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverPanic(log, name)
		fn()
	}()
}

// Detach runs fn in the background with a fresh context bounded by timeout.
// The context is not derived from any request so the caller may return
// before fn finishes.
func Detach(log logger.Interface, name string, timeout time.Duration, fn func(ctx context.Context)) {
	SafeGo(log, name, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	})
}

func recoverPanic(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
