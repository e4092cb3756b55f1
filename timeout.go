package latitude

import (
	"context"
	"time"
)

// applyTimeout is used for synchronous calls only; a stream may legitimately
// stay open for as long as the chain runs.
func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
