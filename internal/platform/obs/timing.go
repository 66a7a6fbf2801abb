package obs

import (
	"context"
	"log/slog"
	"time"
)

// Time logs the duration of an operation when the returned func is called.
//
//	defer obs.Time(ctx, "distance.cache.GetMany")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			slog.DebugContext(ctx, "operation failed", "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		slog.DebugContext(ctx, "operation completed", "op", name, "dur_ms", dur.Milliseconds())
	}
}
