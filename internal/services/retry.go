package services

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"tradie-schedule-service/internal/domain"
)

// Bounded retries after the first attempt when a batch write hits a stale version.
const maxConflictRetries = 3

// retryOnConflict reruns fn (which must re-read its inputs) while it fails
// with ErrConcurrentModification, up to maxConflictRetries extra attempts.
func retryOnConflict(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		slog.DebugContext(ctx, "retrying after concurrent modification", "op", op, "attempt", attempt+1)
	}
	return err
}

// minutesFromSeconds rounds to the nearest whole minute.
func minutesFromSeconds(seconds int) int {
	return int(math.Round(float64(seconds) / 60))
}

func kmFromMeters(meters int) float64 {
	return float64(meters) / 1000
}
