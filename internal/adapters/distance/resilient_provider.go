package distance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

// ResilientProvider bounds every call with a timeout and trips a circuit
// breaker after repeated failures. All failures surface as
// domain.ErrProviderUnavailable.
type ResilientProvider struct {
	next    ports.DistanceProvider
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[[]ports.DistanceResult]
}

func NewResilientProvider(next ports.DistanceProvider, timeout time.Duration) *ResilientProvider {
	settings := gobreaker.Settings{
		Name:        "distance-provider",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// A caller giving up says nothing about the provider. The call
		// timeout surfaces as DeadlineExceeded and still counts.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &ResilientProvider{
		next:    next,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker[[]ports.DistanceResult](settings),
	}
}

func (p *ResilientProvider) DistanceMatrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	if len(destinations) == 0 {
		return []ports.DistanceResult{}, nil
	}

	out, err := p.cb.Execute(func() ([]ports.DistanceResult, error) {
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return p.next.DistanceMatrix(callCtx, origin, destinations)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	return out, nil
}

// State exposes the breaker state for health reporting.
func (p *ResilientProvider) State() string {
	return p.cb.State().String()
}
