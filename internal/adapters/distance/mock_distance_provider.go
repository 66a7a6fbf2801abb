package distance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

var ErrMockUnavailable = errors.New("mock distance provider unavailable")

// MockPair pins the result for one origin/destination pair.
type MockPair struct {
	From, To domain.Coordinates
	Meters   int
	Seconds  int
}

// MockDistanceProvider answers from explicit pairs or, failing that, from Func.
// It records every call and can be told to fail on a given call number.
type MockDistanceProvider struct {
	mu    sync.Mutex
	m     map[string]ports.DistanceResult
	Func  func(from, to domain.Coordinates) ports.DistanceResult
	calls []MockCall
	// FailOnCall makes the Nth DistanceMatrix call (1-based) return ErrMockUnavailable.
	FailOnCall int
	// FailTo makes any call that includes this destination fail.
	FailTo *domain.Coordinates
}

// MockCall records one DistanceMatrix invocation.
type MockCall struct {
	Origin       domain.Coordinates
	Destinations []domain.Coordinates
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = ports.DistanceResult{
			DistanceMeters:  p.Meters,
			DurationSeconds: p.Seconds,
			Status:          ports.DistanceOK,
		}
	}
	return &MockDistanceProvider{m: m}
}

// NewFuncDistanceProvider builds a mock that computes every result with fn.
func NewFuncDistanceProvider(fn func(from, to domain.Coordinates) ports.DistanceResult) *MockDistanceProvider {
	return &MockDistanceProvider{m: map[string]ports.DistanceResult{}, Func: fn}
}

func (p *MockDistanceProvider) DistanceMatrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Origin: origin, Destinations: append([]domain.Coordinates(nil), destinations...)})
	if p.FailOnCall > 0 && len(p.calls) == p.FailOnCall {
		return nil, ErrMockUnavailable
	}

	out := make([]ports.DistanceResult, 0, len(destinations))
	for _, d := range destinations {
		if p.FailTo != nil && d.Key() == p.FailTo.Key() {
			return nil, ErrMockUnavailable
		}
		if r, ok := p.m[origin.Key()+"|"+d.Key()]; ok {
			out = append(out, r)
			continue
		}
		if p.Func != nil {
			out = append(out, p.Func(origin, d))
			continue
		}
		return nil, fmt.Errorf("missing pair %s -> %s", origin.Key(), d.Key())
	}
	return out, nil
}

// Calls returns a copy of the recorded invocations.
func (p *MockDistanceProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MockCall(nil), p.calls...)
}
