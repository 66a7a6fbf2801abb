package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradie-schedule-service/internal/adapters/locking"
	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

func newChain(repo ports.EventRepository, base *domain.Coordinates, provider ports.DistanceProvider) *TravelChain {
	return NewTravelChain(repo, fakeOwners{base: base}, provider, locking.NewMemoryLocker(), time.UTC, time.Second)
}

func chainDay(repo ports.EventRepository) []*domain.ScheduleEvent {
	from, to := domain.DayRange(testDate, time.UTC)
	events, _ := repo.ListRange(context.Background(), "o1", from, to)
	return events
}

func byID(events []*domain.ScheduleEvent) map[string]*domain.ScheduleEvent {
	m := make(map[string]*domain.ScheduleEvent, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	return m
}

func seedChainDay(repo ports.EventRepository) {
	meeting := &domain.ScheduleEvent{
		ID: "meet", OwnerID: "o1", Type: domain.EventTypeMeeting, Title: "Supplier",
		Start: at(11, 45), End: at(11, 55),
	}
	seed(repo,
		locatedEvent("a", domain.EventTypeJob, at(9, 0), at(10, 0), 10),
		locatedEvent("b", domain.EventTypeSiteVisit, at(10, 30), at(11, 30), 2),
		meeting,
		locatedEvent("c", domain.EventTypeMeeting, at(12, 0), at(13, 0), 6),
	)
}

func TestTravelChain_FromBase(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seedChainDay(repo)
	base := kmEast(0)

	_, err := newChain(repo, &base, lineProvider()).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)

	got := byID(chainDay(repo))

	require.NotNil(t, got["a"].TravelMinutes)
	assert.Equal(t, 10, *got["a"].TravelMinutes)
	assert.InDelta(t, 10.0, *got["a"].TravelKm, 1e-9)
	assert.Nil(t, got["a"].PreviousEventID)

	assert.Equal(t, 8, *got["b"].TravelMinutes)
	assert.Equal(t, "a", *got["b"].PreviousEventID)

	assert.Equal(t, 4, *got["c"].TravelMinutes)
	assert.Equal(t, "b", *got["c"].PreviousEventID)

	assert.Nil(t, got["meet"].TravelMinutes)
}

func TestTravelChain_WithoutBaseStartsAtFirstEvent(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seedChainDay(repo)

	_, err := newChain(repo, nil, lineProvider()).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)

	got := byID(chainDay(repo))
	assert.Nil(t, got["a"].TravelMinutes)
	assert.Nil(t, got["a"].PreviousEventID)
	assert.Equal(t, 8, *got["b"].TravelMinutes)
	assert.Equal(t, "a", *got["b"].PreviousEventID)
}

func TestTravelChain_FailedHopKeepsFieldsAndDoesNotAdvance(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seedChainDay(repo)
	base := kmEast(0)

	provider := lineProvider()
	bCoords := kmEast(2)
	provider.FailTo = &bCoords

	_, err := newChain(repo, &base, provider).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)

	got := byID(chainDay(repo))
	assert.Equal(t, 10, *got["a"].TravelMinutes)
	assert.Nil(t, got["b"].TravelMinutes)

	// c is measured from a, the last event actually reached.
	assert.Equal(t, 4, *got["c"].TravelMinutes)
	assert.Equal(t, "a", *got["c"].PreviousEventID)
}

func TestTravelChain_Deterministic(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seedChainDay(repo)
	base := kmEast(0)
	chain := newChain(repo, &base, lineProvider())
	ctx := context.Background()

	_, err := chain.RecalculateDay(ctx, "o1", testDate)
	require.NoError(t, err)
	first := byID(chainDay(repo))

	_, err = chain.RecalculateDay(ctx, "o1", testDate)
	require.NoError(t, err)
	second := byID(chainDay(repo))

	for id, e := range first {
		assert.Equal(t, e.TravelMinutes, second[id].TravelMinutes, id)
		assert.Equal(t, e.TravelKm, second[id].TravelKm, id)
		assert.Equal(t, e.PreviousEventID, second[id].PreviousEventID, id)
		// Unchanged events are not rewritten.
		assert.Equal(t, e.Version, second[id].Version, id)
	}
}

func TestTravelChain_FewerThanTwoIsNoOp(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seed(repo, locatedEvent("a", domain.EventTypeJob, at(9, 0), at(10, 0), 10))
	base := kmEast(0)
	provider := lineProvider()

	_, err := newChain(repo, &base, provider).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)
	assert.Empty(t, provider.Calls())
}

func TestTravelChain_CancelledPersistsNothing(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seedChainDay(repo)
	base := kmEast(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newChain(repo, &base, lineProvider()).RecalculateDay(ctx, "o1", testDate)
	require.ErrorIs(t, err, context.Canceled)

	for _, e := range chainDay(repo) {
		assert.Nil(t, e.TravelMinutes, e.ID)
	}
}

func TestTravelChain_RetriesConcurrentModification(t *testing.T) {
	repo := &conflictOnce{MemoryEventRepository: repositories.NewMemoryEventRepository()}
	seedChainDay(repo)
	base := kmEast(0)

	_, err := newChain(repo, &base, lineProvider()).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.saveCalls)
	assert.Equal(t, 10, *byID(chainDay(repo))["a"].TravelMinutes)
}

func TestTravelChain_RejectsMissingOwner(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	_, err := newChain(repo, nil, lineProvider()).RecalculateDay(context.Background(), "", testDate)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTravelChain_SkipsJobCarriedOverFromPreviousDay(t *testing.T) {
	repo := repositories.NewMemoryEventRepository()
	seed(repo,
		locatedEvent("overnight", domain.EventTypeJob, at(-1, 0), at(1, 0), 5),
		locatedEvent("a", domain.EventTypeJob, at(9, 0), at(10, 0), 10),
		locatedEvent("b", domain.EventTypeJob, at(11, 0), at(12, 0), 14),
	)
	base := kmEast(0)

	_, err := newChain(repo, &base, lineProvider()).RecalculateDay(context.Background(), "o1", testDate)
	require.NoError(t, err)

	day := byID(chainDay(repo))
	assert.Equal(t, 10, *day["a"].TravelMinutes)
	assert.Nil(t, day["a"].PreviousEventID)
	assert.Equal(t, "a", *day["b"].PreviousEventID)

	overnight, err := repo.Get(context.Background(), "o1", "overnight")
	require.NoError(t, err)
	assert.Nil(t, overnight.TravelMinutes)
	assert.Equal(t, 1, overnight.Version)
}
