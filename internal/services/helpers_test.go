package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"tradie-schedule-service/internal/adapters/distance"
	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

const baseLng = 150.0

var testDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

// kmEast places a point on a line so that distance in km is the difference in offsets.
func kmEast(km float64) domain.Coordinates {
	return domain.Coordinates{Lat: -33.0, Lng: baseLng + km/100}
}

// lineProvider answers distance = |Δlng|*100 km at 1 minute per km.
func lineProvider() *distance.MockDistanceProvider {
	return distance.NewFuncDistanceProvider(func(from, to domain.Coordinates) ports.DistanceResult {
		meters := int(math.Round(math.Abs(to.Lng-from.Lng) * 100 * 1000))
		return ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: meters * 60 / 1000,
			Status:          ports.DistanceOK,
		}
	})
}

func locatedEvent(id string, typ domain.EventType, start, end time.Time, km float64) *domain.ScheduleEvent {
	c := kmEast(km)
	return &domain.ScheduleEvent{
		ID:       id,
		OwnerID:  "o1",
		Type:     typ,
		Title:    id,
		Start:    start,
		End:      end,
		Location: &domain.Location{Coordinates: &c},
	}
}

func seed(repo ports.EventRepository, events ...*domain.ScheduleEvent) {
	for _, e := range events {
		if err := repo.Insert(context.Background(), e); err != nil {
			panic(err)
		}
	}
}

type fakeOwners struct {
	base *domain.Coordinates
}

func (f fakeOwners) BaseLocation(ctx context.Context, ownerID string) (*domain.Coordinates, error) {
	return f.base, nil
}

type fakeQuotes struct {
	totals map[string]int64
	asked  [][]string
}

func (f *fakeQuotes) AcceptedQuoteTotalCents(ctx context.Context, jobIDs []string) (int64, error) {
	f.asked = append(f.asked, jobIDs)
	var sum int64
	for _, id := range jobIDs {
		sum += f.totals[id]
	}
	return sum, nil
}

type fakeJobs map[string]*ports.Job

func (f fakeJobs) GetJob(ctx context.Context, jobID string) (*ports.Job, error) {
	j, ok := f[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	dates []string
	err   error
}

func (n *recordingNotifier) NotifyDayChanged(ctx context.Context, ownerID string, date time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dates = append(n.dates, ownerID+"@"+date.Format(time.DateOnly))
	return n.err
}

// conflictOnce fails the first SaveBatch with a stale version.
type conflictOnce struct {
	*repositories.MemoryEventRepository
	mu        sync.Mutex
	failed    bool
	saveCalls int
}

func (c *conflictOnce) SaveBatch(ctx context.Context, events []*domain.ScheduleEvent) error {
	c.mu.Lock()
	c.saveCalls++
	first := !c.failed
	c.failed = true
	c.mu.Unlock()

	if first {
		return errors.Join(errors.New("simulated"), domain.ErrConcurrentModification)
	}
	return c.MemoryEventRepository.SaveBatch(ctx, events)
}
