package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"tradie-schedule-service/internal/domain"
)

// MemoryEventRepository keeps events in process memory. It hands out and
// stores clones, so callers never share pointers with the store.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]map[string]*domain.ScheduleEvent // owner -> id -> event
	now    func() time.Time
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: map[string]map[string]*domain.ScheduleEvent{},
		now:    time.Now,
	}
}

func (m *MemoryEventRepository) Get(ctx context.Context, ownerID, eventID string) (*domain.ScheduleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[ownerID][eventID]
	if !ok {
		return nil, fmt.Errorf("get event %s: %w", eventID, domain.ErrNotFound)
	}
	return e.Clone(), nil
}

func (m *MemoryEventRepository) ListRange(ctx context.Context, ownerID string, from, to time.Time) ([]*domain.ScheduleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.ScheduleEvent, 0, len(m.events[ownerID]))
	for _, e := range m.events[ownerID] {
		if e.Start.Before(to) && e.End.After(from) {
			out = append(out, e.Clone())
		}
	}
	domain.SortByStart(out)
	return out, nil
}

func (m *MemoryEventRepository) Insert(ctx context.Context, e *domain.ScheduleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[e.OwnerID][e.ID]; ok {
		return fmt.Errorf("insert event id=%s: duplicate id: %w", e.ID, domain.ErrInvalidInput)
	}

	now := m.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	if e.Version == 0 {
		e.Version = 1
	}

	if m.events[e.OwnerID] == nil {
		m.events[e.OwnerID] = map[string]*domain.ScheduleEvent{}
	}
	m.events[e.OwnerID][e.ID] = e.Clone()
	return nil
}

func (m *MemoryEventRepository) Update(ctx context.Context, e *domain.ScheduleEvent) error {
	return m.SaveBatch(ctx, []*domain.ScheduleEvent{e})
}

func (m *MemoryEventRepository) SaveBatch(ctx context.Context, events []*domain.ScheduleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		stored, ok := m.events[e.OwnerID][e.ID]
		if !ok {
			return fmt.Errorf("update event id=%s: %w", e.ID, domain.ErrNotFound)
		}
		if stored.Version != e.Version {
			return fmt.Errorf("update event id=%s version=%d: %w", e.ID, e.Version, domain.ErrConcurrentModification)
		}
	}

	now := m.now().UTC()
	for _, e := range events {
		e.Version++
		e.UpdatedAt = now
		m.events[e.OwnerID][e.ID] = e.Clone()
	}
	return nil
}

func (m *MemoryEventRepository) Delete(ctx context.Context, ownerID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[ownerID][eventID]; !ok {
		return fmt.Errorf("delete event %s: %w", eventID, domain.ErrNotFound)
	}
	delete(m.events[ownerID], eventID)
	return nil
}

func (m *MemoryEventRepository) DeleteRecurrenceGroup(ctx context.Context, ownerID, groupID string) ([]*domain.ScheduleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []*domain.ScheduleEvent
	for id, e := range m.events[ownerID] {
		if e.RecurrenceGroupID != nil && *e.RecurrenceGroupID == groupID {
			removed = append(removed, e.Clone())
			delete(m.events[ownerID], id)
		}
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("delete recurrence group %s: %w", groupID, domain.ErrNotFound)
	}
	domain.SortByStart(removed)
	return removed, nil
}

func (m *MemoryEventRepository) ListOwners(ctx context.Context, from, to time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owners []string
	for owner, events := range m.events {
		for _, e := range events {
			if e.Start.Before(to) && e.End.After(from) {
				owners = append(owners, owner)
				break
			}
		}
	}
	slices.Sort(owners)
	return owners, nil
}
