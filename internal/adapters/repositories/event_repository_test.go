package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/db"
	"tradie-schedule-service/internal/ports"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, db.SQLite))
	return conn
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func newEvent(id, owner string, start, end time.Time) *domain.ScheduleEvent {
	return &domain.ScheduleEvent{
		ID:      id,
		OwnerID: owner,
		Type:    domain.EventTypeJob,
		Title:   "Job " + id,
		Start:   start,
		End:     end,
		Location: &domain.Location{
			Address:     "1 George St",
			Suburb:      "Sydney",
			Coordinates: &domain.Coordinates{Lat: -33.86, Lng: 151.2},
		},
	}
}

func TestSQLEventRepository(t *testing.T) {
	runEventRepositoryContract(t, func(t *testing.T) ports.EventRepository {
		return NewSQLEventRepository(openTestDB(t), db.SQLite)
	})
}

func TestMemoryEventRepository(t *testing.T) {
	runEventRepositoryContract(t, func(t *testing.T) ports.EventRepository {
		return NewMemoryEventRepository()
	})
}

func runEventRepositoryContract(t *testing.T, newRepo func(t *testing.T) ports.EventRepository) {
	ctx := context.Background()

	t.Run("insert and get round trip", func(t *testing.T) {
		repo := newRepo(t)
		e := newEvent("e1", "o1", at(9, 0), at(10, 0))
		e.JobID = strPtr("job-1")
		e.Notes = "bring ladder"
		reminder := 15
		e.ReminderMinutes = &reminder

		require.NoError(t, repo.Insert(ctx, e))
		assert.Equal(t, 1, e.Version)

		got, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)
		assert.Equal(t, "Job e1", got.Title)
		assert.True(t, got.Start.Equal(at(9, 0)))
		assert.True(t, got.End.Equal(at(10, 0)))
		require.NotNil(t, got.Location)
		require.NotNil(t, got.Location.Coordinates)
		assert.InDelta(t, -33.86, got.Location.Coordinates.Lat, 1e-9)
		assert.Equal(t, "job-1", *got.JobID)
		assert.Equal(t, 15, *got.ReminderMinutes)
		assert.Nil(t, got.TravelMinutes)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("get is owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("e1", "o1", at(9, 0), at(10, 0))))

		_, err := repo.Get(ctx, "o2", "e1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list range returns overlapping events in order", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("b", "o1", at(9, 0), at(10, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("a", "o1", at(9, 0), at(9, 30))))
		require.NoError(t, repo.Insert(ctx, newEvent("c", "o1", at(7, 0), at(8, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("d", "o1", at(12, 0), at(13, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("x", "o2", at(9, 0), at(10, 0))))

		got, err := repo.ListRange(ctx, "o1", at(8, 0), at(12, 0))
		require.NoError(t, err)

		ids := make([]string, len(got))
		for i, e := range got {
			ids[i] = e.ID
		}
		// c ends exactly at 08:00 and d starts exactly at 12:00.
		assert.Equal(t, []string{"a", "b"}, ids)
	})

	t.Run("update bumps version and rejects stale writes", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("e1", "o1", at(9, 0), at(10, 0))))

		first, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)
		second, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)

		first.Title = "Renamed"
		require.NoError(t, repo.Update(ctx, first))
		assert.Equal(t, 2, first.Version)

		second.Title = "Lost update"
		err = repo.Update(ctx, second)
		require.ErrorIs(t, err, domain.ErrConcurrentModification)

		got, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, 2, got.Version)
	})

	t.Run("update of missing event is not found", func(t *testing.T) {
		repo := newRepo(t)
		e := newEvent("ghost", "o1", at(9, 0), at(10, 0))
		e.Version = 1
		require.ErrorIs(t, repo.Update(ctx, e), domain.ErrNotFound)
	})

	t.Run("save batch is all or nothing", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("e1", "o1", at(9, 0), at(10, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("e2", "o1", at(11, 0), at(12, 0))))

		a, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)
		b, err := repo.Get(ctx, "o1", "e2")
		require.NoError(t, err)

		a.SetTravel(12, 8.5, nil)
		b.SetTravel(5, 3.1, strPtr("e1"))
		b.Version = 7

		err = repo.SaveBatch(ctx, []*domain.ScheduleEvent{a, b})
		require.ErrorIs(t, err, domain.ErrConcurrentModification)

		stored, err := repo.Get(ctx, "o1", "e1")
		require.NoError(t, err)
		assert.Nil(t, stored.TravelMinutes)
		assert.Equal(t, 1, stored.Version)

		b.Version = 1
		a.Version = 1
		require.NoError(t, repo.SaveBatch(ctx, []*domain.ScheduleEvent{a, b}))

		stored, err = repo.Get(ctx, "o1", "e2")
		require.NoError(t, err)
		require.NotNil(t, stored.TravelMinutes)
		assert.Equal(t, 5, *stored.TravelMinutes)
		assert.InDelta(t, 3.1, *stored.TravelKm, 1e-9)
		assert.Equal(t, "e1", *stored.PreviousEventID)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("e1", "o1", at(9, 0), at(10, 0))))

		require.NoError(t, repo.Delete(ctx, "o1", "e1"))
		require.ErrorIs(t, repo.Delete(ctx, "o1", "e1"), domain.ErrNotFound)
	})

	t.Run("delete recurrence group", func(t *testing.T) {
		repo := newRepo(t)
		for i, id := range []string{"r1", "r2", "r3"} {
			e := newEvent(id, "o1", at(9, 0).AddDate(0, 0, 7*i), at(10, 0).AddDate(0, 0, 7*i))
			e.RecurrenceGroupID = strPtr("g1")
			e.IsRecurrenceOrigin = i == 0
			require.NoError(t, repo.Insert(ctx, e))
		}
		require.NoError(t, repo.Insert(ctx, newEvent("solo", "o1", at(9, 0), at(10, 0))))

		removed, err := repo.DeleteRecurrenceGroup(ctx, "o1", "g1")
		require.NoError(t, err)
		require.Len(t, removed, 3)
		assert.Equal(t, "r1", removed[0].ID)
		assert.True(t, removed[0].IsRecurrenceOrigin)

		_, err = repo.Get(ctx, "o1", "solo")
		require.NoError(t, err)

		_, err = repo.DeleteRecurrenceGroup(ctx, "o1", "g1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list owners", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newEvent("e1", "o2", at(9, 0), at(10, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("e2", "o1", at(9, 0), at(10, 0))))
		require.NoError(t, repo.Insert(ctx, newEvent("e3", "o3", at(9, 0).AddDate(0, 0, 3), at(10, 0).AddDate(0, 0, 3))))

		owners, err := repo.ListOwners(ctx, at(0, 0), at(0, 0).AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, []string{"o1", "o2"}, owners)
	})
}

func TestMemoryEventRepository_DeleteRecurrenceGroupReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepository()
	e := newEvent("r1", "o1", at(9, 0), at(10, 0))
	e.RecurrenceGroupID = strPtr("g1")
	require.NoError(t, repo.Insert(ctx, e))
	stored := repo.events["o1"]["r1"]

	removed, err := repo.DeleteRecurrenceGroup(ctx, "o1", "g1")
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.NotSame(t, stored, removed[0])
	assert.NotSame(t, stored.Location, removed[0].Location)
	assert.Equal(t, stored.Title, removed[0].Title)
}
