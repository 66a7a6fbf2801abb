package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradie-schedule-service/internal/adapters/calendar"
	"tradie-schedule-service/internal/adapters/distance"
	"tradie-schedule-service/internal/adapters/locking"
	"tradie-schedule-service/internal/adapters/messaging"
	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
	"tradie-schedule-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type stubOwners map[string]*domain.Coordinates

func (s stubOwners) BaseLocation(ctx context.Context, ownerID string) (*domain.Coordinates, error) {
	return s[ownerID], nil
}

type stubQuotes struct{}

func (stubQuotes) AcceptedQuoteTotalCents(ctx context.Context, jobIDs []string) (int64, error) {
	return int64(len(jobIDs)) * 25000, nil
}

type stubJobs map[string]*ports.Job

func (s stubJobs) GetJob(ctx context.Context, jobID string) (*ports.Job, error) {
	if j, ok := s[jobID]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

type testServer struct {
	router   *gin.Engine
	repo     *repositories.MemoryEventRepository
	provider *distance.MockDistanceProvider
}

// kmEast places a point so that distance in km is the difference in offsets.
func kmEast(km float64) domain.Coordinates {
	return domain.Coordinates{Lat: -33.0, Lng: 150 + km/100}
}

func newTestServer(t *testing.T, rateLimit float64) *testServer {
	t.Helper()

	repo := repositories.NewMemoryEventRepository()
	provider := distance.NewFuncDistanceProvider(func(from, to domain.Coordinates) ports.DistanceResult {
		meters := int(math.Round(math.Abs(to.Lng-from.Lng) * 100 * 1000))
		return ports.DistanceResult{DistanceMeters: meters, DurationSeconds: meters * 60 / 1000, Status: ports.DistanceOK}
	})
	base := kmEast(0)
	owners := stubOwners{"o1": &base}
	locker := locking.NewMemoryLocker()
	workStart := domain.TimeOfDay{Hour: 8}

	chain := services.NewTravelChain(repo, owners, provider, locker, time.UTC, time.Second)
	jobs := stubJobs{
		"j1": {ID: "j1", OwnerID: "o1", Title: "Fix tap", Location: &domain.Location{Address: "1 Main St"}},
	}
	commands := services.NewEventCommands(repo, jobs, messaging.NewInlineNotifier(chain.Recalculate), time.UTC)
	commands.Clock = func() time.Time { return testNow }

	router := NewRouter(Dependencies{
		Queries:         services.NewScheduleQueries(repo, stubQuotes{}, time.UTC),
		Commands:        commands,
		Availability:    services.NewAvailability(repo, time.UTC, workStart, domain.TimeOfDay{Hour: 17}),
		Optimizer:       services.NewDayOptimizer(repo, provider, locker, time.UTC),
		Chain:           chain,
		Owners:          owners,
		Geocoder:        distance.UnavailableGeocoder{},
		Exporter:        calendar.NewICSExporter(time.UTC),
		Loc:             time.UTC,
		WorkDayStart:    workStart,
		Now:             func() time.Time { return testNow },
		RateLimitPerSec: rateLimit,
		RateLimitBurst:  1,
	})
	return &testServer{router: router, repo: repo, provider: provider}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T, id string, typ domain.EventType, startH, endH int, km float64) {
	t.Helper()
	c := kmEast(km)
	require.NoError(t, s.repo.Insert(context.Background(), &domain.ScheduleEvent{
		ID:       id,
		OwnerID:  "o1",
		Type:     typ,
		Title:    id,
		Start:    time.Date(2026, 3, 2, startH, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 3, 2, endH, 0, 0, 0, time.UTC),
		Location: &domain.Location{Coordinates: &c},
	}))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCreateAndGetEvent(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodPost, "/owners/o1/events", `{
		"type": "job",
		"title": "Install hot water",
		"start": "2026-03-02T09:00:00Z",
		"end": "2026-03-02T11:00:00Z",
		"location": {"address": "2 High St", "coordinates": {"lat": -33.0, "lng": 150.05}}
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.EventResponse](t, w)
	assert.Equal(t, "Job", created.Type)
	assert.Equal(t, 1, created.Version)

	w = s.do(http.MethodGet, "/owners/o1/events/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.EventResponse](t, w)
	assert.Equal(t, "Install hot water", got.Title)
	assert.Equal(t, "2 High St", got.Location.Address)
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	s := newTestServer(t, 0)

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"type":"Holiday","start":"2026-03-02T09:00:00Z","end":"2026-03-02T10:00:00Z"}`},
		{"end before start", `{"type":"Job","start":"2026-03-02T10:00:00Z","end":"2026-03-02T09:00:00Z"}`},
		{"unknown field", `{"type":"Job","colour":"red"}`},
		{"two objects", `{"type":"Job"}{"type":"Job"}`},
		{"bad pattern", `{"type":"Job","start":"2026-03-02T09:00:00Z","end":"2026-03-02T10:00:00Z","recurrence_pattern":"Hourly"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/owners/o1/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetEventNotFound(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodGet, "/owners/o1/events/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestUpdateEvent(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "e1", domain.EventTypeJob, 9, 10, 5)

	body := func(id string, version int) string {
		return fmt.Sprintf(`{"id":%q,"type":"Job","title":"Moved","start":"2026-03-02T13:00:00Z","end":"2026-03-02T14:00:00Z","version":%d}`, id, version)
	}

	w := s.do(http.MethodPut, "/owners/o1/events/e1", body("other", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/owners/o1/events/e1", body("e1", 7))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPut, "/owners/o1/events/e1", body("e1", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.EventResponse](t, w)
	assert.Equal(t, "Moved", updated.Title)
	assert.Equal(t, 13, updated.Start.Hour())
}

func TestDeleteEventCascade(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodPost, "/owners/o1/events", `{
		"type": "Meeting",
		"title": "Toolbox talk",
		"start": "2026-03-02T07:00:00Z",
		"end": "2026-03-02T07:30:00Z",
		"recurrence_pattern": "weekly"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.EventResponse](t, w)
	assert.Contains(t, created.RecurrenceRule, "FREQ=WEEKLY")
	require.NotNil(t, created.RecurrenceGroupID)

	w = s.do(http.MethodDelete, "/owners/o1/events/"+created.ID+"?cascade=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/owners/o1/events/"+created.ID+"?cascade=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{created.ID}, decode[dto.DeleteEventResponse](t, w).Deleted)

	w = s.do(http.MethodGet, "/owners/o1/events/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuickAdd(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodPost, "/owners/o1/events/quick-add", `{"job_id":"j1","start":"2026-03-02T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e := decode[dto.EventResponse](t, w)
	assert.Equal(t, "Fix tap", e.Title)
	assert.Equal(t, time.Hour, e.End.Sub(e.Start))

	w = s.do(http.MethodPost, "/owners/o2/events/quick-add", `{"job_id":"j1","start":"2026-03-02T09:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDayView(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "A", domain.EventTypeJob, 9, 11, 10)
	s.seed(t, "B", domain.EventTypeJob, 10, 12, 2)
	s.seed(t, "C", domain.EventTypeSiteVisit, 14, 15, 6)

	w := s.do(http.MethodGet, "/owners/o1/schedule/day?date=2026-03-02", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	day := decode[dto.DayResponse](t, w)
	assert.Equal(t, "2026-03-02", day.Date)
	assert.Len(t, day.Events, 3)
	assert.Equal(t, 2, day.Summary.JobCount)
	assert.Equal(t, 1, day.Summary.SiteVisitCount)
	require.Len(t, day.Conflicts, 1)
	assert.Equal(t, "A", day.Conflicts[0].First.ID)
	assert.Equal(t, "Partial overlap", day.Conflicts[0].Kind)
}

func TestDayViewRejectsBadDate(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodGet, "/owners/o1/schedule/day?date=02/03/2026", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeekAndMonthViews(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "A", domain.EventTypeJob, 9, 10, 3)

	w := s.do(http.MethodGet, "/owners/o1/schedule/week?date=2026-03-04", "")
	require.Equal(t, http.StatusOK, w.Code)
	week := decode[dto.WeekResponse](t, w)
	assert.Equal(t, "2026-03-02", week.Start)
	assert.Equal(t, "2026-03-08", week.End)
	assert.Len(t, week.Days, 7)
	assert.Equal(t, 1, week.Totals.JobCount)

	w = s.do(http.MethodGet, "/owners/o1/schedule/month?date=2026-03-20", "")
	require.Equal(t, http.StatusOK, w.Code)
	month := decode[dto.MonthResponse](t, w)
	assert.Equal(t, "2026-03-01", month.Start)
	assert.Equal(t, "2026-03-31", month.End)
	assert.Equal(t, 1, month.EventsByType["Job"])
}

func TestConflictsRange(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "A", domain.EventTypeJob, 9, 10, 1)
	s.seed(t, "B", domain.EventTypeJob, 9, 10, 2)

	w := s.do(http.MethodGet, "/owners/o1/conflicts?from=2026-03-02&to=2026-03-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[dto.ListConflictResponse](t, w)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "Exact overlap", res.Conflicts[0].Kind)

	w = s.do(http.MethodGet, "/owners/o1/conflicts?from=2026-03-05&to=2026-03-02", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindSlots(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "A", domain.EventTypeJob, 10, 11, 1)

	w := s.do(http.MethodGet, "/owners/o1/slots?date=2026-03-02&minutes=60&lat=-33.0&lng=150.1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	slots := decode[dto.ListSlotResponse](t, w).Slots
	require.Len(t, slots, 2)
	assert.Equal(t, 8, slots[0].Start.Hour())
	assert.Equal(t, 10, slots[0].End.Hour())
	assert.Equal(t, "Excellent", slots[0].Quality)
	assert.Equal(t, 11, slots[1].Start.Hour())
	assert.Equal(t, 17, slots[1].End.Hour())

	w = s.do(http.MethodGet, "/owners/o1/slots?date=2026-03-02&minutes=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/owners/o1/slots?date=2026-03-02&minutes=30&lat=-33", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizeDay(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "far", domain.EventTypeJob, 8, 9, 10)
	s.seed(t, "near", domain.EventTypeJob, 10, 11, 2)
	s.seed(t, "mid", domain.EventTypeJob, 12, 13, 6)

	w := s.do(http.MethodPost, "/owners/o1/schedule/optimize", `{"date":"2026-03-02"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dto.OptimizeResponse](t, w)
	require.Len(t, res.Events, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{res.Events[0].ID, res.Events[1].ID, res.Events[2].ID})
	assert.Equal(t, 22, res.OriginalTravelMinutes)
	assert.Equal(t, 10, res.OptimizedTravelMinutes)
	assert.Equal(t, 12, res.MinutesSaved)
	assert.True(t, res.Optimized)
}

func TestOptimizeDayNeedsStartLocation(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodPost, "/owners/nobase/schedule/optimize", `{"date":"2026-03-02"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizeDayProviderDown(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "a", domain.EventTypeJob, 8, 9, 10)
	s.seed(t, "b", domain.EventTypeJob, 10, 11, 2)
	s.provider.FailOnCall = len(s.provider.Calls()) + 1

	w := s.do(http.MethodPost, "/owners/o1/schedule/optimize", `{"date":"2026-03-02","start_location":{"lat":-33.0,"lng":150.0}}`)

	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
}

func TestRecalculateTravel(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "a", domain.EventTypeJob, 8, 9, 4)
	s.seed(t, "b", domain.EventTypeJob, 10, 11, 9)

	w := s.do(http.MethodPost, "/owners/o1/travel/recalculate", `{"date":"2026-03-02"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dto.RecalculateResponse](t, w)
	require.Len(t, res.Events, 2)
	require.NotNil(t, res.Events[0].TravelMinutes)
	assert.Equal(t, 4, *res.Events[0].TravelMinutes)
	require.NotNil(t, res.Events[1].TravelMinutes)
	assert.Equal(t, 5, *res.Events[1].TravelMinutes)
	assert.Equal(t, "a", *res.Events[1].PreviousEventID)
}

func TestExportICS(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "a", domain.EventTypeJob, 8, 9, 4)

	w := s.do(http.MethodGet, "/owners/o1/schedule/export.ics?from=2026-03-02&to=2026-03-02", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, w.Body.String(), "UID:a@tradie-schedule")
}

func TestGeocode(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodGet, "/geocode", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/geocode?address=1+George+St+Sydney", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 0.001)

	first := s.do(http.MethodGet, "/owners/o1/conflicts", "")
	second := s.do(http.MethodGet, "/owners/o1/conflicts", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health checks sit outside the limited group.
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
}
