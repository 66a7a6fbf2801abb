package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/services"
)

// CalendarExporter renders events as an iCalendar document.
type CalendarExporter interface {
	Write(w io.Writer, name string, events []*domain.ScheduleEvent) error
}

// ScheduleHandler serves the read side: day, week and month views,
// conflicts and the calendar export.
type ScheduleHandler struct {
	Queries  *services.ScheduleQueries
	Exporter CalendarExporter
	Loc      *time.Location
	Now      func() time.Time
}

func (h *ScheduleHandler) date(c *gin.Context) (time.Time, bool) {
	d, err := parseDate(c.Query("date"), h.Loc, h.Now)
	if err != nil {
		writeDomainError(c, err)
		return time.Time{}, false
	}
	return d, true
}

// rangeParams reads from/to dates. to is inclusive, so the returned end is
// midnight after it. Missing values default to the current week.
func (h *ScheduleHandler) rangeParams(c *gin.Context) (time.Time, time.Time, bool) {
	defFrom, defTo := domain.WeekRange(h.Now(), h.Loc)

	from := defFrom
	if v := c.Query("from"); v != "" {
		d, err := parseDate(v, h.Loc, h.Now)
		if err != nil {
			writeDomainError(c, err)
			return time.Time{}, time.Time{}, false
		}
		from = d
	}
	to := defTo
	if v := c.Query("to"); v != "" {
		d, err := parseDate(v, h.Loc, h.Now)
		if err != nil {
			writeDomainError(c, err)
			return time.Time{}, time.Time{}, false
		}
		to = d.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		writeError(c, http.StatusBadRequest, "from must not be after to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// Day handles GET /owners/:ownerID/schedule/day.
func (h *ScheduleHandler) Day(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}

	view, err := h.Queries.Day(c.Request.Context(), c.Param("ownerID"), date)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DayResponse{
		Date:                  formatDate(view.Date, h.Loc),
		Events:                toEventResponses(view.Events),
		Summary:               h.daySummary(view.Summary),
		Conflicts:             toConflictResponses(view.Conflicts),
		EstimatedRevenueCents: view.EstimatedRevenueCents,
	})
}

// Week handles GET /owners/:ownerID/schedule/week.
func (h *ScheduleHandler) Week(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}

	view, err := h.Queries.Week(c.Request.Context(), c.Param("ownerID"), date)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WeekResponse{
		Start:  formatDate(view.Start, h.Loc),
		End:    formatDate(view.End.AddDate(0, 0, -1), h.Loc),
		Days:   h.daySummaries(view.Days),
		Totals: toTotals(view.Totals),
	})
}

// Month handles GET /owners/:ownerID/schedule/month.
func (h *ScheduleHandler) Month(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}

	view, err := h.Queries.Month(c.Request.Context(), c.Param("ownerID"), date)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	byType := make(map[string]int, len(view.EventsByType))
	for t, n := range view.EventsByType {
		byType[string(t)] = n
	}
	c.JSON(http.StatusOK, dto.MonthResponse{
		Start:        formatDate(view.Start, h.Loc),
		End:          formatDate(view.End.AddDate(0, 0, -1), h.Loc),
		Days:         h.daySummaries(view.Days),
		EventsByType: byType,
		Totals:       toTotals(view.Totals),
	})
}

// Conflicts handles GET /owners/:ownerID/conflicts.
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	from, to, ok := h.rangeParams(c)
	if !ok {
		return
	}

	conflicts, err := h.Queries.Conflicts(c.Request.Context(), c.Param("ownerID"), from, to)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListConflictResponse{Conflicts: toConflictResponses(conflicts)})
}

// Export handles GET /owners/:ownerID/schedule/export.ics.
func (h *ScheduleHandler) Export(c *gin.Context) {
	from, to, ok := h.rangeParams(c)
	if !ok {
		return
	}
	ownerID := c.Param("ownerID")

	events, err := h.Queries.Range(c.Request.Context(), ownerID, from, to)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.Exporter.Write(&buf, ownerID+" schedule", events); err != nil {
		writeDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, ownerID))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *ScheduleHandler) daySummary(s services.DaySummary) dto.DaySummary {
	return dto.DaySummary{
		Date:           formatDate(s.Date, h.Loc),
		EventCount:     s.EventCount,
		JobCount:       s.JobCount,
		SiteVisitCount: s.SiteVisitCount,
		TravelMinutes:  s.TravelMinutes,
		TravelKm:       s.TravelKm,
	}
}

func (h *ScheduleHandler) daySummaries(days []services.DaySummary) []dto.DaySummary {
	out := make([]dto.DaySummary, 0, len(days))
	for _, d := range days {
		out = append(out, h.daySummary(d))
	}
	return out
}

func toTotals(t services.PeriodTotals) dto.PeriodTotals {
	return dto.PeriodTotals{
		EventCount:            t.EventCount,
		JobCount:              t.JobCount,
		SiteVisitCount:        t.SiteVisitCount,
		TravelMinutes:         t.TravelMinutes,
		TravelKm:              t.TravelKm,
		EstimatedRevenueCents: t.EstimatedRevenueCents,
	}
}
