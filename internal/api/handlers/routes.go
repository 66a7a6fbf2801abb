package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
	"tradie-schedule-service/internal/services"
)

// RouteHandler exposes the day optimizer and the travel chain.
type RouteHandler struct {
	Optimizer    *services.DayOptimizer
	Chain        *services.TravelChain
	Owners       ports.OwnerDirectory
	WorkDayStart domain.TimeOfDay
	Loc          *time.Location
	Now          func() time.Time
}

// Optimize handles POST /owners/:ownerID/schedule/optimize.
func (h *RouteHandler) Optimize(c *gin.Context) {
	ownerID := c.Param("ownerID")

	var req dto.OptimizeRequest
	if !decodeJSON(c, &req) {
		return
	}

	date, err := parseDate(req.Date, h.Loc, h.Now)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	workStart := h.WorkDayStart
	if s := strings.TrimSpace(req.WorkDayStart); s != "" {
		if workStart, err = domain.ParseTimeOfDay(s); err != nil {
			writeDomainError(c, err)
			return
		}
	}

	var start domain.Coordinates
	if req.StartLocation != nil {
		start = domain.Coordinates{Lat: req.StartLocation.Lat, Lng: req.StartLocation.Lng}
	} else {
		base, err := h.Owners.BaseLocation(c.Request.Context(), ownerID)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		if base == nil {
			writeError(c, http.StatusBadRequest, "start_location is required when the owner has no base location")
			return
		}
		start = *base
	}

	result, err := h.Optimizer.OptimizeDay(c.Request.Context(), services.OptimizeDayRequest{
		OwnerID:       ownerID,
		Date:          date,
		StartLocation: start,
		WorkDayStart:  workStart,
		BreakMinutes:  req.BreakMinutes,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	hops := make([]dto.RouteHopResponse, 0, len(result.Hops))
	for _, hop := range result.Hops {
		hops = append(hops, dto.RouteHopResponse{
			EventID:         hop.EventID,
			DistanceMeters:  hop.DistanceMeters,
			DurationSeconds: hop.DurationSeconds,
		})
	}
	c.JSON(http.StatusOK, dto.OptimizeResponse{
		Events:                 toEventResponses(result.Events),
		Hops:                   hops,
		OriginalTravelMinutes:  result.OriginalTravelMinutes,
		OptimizedTravelMinutes: result.OptimizedTravelMinutes,
		MinutesSaved:           result.MinutesSaved,
		TotalDistanceKm:        result.TotalDistanceKm,
		Optimized:              result.Optimized,
		Summary:                result.Summary,
	})
}

// Recalculate handles POST /owners/:ownerID/travel/recalculate.
func (h *RouteHandler) Recalculate(c *gin.Context) {
	var req dto.RecalculateRequest
	if !decodeJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date, h.Loc, h.Now)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	events, err := h.Chain.RecalculateDay(c.Request.Context(), c.Param("ownerID"), date)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RecalculateResponse{
		Date:   formatDate(date, h.Loc),
		Events: toEventResponses(events),
	})
}
