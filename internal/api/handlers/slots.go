package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/services"
)

type SlotHandler struct {
	Availability *services.Availability
	Loc          *time.Location
	Now          func() time.Time
}

// Find handles GET /owners/:ownerID/slots?date=&minutes=&lat=&lng=.
// lat and lng are optional but must be given together.
func (h *SlotHandler) Find(c *gin.Context) {
	date, err := parseDate(c.Query("date"), h.Loc, h.Now)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	minutes, err := strconv.Atoi(c.Query("minutes"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "minutes must be an integer")
		return
	}

	var customer *domain.Coordinates
	latParam, lngParam := c.Query("lat"), c.Query("lng")
	if latParam != "" || lngParam != "" {
		lat, errLat := strconv.ParseFloat(latParam, 64)
		lng, errLng := strconv.ParseFloat(lngParam, 64)
		if errLat != nil || errLng != nil {
			writeError(c, http.StatusBadRequest, "lat and lng must both be numbers")
			return
		}
		customer = &domain.Coordinates{Lat: lat, Lng: lng}
	}

	slots, err := h.Availability.FindSlots(c.Request.Context(), c.Param("ownerID"), date, minutes, customer)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	res := dto.ListSlotResponse{Slots: make([]dto.SlotResponse, 0, len(slots))}
	for _, s := range slots {
		res.Slots = append(res.Slots, dto.SlotResponse{
			Start:           s.Start,
			End:             s.End,
			DurationMinutes: s.DurationMinutes,
			Quality:         string(s.Quality),
		})
	}
	c.JSON(http.StatusOK, res)
}
