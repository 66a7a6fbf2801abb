package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/services"
)

type EventHandler struct {
	Commands *services.EventCommands
}

// Get handles GET /owners/:ownerID/events/:eventID.
func (h *EventHandler) Get(c *gin.Context) {
	e, err := h.Commands.Get(c.Request.Context(), c.Param("ownerID"), c.Param("eventID"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(e))
}

// Create handles POST /owners/:ownerID/events.
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.EventRequest
	if !decodeJSON(c, &req) {
		return
	}
	in, err := toEventInput(req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	e, err := h.Commands.Create(c.Request.Context(), c.Param("ownerID"), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEventResponse(e))
}

// Update handles PUT /owners/:ownerID/events/:eventID.
func (h *EventHandler) Update(c *gin.Context) {
	eventID := c.Param("eventID")

	var req dto.EventRequest
	if !decodeJSON(c, &req) {
		return
	}
	if req.ID != "" && req.ID != eventID {
		writeError(c, http.StatusBadRequest, "body id does not match path")
		return
	}
	in, err := toEventInput(req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	e, err := h.Commands.Update(c.Request.Context(), c.Param("ownerID"), eventID, in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(e))
}

// Delete handles DELETE /owners/:ownerID/events/:eventID. With
// cascade=true a recurrence origin takes its whole group with it.
func (h *EventHandler) Delete(c *gin.Context) {
	cascade := false
	if v := c.Query("cascade"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "cascade must be true or false")
			return
		}
		cascade = b
	}

	removed, err := h.Commands.Delete(c.Request.Context(), c.Param("ownerID"), c.Param("eventID"), cascade)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	res := dto.DeleteEventResponse{Deleted: make([]string, 0, len(removed))}
	for _, e := range removed {
		res.Deleted = append(res.Deleted, e.ID)
	}
	c.JSON(http.StatusOK, res)
}

// QuickAdd handles POST /owners/:ownerID/events/quick-add.
func (h *EventHandler) QuickAdd(c *gin.Context) {
	var req dto.QuickAddRequest
	if !decodeJSON(c, &req) {
		return
	}

	in := services.QuickAddInput{
		JobID:           strings.TrimSpace(req.JobID),
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Type != "" {
		typ, err := domain.ParseEventType(req.Type)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		in.Type = typ
	}

	e, err := h.Commands.QuickAdd(c.Request.Context(), c.Param("ownerID"), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEventResponse(e))
}
