package handlers

import (
	"strings"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/services"
)

func toEventResponse(e *domain.ScheduleEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:                 e.ID,
		OwnerID:            e.OwnerID,
		Type:               string(e.Type),
		Title:              e.Title,
		Start:              e.Start,
		End:                e.End,
		IsAllDay:           e.IsAllDay,
		Location:           toLocationDTO(e.Location),
		TravelMinutes:      e.TravelMinutes,
		TravelKm:           e.TravelKm,
		PreviousEventID:    e.PreviousEventID,
		JobID:              e.JobID,
		QuoteID:            e.QuoteID,
		RecurrenceRule:     e.RecurrenceRule,
		RecurrenceGroupID:  e.RecurrenceGroupID,
		IsRecurrenceOrigin: e.IsRecurrenceOrigin,
		Color:              e.Color,
		Notes:              e.Notes,
		ReminderMinutes:    e.ReminderMinutes,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toEventResponses(events []*domain.ScheduleEvent) []dto.EventResponse {
	out := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

func toLocationDTO(l *domain.Location) *dto.Location {
	if l == nil {
		return nil
	}
	out := &dto.Location{Address: l.Address, Suburb: l.Suburb}
	if l.Coordinates != nil {
		out.Coordinates = &dto.Coordinates{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
	}
	return out
}

func fromLocationDTO(l *dto.Location) *domain.Location {
	if l == nil {
		return nil
	}
	out := &domain.Location{Address: strings.TrimSpace(l.Address), Suburb: strings.TrimSpace(l.Suburb)}
	if l.Coordinates != nil {
		out.Coordinates = &domain.Coordinates{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
	}
	return out
}

func toEventInput(req dto.EventRequest) (services.EventInput, error) {
	typ, err := domain.ParseEventType(req.Type)
	if err != nil {
		return services.EventInput{}, err
	}
	var pattern domain.RecurrencePattern
	if strings.TrimSpace(req.RecurrencePattern) != "" {
		if pattern, err = domain.ParseRecurrencePattern(req.RecurrencePattern); err != nil {
			return services.EventInput{}, err
		}
	}
	return services.EventInput{
		Type:              typ,
		Title:             req.Title,
		Start:             req.Start,
		End:               req.End,
		IsAllDay:          req.IsAllDay,
		Location:          fromLocationDTO(req.Location),
		JobID:             req.JobID,
		QuoteID:           req.QuoteID,
		RecurrenceRule:    req.RecurrenceRule,
		RecurrencePattern: pattern,
		Color:             req.Color,
		Notes:             req.Notes,
		ReminderMinutes:   req.ReminderMinutes,
		Version:           req.Version,
	}, nil
}

func toConflictResponses(conflicts []domain.Conflict) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, dto.ConflictResponse{
			First:  toEventResponse(c.First),
			Second: toEventResponse(c.Second),
			Kind:   string(c.Kind),
		})
	}
	return out
}
