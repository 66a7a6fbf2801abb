package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradie-schedule-service/internal/domain"
)

const (
	ExchangeName      = "schedule.events"
	DayChangedKey     = "schedule.day.changed"
	DefaultQueueName  = "schedule.travel-recalc"
	dayChangedVersion = 1
)

// RecalculateFunc recomputes one owner's day. The travel chain satisfies it.
type RecalculateFunc func(ctx context.Context, ownerID string, date time.Time) error

// DayChangedMessage is the wire form of a day-changed notification.
type DayChangedMessage struct {
	Version int    `json:"v"`
	OwnerID string `json:"owner_id"`
	Date    string `json:"date"` // YYYY-MM-DD in the service time zone
}

func EncodeDayChanged(ownerID string, date time.Time) ([]byte, error) {
	return json.Marshal(DayChangedMessage{
		Version: dayChangedVersion,
		OwnerID: ownerID,
		Date:    date.Format(time.DateOnly),
	})
}

// DecodeDayChanged parses a message body and resolves its date in loc.
func DecodeDayChanged(body []byte, loc *time.Location) (string, time.Time, error) {
	var m DayChangedMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return "", time.Time{}, fmt.Errorf("decode day changed: %w", err)
	}
	if strings.TrimSpace(m.OwnerID) == "" {
		return "", time.Time{}, fmt.Errorf("decode day changed: owner id is required: %w", domain.ErrInvalidInput)
	}
	date, err := time.ParseInLocation(time.DateOnly, m.Date, loc)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode day changed: date %q: %w", m.Date, domain.ErrInvalidInput)
	}
	return m.OwnerID, date, nil
}
