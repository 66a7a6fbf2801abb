package domain

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"
)

// RecurrencePattern is the small set of repeat options offered when booking.
// Anything richer is expressed directly as an RRULE.
type RecurrencePattern string

const (
	RecurrenceDaily       RecurrencePattern = "Daily"
	RecurrenceWeekly      RecurrencePattern = "Weekly"
	RecurrenceFortnightly RecurrencePattern = "Fortnightly"
	RecurrenceMonthly     RecurrencePattern = "Monthly"
	RecurrenceYearly      RecurrencePattern = "Yearly"
)

var allRecurrencePatterns = []RecurrencePattern{
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceFortnightly,
	RecurrenceMonthly,
	RecurrenceYearly,
}

// ParseRecurrencePattern accepts the pattern names case-insensitively.
func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	for _, p := range allRecurrencePatterns {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown recurrence pattern %q: %w", s, ErrInvalidInput)
}

// RRule converts the pattern to RRULE text (without DTSTART).
func (p RecurrencePattern) RRule() (string, error) {
	var opt rrule.ROption
	switch p {
	case RecurrenceDaily:
		opt = rrule.ROption{Freq: rrule.DAILY, Interval: 1}
	case RecurrenceWeekly:
		opt = rrule.ROption{Freq: rrule.WEEKLY, Interval: 1}
	case RecurrenceFortnightly:
		opt = rrule.ROption{Freq: rrule.WEEKLY, Interval: 2}
	case RecurrenceMonthly:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Interval: 1}
	case RecurrenceYearly:
		opt = rrule.ROption{Freq: rrule.YEARLY, Interval: 1}
	default:
		return "", fmt.Errorf("unknown recurrence pattern %q: %w", p, ErrInvalidInput)
	}
	return opt.RRuleString(), nil
}

// ValidateRecurrenceRule accepts RRULE text with or without the "RRULE:" prefix.
func ValidateRecurrenceRule(rule string) error {
	text := strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if text == "" {
		return fmt.Errorf("recurrence rule is empty: %w", ErrInvalidInput)
	}
	if _, err := rrule.StrToROption(text); err != nil {
		return fmt.Errorf("recurrence rule %q: %v: %w", rule, err, ErrInvalidInput)
	}
	return nil
}
