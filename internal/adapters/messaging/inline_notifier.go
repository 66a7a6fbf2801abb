package messaging

import (
	"context"
	"time"
)

// InlineNotifier recalculates the day in the caller's goroutine, after the
// write that triggered it has already been stored.
type InlineNotifier struct {
	recalc RecalculateFunc
}

func NewInlineNotifier(recalc RecalculateFunc) *InlineNotifier {
	return &InlineNotifier{recalc: recalc}
}

func (n *InlineNotifier) NotifyDayChanged(ctx context.Context, ownerID string, date time.Time) error {
	return n.recalc(ctx, ownerID, date)
}
