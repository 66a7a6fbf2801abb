package ports

import (
	"context"
	"time"
)

// OwnerLocker serializes multi-event read-modify-write sequences per owner.
type OwnerLocker interface {
	// Lock blocks until the owner's lock is held or ctx is done.
	Lock(ctx context.Context, ownerID string) (unlock func(), err error)
}

// DayChangeNotifier is told when a single-event write touched an owner's day,
// so the day's travel chain can be recalculated as a separate step.
type DayChangeNotifier interface {
	NotifyDayChanged(ctx context.Context, ownerID string, date time.Time) error
}
