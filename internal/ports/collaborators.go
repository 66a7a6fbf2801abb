package ports

import (
	"context"

	"tradie-schedule-service/internal/domain"
)

// Job is the slice of the external job record the scheduler needs.
type Job struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Location    *domain.Location
}

// JobCatalog reads jobs owned by another part of the system.
type JobCatalog interface {
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// QuoteCatalog reads quote totals owned by another part of the system.
type QuoteCatalog interface {
	// Sum of TotalCost (in cents) of accepted quotes linked to any of jobIDs.
	AcceptedQuoteTotalCents(ctx context.Context, jobIDs []string) (int64, error)
}

// OwnerDirectory knows each owner's home or office base.
type OwnerDirectory interface {
	// Return nil coordinates (and no error) when the owner has no base set.
	BaseLocation(ctx context.Context, ownerID string) (*domain.Coordinates, error)
}
