package availability

import (
	"context"
	"fmt"
	"time"

	"appointly/internal/repository"

	"github.com/google/uuid"
)

// Resolver decides whether a slot can be booked. It must run inside the
// booking transaction, after the business (and staff) rows are locked, so
// the check and the following insert are atomic.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns nil when [start, end) fits one availability window and
// overlaps no active appointment. Appointments of a different staff member
// do not conflict with a staff-scoped slot.
func (r *Resolver) Resolve(ctx context.Context, tx *repository.Store, businessID uuid.UUID, staffID *uuid.UUID, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidRange
	}

	covered, err := tx.Availability.Covers(ctx, businessID, staffID, start, end)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if !covered {
		return ErrNoAvailability
	}

	conflicts, err := tx.Appointments.Overlapping(ctx, businessID, staffID, start, end)
	if err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return ErrConflict.WithDetails(map[string]any{
			"starts_at": start,
			"ends_at":   end,
		})
	}
	return nil
}
