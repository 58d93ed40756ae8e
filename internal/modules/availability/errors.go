package availability

import "appointly/internal/pkg/apperror"

var (
	ErrNoAvailability = apperror.Validation("No availability for the selected date/time")
	ErrConflict       = apperror.Conflict("The selected time slot is already booked")
	ErrInvalidRange   = apperror.Validation("Slot end must be after its start")
)
