package appointment

import "appointly/internal/pkg/apperror"

var (
	ErrInvalidJSON         = apperror.Validation("Invalid JSON payload")
	ErrMissingFields       = apperror.Validation("appointment_id, new_status and actor_id are required")
	ErrInvalidRequest      = apperror.Validation("Invalid status update request")
	ErrUnsupportedStatus   = apperror.Validation("Unsupported status")
	ErrAppointmentNotFound = apperror.NotFound("Appointment not found")
	ErrActorNotFound       = apperror.Forbidden("Actor not found")
	ErrForbidden           = apperror.Forbidden("You are not allowed to update this appointment")
	ErrInvalidTransition   = apperror.Validation("Invalid status transition")
	ErrCancellationWindow  = apperror.Validation("Too late to cancel this appointment")
)
