package booking

import "appointly/internal/pkg/apperror"

var (
	ErrInvalidJSON         = apperror.Validation("Invalid JSON payload")
	ErrMissingFields       = apperror.Validation("customer_id, business_id, scheduled_at and services are required")
	ErrInvalidRequest      = apperror.Validation("Invalid booking request")
	ErrInvalidScheduledAt  = apperror.Validation("scheduled_at must be a valid ISO-8601 timestamp")
	ErrBusinessNotFound    = apperror.NotFound("Business not found")
	ErrBusinessNotBookable = apperror.Validation("Business is not published or inactive")
	ErrServicesUnavailable = apperror.Validation("Some of the selected services were not found or are inactive")
	ErrNoDuration          = apperror.Validation("Service duration could not be computed")
	ErrDurationTooLong     = apperror.Validation("Total service duration exceeds 24 hours")
	ErrStaffNotFound       = apperror.Validation("Staff member not found or does not belong to this business")
	ErrStaffInactive       = apperror.Validation("Staff member is inactive")
)
