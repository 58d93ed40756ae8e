package appointment

import (
	"strings"

	"appointly/internal/domain"
	"appointly/internal/pkg/validator"

	"github.com/google/uuid"
)

// TransitionRequest is the status-update payload as received from a client.
type TransitionRequest struct {
	AppointmentID string  `json:"appointment_id" validate:"required,uuid"`
	NewStatus     string  `json:"new_status" validate:"required"`
	ActorID       string  `json:"actor_id" validate:"required,uuid"`
	Reason        *string `json:"reason"`
	Notes         *string `json:"notes"`
}

// TransitionResult is the updated appointment plus the status it left.
type TransitionResult struct {
	*domain.Appointment
	PreviousStatus domain.AppointmentStatus `json:"previous_status"`
}

type transitionInput struct {
	appointmentID uuid.UUID
	actorID       uuid.UUID
	to            domain.AppointmentStatus
	reason        *string
	notes         *string
}

func (r TransitionRequest) normalize() (transitionInput, error) {
	if strings.TrimSpace(r.AppointmentID) == "" || strings.TrimSpace(r.NewStatus) == "" ||
		strings.TrimSpace(r.ActorID) == "" {
		return transitionInput{}, ErrMissingFields
	}

	to := domain.AppointmentStatus(strings.TrimSpace(r.NewStatus))
	if !Requestable(to) {
		return transitionInput{}, ErrUnsupportedStatus.WithDetails(map[string]any{"new_status": r.NewStatus})
	}
	if errs := validator.Validate(r); errs != nil {
		return transitionInput{}, ErrInvalidRequest.WithDetails(errs)
	}

	in := transitionInput{
		appointmentID: uuid.MustParse(r.AppointmentID),
		actorID:       uuid.MustParse(r.ActorID),
		to:            to,
		notes:         r.Notes,
	}
	if r.Reason != nil && strings.TrimSpace(*r.Reason) != "" {
		reason := strings.TrimSpace(*r.Reason)
		in.reason = &reason
	}
	return in, nil
}
