package appointment

import "appointly/internal/domain"

// transitions lists the statuses reachable from each status. Statuses with
// no entry are terminal.
var transitions = map[domain.AppointmentStatus][]domain.AppointmentStatus{
	domain.AppointmentPending:  {domain.AppointmentApproved, domain.AppointmentRejected, domain.AppointmentCancelled},
	domain.AppointmentApproved: {domain.AppointmentCompleted, domain.AppointmentCancelled},
}

// CanTransition reports whether an appointment in from may move to to.
func CanTransition(from, to domain.AppointmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Requestable reports whether a client may ask for s. pending is only ever
// set at booking time.
func Requestable(s domain.AppointmentStatus) bool {
	return s.Valid() && s != domain.AppointmentPending
}
