package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"appointly/internal/config"
	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/fanout"
	"appointly/internal/push"
	"appointly/internal/repository"
	"appointly/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const EventAppointmentStatus = "appointment_status"

type Options struct {
	// CancellationLimit is the minimum time before scheduled_at at which a
	// customer may still cancel.
	CancellationLimit time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store      *repository.Store
	dispatcher *fanout.Dispatcher
	opts       Options
	log        *slog.Logger
}

func NewService(store *repository.Store, dispatcher *fanout.Dispatcher, opts Options, log *slog.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
	}
}

// actor describes how the caller relates to the appointment.
type actor struct {
	id       uuid.UUID
	owner    bool
	staff    bool
	customer bool
}

func (a actor) privileged() bool { return a.owner || a.staff }

// transitionState is what the transaction hands to the post-commit step.
type transitionState struct {
	appt         *domain.Appointment
	previous     domain.AppointmentStatus
	reason       *string
	business     *domain.Business
	customer     *domain.Profile
	staffProfile *domain.Profile
}

// Transition moves an appointment to a new status on behalf of an actor.
// Checks run in order: existence, actor, authorization, graph, cancellation
// window. The appointment row stays locked until commit so concurrent
// transitions on it serialise and the loser sees the new status.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "appointment.Transition")
	defer span.End()

	in, err := req.normalize()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("appointment.id", in.appointmentID.String()),
		attribute.String("appointment.new_status", string(in.to)),
	)

	var st transitionState
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		// Business before appointment, the same order bookings lock in.
		peek, err := tx.Appointments.GetByID(ctx, in.appointmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("load appointment: %w", err)
		}
		business, err := tx.Businesses.LockForShare(ctx, peek.BusinessID)
		if err != nil {
			return fmt.Errorf("lock business: %w", err)
		}
		appt, err := tx.Appointments.LockForUpdate(ctx, in.appointmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("lock appointment: %w", err)
		}

		who, err := s.resolveActor(ctx, tx, business, appt, in.actorID)
		if err != nil {
			return err
		}
		if !who.privileged() && !(who.customer && in.to == domain.AppointmentCancelled) {
			return ErrForbidden
		}
		if !CanTransition(appt.Status, in.to) {
			return ErrInvalidTransition.WithDetails(map[string]any{
				"current_status": appt.Status,
				"new_status":     in.to,
			})
		}

		now := s.opts.Now().UTC()
		if in.to == domain.AppointmentCancelled && !who.privileged() {
			if remaining := appt.ScheduledAt.Sub(now); remaining < s.opts.CancellationLimit {
				return ErrCancellationWindow.WithDetails(map[string]any{
					"hours_remaining": math.Max(0, math.Round(remaining.Hours()*100)/100),
					"limit_hours":     s.opts.CancellationLimit.Hours(),
				})
			}
		}

		st = transitionState{appt: appt, previous: appt.Status, reason: in.reason, business: business}
		if err := s.apply(ctx, tx, appt, in, now); err != nil {
			return err
		}
		return s.recordTransition(ctx, tx, &st, in)
	})
	if err != nil {
		err = repository.Translate(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info("appointment status updated",
		"appointment_id", st.appt.ID,
		"business_id", st.appt.BusinessID,
		"actor_id", in.actorID,
		"previous_status", st.previous,
		"new_status", st.appt.Status,
	)

	s.dispatcher.Dispatch(ctx, s.effects(&st))
	return &TransitionResult{Appointment: st.appt, PreviousStatus: st.previous}, nil
}

func (s *Service) resolveActor(ctx context.Context, tx *repository.Store, business *domain.Business, appt *domain.Appointment, id uuid.UUID) (actor, error) {
	a := actor{
		id:       id,
		owner:    business.OwnerID == id,
		customer: appt.CustomerID == id,
	}
	staff, err := tx.Staff.IsActiveMember(ctx, business.ID, id)
	if err != nil {
		return actor{}, fmt.Errorf("check staff membership: %w", err)
	}
	a.staff = staff
	if a.staff {
		return a, nil
	}

	exists, err := tx.Profiles.Exists(ctx, id)
	if err != nil {
		return actor{}, fmt.Errorf("check actor: %w", err)
	}
	if !exists {
		return actor{}, ErrActorNotFound
	}
	return a, nil
}

// apply writes the new status. Notes replace the stored value only when
// given; reason and cancelled_at are written only for cancellations.
func (s *Service) apply(ctx context.Context, tx *repository.Store, appt *domain.Appointment, in transitionInput, now time.Time) error {
	u := repository.StatusUpdate{
		Status:    in.to,
		Notes:     in.notes,
		UpdatedAt: now,
	}
	if in.to == domain.AppointmentCancelled {
		u.CancellationReason = in.reason
		u.CancelledAt = &now
	}
	if err := tx.Appointments.UpdateStatus(ctx, appt.ID, u); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	appt.Status = in.to
	appt.UpdatedAt = now
	if in.notes != nil {
		appt.Notes = in.notes
	}
	if u.CancellationReason != nil {
		appt.CancellationReason = u.CancellationReason
	}
	if u.CancelledAt != nil {
		appt.CancelledAt = u.CancelledAt
	}
	return nil
}

func (s *Service) recordTransition(ctx context.Context, tx *repository.Store, st *transitionState, in transitionInput) error {
	appt := st.appt

	ids := []uuid.UUID{appt.CustomerID}
	var staffProfileID *uuid.UUID
	if appt.StaffID != nil {
		staff, err := tx.Staff.GetByID(ctx, *appt.StaffID)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("load assigned staff: %w", err)
		}
		if staff != nil && staff.ProfileID != nil {
			staffProfileID = staff.ProfileID
			ids = append(ids, *staff.ProfileID)
		}
	}
	profiles, err := tx.Profiles.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	st.customer = profiles[appt.CustomerID]

	customerNote := &domain.Notification{
		ProfileID:     appt.CustomerID,
		AppointmentID: &appt.ID,
		Type:          domain.NotificationAppointmentStatus,
	}
	if err := customerNote.SetPayload(map[string]any{
		"appointment_id": appt.ID,
		"new_status":     appt.Status,
		"reason":         in.reason,
	}); err != nil {
		return err
	}
	if err := tx.Notifications.Create(ctx, customerNote); err != nil {
		return fmt.Errorf("insert customer notification: %w", err)
	}

	if staffProfileID != nil {
		st.staffProfile = profiles[*staffProfileID]
		staffNote := &domain.Notification{
			ProfileID:     *staffProfileID,
			AppointmentID: &appt.ID,
			Type:          domain.NotificationAppointmentStatus,
		}
		if err := staffNote.SetPayload(map[string]any{
			"appointment_id": appt.ID,
			"new_status":     appt.Status,
		}); err != nil {
			return err
		}
		if err := tx.Notifications.Create(ctx, staffNote); err != nil {
			return fmt.Errorf("insert staff notification: %w", err)
		}
	}

	audit := &domain.AuditLog{
		ActorID:    &in.actorID,
		BusinessID: appt.BusinessID,
		Action:     domain.AuditAppointmentStatusUpdate,
	}
	if err := audit.SetMetadata(map[string]any{
		"appointment_id":  appt.ID,
		"previous_status": st.previous,
		"new_status":      appt.Status,
		"reason":          in.reason,
	}); err != nil {
		return err
	}
	if err := tx.AuditLogs.Create(ctx, audit); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *Service) effects(st *transitionState) fanout.Effects {
	appt := st.appt
	status := string(appt.Status)

	fx := fanout.Effects{AppointmentID: appt.ID}
	fx.Broadcast(config.BusinessChannel(appt.BusinessID.String()), EventAppointmentStatus, map[string]any{
		"event":           EventAppointmentStatus,
		"appointment_id":  appt.ID,
		"previous_status": st.previous,
		"new_status":      appt.Status,
	})

	data := map[string]string{
		"appointment_id": appt.ID.String(),
		"new_status":     status,
	}
	body := "Status: " + status
	if st.reason != nil {
		body += ", Reason: " + *st.reason
	}
	fx.Push(push.Message{
		Token: st.customer.PushToken(),
		Title: st.business.Name + " appointment updated",
		Body:  body,
		Data:  data,
	})
	if st.staffProfile != nil {
		customerName := "Customer"
		if st.customer != nil && st.customer.FullName != nil && *st.customer.FullName != "" {
			customerName = *st.customer.FullName
		}
		fx.Push(push.Message{
			Token: st.staffProfile.PushToken(),
			Title: "Appointment " + status,
			Body:  "Updated for " + customerName,
			Data:  data,
		})
	}

	fx.Emit(events.Event{
		Type:          events.TypeAppointmentStatus,
		AppointmentID: appt.ID.String(),
		BusinessID:    appt.BusinessID.String(),
		Payload: map[string]any{
			"appointment_id":  appt.ID,
			"previous_status": st.previous,
			"new_status":      appt.Status,
			"reason":          st.reason,
		},
	})
	return fx
}
