package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"appointly/internal/config"
	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/fanout"
	"appointly/internal/modules/availability"
	"appointly/internal/payment"
	"appointly/internal/repository"
	"appointly/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const EventAppointmentCreated = "appointment_created"

type Options struct {
	// PaymentsEnabled records a pending payment intent with each booking
	// and asks the dispatcher to create it at the provider.
	PaymentsEnabled bool
}

type Service struct {
	store      *repository.Store
	resolver   *availability.Resolver
	dispatcher *fanout.Dispatcher
	opts       Options
	log        *slog.Logger
}

func NewService(store *repository.Store, resolver *availability.Resolver, dispatcher *fanout.Dispatcher, opts Options, log *slog.Logger) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
	}
}

// Book reserves a slot in one transaction: business lock, service pricing,
// staff lock, availability and conflict check, insert, owner notification,
// audit row and optional payment intent. Fan-out runs after commit.
func (s *Service) Book(ctx context.Context, req BookRequest) (*domain.Appointment, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "booking.Book")
	defer span.End()

	in, err := req.normalize()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("business.id", in.businessID.String()),
		attribute.String("customer.id", in.customerID.String()),
	)

	var appt *domain.Appointment
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		business, err := tx.Businesses.LockForUpdate(ctx, in.businessID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrBusinessNotFound
			}
			return fmt.Errorf("lock business: %w", err)
		}
		if !business.Bookable() {
			return ErrBusinessNotBookable
		}

		ids := in.serviceIDs()
		rows, err := tx.Services.ListBookable(ctx, business.ID, ids)
		if err != nil {
			return fmt.Errorf("load services: %w", err)
		}
		if len(rows) != len(ids) {
			return ErrServicesUnavailable
		}
		lines, total, duration, err := quote(in.selections, rows)
		if err != nil {
			return err
		}

		if in.staffID != nil {
			staff, err := tx.Staff.LockForUpdate(ctx, business.ID, *in.staffID)
			if err != nil {
				if repository.IsNotFound(err) {
					return ErrStaffNotFound
				}
				return fmt.Errorf("lock staff: %w", err)
			}
			if !staff.Active {
				return ErrStaffInactive
			}
		}

		end := in.scheduledAt.Add(time.Duration(duration) * time.Minute)
		if err := s.resolver.Resolve(ctx, tx, business.ID, in.staffID, in.scheduledAt, end); err != nil {
			return err
		}

		appt = &domain.Appointment{
			BusinessID:      business.ID,
			CustomerID:      in.customerID,
			StaffID:         in.staffID,
			Services:        lines,
			ScheduledAt:     in.scheduledAt,
			EndsAt:          end,
			DurationMinutes: duration,
			Status:          domain.AppointmentPending,
			TotalAmount:     total,
			PaymentStatus:   domain.PaymentPending,
			Notes:           in.notes,
		}
		if err := tx.Appointments.Create(ctx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		return s.recordBooking(ctx, tx, business, appt)
	})
	if err != nil {
		err = repository.Translate(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()))
	s.log.Info("appointment booked",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"scheduled_at", appt.ScheduledAt,
		"duration_minutes", appt.DurationMinutes,
	)

	s.dispatcher.Dispatch(ctx, s.effects(appt))
	return appt, nil
}

// recordBooking writes the durable side records inside the transaction.
func (s *Service) recordBooking(ctx context.Context, tx *repository.Store, business *domain.Business, appt *domain.Appointment) error {
	note := &domain.Notification{
		ProfileID:     business.OwnerID,
		AppointmentID: &appt.ID,
		Type:          domain.NotificationAppointmentCreated,
	}
	if err := note.SetPayload(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"customer_id":    appt.CustomerID,
		"scheduled_at":   appt.ScheduledAt,
		"total_amount":   appt.TotalAmount,
	}); err != nil {
		return err
	}
	if err := tx.Notifications.Create(ctx, note); err != nil {
		return fmt.Errorf("insert owner notification: %w", err)
	}

	audit := &domain.AuditLog{
		ActorID:    &appt.CustomerID,
		BusinessID: appt.BusinessID,
		Action:     domain.AuditAppointmentBooked,
	}
	if err := audit.SetMetadata(map[string]any{"appointment_id": appt.ID}); err != nil {
		return err
	}
	if err := tx.AuditLogs.Create(ctx, audit); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	if !s.opts.PaymentsEnabled {
		return nil
	}
	if err := tx.PaymentIntents.UpsertPending(ctx, &domain.PaymentIntent{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		CustomerID:    appt.CustomerID,
		Amount:        appt.TotalAmount,
	}); err != nil {
		return fmt.Errorf("upsert payment intent: %w", err)
	}
	return nil
}

func (s *Service) effects(appt *domain.Appointment) fanout.Effects {
	fx := fanout.Effects{AppointmentID: appt.ID}
	fx.Broadcast(config.BusinessChannel(appt.BusinessID.String()), EventAppointmentCreated, map[string]any{
		"event":          EventAppointmentCreated,
		"appointment_id": appt.ID,
		"scheduled_at":   appt.ScheduledAt,
		"staff_id":       appt.StaffID,
		"total_amount":   appt.TotalAmount,
	})
	fx.Emit(events.Event{
		Type:          events.TypeAppointmentCreated,
		AppointmentID: appt.ID.String(),
		BusinessID:    appt.BusinessID.String(),
		Payload:       appt,
	})
	if s.opts.PaymentsEnabled && appt.TotalAmount > 0 {
		fx.Payment = &payment.IntentRequest{
			AppointmentID: appt.ID.String(),
			BusinessID:    appt.BusinessID.String(),
			CustomerID:    appt.CustomerID.String(),
			Amount:        appt.TotalAmount,
		}
	}
	return fx
}
