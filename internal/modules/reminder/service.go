package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
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

const EventRatingReminder = "rating_reminder"

type Options struct {
	// Grace is how long after an appointment ends before its reminder is due.
	Grace        time.Duration
	DefaultLimit int
	MaxLimit     int
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

// GraceHours is the configured grace period in hours.
func (s *Service) GraceHours() float64 {
	return s.opts.Grace.Hours()
}

// ParseLimit reads a batch size. Empty, non-numeric and non-positive values
// fall back to the default; larger values are capped at the maximum.
func (s *Service) ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return s.opts.DefaultLimit
	}
	return s.clamp(n)
}

func (s *Service) clamp(n int) int {
	if n <= 0 {
		return s.opts.DefaultLimit
	}
	if n > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return n
}

type sent struct {
	appt         domain.Appointment
	businessName string
	customer     *domain.Profile
}

// Scan records a rating reminder for up to limit completed appointments
// whose grace period has passed and that have none yet. The batch commits
// atomically; fan-out then runs per appointment.
func (s *Service) Scan(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "reminder.Scan")
	defer span.End()

	limit = s.clamp(limit)
	cutoff := s.opts.Now().UTC().Add(-s.opts.Grace)
	span.SetAttributes(attribute.Int("reminder.limit", limit))

	var batch []sent
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		rows, err := tx.Appointments.ReminderCandidates(ctx, cutoff, limit)
		if err != nil {
			return fmt.Errorf("select reminder candidates: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		businessIDs := make([]uuid.UUID, 0, len(rows))
		customerIDs := make([]uuid.UUID, 0, len(rows))
		for _, a := range rows {
			businessIDs = append(businessIDs, a.BusinessID)
			customerIDs = append(customerIDs, a.CustomerID)
		}
		names, err := tx.Businesses.NamesByIDs(ctx, businessIDs)
		if err != nil {
			return fmt.Errorf("load business names: %w", err)
		}
		customers, err := tx.Profiles.GetByIDs(ctx, customerIDs)
		if err != nil {
			return fmt.Errorf("load customers: %w", err)
		}

		batch = make([]sent, 0, len(rows))
		for _, a := range rows {
			if err := s.record(ctx, tx, a); err != nil {
				return err
			}
			batch = append(batch, sent{appt: a, businessName: names[a.BusinessID], customer: customers[a.CustomerID]})
		}
		return nil
	})
	if err != nil {
		err = repository.Translate(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("reminder.processed", len(batch)))
	if len(batch) > 0 {
		s.log.Info("rating reminders recorded", "count", len(batch), "cutoff", cutoff)
	}

	for _, r := range batch {
		s.dispatcher.Dispatch(ctx, s.effects(r))
	}
	return len(batch), nil
}

func (s *Service) record(ctx context.Context, tx *repository.Store, a domain.Appointment) error {
	note := &domain.Notification{
		ProfileID:     a.CustomerID,
		AppointmentID: &a.ID,
		Type:          domain.NotificationRatingReminder,
	}
	if err := note.SetPayload(map[string]any{
		"appointment_id": a.ID,
		"business_id":    a.BusinessID,
		"scheduled_at":   a.ScheduledAt,
	}); err != nil {
		return err
	}
	if err := tx.Notifications.Create(ctx, note); err != nil {
		return fmt.Errorf("insert rating reminder: %w", err)
	}

	audit := &domain.AuditLog{
		BusinessID: a.BusinessID,
		Action:     domain.AuditRatingReminderSent,
	}
	if err := audit.SetMetadata(map[string]any{"appointment_id": a.ID}); err != nil {
		return err
	}
	if err := tx.AuditLogs.Create(ctx, audit); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *Service) effects(r sent) fanout.Effects {
	a := r.appt
	fx := fanout.Effects{AppointmentID: a.ID}
	fx.Push(push.Message{
		Token: r.customer.PushToken(),
		Title: "Rate your experience at " + r.businessName,
		Body:  "Don't forget to review your appointment",
		Data: map[string]string{
			"appointment_id": a.ID.String(),
			"business_id":    a.BusinessID.String(),
		},
	})
	fx.Broadcast(config.BusinessChannel(a.BusinessID.String()), EventRatingReminder, map[string]any{
		"appointment_id": a.ID,
		"customer_id":    a.CustomerID,
	})
	fx.Emit(events.Event{
		Type:          events.TypeRatingReminder,
		AppointmentID: a.ID.String(),
		BusinessID:    a.BusinessID.String(),
		Payload: map[string]any{
			"appointment_id": a.ID,
			"customer_id":    a.CustomerID,
			"scheduled_at":   a.ScheduledAt,
		},
	})
	return fx
}
