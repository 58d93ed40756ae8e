package booking

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"appointly/internal/database"
	"appointly/internal/database/dbtest"
	"appointly/internal/domain"
	"appointly/internal/fanout/fanouttest"
	"appointly/internal/modules/availability"
	"appointly/internal/pkg/apperror"
	"appointly/internal/pkg/logger"
	"appointly/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDay = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc  *Service
	db   *gorm.DB
	demo *database.Demo
	rec  *fanouttest.Recorder
}

func setupService(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, demo := dbtest.Seeded(t, testDay)
	store := repository.NewStore(db)
	rec := &fanouttest.Recorder{}
	svc := NewService(store, availability.NewResolver(), rec.Dispatcher(store.PaymentIntents), opts, logger.Discard())
	return &fixture{svc: svc, db: db, demo: demo, rec: rec}
}

func qty(n int) *int { return &n }

func (f *fixture) request(scheduledAt string, staffID *uuid.UUID, services ...ServiceSelection) BookRequest {
	req := BookRequest{
		CustomerID:  f.demo.Customer.ID.String(),
		BusinessID:  f.demo.Business.ID.String(),
		Services:    services,
		ScheduledAt: scheduledAt,
	}
	if staffID != nil {
		s := staffID.String()
		req.StaffID = &s
	}
	return req
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestBook_QuantityScenario(t *testing.T) {
	f := setupService(t, Options{})

	appt, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: f.demo.Haircut.ID.String(), Quantity: qty(2)},
	))
	require.NoError(t, err)

	assert.Equal(t, 200.0, appt.TotalAmount)
	assert.Equal(t, 60, appt.DurationMinutes)
	assert.Equal(t, domain.AppointmentPending, appt.Status)
	assert.Equal(t, domain.PaymentPending, appt.PaymentStatus)
	assert.True(t, appt.ScheduledAt.Equal(f.demo.OpensAt(10, 0)))
	assert.True(t, appt.EndsAt.Equal(f.demo.OpensAt(11, 0)))
	require.Len(t, appt.Services, 1)
	assert.Equal(t, domain.ServiceLine{
		ID:              f.demo.Haircut.ID,
		Name:            "Haircut",
		Price:           100,
		DurationMinutes: 30,
		Quantity:        2,
	}, appt.Services[0])

	stored, err := repository.NewStore(f.db).Appointments.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, stored.TotalAmount)
	assert.Equal(t, appt.Services, stored.Services)

	inbox := dbtest.Notifications(t, f.db, f.demo.Owner.ID)
	require.Len(t, inbox, 1)
	note := inbox[0]
	assert.Equal(t, domain.NotificationAppointmentCreated, note.Type)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(note.Payload, &payload))
	assert.Equal(t, appt.ID.String(), payload["appointment_id"])
	assert.Equal(t, 200.0, payload["total_amount"])

	audits := dbtest.AuditLogs(t, f.db, f.demo.Business.ID)
	require.Len(t, audits, 1)
	audit := audits[0]
	assert.Equal(t, domain.AuditAppointmentBooked, audit.Action)
	require.NotNil(t, audit.ActorID)
	assert.Equal(t, f.demo.Customer.ID, *audit.ActorID)

	require.Len(t, f.rec.Broadcasts, 1)
	assert.Equal(t, "appointments:business_"+f.demo.Business.ID.String(), f.rec.Broadcasts[0].Channel)
	assert.Equal(t, EventAppointmentCreated, f.rec.Broadcasts[0].Event)
	assert.Len(t, f.rec.Events, 1)
	assert.Empty(t, f.rec.Payments, "payments are disabled")
}

func TestBook_MixedSelectionsAreMerged(t *testing.T) {
	f := setupService(t, Options{})

	appt, err := f.svc.Book(context.Background(), f.request("2025-01-10T12:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
		ServiceSelection{ID: f.demo.Colouring.ID.String(), Quantity: qty(2)},
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	require.NoError(t, err)

	// 2 x 100 + 2 x 45.5, 2 x 30 + 2 x 45 minutes
	assert.Equal(t, 291.0, appt.TotalAmount)
	assert.Equal(t, 150, appt.DurationMinutes)
	require.Len(t, appt.Services, 2)
	assert.Equal(t, f.demo.Haircut.ID, appt.Services[0].ID)
	assert.Equal(t, 2, appt.Services[0].Quantity)
	assert.Equal(t, f.demo.Colouring.ID, appt.Services[1].ID)
	require.NotNil(t, appt.StaffID)
	assert.Equal(t, f.demo.Staff.ID, *appt.StaffID)
}

func TestBook_RequestValidation(t *testing.T) {
	f := setupService(t, Options{})
	haircut := ServiceSelection{ID: f.demo.Haircut.ID.String()}

	tests := []struct {
		name   string
		mutate func(*BookRequest)
		want   error
	}{
		{"no services", func(r *BookRequest) { r.Services = nil }, ErrMissingFields},
		{"no customer", func(r *BookRequest) { r.CustomerID = "" }, ErrMissingFields},
		{"no scheduled_at", func(r *BookRequest) { r.ScheduledAt = "" }, ErrMissingFields},
		{"bad scheduled_at", func(r *BookRequest) { r.ScheduledAt = "next tuesday" }, ErrInvalidScheduledAt},
		{"bad customer id", func(r *BookRequest) { r.CustomerID = "42" }, ErrInvalidRequest},
		{"zero quantity", func(r *BookRequest) { r.Services = []ServiceSelection{{ID: haircut.ID, Quantity: qty(0)}} }, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("2025-01-10T10:00:00Z", nil, haircut)
			tt.mutate(&req)

			_, err := f.svc.Book(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
	assert.Zero(t, f.count(t, &domain.Appointment{}))
}

func TestBook_OversizedQuantityIsRejected(t *testing.T) {
	f := setupService(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String(), Quantity: qty(1<<52 + 1)},
	))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.Book(ctx, f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String(), Quantity: qty(MaxQuantity)},
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.Book(ctx, f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Colouring.ID.String(), Quantity: qty(MaxQuantity)},
	))
	assert.ErrorIs(t, err, ErrDurationTooLong)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Zero(t, f.count(t, &domain.Appointment{}))

	appt, err := f.svc.Book(ctx, f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String(), Quantity: qty(3)},
	))
	require.NoError(t, err)
	assert.Equal(t, 90, appt.DurationMinutes)
	assert.Equal(t, appt.ScheduledAt.Add(time.Duration(appt.DurationMinutes)*time.Minute), appt.EndsAt)

	_, err = f.svc.Book(ctx, f.request("2025-01-10T11:00:00Z", &f.demo.Staff.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	assert.ErrorIs(t, err, availability.ErrConflict)
}

func TestQuote_DurationCap(t *testing.T) {
	svc := domain.BusinessService{ID: uuid.New(), Name: "Block", Price: 1, DurationMinutes: 30}
	rows := []domain.BusinessService{svc}

	_, _, duration, err := quote([]selection{{serviceID: svc.ID, quantity: MaxDurationMinutes / 30}}, rows)
	require.NoError(t, err)
	assert.Equal(t, MaxDurationMinutes, duration)

	_, _, _, err = quote([]selection{{serviceID: svc.ID, quantity: MaxDurationMinutes/30 + 1}}, rows)
	assert.ErrorIs(t, err, ErrDurationTooLong)

	huge := domain.BusinessService{ID: uuid.New(), DurationMinutes: 1 << 40}
	_, _, _, err = quote([]selection{{serviceID: huge.ID, quantity: 1 << 30}}, []domain.BusinessService{huge})
	assert.ErrorIs(t, err, ErrDurationTooLong)
}

func TestBook_UppercaseIDs(t *testing.T) {
	f := setupService(t, Options{})

	req := f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: strings.ToUpper(f.demo.Haircut.ID.String())},
	)
	req.BusinessID = strings.ToUpper(req.BusinessID)
	req.CustomerID = strings.ToUpper(req.CustomerID)
	staff := strings.ToUpper(f.demo.Staff.ID.String())
	req.StaffID = &staff

	appt, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, f.demo.Business.ID, appt.BusinessID)
	require.NotNil(t, appt.StaffID)
	assert.Equal(t, f.demo.Staff.ID, *appt.StaffID)
	assert.Equal(t, f.demo.Haircut.ID, appt.Services[0].ID)
}

func TestBook_BusinessChecks(t *testing.T) {
	f := setupService(t, Options{})
	haircut := ServiceSelection{ID: f.demo.Haircut.ID.String()}

	req := f.request("2025-01-10T10:00:00Z", nil, haircut)
	req.BusinessID = uuid.NewString()
	_, err := f.svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	require.NoError(t, f.db.Model(&f.demo.Business).Update("published", false).Error)
	_, err = f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil, haircut))
	assert.ErrorIs(t, err, ErrBusinessNotBookable)

	require.NoError(t, f.db.Model(&f.demo.Business).Updates(map[string]any{"published": true, "deleted_at": time.Now().UTC()}).Error)
	_, err = f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil, haircut))
	assert.ErrorIs(t, err, ErrBusinessNotBookable)
}

func TestBook_InactiveServiceRollsBackEverything(t *testing.T) {
	f := setupService(t, Options{})

	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
		ServiceSelection{ID: f.demo.Retired.ID.String()},
	))
	assert.ErrorIs(t, err, ErrServicesUnavailable)

	_, err = f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: uuid.NewString()},
	))
	assert.ErrorIs(t, err, ErrServicesUnavailable)

	assert.Zero(t, f.count(t, &domain.Appointment{}))
	assert.Zero(t, f.count(t, &domain.Notification{}))
	assert.Zero(t, f.count(t, &domain.AuditLog{}))
	assert.Empty(t, f.rec.Broadcasts)
}

func TestBook_ZeroDurationServices(t *testing.T) {
	f := setupService(t, Options{})
	consult := &domain.BusinessService{BusinessID: f.demo.Business.ID, Name: "Consultation", Price: 0, DurationMinutes: 0, Active: true}
	require.NoError(t, f.db.Create(consult).Error)

	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: consult.ID.String(), Quantity: qty(3)},
	))
	assert.ErrorIs(t, err, ErrNoDuration)
}

func TestBook_StaffChecks(t *testing.T) {
	f := setupService(t, Options{})
	haircut := ServiceSelection{ID: f.demo.Haircut.ID.String()}

	unknown := uuid.New()
	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", &unknown, haircut))
	assert.ErrorIs(t, err, ErrStaffNotFound)

	require.NoError(t, f.db.Model(&f.demo.Staff).Update("active", false).Error)
	_, err = f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID, haircut))
	assert.ErrorIs(t, err, ErrStaffInactive)
}

func TestBook_InactiveRowsInsertedDirectly(t *testing.T) {
	f := setupService(t, Options{})

	assert.False(t, f.demo.Retired.Active)
	var retired domain.BusinessService
	require.NoError(t, f.db.First(&retired, "id = ?", f.demo.Retired.ID).Error)
	assert.False(t, retired.Active)

	benched := &domain.Staff{BusinessID: f.demo.Business.ID, Active: false}
	require.NoError(t, f.db.Create(benched).Error)
	var stored domain.Staff
	require.NoError(t, f.db.First(&stored, "id = ?", benched.ID).Error)
	assert.False(t, stored.Active)

	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", &benched.ID,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	assert.ErrorIs(t, err, ErrStaffInactive)
}

func TestBook_OutsideAvailability(t *testing.T) {
	f := setupService(t, Options{})

	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T17:45:00Z", nil,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	assert.ErrorIs(t, err, availability.ErrNoAvailability)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestBook_ConflictLeavesNoPartialState(t *testing.T) {
	f := setupService(t, Options{})
	haircut := ServiceSelection{ID: f.demo.Haircut.ID.String()}

	_, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", &f.demo.Staff.ID, haircut))
	require.NoError(t, err)

	_, err = f.svc.Book(context.Background(), f.request("2025-01-10T10:15:00Z", &f.demo.Staff.ID, haircut))
	assert.ErrorIs(t, err, availability.ErrConflict)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	assert.Equal(t, int64(1), f.count(t, &domain.Appointment{}))
	assert.Equal(t, int64(1), f.count(t, &domain.Notification{}))
	assert.Equal(t, int64(1), f.count(t, &domain.AuditLog{}))
	assert.Len(t, f.rec.Broadcasts, 1)
}

func TestBook_ConcurrentOverlappingRequests(t *testing.T) {
	f := setupService(t, Options{})
	haircut := ServiceSelection{ID: f.demo.Haircut.ID.String(), Quantity: qty(2)}

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(context.Background(), f.request("2025-01-10T14:00:00Z", &f.demo.Staff.ID, haircut))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.KindOf(err) == apperror.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), f.count(t, &domain.Appointment{}))
}

func TestBook_PaymentIntent(t *testing.T) {
	f := setupService(t, Options{PaymentsEnabled: true})

	appt, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: f.demo.Colouring.ID.String()},
	))
	require.NoError(t, err)

	require.Len(t, f.rec.Payments, 1)
	assert.Equal(t, 45.5, f.rec.Payments[0].Amount)
	assert.Equal(t, appt.ID.String(), f.rec.Payments[0].AppointmentID)

	intent := dbtest.PaymentIntent(t, f.db, appt.ID)
	assert.Equal(t, domain.PaymentIntentCreated, intent.Status)
	require.NotNil(t, intent.ProviderIntentID)
	assert.Equal(t, "pi_"+appt.ID.String(), *intent.ProviderIntentID)
	assert.Equal(t, 45.5, intent.Amount)
}

func TestBook_FanoutFailureDoesNotFailBooking(t *testing.T) {
	f := setupService(t, Options{})
	f.rec.Fail = assert.AnError

	appt, err := f.svc.Book(context.Background(), f.request("2025-01-10T10:00:00Z", nil,
		ServiceSelection{ID: f.demo.Haircut.ID.String()},
	))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Len(t, f.rec.Broadcasts, 1)
}

func TestServiceSelection_UnmarshalJSON(t *testing.T) {
	var got []ServiceSelection
	require.NoError(t, json.Unmarshal([]byte(`["a", {"id":"b","quantity":3}, {"id":"c"}]`), &got))

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Nil(t, got[0].Quantity)
	assert.Equal(t, 3, *got[1].Quantity)
	assert.Equal(t, 1, got[2].quantity())

	assert.Error(t, json.Unmarshal([]byte(`[42]`), &got))
}
