package reminder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"appointly/internal/database"
	"appointly/internal/database/dbtest"
	"appointly/internal/domain"
	"appointly/internal/fanout/fanouttest"
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

func setupService(t *testing.T) *fixture {
	t.Helper()
	db, demo := dbtest.Seeded(t, testDay)
	rec := &fanouttest.Recorder{}
	now := demo.OpensAt(14, 0)
	svc := NewService(repository.NewStore(db), rec.Dispatcher(nil), Options{
		Grace:        time.Hour,
		DefaultLimit: 20,
		MaxLimit:     100,
		Now:          func() time.Time { return now },
	}, logger.Discard())
	return &fixture{svc: svc, db: db, demo: demo, rec: rec}
}

// insert stores a 30 minute appointment that ends at end.
func (f *fixture) insert(t *testing.T, status domain.AppointmentStatus, end time.Time) *domain.Appointment {
	t.Helper()
	start := end.Add(-30 * time.Minute)
	appt := &domain.Appointment{
		BusinessID: f.demo.Business.ID,
		CustomerID: f.demo.Customer.ID,
		Services: []domain.ServiceLine{{
			ID: f.demo.Haircut.ID, Name: "Haircut", Price: 100, DurationMinutes: 30, Quantity: 1,
		}},
		ScheduledAt:     start,
		EndsAt:          end,
		DurationMinutes: 30,
		Status:          status,
		TotalAmount:     100,
		PaymentStatus:   domain.PaymentPending,
	}
	require.NoError(t, f.db.Create(appt).Error)
	return appt
}

func (f *fixture) reminders(t *testing.T) []domain.Notification {
	t.Helper()
	var rows []domain.Notification
	require.NoError(t, f.db.Where("type = ?", domain.NotificationRatingReminder).Find(&rows).Error)
	return rows
}

func TestScan_SelectsDueCompletedAppointments(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	due := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))
	edge := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(13, 0))
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(13, 30))
	f.insert(t, domain.AppointmentApproved, f.demo.OpensAt(10, 0))
	gone := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(9, 30))
	require.NoError(t, f.db.Model(gone).Update("deleted_at", f.demo.OpensAt(11, 0)).Error)

	n, err := f.svc.Scan(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := map[uuid.UUID]bool{}
	for _, r := range f.reminders(t) {
		require.NotNil(t, r.AppointmentID)
		got[*r.AppointmentID] = true
		assert.Equal(t, f.demo.Customer.ID, r.ProfileID)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(r.Payload, &payload))
		assert.Equal(t, f.demo.Business.ID.String(), payload["business_id"])
		assert.Contains(t, payload, "scheduled_at")
	}
	assert.Equal(t, map[uuid.UUID]bool{due.ID: true, edge.ID: true}, got)

	var audits []domain.AuditLog
	require.NoError(t, f.db.Where("action = ?", domain.AuditRatingReminderSent).Find(&audits).Error)
	require.Len(t, audits, 2)
	for _, a := range audits {
		assert.Nil(t, a.ActorID, "reminders are system actions")
	}
}

func TestScan_IsIdempotent(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(11, 0))
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))

	first, err := f.svc.Scan(ctx, 20)
	require.NoError(t, err)
	second, err := f.svc.Scan(ctx, 20)
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Zero(t, second)
	assert.Len(t, f.reminders(t), 2)
	assert.Len(t, f.rec.Pushes, 2)
}

func TestScan_RespectsLimitAndOrder(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	late := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))
	early := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(10, 0))
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(11, 0))

	n, err := f.svc.Scan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rows := f.reminders(t)
	require.Len(t, rows, 1)
	assert.Equal(t, early.ID, *rows[0].AppointmentID)

	n, err = f.svc.Scan(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, int64(1), dbtest.CountNotifications(t, f.db, late.ID, domain.NotificationRatingReminder))
}

func TestScan_FanOut(t *testing.T) {
	f := setupService(t)
	appt := f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))

	_, err := f.svc.Scan(context.Background(), 20)
	require.NoError(t, err)

	require.Len(t, f.rec.Pushes, 1)
	assert.Equal(t, "customer-device", f.rec.Pushes[0].Token)
	assert.Equal(t, "Rate your experience at Downtown Barbers", f.rec.Pushes[0].Title)
	assert.Equal(t, "Don't forget to review your appointment", f.rec.Pushes[0].Body)
	assert.Equal(t, appt.ID.String(), f.rec.Pushes[0].Data["appointment_id"])
	assert.Equal(t, []string{EventRatingReminder}, f.rec.BroadcastEvents())
	assert.Equal(t, map[string]any{"appointment_id": appt.ID, "customer_id": f.demo.Customer.ID}, f.rec.Broadcasts[0].Payload)
	require.Len(t, f.rec.Events, 1)
}

func TestScan_FanOutFailureKeepsReminders(t *testing.T) {
	f := setupService(t)
	f.rec.Fail = assert.AnError
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(11, 0))
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))

	n, err := f.svc.Scan(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.reminders(t), 2)
	assert.Len(t, f.rec.Broadcasts, 2, "one failing row does not stop the next")
}

func TestScan_NoPushWithoutToken(t *testing.T) {
	f := setupService(t)
	require.NoError(t, f.db.Model(&f.demo.Customer).Update("fcm_token", nil).Error)
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))

	n, err := f.svc.Scan(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.rec.Pushes)
	assert.Len(t, f.rec.Broadcasts, 1)
}

func TestParseLimit(t *testing.T) {
	f := setupService(t)

	tests := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"abc", 20},
		{"0", 20},
		{"-4", 20},
		{"7", 7},
		{" 15 ", 15},
		{"100", 100},
		{"500", 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.svc.ParseLimit(tt.raw), "limit %q", tt.raw)
	}
}
