package repository

import (
	"context"
	"time"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// LockForUpdate re-reads the appointment under an exclusive lock so
// concurrent transitions on it serialise.
func (r *AppointmentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	var a domain.Appointment
	err := locked(r.db.WithContext(ctx), lockUpdate, "").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Overlapping returns active appointments of the business whose slot
// intersects [start, end), holding a shared lock on them. With a staff id
// only unassigned appointments and those of that staff are considered.
func (r *AppointmentRepository) Overlapping(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, start, end time.Time) ([]domain.Appointment, error) {
	q := locked(r.db.WithContext(ctx), lockShare, "").
		Where("business_id = ? AND deleted_at IS NULL", businessID).
		Where("status IN ?", domain.ActiveStatuses).
		Where("scheduled_at < ? AND ends_at > ?", end, start)
	if staffID != nil {
		q = q.Where("(staff_id IS NULL OR staff_id = ?)", *staffID)
	}

	var rows []domain.Appointment
	err := q.Order("scheduled_at ASC").Find(&rows).Error
	return rows, err
}

// StatusUpdate carries the columns a transition may change.
type StatusUpdate struct {
	Status             domain.AppointmentStatus
	CancellationReason *string
	Notes              *string
	CancelledAt        *time.Time
	UpdatedAt          time.Time
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) error {
	updates := map[string]any{
		"status":     u.Status,
		"updated_at": u.UpdatedAt,
	}
	if u.CancellationReason != nil {
		updates["cancellation_reason"] = *u.CancellationReason
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	if u.CancelledAt != nil {
		updates["cancelled_at"] = *u.CancelledAt
	}
	return r.db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ReminderCandidates picks completed appointments that ended at or before
// cutoff and have no rating reminder yet. On postgres rows already claimed
// by a concurrent scan are skipped.
func (r *AppointmentRepository) ReminderCandidates(ctx context.Context, cutoff time.Time, limit int) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := locked(r.db.WithContext(ctx), lockUpdate, skipLocked).
		Where("status = ? AND deleted_at IS NULL AND ends_at <= ?", domain.AppointmentCompleted, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.appointment_id = appointments.id AND n.type = ?)", domain.NotificationRatingReminder).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
