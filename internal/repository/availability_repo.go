package repository

import (
	"context"
	"time"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) Create(ctx context.Context, a *domain.Availability) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// Covers reports whether one window fully contains [start, end). With a
// staff id, staff-scoped and business-wide windows both count; without one
// only business-wide windows do.
func (r *AvailabilityRepository) Covers(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, start, end time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Availability{}).
		Where("business_id = ? AND starts_at <= ? AND ends_at >= ?", businessID, start, end)
	if staffID != nil {
		q = q.Where("(staff_id = ? OR staff_id IS NULL)", *staffID)
	} else {
		q = q.Where("staff_id IS NULL")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
