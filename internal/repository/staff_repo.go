package repository

import (
	"context"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, s *domain.Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// LockForUpdate loads a non-deleted staff row of the business with an
// exclusive lock.
func (r *StaffRepository) LockForUpdate(ctx context.Context, businessID, staffID uuid.UUID) (*domain.Staff, error) {
	var s domain.Staff
	err := locked(r.db.WithContext(ctx), lockUpdate, "").
		Where("id = ? AND business_id = ? AND deleted_at IS NULL", staffID, businessID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	var s domain.Staff
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// IsActiveMember reports whether actorID is an active staff member of the
// business, matched either by staff id or by linked profile id.
func (r *StaffRepository) IsActiveMember(ctx context.Context, businessID, actorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Staff{}).
		Where("business_id = ? AND active = ? AND deleted_at IS NULL", businessID, true).
		Where("(id = ? OR profile_id = ?)", actorID, actorID).
		Count(&count).Error
	return count > 0, err
}
