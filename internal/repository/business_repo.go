package repository

import (
	"context"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) Create(ctx context.Context, b *domain.Business) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// LockForUpdate loads the business holding an exclusive row lock. Soft-deleted
// rows are returned too so callers can tell "gone" from "unknown".
func (r *BusinessRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	var b domain.Business
	err := locked(r.db.WithContext(ctx), lockUpdate, "").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockForShare blocks concurrent bookings on the business without blocking
// other transitions.
func (r *BusinessRepository) LockForShare(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	var b domain.Business
	err := locked(r.db.WithContext(ctx), lockShare, "").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Business
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.ID] = b.Name
	}
	return out, nil
}
