package repository

import (
	"context"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceRepository reads the bookable offerings of a business.
type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, s *domain.BusinessService) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ListBookable returns the services among ids that belong to the business,
// are active and not soft-deleted.
func (r *ServiceRepository) ListBookable(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]domain.BusinessService, error) {
	var rows []domain.BusinessService
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ? AND active = ? AND deleted_at IS NULL", businessID, ids, true).
		Find(&rows).Error
	return rows, err
}
