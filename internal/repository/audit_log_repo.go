package repository

import (
	"context"

	"appointly/internal/domain"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, l *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}
