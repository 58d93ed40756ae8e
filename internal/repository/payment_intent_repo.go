package repository

import (
	"context"

	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

// UpsertPending inserts the intent row, or refreshes amount and parties when
// one already exists for the appointment.
func (r *PaymentIntentRepository) UpsertPending(ctx context.Context, p *domain.PaymentIntent) error {
	p.Status = domain.PaymentIntentPending
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "appointment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"business_id", "customer_id", "amount", "updated_at"}),
		}).
		Create(p).Error
}

// MarkCreated records the provider-side intent id.
func (r *PaymentIntentRepository) MarkCreated(ctx context.Context, appointmentID uuid.UUID, providerID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("appointment_id = ?", appointmentID).
		Updates(map[string]any{
			"status":             domain.PaymentIntentCreated,
			"provider_intent_id": providerID,
		}).Error
}
