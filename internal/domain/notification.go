package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType represents notification type
type NotificationType string

const (
	NotificationAppointmentCreated NotificationType = "appointment_created" // Owner: new booking
	NotificationAppointmentStatus  NotificationType = "appointment_status"  // Customer/staff: status changed
	NotificationRatingReminder     NotificationType = "rating_reminder"     // Customer: rate a completed visit
)

// Notification is an append-only inbox item. AppointmentID links it to the
// appointment it talks about and doubles as the reminder idempotency key.
type Notification struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ProfileID     uuid.UUID        `json:"profile_id" gorm:"type:uuid;not null;index:idx_notifications_profile_created,priority:1"`
	AppointmentID *uuid.UUID       `json:"appointment_id,omitempty" gorm:"type:uuid;index;uniqueIndex:idx_notifications_rating_reminder,where:type = 'rating_reminder'"`
	Type          NotificationType `json:"type" gorm:"type:varchar(32);not null;index"`
	Payload       json.RawMessage  `json:"payload" gorm:"type:jsonb"`
	IsRead        bool             `json:"is_read" gorm:"not null;default:false"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index:idx_notifications_profile_created,priority:2"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// SetPayload encodes data to JSON
func (n *Notification) SetPayload(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	n.Payload = b
	return nil
}

type AuditAction string

const (
	AuditAppointmentBooked       AuditAction = "appointment_booked"
	AuditAppointmentStatusUpdate AuditAction = "appointment_status_update"
	AuditRatingReminderSent      AuditAction = "rating_reminder_sent"
)

// AuditLog rows are append-only. A nil ActorID marks a system action.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID    *uuid.UUID      `json:"actor_id" gorm:"type:uuid;index"`
	BusinessID uuid.UUID       `json:"business_id" gorm:"type:uuid;not null;index"`
	Action     AuditAction     `json:"action" gorm:"type:varchar(64);not null"`
	Metadata   json.RawMessage `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (l *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *AuditLog) SetMetadata(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	l.Metadata = b
	return nil
}

type PaymentIntentStatus string

const (
	PaymentIntentPending PaymentIntentStatus = "pending"
	PaymentIntentCreated PaymentIntentStatus = "created"
)

// PaymentIntent tracks the provider-side intent for an appointment.
type PaymentIntent struct {
	ID               uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	AppointmentID    uuid.UUID           `json:"appointment_id" gorm:"type:uuid;not null;uniqueIndex"`
	BusinessID       uuid.UUID           `json:"business_id" gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID           `json:"customer_id" gorm:"type:uuid;not null"`
	Amount           float64             `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status           PaymentIntentStatus `json:"status" gorm:"type:varchar(16);not null"`
	ProviderIntentID *string             `json:"provider_intent_id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

func (p *PaymentIntent) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Models lists every entity for AutoMigrate.
func Models() []any {
	return []any{
		&Profile{},
		&Business{},
		&BusinessService{},
		&Staff{},
		&Availability{},
		&Appointment{},
		&Notification{},
		&AuditLog{},
		&PaymentIntent{},
	}
}
