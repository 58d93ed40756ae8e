package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentApproved  AppointmentStatus = "approved"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// ActiveStatuses occupy a slot for conflict purposes.
var ActiveStatuses = []AppointmentStatus{
	AppointmentPending,
	AppointmentApproved,
	AppointmentCompleted,
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentApproved, AppointmentRejected, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

type PaymentStatus string

// PaymentPending is the payment status every new appointment starts in.
const PaymentPending PaymentStatus = "pending"

// ServiceLine is the price/duration snapshot of one booked service.
type ServiceLine struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	Quantity        int       `json:"quantity"`
}

type Appointment struct {
	ID                 uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	BusinessID         uuid.UUID         `json:"business_id" gorm:"type:uuid;not null;index:idx_appointments_business_slot,priority:1"`
	CustomerID         uuid.UUID         `json:"customer_id" gorm:"type:uuid;not null;index"`
	StaffID            *uuid.UUID        `json:"staff_id" gorm:"type:uuid;index"`
	Services           []ServiceLine     `json:"services" gorm:"type:jsonb;serializer:json;not null"`
	ScheduledAt        time.Time         `json:"scheduled_at" gorm:"not null;index:idx_appointments_business_slot,priority:2"`
	EndsAt             time.Time         `json:"-" gorm:"not null;index"`
	DurationMinutes    int               `json:"duration_minutes" gorm:"not null;check:duration_minutes > 0"`
	Status             AppointmentStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	TotalAmount        float64           `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	PaymentStatus      PaymentStatus     `json:"payment_status" gorm:"type:varchar(16);not null"`
	CancellationReason *string           `json:"cancellation_reason" gorm:"type:text"`
	Notes              *string           `json:"notes" gorm:"type:text"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	CancelledAt        *time.Time        `json:"cancelled_at"`
	DeletedAt          *time.Time        `json:"-" gorm:"index"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
