package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Business struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name      string     `json:"name" gorm:"not null"`
	Published bool       `json:"published" gorm:"not null;default:false"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-" gorm:"index"`
}

func (Business) TableName() string {
	return "businesses"
}

func (b *Business) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Bookable reports whether the business accepts new appointments.
func (b *Business) Bookable() bool {
	return b.Published && b.DeletedAt == nil
}

// BusinessService is a priced, timed offering of a business.
type BusinessService struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BusinessID      uuid.UUID  `json:"business_id" gorm:"type:uuid;not null;index"`
	Name            string     `json:"name" gorm:"not null"`
	Price           float64    `json:"price" gorm:"type:numeric(12,2);not null;default:0;check:price >= 0"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null;default:0;check:duration_minutes >= 0"`
	Active          bool       `json:"active" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-" gorm:"index"`
}

func (BusinessService) TableName() string {
	return "services"
}

func (s *BusinessService) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Staff struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID  `json:"business_id" gorm:"type:uuid;not null;index"`
	ProfileID  *uuid.UUID `json:"profile_id" gorm:"type:uuid;index"`
	Active     bool       `json:"active" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"-" gorm:"index"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s *Staff) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Availability is a window during which bookings are accepted.
// A nil StaffID applies business-wide.
type Availability struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID  `json:"business_id" gorm:"type:uuid;not null;index"`
	StaffID    *uuid.UUID `json:"staff_id" gorm:"type:uuid;index"`
	StartsAt   time.Time  `json:"starts_at" gorm:"not null"`
	EndsAt     time.Time  `json:"ends_at" gorm:"not null"`
}

func (Availability) TableName() string {
	return "availability"
}

func (a *Availability) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Profile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FullName  *string   `json:"full_name"`
	FCMToken  *string   `json:"-" gorm:"column:fcm_token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PushToken returns the device token or "" when none is registered.
func (p *Profile) PushToken() string {
	if p == nil || p.FCMToken == nil {
		return ""
	}
	return *p.FCMToken
}
