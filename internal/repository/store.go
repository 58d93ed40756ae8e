package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lockUpdate = "UPDATE"
	lockShare  = "SHARE"
	skipLocked = "SKIP LOCKED"
)

// Store groups the repositories bound to one *gorm.DB, either the pool or
// an open transaction.
type Store struct {
	db *gorm.DB

	Appointments   *AppointmentRepository
	Businesses     *BusinessRepository
	Services       *ServiceRepository
	Staff          *StaffRepository
	Availability   *AvailabilityRepository
	Profiles       *ProfileRepository
	Notifications  *NotificationRepository
	AuditLogs      *AuditLogRepository
	PaymentIntents *PaymentIntentRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		Appointments:   NewAppointmentRepository(db),
		Businesses:     NewBusinessRepository(db),
		Services:       NewServiceRepository(db),
		Staff:          NewStaffRepository(db),
		Availability:   NewAvailabilityRepository(db),
		Profiles:       NewProfileRepository(db),
		Notifications:  NewNotificationRepository(db),
		AuditLogs:      NewAuditLogRepository(db),
		PaymentIntents: NewPaymentIntentRepository(db),
	}
}

// Transaction runs fn inside one database transaction. Returning an error
// from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// locked adds a row-locking clause on dialects that support it. sqlite has
// no row locks; a single connection serialises its transactions instead.
func locked(db *gorm.DB, strength, options string) *gorm.DB {
	if db.Dialector.Name() != "postgres" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: strength, Options: options})
}
