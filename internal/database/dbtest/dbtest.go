// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"appointly/internal/database"
	"appointly/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Seeded returns a database holding the demo data set on day.
func Seeded(t testing.TB, day time.Time) (*gorm.DB, *database.Demo) {
	t.Helper()
	db := New(t)
	demo, err := database.SeedDemo(context.Background(), db, day)
	if err != nil {
		t.Fatalf("failed to seed db: %v", err)
	}
	return db, demo
}

// Notifications lists the inbox of profileID, newest first.
func Notifications(t testing.TB, db *gorm.DB, profileID uuid.UUID) []domain.Notification {
	t.Helper()
	var rows []domain.Notification
	if err := db.Where("profile_id = ?", profileID).Order("created_at DESC").Find(&rows).Error; err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	return rows
}

// CountNotifications counts notifications of typ about appointmentID.
func CountNotifications(t testing.TB, db *gorm.DB, appointmentID uuid.UUID, typ domain.NotificationType) int64 {
	t.Helper()
	var count int64
	err := db.Model(&domain.Notification{}).
		Where("appointment_id = ? AND type = ?", appointmentID, typ).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count notifications: %v", err)
	}
	return count
}

// AuditLogs lists the audit trail of businessID, oldest first.
func AuditLogs(t testing.TB, db *gorm.DB, businessID uuid.UUID) []domain.AuditLog {
	t.Helper()
	var rows []domain.AuditLog
	if err := db.Where("business_id = ?", businessID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("failed to list audit logs: %v", err)
	}
	return rows
}

// PaymentIntent loads the intent recorded for appointmentID.
func PaymentIntent(t testing.TB, db *gorm.DB, appointmentID uuid.UUID) domain.PaymentIntent {
	t.Helper()
	var p domain.PaymentIntent
	if err := db.Where("appointment_id = ?", appointmentID).First(&p).Error; err != nil {
		t.Fatalf("failed to load payment intent: %v", err)
	}
	return p
}
