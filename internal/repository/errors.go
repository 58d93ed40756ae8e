package repository

import (
	"errors"
	"strings"

	"appointly/internal/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the engines react to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

// IsLockFailure reports deadlocks, lock timeouts and serialization
// failures. Callers may retry the whole operation.
func IsLockFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}

var (
	ErrRetry     = apperror.Internal("Concurrent update detected, please retry", nil)
	ErrDuplicate = apperror.Conflict("Duplicate record")
	ErrStorage   = apperror.Internal("Unexpected storage error", nil)
)

// Translate maps a storage failure onto the tagged error taxonomy. Errors
// that are already tagged pass through unchanged.
func Translate(err error) error {
	if err == nil || apperror.As(err) != nil {
		return err
	}
	switch {
	case IsLockFailure(err):
		return ErrRetry.Wrap(err).WithDetails(map[string]any{"retry": true})
	case IsUniqueViolation(err):
		return ErrDuplicate.Wrap(err)
	default:
		return ErrStorage.Wrap(err)
	}
}
