package repository

import (
	"errors"
	"fmt"
	"testing"

	"appointly/internal/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	deadlock := fmt.Errorf("lock business: %w", &pgconn.PgError{Code: "40P01"})
	err := Translate(deadlock)
	assert.ErrorIs(t, err, ErrRetry)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, map[string]any{"retry": true}, apperror.As(err).Details)

	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, Translate(errors.New("UNIQUE constraint failed: notifications.appointment_id")), ErrDuplicate)
	assert.ErrorIs(t, Translate(gorm.ErrInvalidDB), ErrStorage)

	tagged := apperror.Validation("bad input")
	assert.Same(t, tagged, Translate(tagged))
	assert.NoError(t, Translate(nil))
}

func TestIsLockFailure(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		assert.True(t, IsLockFailure(&pgconn.PgError{Code: code}), code)
	}
	assert.False(t, IsLockFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsLockFailure(errors.New("boom")))
}
