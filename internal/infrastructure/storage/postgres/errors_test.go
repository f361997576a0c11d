package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolationOn(t *testing.T) {
	pgErr := &pgconn.PgError{Code: UniqueViolation, ConstraintName: "uq_settlements_period"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	assert.True(t, UniqueViolationOn(wrapped, "uq_settlements_period"))
	assert.True(t, UniqueViolationOn(wrapped, ""))
	assert.False(t, UniqueViolationOn(wrapped, "uq_other"))
	assert.False(t, UniqueViolationOn(errors.New("boom"), ""))
	assert.False(t, UniqueViolationOn(&pgconn.PgError{Code: ForeignKeyViolation}, ""))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: ForeignKeyViolation}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: UniqueViolation}))
}
