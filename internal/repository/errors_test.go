package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		err := mapPgError(pgx.ErrNoRows)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("unique violation", func(t *testing.T) {
		err := mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "users_username_key")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cause := errors.New("connection refused")
		assert.Same(t, cause, mapPgError(cause))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, mapPgError(nil))
	})
}
