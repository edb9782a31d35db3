package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on uniqueness violations.
	ErrConflict = errors.New("record conflict")
	// ErrStaleState is returned when a compare-and-swap write lost a race.
	ErrStaleState = errors.New("stale state")
)

const pgUniqueViolation = "23505"

// mapPgError folds driver errors into the repository sentinels while keeping
// the original error in the chain.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s: %w", ErrConflict, pgErr.ConstraintName, err)
	}
	return err
}
