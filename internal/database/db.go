package database

import (
	"context"
	"errors"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the services care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return models.ErrConflict
		case codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return models.ErrBadRequest
		}
	}

	return err
}

// IsUnavailable reports whether err looks like the store itself being
// unreachable rather than a row-level failure. Callers use this to decide
// when the offline fallback applies.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) ||
		errors.Is(err, models.ErrBadRequest) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Row-level errors mean the store answered.
		return false
	}
	return true
}

// WithTransaction runs fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.Pool, fn)
}
