package repository

import (
	"errors"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// serializationFailure is the SQLSTATE Postgres reports when a serializable
// transaction loses a race.
const serializationFailure = "40001"

const uniqueViolation = "23505"

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// translateClaim maps a lost serialization race to a conflict. Postgres can
// report it on any statement of the claim transaction, including the locking
// read.
func translateClaim(err error) error {
	if hasCode(err, serializationFailure) {
		return domain.ErrConflict
	}
	return translate(err)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}
