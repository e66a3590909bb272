package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("commit: %w", &pgconn.PgError{Code: serializationFailure})
	assert.True(t, hasCode(err, serializationFailure))
	assert.False(t, hasCode(err, uniqueViolation))
	assert.False(t, hasCode(errors.New("plain"), serializationFailure))
}

func TestTranslateClaim(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: serializationFailure}, domain.ErrConflict},
		{"wrapped serialization failure", fmt.Errorf("select for update: %w", &pgconn.PgError{Code: serializationFailure}), domain.ErrConflict},
		{"missing spot", pgx.ErrNoRows, domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: uniqueViolation}, nil},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateClaim(tt.err)
			if tt.want == nil {
				assert.Equal(t, tt.err, got)
				assert.NotErrorIs(t, got, domain.ErrConflict)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
