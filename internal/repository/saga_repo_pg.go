package repository

import (
	"context"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SagaRepository interface {
	Create(ctx context.Context, saga *domain.CheckoutSaga) error
	GetByID(ctx context.Context, id string) (*domain.CheckoutSaga, error)
	// Advance records a new state. bookingID and lastError overwrite the
	// stored values only when non-empty.
	Advance(ctx context.Context, id string, state domain.SagaState, bookingID, lastError string) error
}

type PGSagaRepository struct {
	db *pgxpool.Pool
}

func NewSagaRepository(db *pgxpool.Pool) SagaRepository {
	return &PGSagaRepository{db: db}
}

func (r *PGSagaRepository) Create(ctx context.Context, saga *domain.CheckoutSaga) error {
	return r.db.QueryRow(ctx, `INSERT INTO checkout_sagas
		(id, spot_id, renter_id, host_id, amount_cents, currency, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		saga.ID, saga.SpotID, saga.RenterID, saga.HostID, saga.AmountCents, saga.Currency, saga.State).
		Scan(&saga.CreatedAt, &saga.UpdatedAt)
}

func (r *PGSagaRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSaga, error) {
	var s domain.CheckoutSaga
	err := r.db.QueryRow(ctx, `SELECT id, spot_id, renter_id, host_id, amount_cents, currency, state, booking_id, last_error, created_at, updated_at
		FROM checkout_sagas WHERE id=$1`, id).
		Scan(&s.ID, &s.SpotID, &s.RenterID, &s.HostID, &s.AmountCents, &s.Currency, &s.State, &s.BookingID, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *PGSagaRepository) Advance(ctx context.Context, id string, state domain.SagaState, bookingID, lastError string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE checkout_sagas
		SET state=$2,
		    booking_id=CASE WHEN $3::text = '' THEN booking_id ELSE $3::text END,
		    last_error=CASE WHEN $4::text = '' THEN last_error ELSE $4::text END,
		    updated_at=now()
		WHERE id=$1`, id, state, bookingID, lastError)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ SagaRepository = (*PGSagaRepository)(nil)
