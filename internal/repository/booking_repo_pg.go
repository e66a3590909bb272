package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// CreateForClaim inserts the booking only while its spot is still booked
	// under claimID, checked under a row lock in the same transaction.
	CreateForClaim(ctx context.Context, booking *domain.Booking, claimID string) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error)
	// Transition moves a booking to status `to` if its current status is in
	// `from`. It returns domain.ErrInvalidTransition when no row matched.
	Transition(ctx context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error)
	ListEndedConfirmed(ctx context.Context, endedBefore time.Time, limit int) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, parking_spot_id, user_id, host_id, start_time, end_time, total_price, status, vehicle_make, vehicle_model, vehicle_color, license_plate, payment_ref, saga_id, paid_out, created_at, updated_at`

func scanBooking(row scanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.ParkingSpotID, &b.RenterID, &b.HostID, &b.StartTime, &b.EndTime, &b.TotalPrice, &b.Status,
		&b.VehicleInfo.Make, &b.VehicleInfo.Model, &b.VehicleInfo.Color, &b.VehicleInfo.LicensePlate,
		&b.PaymentRef, &b.SagaID, &b.PaidOut, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) CreateForClaim(ctx context.Context, booking *domain.Booking, claimID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		status domain.SpotStatus
		holder *string
	)
	if err := tx.QueryRow(ctx, `SELECT status, claim_id FROM parking_spots WHERE id=$1 FOR UPDATE`, booking.ParkingSpotID).
		Scan(&status, &holder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("spot %s vanished: %w", booking.ParkingSpotID, domain.ErrInconsistency)
		}
		return err
	}
	if status != domain.SpotStatusBooked || holder == nil || *holder != claimID {
		return fmt.Errorf("spot %s not held by claim %s: %w", booking.ParkingSpotID, claimID, domain.ErrInconsistency)
	}

	if err := tx.QueryRow(ctx, `INSERT INTO bookings
		(id, parking_spot_id, user_id, host_id, start_time, end_time, total_price, status,
		 vehicle_make, vehicle_model, vehicle_color, license_plate, payment_ref, saga_id, paid_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		booking.ID, booking.ParkingSpotID, booking.RenterID, booking.HostID, booking.StartTime, booking.EndTime,
		booking.TotalPrice, booking.Status, booking.VehicleInfo.Make, booking.VehicleInfo.Model,
		booking.VehicleInfo.Color, booking.VehicleInfo.LicensePlate, booking.PaymentRef, booking.SagaID, booking.PaidOut).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		if hasCode(err, uniqueViolation) {
			return fmt.Errorf("spot %s already has an active booking: %w", booking.ParkingSpotID, domain.ErrInconsistency)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY start_time DESC`, renterID)
}

func (r *PGBookingRepository) ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE host_id=$1 ORDER BY start_time DESC`, hostID)
}

func (r *PGBookingRepository) Transition(ctx context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error) {
	fromStates := make([]string, 0, len(from))
	for _, s := range from {
		fromStates = append(fromStates, string(s))
	}
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
		WHERE id=$1 AND status = ANY($3)
		RETURNING `+bookingColumns, id, to, fromStates))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) ListEndedConfirmed(ctx context.Context, endedBefore time.Time, limit int) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status=$1 AND end_time <= $2
		ORDER BY end_time LIMIT $3`, domain.BookingStatusConfirmed, endedBefore, limit)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
