package repository

import (
	"context"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SpotRepository interface {
	// Create inserts a spot, leaving an existing row with the same id untouched.
	Create(ctx context.Context, spot *domain.ParkingSpot) error
	GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error)
	// Claim flips an available spot to booked under claimID in one
	// serializable transaction. It returns domain.ErrNotFound for a missing
	// spot and domain.ErrConflict for any status other than available.
	Claim(ctx context.Context, id, claimID string, at time.Time) (*domain.ParkingSpot, error)
	// Release returns a spot to available only while it is still held by
	// claimID and no active booking references it. It reports whether a row
	// changed.
	Release(ctx context.Context, id, claimID string) (bool, error)
	// ReleaseBooked returns a booked spot to available regardless of claim.
	ReleaseBooked(ctx context.Context, id string) (bool, error)
	// Retire marks a booked spot unavailable once its booking completed.
	Retire(ctx context.Context, id string) (bool, error)
	// ListOrphanedClaims returns booked spots claimed before the deadline
	// that no pending or confirmed booking references.
	ListOrphanedClaims(ctx context.Context, claimedBefore time.Time) ([]domain.ParkingSpot, error)
}

type PGSpotRepository struct {
	db *pgxpool.Pool
}

func NewSpotRepository(db *pgxpool.Pool) SpotRepository {
	return &PGSpotRepository{db: db}
}

const spotColumns = `id, owner_id, event_id, price, availability_start, availability_end, latitude, longitude, images, status, claim_id, claimed_at, created_at, updated_at`

func scanSpot(row scanner) (*domain.ParkingSpot, error) {
	var s domain.ParkingSpot
	if err := row.Scan(&s.ID, &s.OwnerID, &s.EventID, &s.Price, &s.Availability.Start, &s.Availability.End,
		&s.Coordinates.Latitude, &s.Coordinates.Longitude, &s.Images, &s.Status, &s.ClaimID, &s.ClaimedAt,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGSpotRepository) Create(ctx context.Context, s *domain.ParkingSpot) error {
	images := s.Images
	if images == nil {
		images = []string{}
	}
	if s.Status == "" {
		s.Status = domain.SpotStatusAvailable
	}
	_, err := r.db.Exec(ctx, `INSERT INTO parking_spots
		(id, owner_id, event_id, price, availability_start, availability_end, latitude, longitude, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		s.ID, s.OwnerID, s.EventID, s.Price, s.Availability.Start, s.Availability.End,
		s.Coordinates.Latitude, s.Coordinates.Longitude, images, s.Status)
	return err
}

func (r *PGSpotRepository) GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	spot, err := scanSpot(r.db.QueryRow(ctx, `SELECT `+spotColumns+` FROM parking_spots WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return spot, nil
}

func (r *PGSpotRepository) Claim(ctx context.Context, id, claimID string, at time.Time) (*domain.ParkingSpot, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status domain.SpotStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM parking_spots WHERE id=$1 FOR UPDATE`, id).Scan(&status); err != nil {
		return nil, translateClaim(err)
	}
	if status != domain.SpotStatusAvailable {
		return nil, domain.ErrConflict
	}

	spot, err := scanSpot(tx.QueryRow(ctx, `UPDATE parking_spots
		SET status=$2, claim_id=$3, claimed_at=$4, updated_at=now()
		WHERE id=$1
		RETURNING `+spotColumns, id, domain.SpotStatusBooked, claimID, at))
	if err != nil {
		return nil, translateClaim(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateClaim(err)
	}
	return spot, nil
}

func (r *PGSpotRepository) Release(ctx context.Context, id, claimID string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE parking_spots
		SET status=$2, claim_id=NULL, claimed_at=NULL, updated_at=now()
		WHERE id=$1 AND status=$3 AND claim_id=$4
		AND NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE parking_spot_id=$1 AND status IN ('pending', 'confirmed')
		)`, id, domain.SpotStatusAvailable, domain.SpotStatusBooked, claimID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGSpotRepository) ReleaseBooked(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE parking_spots
		SET status=$2, claim_id=NULL, claimed_at=NULL, updated_at=now()
		WHERE id=$1 AND status=$3`, id, domain.SpotStatusAvailable, domain.SpotStatusBooked)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGSpotRepository) Retire(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE parking_spots
		SET status=$2, claim_id=NULL, claimed_at=NULL, updated_at=now()
		WHERE id=$1 AND status=$3`, id, domain.SpotStatusUnavailable, domain.SpotStatusBooked)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGSpotRepository) ListOrphanedClaims(ctx context.Context, claimedBefore time.Time) ([]domain.ParkingSpot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+spotColumns+` FROM parking_spots s
		WHERE s.status=$1 AND (s.claimed_at IS NULL OR s.claimed_at < $2)
		AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.parking_spot_id=s.id AND b.status IN ('pending', 'confirmed')
		)
		ORDER BY s.claimed_at`, domain.SpotStatusBooked, claimedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []domain.ParkingSpot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, *spot)
	}
	return spots, rows.Err()
}

var _ SpotRepository = (*PGSpotRepository)(nil)
