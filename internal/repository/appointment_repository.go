package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/market-service/internal/domain"
)

// AppointmentRepository persists the at-most-one appointment per
// listing. Replace atomically discards any prior record for the same
// post; GetByPost returns a nil record when none exists.
type AppointmentRepository interface {
	Replace(ctx context.Context, appt *domain.Appointment) error
	GetByPost(ctx context.Context, postID string) (*domain.Appointment, error)
	SetCancelRequestedBy(ctx context.Context, postID string, userID *string) error
	DeleteByPost(ctx context.Context, postID string) error
	ListAll(ctx context.Context) ([]domain.Appointment, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository returns a Postgres-backed implementation.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

func (r *appointmentRepository) Replace(ctx context.Context, appt *domain.Appointment) error {
	// the unique index on post_id carries the one-appointment-per-listing
	// invariant down to the storage layer
	const query = `
        INSERT INTO appointments (id, post_id, buyer_id, seller_id, datetime, place, cancel_requested_by)
        VALUES ($1,$2,$3,$4,$5,$6,NULL)
        ON CONFLICT (post_id) DO UPDATE SET
            id=EXCLUDED.id,
            buyer_id=EXCLUDED.buyer_id,
            seller_id=EXCLUDED.seller_id,
            datetime=EXCLUDED.datetime,
            place=EXCLUDED.place,
            cancel_requested_by=NULL,
            created_at=NOW()
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		appt.ID,
		appt.PostID,
		appt.BuyerID,
		appt.SellerID,
		appt.Datetime,
		appt.Place,
	).Scan(&appt.CreatedAt)
}

func (r *appointmentRepository) GetByPost(ctx context.Context, postID string) (*domain.Appointment, error) {
	const query = `
        SELECT id, post_id, buyer_id, seller_id, datetime, place, cancel_requested_by, created_at
        FROM appointments WHERE post_id=$1`

	var appt domain.Appointment
	if err := r.pool.QueryRow(ctx, query, postID).Scan(
		&appt.ID,
		&appt.PostID,
		&appt.BuyerID,
		&appt.SellerID,
		&appt.Datetime,
		&appt.Place,
		&appt.CancelRequestedBy,
		&appt.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) SetCancelRequestedBy(ctx context.Context, postID string, userID *string) error {
	const query = `UPDATE appointments SET cancel_requested_by=$2 WHERE post_id=$1`

	cmd, err := r.pool.Exec(ctx, query, postID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) DeleteByPost(ctx context.Context, postID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE post_id=$1`, postID)
	return err
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	const query = `
        SELECT id, post_id, buyer_id, seller_id, datetime, place, cancel_requested_by, created_at
        FROM appointments`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		var appt domain.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.PostID,
			&appt.BuyerID,
			&appt.SellerID,
			&appt.Datetime,
			&appt.Place,
			&appt.CancelRequestedBy,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, appt)
	}
	return result, rows.Err()
}
