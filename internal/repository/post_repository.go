package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/market-service/internal/domain"
)

// PostRepository encapsulates listing persistence. UpdateStatus is the
// single mutation path for status/appointment linkage; Delete cascades
// the listing's appointment and messages.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	UpdateStatus(ctx context.Context, id string, status domain.PostStatus, appointmentID *string) error
	Delete(ctx context.Context, id string) error
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository returns a Postgres-backed implementation.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (id, seller_id, title, description, price, image_url, location, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		post.ID,
		post.SellerID,
		post.Title,
		post.Description,
		post.Price,
		post.ImageURL,
		post.Location,
		post.Status,
	).Scan(&post.CreatedAt)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	const query = `
        SELECT id, seller_id, title, description, price, image_url, location, status, appointment_id, created_at
        FROM posts WHERE id=$1`

	var post domain.Post
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&post.ID,
		&post.SellerID,
		&post.Title,
		&post.Description,
		&post.Price,
		&post.ImageURL,
		&post.Location,
		&post.Status,
		&post.AppointmentID,
		&post.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]domain.Post, error) {
	const query = `
        SELECT id, seller_id, title, description, price, image_url, location, status, appointment_id, created_at
        FROM posts ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Post
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(
			&post.ID,
			&post.SellerID,
			&post.Title,
			&post.Description,
			&post.Price,
			&post.ImageURL,
			&post.Location,
			&post.Status,
			&post.AppointmentID,
			&post.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, rows.Err()
}

func (r *postRepository) UpdateStatus(ctx context.Context, id string, status domain.PostStatus, appointmentID *string) error {
	const query = `UPDATE posts SET status=$2, appointment_id=$3 WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id, status, appointmentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	// appointments and messages reference posts with ON DELETE CASCADE
	const query = `DELETE FROM posts WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
