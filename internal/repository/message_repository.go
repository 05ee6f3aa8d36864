package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/market-service/internal/domain"
)

// MessageRepository stores the append-only chat log for listings.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	ListByPost(ctx context.Context, postID string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository returns a Postgres-backed implementation.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (id, post_id, sender_id, receiver_id, content)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.PostID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
	).Scan(&msg.CreatedAt)
}

func (r *messageRepository) ListByPost(ctx context.Context, postID string) ([]domain.Message, error) {
	const query = `
        SELECT id, post_id, sender_id, receiver_id, content, created_at
        FROM messages WHERE post_id=$1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.PostID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
