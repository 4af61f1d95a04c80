package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"keepsake/internal/domain"
)

// MessageRepository persiste los mensajes de los visitantes. El id y el
// created_at los asigna la base de datos.
type MessageRepository interface {
	Create(ctx context.Context, senderName, content string) (domain.Message, error)
	ListNewestFirst(ctx context.Context) ([]domain.Message, error)
	Delete(ctx context.Context, id string) error
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, senderName, content string) (domain.Message, error) {
	const query = `
		INSERT INTO messages (sender_name, content)
		VALUES ($1, $2)
		RETURNING id, sender_name, content, created_at
	`

	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, senderName, content).Scan(
		&msg.ID,
		&msg.SenderName,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (r *PgMessageRepository) ListNewestFirst(ctx context.Context) ([]domain.Message, error) {
	const query = `
		SELECT id, sender_name, content, created_at
		FROM messages
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.SenderName,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// Delete borra un mensaje. Un id inexistente (o que no es un uuid) no es error.
func (r *PgMessageRepository) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}

	const query = `DELETE FROM messages WHERE id = $1`
	_, err = r.pool.Exec(ctx, query, parsed)
	return err
}
