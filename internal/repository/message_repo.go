package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"modelchat-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Create inserts one message. The id is assigned here and created_at by the
// store, so rows of one conversation never go backwards in time.
func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()

	query := `INSERT INTO messages (id, user_id, model_tag, role, content)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.UserID, m.ModelTag, string(m.Role), m.Content,
	).Scan(&m.CreatedAt)
}

func (r *MessageRepo) ListByUser(ctx context.Context, userID string) ([]*models.Message, error) {
	query := `SELECT id, user_id, model_tag, role, content, created_at
		FROM messages WHERE user_id = $1 ORDER BY created_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Message{}
	for rows.Next() {
		m := &models.Message{}
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.ModelTag, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		list = append(list, m)
	}
	return list, rows.Err()
}
