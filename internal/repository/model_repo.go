package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"modelchat-backend/internal/models"
)

type ModelRepo struct {
	pool *pgxpool.Pool
}

func NewModelRepo(pool *pgxpool.Pool) *ModelRepo {
	return &ModelRepo{pool: pool}
}

func (r *ModelRepo) ListOrderedByName(ctx context.Context) ([]*models.Model, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tag, name, description, created_at FROM models ORDER BY name, tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Model{}
	for rows.Next() {
		m := &models.Model{}
		if err := rows.Scan(&m.ID, &m.Tag, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *ModelRepo) GetByTag(ctx context.Context, tag string) (*models.Model, error) {
	m := &models.Model{}
	err := r.pool.QueryRow(ctx, `SELECT id, tag, name, description, created_at FROM models WHERE tag = $1`, tag).Scan(
		&m.ID, &m.Tag, &m.Name, &m.Description, &m.CreatedAt,
	)
	if err != nil {
		return nil, translateNoRows(err)
	}
	return m, nil
}

// Upsert creates the catalog row for m.Tag or refreshes its name and
// description. Administrative path only.
func (r *ModelRepo) Upsert(ctx context.Context, m *models.Model) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	query := `INSERT INTO models (id, tag, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tag) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description
		RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, m.ID, m.Tag, m.Name, m.Description).Scan(&m.ID, &m.CreatedAt)
}

// InsertIfAbsent adds m unless its tag already exists, reporting whether a row
// was written. Existing rows are never modified.
func (r *ModelRepo) InsertIfAbsent(ctx context.Context, m *models.Model) (bool, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	tag, err := r.pool.Exec(ctx, `INSERT INTO models (id, tag, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tag) DO NOTHING`,
		m.ID, m.Tag, m.Name, m.Description,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
