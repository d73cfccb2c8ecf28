package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"modelchat-backend/internal/models"
)

// SQLiteModelRepo is the catalog on an embedded sqlite database.
type SQLiteModelRepo struct {
	db *sql.DB
}

func NewSQLiteModelRepo(db *sql.DB) *SQLiteModelRepo {
	return &SQLiteModelRepo{db: db}
}

func (r *SQLiteModelRepo) ListOrderedByName(ctx context.Context) ([]*models.Model, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, tag, name, description, created_at FROM models ORDER BY name, tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Model{}
	for rows.Next() {
		m, err := scanSQLiteModel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *SQLiteModelRepo) GetByTag(ctx context.Context, tag string) (*models.Model, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, tag, name, description, created_at FROM models WHERE tag = ?`, tag)
	m, err := scanSQLiteModel(row)
	if err != nil {
		return nil, translateNoRows(err)
	}
	return m, nil
}

func (r *SQLiteModelRepo) Upsert(ctx context.Context, m *models.Model) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `INSERT INTO models (id, tag, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tag) DO UPDATE SET name = excluded.name, description = excluded.description`,
		m.ID.String(), m.Tag, m.Name, m.Description, now,
	)
	if err != nil {
		return err
	}

	stored, err := r.GetByTag(ctx, m.Tag)
	if err != nil {
		return err
	}
	m.ID = stored.ID
	m.CreatedAt = stored.CreatedAt
	return nil
}

func (r *SQLiteModelRepo) InsertIfAbsent(ctx context.Context, m *models.Model) (bool, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO models (id, tag, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tag) DO NOTHING`,
		m.ID.String(), m.Tag, m.Name, m.Description, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteModel(row rowScanner) (*models.Model, error) {
	m := &models.Model{}
	var id string
	var description sql.NullString
	if err := row.Scan(&id, &m.Tag, &m.Name, &description, &m.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	m.ID = parsed
	if description.Valid {
		m.Description = &description.String
	}
	return m, nil
}

// SQLiteMessageRepo is the conversation store on an embedded sqlite
// database. sqlite has no clock_timestamp(), so created_at is stamped here
// and clamped so it never precedes the previous insert.
type SQLiteMessageRepo struct {
	db *sql.DB

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewSQLiteMessageRepo(db *sql.DB) *SQLiteMessageRepo {
	return &SQLiteMessageRepo{db: db, now: time.Now}
}

func (r *SQLiteMessageRepo) Create(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()

	r.mu.Lock()
	ts := r.now().UTC()
	if ts.Before(r.last) {
		ts = r.last
	}
	r.last = ts
	r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, user_id, model_tag, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.UserID, m.ModelTag, string(m.Role), m.Content, ts,
	)
	if err != nil {
		return err
	}
	m.CreatedAt = ts
	return nil
}

func (r *SQLiteMessageRepo) ListByUser(ctx context.Context, userID string) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, model_tag, role, content, created_at
		FROM messages WHERE user_id = ? ORDER BY created_at ASC, seq ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Message{}
	for rows.Next() {
		m := &models.Message{}
		var id, role string
		if err := rows.Scan(&id, &m.UserID, &m.ModelTag, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		m.ID = parsed
		m.Role = models.Role(role)
		list = append(list, m)
	}
	return list, rows.Err()
}
