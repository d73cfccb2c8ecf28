package repository

import (
	"context"
	"fmt"
	"log/slog"

	"modelchat-backend/internal/database"
	"modelchat-backend/internal/models"
)

// ModelStore is the catalog capability shared by both drivers.
type ModelStore interface {
	ListOrderedByName(ctx context.Context) ([]*models.Model, error)
	GetByTag(ctx context.Context, tag string) (*models.Model, error)
	Upsert(ctx context.Context, m *models.Model) error
	InsertIfAbsent(ctx context.Context, m *models.Model) (bool, error)
}

// MessageStore is the conversation capability shared by both drivers.
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListByUser(ctx context.Context, userID string) ([]*models.Message, error)
}

type StoreConfig struct {
	Driver     string
	AnonURL    string
	ServiceURL string
	SQLitePath string
	// SkipMigrations leaves postgres schema changes to an explicit Migrate.
	SkipMigrations bool
}

// Store is one opened backing store at a granted privilege level.
type Store struct {
	Models    ModelStore
	Messages  MessageStore
	Driver    string
	Privilege database.Privilege
	close     func()
	migrate   func(ctx context.Context) ([]int, error)
}

// Open connects to the configured driver. For postgres the wanted privilege
// picks the connection string; Privilege reports what was granted. Schema
// setup only runs with service privilege.
func Open(ctx context.Context, cfg StoreConfig, want database.Privilege, logger *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Models:    NewSQLiteModelRepo(db),
			Messages:  NewSQLiteMessageRepo(db),
			Driver:    cfg.Driver,
			Privilege: database.PrivilegeService,
			close:     func() { db.Close() },
			migrate: func(ctx context.Context) ([]int, error) {
				return nil, database.ApplySQLiteSchema(db)
			},
		}, nil

	case "postgres":
		creds := database.Credentials{AnonURL: cfg.AnonURL, ServiceURL: cfg.ServiceURL}
		url, granted, err := creds.Resolve(want)
		if err != nil {
			return nil, err
		}
		if granted != want {
			logger.Warn("service credentials not configured, using anon privilege")
		}

		pool, err := database.NewPostgresPool(url)
		if err != nil {
			return nil, err
		}
		store := &Store{
			Models:    NewModelRepo(pool),
			Messages:  NewMessageRepo(pool),
			Driver:    cfg.Driver,
			Privilege: granted,
			close:     pool.Close,
			migrate: func(ctx context.Context) ([]int, error) {
				return database.RunMigrations(ctx, pool, logger)
			},
		}
		switch {
		case granted != database.PrivilegeService:
			logger.Info("skipping migrations without service privilege")
		case cfg.SkipMigrations:
		default:
			if _, err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// Migrate brings the schema up to date and returns the versions it applied.
// It needs service privilege.
func (s *Store) Migrate(ctx context.Context) ([]int, error) {
	if s.Privilege != database.PrivilegeService {
		return nil, ErrNeedsServicePrivilege
	}
	return s.migrate(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
