package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/database"
	"modelchat-backend/internal/models"
)

func newSQLiteRepos(t *testing.T) (*SQLiteModelRepo, *SQLiteMessageRepo) {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteModelRepo(db), NewSQLiteMessageRepo(db)
}

func strPtr(s string) *string { return &s }

func TestSQLiteModelRepo_ListOrderedByName(t *testing.T) {
	ctx := context.Background()
	modelRepo, _ := newSQLiteRepos(t)

	for _, m := range []*models.Model{
		{Tag: "gpt-4o", Name: "GPT-4o"},
		{Tag: "claude-3-haiku", Name: "Claude 3 Haiku", Description: strPtr("fast")},
		{Tag: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash"},
	} {
		require.NoError(t, modelRepo.Upsert(ctx, m))
	}

	list, err := modelRepo.ListOrderedByName(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Claude 3 Haiku", list[0].Name)
	assert.Equal(t, "Gemini 2.0 Flash", list[1].Name)
	assert.Equal(t, "GPT-4o", list[2].Name)
	require.NotNil(t, list[0].Description)
	assert.Equal(t, "fast", *list[0].Description)
	assert.Nil(t, list[1].Description)

	again, err := modelRepo.ListOrderedByName(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, again)
}

func TestSQLiteModelRepo_EmptyCatalog(t *testing.T) {
	modelRepo, _ := newSQLiteRepos(t)

	list, err := modelRepo.ListOrderedByName(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSQLiteModelRepo_GetByTag(t *testing.T) {
	ctx := context.Background()
	modelRepo, _ := newSQLiteRepos(t)
	require.NoError(t, modelRepo.Upsert(ctx, &models.Model{Tag: "gpt-4o", Name: "GPT-4o"}))

	m, err := modelRepo.GetByTag(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4o", m.Name)

	_, err = modelRepo.GetByTag(ctx, "nonexistent-tag")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteModelRepo_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	modelRepo, _ := newSQLiteRepos(t)

	first := &models.Model{Tag: "gpt-4o", Name: "GPT-4o"}
	require.NoError(t, modelRepo.Upsert(ctx, first))

	second := &models.Model{Tag: "gpt-4o", Name: "GPT-4o (2024-08)"}
	require.NoError(t, modelRepo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	m, err := modelRepo.GetByTag(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4o (2024-08)", m.Name)
}

func TestSQLiteModelRepo_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	modelRepo, _ := newSQLiteRepos(t)

	inserted, err := modelRepo.InsertIfAbsent(ctx, &models.Model{Tag: "gpt-4o", Name: "GPT-4o"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = modelRepo.InsertIfAbsent(ctx, &models.Model{Tag: "gpt-4o", Name: "Renamed"})
	require.NoError(t, err)
	assert.False(t, inserted)

	m, err := modelRepo.GetByTag(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4o", m.Name)
}

func TestSQLiteModelRepo_ImportedNameSurvivesReseed(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	modelRepo, _ := newSQLiteRepos(t)

	defaults, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, catalog.Seed(ctx, modelRepo, defaults, logger))

	edited := []*models.Model{{Tag: "gpt-4o", Name: "GPT-4o (house build)", Description: strPtr("tuned")}}
	require.NoError(t, catalog.Import(ctx, modelRepo, edited, logger))

	// A restart seeds the built-in catalog again.
	defaults, err = catalog.Default()
	require.NoError(t, err)
	require.NoError(t, catalog.Seed(ctx, modelRepo, defaults, logger))

	m, err := modelRepo.GetByTag(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4o (house build)", m.Name)
	require.NotNil(t, m.Description)
	assert.Equal(t, "tuned", *m.Description)

	list, err := modelRepo.ListOrderedByName(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(defaults))
}

func TestSQLiteMessageRepo_ScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	modelRepo, messageRepo := newSQLiteRepos(t)
	require.NoError(t, modelRepo.Upsert(ctx, &models.Model{Tag: "gpt-4o", Name: "GPT-4o"}))

	// A frozen clock forces equal timestamps; order then falls back to insertion.
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	messageRepo.now = func() time.Time { return frozen }

	inserts := []*models.Message{
		{UserID: "u1", ModelTag: "gpt-4o", Role: models.RoleUser, Content: "first"},
		{UserID: "u2", ModelTag: "gpt-4o", Role: models.RoleUser, Content: "other user"},
		{UserID: "u1", ModelTag: "gpt-4o", Role: models.RoleAssistant, Content: "second"},
	}
	for _, m := range inserts {
		require.NoError(t, messageRepo.Create(ctx, m))
		assert.NotEqual(t, "", m.ID.String())
	}

	history, err := messageRepo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	for _, m := range history {
		assert.Equal(t, "u1", m.UserID)
	}
	assert.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))
}

func TestSQLiteMessageRepo_ClockNeverGoesBackwards(t *testing.T) {
	ctx := context.Background()
	modelRepo, messageRepo := newSQLiteRepos(t)
	require.NoError(t, modelRepo.Upsert(ctx, &models.Model{Tag: "gpt-4o", Name: "GPT-4o"}))

	later := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	messageRepo.now = func() time.Time { return later }
	first := &models.Message{UserID: "u1", ModelTag: "gpt-4o", Role: models.RoleUser, Content: "hi"}
	require.NoError(t, messageRepo.Create(ctx, first))

	messageRepo.now = func() time.Time { return later.Add(-time.Hour) }
	second := &models.Message{UserID: "u1", ModelTag: "gpt-4o", Role: models.RoleAssistant, Content: "hello"}
	require.NoError(t, messageRepo.Create(ctx, second))

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestSQLiteMessageRepo_RejectsUnknownModel(t *testing.T) {
	_, messageRepo := newSQLiteRepos(t)

	err := messageRepo.Create(context.Background(), &models.Message{
		UserID: "u1", ModelTag: "missing", Role: models.RoleUser, Content: "hi",
	})
	assert.Error(t, err)
}

func TestSQLiteMessageRepo_EmptyHistory(t *testing.T) {
	_, messageRepo := newSQLiteRepos(t)

	history, err := messageRepo.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
