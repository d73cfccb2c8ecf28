// Package catalog loads model catalog files, seeds missing models at startup
// and imports administrative edits.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"modelchat-backend/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Models []entry `yaml:"models"`
}

type entry struct {
	Tag         string `yaml:"tag"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Upserter writes a catalog row keyed by tag.
type Upserter interface {
	Upsert(ctx context.Context, m *models.Model) error
}

// Inserter adds a catalog row only when its tag is new.
type Inserter interface {
	InsertIfAbsent(ctx context.Context, m *models.Model) (bool, error)
}

// Default returns the built-in catalog.
func Default() ([]*models.Model, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog file, or the built-in catalog when path is empty.
func LoadFile(path string) ([]*models.Model, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a catalog document. Tags must be unique and
// every entry needs a tag and a name.
func Parse(r io.Reader) ([]*models.Model, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Models))
	out := make([]*models.Model, 0, len(doc.Models))
	for i, e := range doc.Models {
		tag := strings.TrimSpace(e.Tag)
		name := strings.TrimSpace(e.Name)
		if tag == "" || name == "" {
			return nil, fmt.Errorf("catalog entry %d: tag and name are required", i)
		}
		if seen[tag] {
			return nil, fmt.Errorf("catalog entry %d: duplicate tag %q", i, tag)
		}
		seen[tag] = true

		m := &models.Model{Tag: tag, Name: name}
		if d := strings.TrimSpace(e.Description); d != "" {
			m.Description = &d
		}
		out = append(out, m)
	}
	return out, nil
}

// Seed adds the models whose tags are missing and leaves existing rows alone,
// so edits made through Import survive a restart.
func Seed(ctx context.Context, store Inserter, list []*models.Model, logger *slog.Logger) error {
	added := 0
	for _, m := range list {
		inserted, err := store.InsertIfAbsent(ctx, m)
		if err != nil {
			return fmt.Errorf("seed model %s: %w", m.Tag, err)
		}
		if inserted {
			added++
		}
	}
	logger.Info("catalog seeded", "models", len(list), "added", added)
	return nil
}

// Import creates or refreshes every model, overwriting names and descriptions.
func Import(ctx context.Context, store Upserter, list []*models.Model, logger *slog.Logger) error {
	for _, m := range list {
		if err := store.Upsert(ctx, m); err != nil {
			return fmt.Errorf("import model %s: %w", m.Tag, err)
		}
	}
	logger.Info("catalog imported", "models", len(list))
	return nil
}
