package models

import (
	"time"

	"github.com/google/uuid"
)

// Model is a selectable inference backend from the catalog.
type Model struct {
	ID          uuid.UUID `json:"id"`
	Tag         string    `json:"tag"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ModelsResponse struct {
	Models []*Model `json:"models"`
}
