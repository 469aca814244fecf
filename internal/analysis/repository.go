package analysis

import (
	"context"

	"github.com/medcabinet/cabinet/internal/storage"
)

const analysesCollection = "analyses"

// Repository reads and writes the bulletin collection as a whole document.
type Repository struct {
	store storage.Collection
}

// NewRepository wraps a collection backend.
func NewRepository(store storage.Collection) *Repository {
	return &Repository{store: store}
}

// Load returns the stored bulletins and whether the collection exists.
func (r *Repository) Load(ctx context.Context) ([]Analysis, bool, error) {
	var analyses []Analysis
	found, err := r.store.Load(ctx, analysesCollection, &analyses)
	if err != nil {
		return nil, false, err
	}
	return analyses, found, nil
}

// Save replaces the stored collection.
func (r *Repository) Save(ctx context.Context, analyses []Analysis) error {
	if analyses == nil {
		analyses = []Analysis{}
	}
	return r.store.Save(ctx, analysesCollection, analyses)
}
