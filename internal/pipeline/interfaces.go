package pipeline

import (
	"context"

	"github.com/Veraticus/winnow/internal/model"
)

// Matcher defines the contract for catalog cross-matching.
type Matcher interface {
	// Match checks one subject against one reference catalog. Remote
	// failures that survive retries come back as an unresolved result
	// alongside the error, so sweeps can record them and move on.
	Match(ctx context.Context, subject model.Subject, catalog string) (model.CatalogMatch, error)
	// Catalogs lists the queryable catalog names, sorted.
	Catalogs() []string
}
