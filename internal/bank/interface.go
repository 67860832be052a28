package bank

import (
	"context"

	"github.com/vytor/ctiprep/internal/models"
)

// Fetcher loads question banks and blueprints.
// This interface enables testability by allowing mock implementations.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []string) ([]models.RawQuestion, error)
	FetchBlueprint(ctx context.Context, source string) (*models.Blueprint, error)
}

// Ensure Client implements the interface
var _ Fetcher = (*Client)(nil)
