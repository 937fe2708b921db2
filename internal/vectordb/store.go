package vectordb

import (
	"context"
	"errors"
)

// ErrIndexUnavailable wraps every failed index operation. Callers treat it
// as a partial failure of the affected source, not of the whole request.
var ErrIndexUnavailable = errors.New("similarity index unavailable")

// SimilarityIndex stores embedded items per kind and answers user-scoped
// nearest-neighbour queries ranked by cosine similarity.
type SimilarityIndex interface {
	// Upsert adds items, replacing any existing item with the same kind and ID.
	Upsert(ctx context.Context, items ...Item) error

	// Query returns up to k items of the given kind owned by userID, most
	// similar first. Items of other users are never returned.
	Query(ctx context.Context, kind Kind, userID string, vector []float32, k int) ([]Match, error)

	// Delete removes items of the given kind by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, kind Kind, ids ...string) error

	// Count returns the number of items of the given kind across all users.
	Count(kind Kind) int
}
