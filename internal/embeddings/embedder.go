package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the provider errors or yields no vector.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedOne embeds a single text. Every failure, including an empty result,
// wraps ErrUnavailable.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrUnavailable)
	}
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, e.Name(), err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: %s returned no vector", ErrUnavailable, e.Name())
	}
	return vecs[0], nil
}
