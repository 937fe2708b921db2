package vectordb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex implements SimilarityIndex with one chromem-go collection per
// kind. User scoping is a metadata where-clause on user_id.
type ChromemIndex struct {
	mu          sync.RWMutex
	db          *chromem.DB
	embedFunc   chromem.EmbeddingFunc
	collections map[Kind]*chromem.Collection
}

// NewChromemIndex creates an empty in-memory index. embedFunc is only used
// by chromem for items added without a vector, which this package rejects,
// but chromem falls back to calling OpenAI when it is nil.
func NewChromemIndex(embedFunc chromem.EmbeddingFunc) (*ChromemIndex, error) {
	if embedFunc == nil {
		embedFunc = func(context.Context, string) ([]float32, error) {
			return nil, errors.New("items must be added with a precomputed embedding")
		}
	}
	x := &ChromemIndex{db: chromem.NewDB(), embedFunc: embedFunc}
	if err := x.bindCollections(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *ChromemIndex) bindCollections() error {
	cols := make(map[Kind]*chromem.Collection, len(Kinds))
	for _, k := range Kinds {
		col, err := x.db.GetOrCreateCollection(string(k), nil, x.embedFunc)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", k, err)
		}
		cols[k] = col
	}
	x.collections = cols
	return nil
}

func (x *ChromemIndex) collection(kind Kind) (*chromem.Collection, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	col, ok := x.collections[kind]
	if !ok {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	return col, nil
}

func (x *ChromemIndex) Upsert(ctx context.Context, items ...Item) error {
	for _, it := range items {
		if err := it.validate(); err != nil {
			return err
		}
		col, err := x.collection(it.Kind)
		if err != nil {
			return err
		}
		err = col.AddDocument(ctx, chromem.Document{
			ID:        it.ID,
			Metadata:  metadataFor(it),
			Embedding: it.Embedding,
			Content:   it.Content,
		})
		if err != nil {
			return fmt.Errorf("%w: add %s %s: %v", ErrIndexUnavailable, it.Kind, it.ID, err)
		}
	}
	return nil
}

func (x *ChromemIndex) Query(ctx context.Context, kind Kind, userID string, vector []float32, k int) ([]Match, error) {
	col, err := x.collection(kind)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	// chromem rejects nResults above the collection size, across all users.
	n := min(k, col.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, map[string]string{keyUserID: userID}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s query: %v", ErrIndexUnavailable, kind, err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Item:       itemFromMetadata(kind, r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		}
	}
	return matches, nil
}

func (x *ChromemIndex) Delete(ctx context.Context, kind Kind, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := x.collection(kind)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrIndexUnavailable, kind, err)
	}
	return nil
}

func (x *ChromemIndex) Count(kind Kind) int {
	col, err := x.collection(kind)
	if err != nil {
		return 0
	}
	return col.Count()
}

// Persist writes the whole index to a gzip-compressed gob file.
func (x *ChromemIndex) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := x.db.ExportToFile(path, true, ""); err != nil {
		return fmt.Errorf("export index: %w", err)
	}
	return nil
}

// Load replaces the index contents with those persisted at path. A missing
// file leaves the index empty.
func (x *ChromemIndex) Load(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import index: %w", err)
	}
	// Import replaces the collection objects.
	return x.bindCollections()
}
