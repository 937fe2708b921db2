package ingest

import (
	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
)

// DocumentResult summarizes one document ingestion. Chunks that fail are
// counted in ChunksTotal but not ChunksStored, and their errors are listed.
type DocumentResult struct {
	Document      *documents.Document `json:"document"`
	ChunksTotal   int                 `json:"chunks_total"`
	ChunksStored  int                 `json:"chunks_stored"`
	ChunksIndexed int                 `json:"chunks_indexed"`
	Errors        []string            `json:"errors,omitempty"`
}

// CheckInResult is the stored check-in and, when the new entry matches
// enough recent ones, the pattern it belongs to.
type CheckInResult struct {
	CheckIn  *checkins.CheckIn `json:"checkin"`
	Embedded bool              `json:"embedded"`
	Pattern  *patterns.Pattern `json:"pattern,omitempty"`
}

// ProgressFunc is called after each chunk is processed.
type ProgressFunc func(processed int, total int, current string)
