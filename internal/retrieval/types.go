package retrieval

import (
	"time"

	"github.com/ziadkadry99/healthtrace/internal/documents"
)

// SourceType tags a ranked result with the kind of item it came from.
type SourceType string

const (
	SourceCheckIn  SourceType = "checkin"
	SourceDocument SourceType = "document"
)

// Options controls one retrieval.
type Options struct {
	Limit               int     `json:"limit"`
	IncludeCheckIns     bool    `json:"include_checkins"`
	IncludeDocuments    bool    `json:"include_documents"`
	SimilarityThreshold float32 `json:"similarity_threshold"`
	// MaxContextChars bounds CombinedContext. Zero or less means unbounded.
	MaxContextChars int `json:"max_context_chars"`
}

const (
	DefaultLimit           = 5
	DefaultThreshold       = 0.3
	DefaultMaxContextChars = 6000

	// maxLineText bounds the item text rendered into a single context line.
	maxLineText = 500
)

// DefaultOptions searches both sources with the default limit and threshold.
func DefaultOptions() Options {
	return Options{
		Limit:               DefaultLimit,
		IncludeCheckIns:     true,
		IncludeDocuments:    true,
		SimilarityThreshold: DefaultThreshold,
		MaxContextChars:     DefaultMaxContextChars,
	}
}

// DocumentResult is a document chunk that passed the threshold, denormalized
// with its parent document's type and date.
type DocumentResult struct {
	ID           string         `json:"id"`
	DocumentID   string         `json:"document_id"`
	Content      string         `json:"content"`
	DocumentType documents.Type `json:"document_type"`
	Similarity   float32        `json:"similarity"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CheckInResult is a check-in that passed the threshold.
type CheckInResult struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary"`
	Transcript string    `json:"transcript"`
	Mood       int       `json:"mood,omitempty"`
	Energy     int       `json:"energy,omitempty"`
	Similarity float32   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Result is one entry of the merged, recency-ordered list.
type Result struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	Text       string     `json:"text"`
	Similarity float32    `json:"similarity"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Bundle is the grounding context for one query. Results holds exactly the
// entries rendered into CombinedContext, newest first.
type Bundle struct {
	Documents       []DocumentResult `json:"documents"`
	CheckIns        []CheckInResult  `json:"checkins"`
	Results         []Result         `json:"ranked_results"`
	CombinedContext string           `json:"combined_context"`
	// Degraded lists the sources whose index query failed.
	Degraded []SourceType `json:"degraded,omitempty"`
}
