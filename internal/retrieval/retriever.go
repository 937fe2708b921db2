package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/embeddings"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

// DocumentLookup resolves parent documents for matched chunks.
// documents.Store satisfies it.
type DocumentLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]documents.Document, error)
}

// Retriever turns a free-text query into a ranked, budgeted context built
// from a user's check-ins and document chunks.
type Retriever struct {
	embedder embeddings.Embedder
	index    vectordb.SimilarityIndex
	docs     DocumentLookup
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// New creates a Retriever. docs may be nil, in which case document type and
// date come from the index metadata alone.
func New(embedder embeddings.Embedder, index vectordb.SimilarityIndex, docs DocumentLookup, logger *slog.Logger, rec *metrics.Recorder) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		docs:     docs,
		logger:   logging.OrDefault(logger).With("component", "retrieval"),
		metrics:  rec,
	}
}

// Retrieve builds the context bundle for query. The only error it returns is
// a failure to embed the query, which wraps embeddings.ErrUnavailable. Index
// failures degrade the affected source to empty.
func (r *Retriever) Retrieve(ctx context.Context, query, userID string, opts Options) (*Bundle, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	log := logging.WithUser(r.logger, userID)

	vec, err := embeddings.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		r.metrics.EmbeddingFailure("query")
		r.metrics.Retrieval(metrics.OutcomeFailed)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var (
		wg                    sync.WaitGroup
		docMatches, ciMatches []vectordb.Match
		docErr, ciErr         error
	)
	if opts.IncludeDocuments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docMatches, docErr = r.index.Query(ctx, vectordb.KindDocumentChunk, userID, vec, opts.Limit)
		}()
	}
	if opts.IncludeCheckIns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ciMatches, ciErr = r.index.Query(ctx, vectordb.KindCheckIn, userID, vec, opts.Limit)
		}()
	}
	wg.Wait()

	bundle := &Bundle{}
	if docErr != nil {
		log.Warn("document chunk query failed, continuing without documents", "error", docErr)
		r.metrics.IndexFailure("query_" + string(vectordb.KindDocumentChunk))
		bundle.Degraded = append(bundle.Degraded, SourceDocument)
	} else {
		bundle.Documents = r.documentResults(ctx, log, aboveThreshold(docMatches, opts.SimilarityThreshold))
	}
	if ciErr != nil {
		log.Warn("check-in query failed, continuing without check-ins", "error", ciErr)
		r.metrics.IndexFailure("query_" + string(vectordb.KindCheckIn))
		bundle.Degraded = append(bundle.Degraded, SourceCheckIn)
	} else {
		bundle.CheckIns = checkInResults(aboveThreshold(ciMatches, opts.SimilarityThreshold))
	}

	ranked := merge(bundle.Documents, bundle.CheckIns)
	bundle.Results, bundle.CombinedContext = render(ranked, opts.MaxContextChars)

	switch {
	case len(bundle.Degraded) > 0:
		r.metrics.Retrieval(metrics.OutcomePartial)
	case len(bundle.Results) == 0:
		r.metrics.Retrieval(metrics.OutcomeEmpty)
	default:
		r.metrics.Retrieval(metrics.OutcomeOK)
	}
	log.Debug("retrieved context",
		"documents", len(bundle.Documents),
		"checkins", len(bundle.CheckIns),
		"rendered", len(bundle.Results))

	return bundle, nil
}

func aboveThreshold(matches []vectordb.Match, threshold float32) []vectordb.Match {
	var kept []vectordb.Match
	for _, m := range matches {
		if m.Similarity >= threshold {
			kept = append(kept, m)
		}
	}
	return kept
}

func (r *Retriever) documentResults(ctx context.Context, log *slog.Logger, matches []vectordb.Match) []DocumentResult {
	if len(matches) == 0 {
		return nil
	}

	var parents map[string]documents.Document
	if r.docs != nil {
		seen := make(map[string]bool)
		var ids []string
		for _, m := range matches {
			if id := m.Fields[vectordb.FieldDocumentID]; id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		var err error
		parents, err = r.docs.GetMany(ctx, ids)
		if err != nil {
			log.Warn("document lookup failed, using index metadata", "error", err)
		}
	}

	out := make([]DocumentResult, 0, len(matches))
	for _, m := range matches {
		res := DocumentResult{
			ID:           m.ID,
			DocumentID:   m.Fields[vectordb.FieldDocumentID],
			Content:      m.Content,
			DocumentType: documents.Type(m.Fields[vectordb.FieldDocumentType]),
			Similarity:   m.Similarity,
			CreatedAt:    m.CreatedAt,
		}
		if doc, ok := parents[res.DocumentID]; ok {
			res.DocumentType = doc.DocumentType
			res.CreatedAt = doc.CreatedAt
		}
		if res.DocumentType == "" {
			res.DocumentType = documents.TypeOther
		}
		out = append(out, res)
	}
	return out
}

func checkInResults(matches []vectordb.Match) []CheckInResult {
	if len(matches) == 0 {
		return nil
	}
	out := make([]CheckInResult, 0, len(matches))
	for _, m := range matches {
		mood, _ := strconv.Atoi(m.Fields[vectordb.FieldMood])
		energy, _ := strconv.Atoi(m.Fields[vectordb.FieldEnergy])
		summary := m.Fields[vectordb.FieldSummary]
		transcript := m.Fields[vectordb.FieldTranscript]
		if summary == "" && transcript == "" {
			summary = m.Content
		}
		out = append(out, CheckInResult{
			ID:         m.ID,
			Summary:    summary,
			Transcript: transcript,
			Mood:       mood,
			Energy:     energy,
			Similarity: m.Similarity,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}

// merge tags both result sets and orders them newest first. Similarity only
// breaks timestamp ties.
func merge(docs []DocumentResult, checkIns []CheckInResult) []Result {
	ranked := make([]Result, 0, len(docs)+len(checkIns))
	for _, d := range docs {
		ranked = append(ranked, Result{
			ID:         d.ID,
			SourceType: SourceDocument,
			Text:       documentLine(d),
			Similarity: d.Similarity,
			CreatedAt:  d.CreatedAt,
		})
	}
	for _, c := range checkIns {
		ranked = append(ranked, Result{
			ID:         c.ID,
			SourceType: SourceCheckIn,
			Text:       checkInLine(c),
			Similarity: c.Similarity,
			CreatedAt:  c.CreatedAt,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.ID < b.ID
	})
	return ranked
}
