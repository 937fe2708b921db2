package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/embeddings"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (s *stubEmbedder) Dimensions() int { return 2 }
func (s *stubEmbedder) Name() string    { return "stub" }

// scriptedIndex returns canned matches per kind and records queries.
type scriptedIndex struct {
	mu      sync.Mutex
	matches map[vectordb.Kind][]vectordb.Match
	errs    map[vectordb.Kind]error
	queries []vectordb.Kind
	ks      []int
}

func (s *scriptedIndex) Upsert(context.Context, ...vectordb.Item) error { return nil }
func (s *scriptedIndex) Delete(context.Context, vectordb.Kind, ...string) error {
	return nil
}
func (s *scriptedIndex) Count(kind vectordb.Kind) int { return len(s.matches[kind]) }

func (s *scriptedIndex) Query(_ context.Context, kind vectordb.Kind, _ string, _ []float32, k int) ([]vectordb.Match, error) {
	s.mu.Lock()
	s.queries = append(s.queries, kind)
	s.ks = append(s.ks, k)
	s.mu.Unlock()
	if err := s.errs[kind]; err != nil {
		return nil, err
	}
	return s.matches[kind], nil
}

type stubLookup struct {
	docs map[string]documents.Document
	err  error
}

func (s *stubLookup) GetMany(_ context.Context, ids []string) (map[string]documents.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]documents.Document)
	for _, id := range ids {
		if d, ok := s.docs[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC)
}

func chunkMatch(id, docID, content string, sim float32, created time.Time) vectordb.Match {
	return vectordb.Match{
		Item: vectordb.Item{
			ID:        id,
			Kind:      vectordb.KindDocumentChunk,
			UserID:    "u1",
			Content:   content,
			CreatedAt: created,
			Fields: map[string]string{
				vectordb.FieldDocumentID:   docID,
				vectordb.FieldDocumentType: string(documents.TypeLabReport),
			},
		},
		Similarity: sim,
	}
}

func checkInMatch(id, summary string, sim float32, created time.Time) vectordb.Match {
	return vectordb.Match{
		Item: vectordb.Item{
			ID:        id,
			Kind:      vectordb.KindCheckIn,
			UserID:    "u1",
			Content:   summary,
			CreatedAt: created,
			Fields: map[string]string{
				vectordb.FieldSummary:    summary,
				vectordb.FieldTranscript: "raw " + summary,
				vectordb.FieldMood:       "4",
				vectordb.FieldEnergy:     "3",
			},
		},
		Similarity: sim,
	}
}

func newRetriever(idx vectordb.SimilarityIndex, docs DocumentLookup) *Retriever {
	return New(&stubEmbedder{}, idx, docs, logging.Discard(), nil)
}

func TestRetrieve_CheckInIndexFailureDegradesToDocuments(t *testing.T) {
	idx := &scriptedIndex{
		matches: map[vectordb.Kind][]vectordb.Match{
			vectordb.KindDocumentChunk: {chunkMatch("c1", "d1", "Ferritin 12 ng/mL, low.", 0.71, day(2))},
		},
		errs: map[vectordb.Kind]error{
			vectordb.KindCheckIn: fmt.Errorf("%w: rpc timeout", vectordb.ErrIndexUnavailable),
		},
	}
	rec := metrics.New()
	r := New(&stubEmbedder{}, idx, nil, logging.Discard(), rec)

	opts := DefaultOptions()
	opts.SimilarityThreshold = 0.3
	b, err := r.Retrieve(context.Background(), "recent health concerns", "u1", opts)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if b.CombinedContext == "" {
		t.Fatal("expected non-empty context built from documents")
	}
	if strings.Contains(b.CombinedContext, "Check-in") {
		t.Errorf("context should contain document lines only:\n%s", b.CombinedContext)
	}
	want := "- [2026-03-02]: Lab report - Ferritin 12 ng/mL, low."
	if b.CombinedContext != want {
		t.Errorf("CombinedContext = %q, want %q", b.CombinedContext, want)
	}
	if len(b.CheckIns) != 0 || len(b.Documents) != 1 {
		t.Errorf("got %d check-ins, %d documents", len(b.CheckIns), len(b.Documents))
	}
	if len(b.Degraded) != 1 || b.Degraded[0] != SourceCheckIn {
		t.Errorf("Degraded = %v", b.Degraded)
	}
}

func TestRetrieve_ThresholdRespect(t *testing.T) {
	idx := &scriptedIndex{
		matches: map[vectordb.Kind][]vectordb.Match{
			vectordb.KindCheckIn: {
				checkInMatch("a", "headache again", 0.9, day(1)),
				checkInMatch("b", "slept badly", 0.3, day(2)),
				checkInMatch("c", "ate pizza", 0.29, day(3)),
			},
			vectordb.KindDocumentChunk: {
				chunkMatch("x", "d1", "unrelated", 0.1, day(4)),
			},
		},
	}
	r := newRetriever(idx, nil)

	for _, threshold := range []float32{0, 0.3, 0.5, 0.95} {
		opts := DefaultOptions()
		opts.SimilarityThreshold = threshold
		b, err := r.Retrieve(context.Background(), "q", "u1", opts)
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		for _, res := range b.Results {
			if res.Similarity < threshold {
				t.Errorf("threshold %v: result %s has similarity %v", threshold, res.ID, res.Similarity)
			}
		}
	}

	b, _ := r.Retrieve(context.Background(), "q", "u1", DefaultOptions())
	if len(b.Results) != 2 {
		t.Fatalf("expected 2 results at threshold 0.3, got %d", len(b.Results))
	}
	if strings.Contains(b.CombinedContext, "ate pizza") || strings.Contains(b.CombinedContext, "unrelated") {
		t.Errorf("context contains a below-threshold item:\n%s", b.CombinedContext)
	}
}

func TestRetrieve_RecencyOrdering(t *testing.T) {
	idx := &scriptedIndex{
		matches: map[vectordb.Kind][]vectordb.Match{
			vectordb.KindCheckIn: {
				checkInMatch("old-strong", "migraine with aura", 0.95, day(1)),
				checkInMatch("new-weak", "mild headache", 0.4, day(20)),
			},
			vectordb.KindDocumentChunk: {
				chunkMatch("mid", "d1", "Neurology referral", 0.6, day(10)),
			},
		},
	}
	r := newRetriever(idx, nil)

	b, err := r.Retrieve(context.Background(), "headaches", "u1", DefaultOptions())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	var ids []string
	for _, res := range b.Results {
		ids = append(ids, res.ID)
	}
	if strings.Join(ids, ",") != "new-weak,mid,old-strong" {
		t.Errorf("order = %v, want newest first", ids)
	}
	for i := 1; i < len(b.Results); i++ {
		if b.Results[i].CreatedAt.After(b.Results[i-1].CreatedAt) {
			t.Errorf("result %d is newer than its predecessor", i)
		}
	}

	lines := strings.Split(b.CombinedContext, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "- [2026-03-20]: Check-in - mild headache (mood 4/10, energy 3/10)" {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestRetrieve_QueryEmbeddingFailureIsFatal(t *testing.T) {
	idx := &scriptedIndex{}
	r := New(&stubEmbedder{err: errors.New("quota exceeded")}, idx, nil, logging.Discard(), nil)

	_, err := r.Retrieve(context.Background(), "q", "u1", DefaultOptions())
	if !errors.Is(err, embeddings.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(idx.queries) != 0 {
		t.Errorf("index should not be queried, got %v", idx.queries)
	}
}

func TestRetrieve_AllSourcesFailing(t *testing.T) {
	boom := fmt.Errorf("%w: down", vectordb.ErrIndexUnavailable)
	idx := &scriptedIndex{errs: map[vectordb.Kind]error{
		vectordb.KindCheckIn:       boom,
		vectordb.KindDocumentChunk: boom,
	}}
	r := newRetriever(idx, nil)

	b, err := r.Retrieve(context.Background(), "q", "u1", DefaultOptions())
	if err != nil {
		t.Fatalf("index failures must not surface, got %v", err)
	}
	if b.CombinedContext != "" || len(b.Results) != 0 {
		t.Errorf("expected empty bundle, got %+v", b)
	}
	if len(b.Degraded) != 2 {
		t.Errorf("Degraded = %v", b.Degraded)
	}
}

func TestRetrieve_IncludeFlagsAndLimit(t *testing.T) {
	idx := &scriptedIndex{}
	r := newRetriever(idx, nil)

	opts := Options{Limit: 8, IncludeCheckIns: true}
	if _, err := r.Retrieve(context.Background(), "q", "u1", opts); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(idx.queries) != 1 || idx.queries[0] != vectordb.KindCheckIn || idx.ks[0] != 8 {
		t.Errorf("queries = %v, ks = %v", idx.queries, idx.ks)
	}

	idx.queries, idx.ks = nil, nil
	r.Retrieve(context.Background(), "q", "u1", Options{IncludeDocuments: true})
	if len(idx.ks) != 1 || idx.ks[0] != DefaultLimit {
		t.Errorf("zero limit should default to %d, got %v", DefaultLimit, idx.ks)
	}
}

func TestRetrieve_DocumentDenormalization(t *testing.T) {
	idx := &scriptedIndex{
		matches: map[vectordb.Kind][]vectordb.Match{
			vectordb.KindDocumentChunk: {
				chunkMatch("c1", "d1", "Take 50mg daily", 0.8, day(25)),
				chunkMatch("c2", "gone", "orphan chunk", 0.7, day(5)),
			},
		},
	}
	lookup := &stubLookup{docs: map[string]documents.Document{
		"d1": {ID: "d1", DocumentType: documents.TypePrescription, CreatedAt: day(3)},
	}}
	r := newRetriever(idx, lookup)

	b, err := r.Retrieve(context.Background(), "q", "u1", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(b.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(b.Documents))
	}
	d := b.Documents[0]
	if d.DocumentType != documents.TypePrescription || !d.CreatedAt.Equal(day(3)) {
		t.Errorf("parent not applied: %+v", d)
	}
	if b.Documents[1].DocumentType != documents.TypeLabReport {
		t.Errorf("orphan should keep index metadata, got %q", b.Documents[1].DocumentType)
	}
	// The parent's date, not the chunk's, drives ordering.
	if b.Results[0].ID != "c2" {
		t.Errorf("expected orphan (day 5) before prescription (day 3), got %s", b.Results[0].ID)
	}

	lookup.err = errors.New("db locked")
	b, err = r.Retrieve(context.Background(), "q", "u1", Options{IncludeDocuments: true})
	if err != nil || len(b.Documents) != 2 {
		t.Errorf("lookup failure should fall back to metadata: %v, %+v", err, b)
	}
}

func TestRetrieve_ContextBudget(t *testing.T) {
	var ms []vectordb.Match
	for i := 1; i <= 5; i++ {
		ms = append(ms, checkInMatch(fmt.Sprintf("c%d", i), strings.Repeat("x", 60), 0.9, day(i)))
	}
	idx := &scriptedIndex{matches: map[vectordb.Kind][]vectordb.Match{vectordb.KindCheckIn: ms}}
	r := newRetriever(idx, nil)

	opts := DefaultOptions()
	opts.MaxContextChars = 250
	b, err := r.Retrieve(context.Background(), "q", "u1", opts)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(b.CombinedContext) > 250 {
		t.Errorf("context length %d exceeds budget", len(b.CombinedContext))
	}
	if len(b.Results) == 0 || len(b.Results) >= 5 {
		t.Errorf("expected a partial render, got %d results", len(b.Results))
	}
	if len(strings.Split(b.CombinedContext, "\n")) != len(b.Results) {
		t.Error("Results must match the rendered lines")
	}
	if b.Results[0].ID != "c5" {
		t.Errorf("budget should keep the newest items, got %s first", b.Results[0].ID)
	}
	if len(b.CheckIns) != 5 {
		t.Errorf("structured check-ins should be complete, got %d", len(b.CheckIns))
	}
}

func TestRetrieve_WithChromemIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := vectordb.NewChromemIndex(nil)
	if err != nil {
		t.Fatalf("NewChromemIndex: %v", err)
	}
	idx.Upsert(ctx,
		vectordb.Item{ID: "mine", Kind: vectordb.KindCheckIn, UserID: "u1", Content: "knee pain",
			Embedding: []float32{1, 0}, CreatedAt: day(8), Fields: map[string]string{vectordb.FieldSummary: "knee pain"}},
		vectordb.Item{ID: "theirs", Kind: vectordb.KindCheckIn, UserID: "u2", Content: "knee pain",
			Embedding: []float32{1, 0}, CreatedAt: day(9), Fields: map[string]string{vectordb.FieldSummary: "knee pain"}},
	)
	r := newRetriever(idx, nil)

	b, err := r.Retrieve(ctx, "knee", "u1", DefaultOptions())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(b.Results) != 1 || b.Results[0].ID != "mine" {
		t.Errorf("expected only the user's own check-in, got %+v", b.Results)
	}
	if b.CombinedContext != "- [2026-03-08]: Check-in - knee pain" {
		t.Errorf("CombinedContext = %q", b.CombinedContext)
	}
}

func TestSingleLine(t *testing.T) {
	if got := singleLine("  a\n\n b\tc  "); got != "a b c" {
		t.Errorf("singleLine = %q", got)
	}
	long := singleLine(strings.Repeat("é", 800))
	if n := len([]rune(long)); n != maxLineText {
		t.Errorf("truncated length = %d runes, want %d", n, maxLineText)
	}
	if !strings.HasSuffix(long, "...") {
		t.Error("truncated text should end with an ellipsis")
	}
}

func TestCheckInLine(t *testing.T) {
	tests := []struct {
		in   CheckInResult
		want string
	}{
		{CheckInResult{Summary: "tired", Mood: 5, Energy: 2}, "Check-in - tired (mood 5/10, energy 2/10)"},
		{CheckInResult{Transcript: "so tired today"}, "Check-in - so tired today"},
		{CheckInResult{Summary: "ok", Energy: 7}, "Check-in - ok (energy 7/10)"},
	}
	for _, tt := range tests {
		if got := checkInLine(tt.in); got != tt.want {
			t.Errorf("checkInLine(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
