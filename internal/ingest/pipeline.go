package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/chunker"
	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/embeddings"
	"github.com/ziadkadry99/healthtrace/internal/llm"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

// DocumentStore persists documents and chunks. documents.Store satisfies it.
type DocumentStore interface {
	Save(ctx context.Context, d *documents.Document) error
	AddChunk(ctx context.Context, c *documents.Chunk) error
	DeleteChunks(ctx context.Context, documentID string) ([]string, error)
}

// CheckInStore persists check-ins. checkins.Store satisfies it.
type CheckInStore interface {
	Create(ctx context.Context, c *checkins.CheckIn) error
}

// PatternChecker runs the incremental check for new check-ins.
// patterns.Detector satisfies it.
type PatternChecker interface {
	CheckNew(ctx context.Context, c *checkins.CheckIn) *patterns.Pattern
	Invalidate(ctx context.Context, userID string)
}

// Deps are the collaborators of a Pipeline. Patterns and LLM are optional.
type Deps struct {
	Chunker  *chunker.Chunker
	Embedder embeddings.Embedder
	Index    vectordb.SimilarityIndex
	Docs     DocumentStore
	CheckIns CheckInStore
	Patterns PatternChecker
	LLM      llm.Provider
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// Pipeline stores documents and check-ins and makes them searchable:
// chunk -> embed -> persist -> index.
type Pipeline struct {
	chunker    *chunker.Chunker
	embedder   embeddings.Embedder
	index      vectordb.SimilarityIndex
	docs       DocumentStore
	checkIns   CheckInStore
	patterns   PatternChecker
	llm        llm.Provider
	logger     *slog.Logger
	metrics    *metrics.Recorder
	onProgress ProgressFunc
}

// NewPipeline creates a new Pipeline.
func NewPipeline(d Deps) *Pipeline {
	ch := d.Chunker
	if ch == nil {
		ch = chunker.New(chunker.DefaultMaxChars, chunker.DefaultMinChars)
	}
	return &Pipeline{
		chunker:  ch,
		embedder: d.Embedder,
		index:    d.Index,
		docs:     d.Docs,
		checkIns: d.CheckIns,
		patterns: d.Patterns,
		llm:      d.LLM,
		logger:   logging.OrDefault(d.Logger).With("component", "ingest"),
		metrics:  d.Metrics,
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// FileDocumentID derives a stable document ID from the owner and the file's
// absolute path, so ingesting the same file again replaces it.
func FileDocumentID(userID, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+userID+"/"+filepath.ToSlash(abs))).String()
}

// IngestFile extracts a markdown, text or PDF file and ingests it. The
// document type is inferred from the file name unless docType is set.
func (p *Pipeline) IngestFile(ctx context.Context, userID, path string, docType documents.Type) (*DocumentResult, error) {
	title, content, err := documents.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	if docType == "" {
		docType = documents.InferType(path)
	}
	return p.IngestDocument(ctx, &documents.Document{
		ID:           FileDocumentID(userID, path),
		UserID:       userID,
		Title:        title,
		DocumentType: docType,
		Content:      content,
		SourcePath:   path,
	})
}

// IngestDocument persists doc, replaces any previous chunks, then chunks,
// embeds, persists and indexes the new ones. A chunk that fails is logged
// and skipped; chunks stored before it stay stored. Only failing to save
// the document itself is an error.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *documents.Document) (*DocumentResult, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("document %q has no text content", doc.Title)
	}
	if err := p.docs.Save(ctx, doc); err != nil {
		return nil, err
	}
	log := logging.WithUser(p.logger, doc.UserID).With("document_id", doc.ID)

	oldIDs, err := p.docs.DeleteChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("removing previous chunks: %w", err)
	}
	if len(oldIDs) > 0 {
		if err := p.index.Delete(ctx, vectordb.KindDocumentChunk, oldIDs...); err != nil {
			log.Warn("removing previous chunks from the index failed", "error", err)
			p.metrics.IndexFailure("delete")
		}
	}

	chunks := p.chunker.Chunk(doc.Content)
	res := &DocumentResult{Document: doc, ChunksTotal: len(chunks)}

	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
		indexed, err := p.ingestChunk(ctx, doc, ch)
		if err != nil {
			log.Warn("skipping chunk", "chunk_index", ch.ChunkIndex, "error", err)
			p.metrics.ChunkIngested(metrics.StatusFailed)
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", ch.ChunkIndex, err))
		} else {
			res.ChunksStored++
			if indexed {
				res.ChunksIndexed++
			}
			p.metrics.ChunkIngested(metrics.StatusStored)
		}
		if p.onProgress != nil {
			p.onProgress(i+1, len(chunks), doc.Title)
		}
	}

	log.Info("ingested document",
		"chunks", res.ChunksTotal,
		"stored", res.ChunksStored,
		"indexed", res.ChunksIndexed)
	return res, nil
}

// ingestChunk embeds and stores one chunk. A stored chunk that could not be
// indexed is not an error; indexed reports whether it is searchable.
func (p *Pipeline) ingestChunk(ctx context.Context, doc *documents.Document, ch chunker.Chunk) (indexed bool, err error) {
	vec, err := embeddings.EmbedOne(ctx, p.embedder, ch.Content)
	if err != nil {
		p.metrics.EmbeddingFailure("chunk")
		return false, err
	}

	row := &documents.Chunk{
		DocumentID:  doc.ID,
		UserID:      doc.UserID,
		Content:     ch.Content,
		ChunkIndex:  ch.ChunkIndex,
		TotalChunks: ch.TotalChunks,
		Embedding:   vec,
	}
	if err := p.docs.AddChunk(ctx, row); err != nil {
		return false, err
	}

	err = p.index.Upsert(ctx, vectordb.Item{
		ID:        row.ID,
		Kind:      vectordb.KindDocumentChunk,
		UserID:    doc.UserID,
		Content:   ch.Content,
		Embedding: vec,
		CreatedAt: doc.CreatedAt,
		Fields: map[string]string{
			vectordb.FieldDocumentID:   doc.ID,
			vectordb.FieldDocumentType: string(doc.DocumentType),
			vectordb.FieldChunkIndex:   strconv.Itoa(ch.ChunkIndex),
			vectordb.FieldTotalChunks:  strconv.Itoa(ch.TotalChunks),
		},
	})
	if err != nil {
		p.logger.Warn("chunk stored but not indexed", "chunk_id", row.ID, "error", err)
		p.metrics.IndexFailure("upsert")
		return false, nil
	}
	return true, nil
}

const summarySystemPrompt = `You summarize a person's spoken or written health check-in in one short sentence in the third person. Keep symptoms, their severity and timing. Do not add advice.`

// maxFallbackSummary bounds the transcript-derived summary.
const maxFallbackSummary = 200

// IngestCheckIn stores a check-in and makes it searchable. A missing
// summary is written by the LLM, or cut from the transcript when that
// fails. Embedding and indexing failures never block creation: the
// check-in is stored without a vector and Embedded is false.
func (p *Pipeline) IngestCheckIn(ctx context.Context, c *checkins.CheckIn) (*CheckInResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	log := logging.WithUser(p.logger, c.UserID)

	if strings.TrimSpace(c.Summary) == "" {
		c.Summary = p.summarize(ctx, log, c.Transcript)
	}

	vec, err := embeddings.EmbedOne(ctx, p.embedder, c.EmbeddingText())
	if err != nil {
		log.Warn("embedding check-in failed, storing without vector", "error", err)
		p.metrics.EmbeddingFailure("checkin")
		vec = nil
	}
	c.Embedding = vec

	if err := p.checkIns.Create(ctx, c); err != nil {
		return nil, err
	}
	res := &CheckInResult{CheckIn: c, Embedded: len(vec) > 0}

	if p.patterns != nil {
		p.patterns.Invalidate(ctx, c.UserID)
	}
	if !res.Embedded {
		return res, nil
	}

	if err := p.index.Upsert(ctx, checkInItem(c)); err != nil {
		log.Warn("check-in stored but not indexed", "checkin_id", c.ID, "error", err)
		p.metrics.IndexFailure("upsert")
	}
	if p.patterns != nil {
		res.Pattern = p.patterns.CheckNew(ctx, c)
	}
	return res, nil
}

func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, transcript string) string {
	if p.llm != nil {
		s, err := llm.CompleteText(ctx, p.llm, summarySystemPrompt, transcript, 100)
		if err == nil {
			return s
		}
		log.Warn("summarizing check-in failed, using transcript", "error", err)
	}
	return truncate(strings.Join(strings.Fields(transcript), " "), maxFallbackSummary)
}

func checkInItem(c *checkins.CheckIn) vectordb.Item {
	return vectordb.Item{
		ID:        c.ID,
		Kind:      vectordb.KindCheckIn,
		UserID:    c.UserID,
		Content:   c.Text(),
		Embedding: c.Embedding,
		CreatedAt: c.CreatedAt,
		Fields: map[string]string{
			vectordb.FieldSummary:    c.Summary,
			vectordb.FieldTranscript: c.Transcript,
			vectordb.FieldMood:       strconv.Itoa(c.Mood),
			vectordb.FieldEnergy:     strconv.Itoa(c.Energy),
			vectordb.FieldSymptoms:   vectordb.EncodeSymptoms(c.SymptomNames()),
		},
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
