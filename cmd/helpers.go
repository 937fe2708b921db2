package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/healthtrace/internal/agent"
	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/chunker"
	"github.com/ziadkadry99/healthtrace/internal/config"
	"github.com/ziadkadry99/healthtrace/internal/db"
	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/embeddings"
	"github.com/ziadkadry99/healthtrace/internal/ingest"
	"github.com/ziadkadry99/healthtrace/internal/llm"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
	"github.com/ziadkadry99/healthtrace/internal/retrieval"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		_, model = config.DefaultModels(provider)
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, cfg.EmbeddingDimensions, os.Getenv("OLLAMA_HOST")), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model), cfg.EmbeddingDimensions), nil
	default:
		// Providers without native embeddings fall back to OpenAI.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model), cfg.EmbeddingDimensions), nil
	}
}

// createLLMProviderFromConfig creates a rate-limited LLM provider based on
// config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.LLMRequestsPerMinute), nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `healthtrace init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func patternsConfig(c config.PatternsConfig) patterns.Config {
	return patterns.Config{
		SimilarityThreshold:   float32(c.SimilarityThreshold),
		MinClusterSize:        c.MinClusterSize,
		WindowDays:            c.WindowDays,
		NeighborCount:         c.NeighborCount,
		NeighborInterval:      c.NeighborInterval,
		CacheTTL:              c.CacheTTL,
		IncrementalNeighbors:  c.IncrementalNeighbors,
		IncrementalConfidence: c.IncrementalConfidence,
	}
}

func retrievalOptions(c config.RetrievalConfig) retrieval.Options {
	opts := retrieval.DefaultOptions()
	opts.Limit = c.Limit
	opts.SimilarityThreshold = float32(c.SimilarityThreshold)
	opts.MaxContextChars = c.MaxContextChars
	return opts
}

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *db.DB
	index     *vectordb.ChromemIndex
	metrics   *metrics.Recorder
	llm       llm.Provider
	checkIns  *checkins.Store
	docs      *documents.Store
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
	detector  *patterns.Detector
	agent     *agent.Agent
	closers   []func() error
}

// openApp loads config and wires stores, index, providers and services. A
// missing LLM is tolerated unless requireLLM is set: summaries and pattern
// descriptions then fall back to templates.
func openApp(requireLLM bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger = logging.Init(level, cfg.Log.Format)
	log := logger
	a := &app{cfg: cfg, logger: log, metrics: metrics.New()}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := createLLMProviderFromConfig(cfg)
	switch {
	case err == nil:
		a.llm = provider
	case requireLLM:
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	default:
		log.Warn("no LLM provider, using template summaries", "error", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	index, err := vectordb.NewChromemIndex(embeddings.ToChromemFunc(embedder))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating vector index: %w", err)
	}
	if err := index.Load(cfg.IndexPath()); err != nil {
		log.Warn("could not load vector index, starting empty", "path", cfg.IndexPath(), "error", err)
	}
	a.index = index

	cache, err := a.patternCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.checkIns = checkins.NewStore(database)
	a.docs = documents.NewStore(database)
	a.detector = patterns.NewDetector(a.checkIns, index, patterns.NewLLMSummarizer(a.llm), patternsConfig(cfg.Patterns),
		patterns.WithCache(cache),
		patterns.WithLogger(log),
		patterns.WithMetrics(a.metrics),
	)
	a.pipeline = ingest.NewPipeline(ingest.Deps{
		Chunker:  chunker.New(cfg.Chunking.MaxChars, cfg.Chunking.MinChars),
		Embedder: embedder,
		Index:    index,
		Docs:     a.docs,
		CheckIns: a.checkIns,
		Patterns: a.detector,
		LLM:      a.llm,
		Logger:   log,
		Metrics:  a.metrics,
	})
	a.retriever = retrieval.New(embedder, index, a.docs, log, a.metrics)
	a.agent = agent.New(a.retriever, a.detector, a.llm, retrievalOptions(cfg.Retrieval), log)
	return a, nil
}

func (a *app) patternCache() (patterns.Cache, error) {
	ttl := a.cfg.Patterns.CacheTTL
	if a.cfg.Cache.Backend == config.CacheRedis {
		c, err := patterns.NewRedisCache(a.cfg.Cache.RedisURL, ttl, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connecting pattern cache: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	}
	return patterns.NewMemoryCache(ttl, nil), nil
}

// persist writes the vector index next to the database.
func (a *app) persist() error {
	if err := a.index.Persist(a.cfg.IndexPath()); err != nil {
		return fmt.Errorf("persisting index to %s: %w", filepath.Dir(a.cfg.IndexPath()), err)
	}
	return nil
}

// Close releases everything openApp acquired, in reverse order.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
