package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "HEALTHTRACE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (HEALTHTRACE_*). A double underscore
// addresses a nested key: HEALTHTRACE_PATTERNS__CACHE_TTL -> patterns.cache_ttl.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderGoogle: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.EmbeddingProvider != "" && !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, google, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingDimensions < 0 {
		return fmt.Errorf("embedding_dimensions must be non-negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.LLMRequestsPerMinute < 0 {
		return fmt.Errorf("llm_requests_per_minute must be non-negative")
	}

	if c.Chunking.MaxChars <= 0 || c.Chunking.MinChars <= 0 {
		return fmt.Errorf("chunking sizes must be positive")
	}
	if c.Chunking.MinChars > c.Chunking.MaxChars {
		return fmt.Errorf("chunking.min_chars (%d) exceeds chunking.max_chars (%d)", c.Chunking.MinChars, c.Chunking.MaxChars)
	}

	if c.Retrieval.Limit <= 0 {
		return fmt.Errorf("retrieval.limit must be positive")
	}
	if !inSimilarityRange(c.Retrieval.SimilarityThreshold) {
		return fmt.Errorf("retrieval.similarity_threshold must be within [-1, 1]")
	}
	if c.Retrieval.MaxContextChars < 0 {
		return fmt.Errorf("retrieval.max_context_chars must be non-negative")
	}

	p := c.Patterns
	if !inSimilarityRange(p.SimilarityThreshold) {
		return fmt.Errorf("patterns.similarity_threshold must be within [-1, 1]")
	}
	if p.MinClusterSize < 2 {
		return fmt.Errorf("patterns.min_cluster_size must be at least 2")
	}
	if p.WindowDays <= 0 || p.NeighborCount <= 0 || p.IncrementalNeighbors <= 0 {
		return fmt.Errorf("patterns window_days, neighbor_count and incremental_neighbors must be positive")
	}
	if p.NeighborInterval < 0 || p.CacheTTL < 0 {
		return fmt.Errorf("patterns durations must be non-negative")
	}
	if p.IncrementalConfidence < 0 || p.IncrementalConfidence > 1 {
		return fmt.Errorf("patterns.incremental_confidence must be within [0, 1]")
	}

	switch c.Cache.Backend {
	case "", CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid cache.backend %q: must be memory or redis", c.Cache.Backend)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}

func inSimilarityRange(v float64) bool { return v >= -1 && v <= 1 }

// DBPath returns the SQLite database location under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "healthtrace.db")
}

// IndexPath returns the persisted vector index location under the data directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "vectordb", "index.gob.gz")
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
