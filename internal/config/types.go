package config

import "time"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// CacheBackend selects where detected patterns are cached.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// Config is the top-level healthtrace configuration, corresponding to .healthtrace.yml.
type Config struct {
	Provider             ProviderType    `yaml:"provider" koanf:"provider"`
	Model                string          `yaml:"model" koanf:"model"`
	EmbeddingProvider    ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel       string          `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions  int             `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	DataDir              string          `yaml:"data_dir" koanf:"data_dir"`
	LLMRequestsPerMinute int             `yaml:"llm_requests_per_minute" koanf:"llm_requests_per_minute"`
	Chunking             ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Retrieval            RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Patterns             PatternsConfig  `yaml:"patterns" koanf:"patterns"`
	Cache                CacheConfig     `yaml:"cache" koanf:"cache"`
	Server               ServerConfig    `yaml:"server" koanf:"server"`
	Log                  LogConfig       `yaml:"log" koanf:"log"`
}

// ChunkingConfig bounds document chunk sizes, in characters.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars" koanf:"max_chars"`
	MinChars int `yaml:"min_chars" koanf:"min_chars"`
}

// RetrievalConfig holds defaults for cross-reference retrieval.
type RetrievalConfig struct {
	Limit               int     `yaml:"limit" koanf:"limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	MaxContextChars     int     `yaml:"max_context_chars" koanf:"max_context_chars"`
}

// PatternsConfig tunes pattern detection.
type PatternsConfig struct {
	SimilarityThreshold   float64       `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	MinClusterSize        int           `yaml:"min_cluster_size" koanf:"min_cluster_size"`
	WindowDays            int           `yaml:"window_days" koanf:"window_days"`
	NeighborCount         int           `yaml:"neighbor_count" koanf:"neighbor_count"`
	NeighborInterval      time.Duration `yaml:"neighbor_interval" koanf:"neighbor_interval"`
	CacheTTL              time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
	IncrementalNeighbors  int           `yaml:"incremental_neighbors" koanf:"incremental_neighbors"`
	IncrementalConfidence float64       `yaml:"incremental_confidence" koanf:"incremental_confidence"`
}

// CacheConfig selects the pattern cache backend.
type CacheConfig struct {
	Backend  CacheBackend `yaml:"backend" koanf:"backend"`
	RedisURL string       `yaml:"redis_url" koanf:"redis_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
