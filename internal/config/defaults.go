package config

import "time"

// DefaultPath is the config file name looked up in the working directory.
const DefaultPath = ".healthtrace.yml"

// providerDefaults maps each provider to its default chat and embedding models.
var providerDefaults = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:             ProviderAnthropic,
		Model:                "claude-sonnet-4-5-20250929",
		EmbeddingProvider:    ProviderOpenAI,
		EmbeddingModel:       "text-embedding-3-small",
		EmbeddingDimensions:  1024,
		DataDir:              ".healthtrace",
		LLMRequestsPerMinute: 60,
		Chunking: ChunkingConfig{
			MaxChars: 2000,
			MinChars: 400,
		},
		Retrieval: RetrievalConfig{
			Limit:               5,
			SimilarityThreshold: 0.3,
			MaxContextChars:     6000,
		},
		Patterns: PatternsConfig{
			SimilarityThreshold:   0.82,
			MinClusterSize:        3,
			WindowDays:            30,
			NeighborCount:         6,
			NeighborInterval:      100 * time.Millisecond,
			CacheTTL:              time.Hour,
			IncrementalNeighbors:  5,
			IncrementalConfidence: 0.7,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultModels returns the default chat and embedding models for a provider.
// Unknown providers get the Anthropic defaults.
func DefaultModels(provider ProviderType) (model, embeddingModel string) {
	d, ok := providerDefaults[provider]
	if !ok {
		d = providerDefaults[ProviderAnthropic]
	}
	return d.Model, d.EmbeddingModel
}
