package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.EmbeddingDimensions != 1024 {
		t.Errorf("expected embedding_dimensions 1024, got %d", cfg.EmbeddingDimensions)
	}
	if cfg.Chunking.MaxChars != 2000 || cfg.Chunking.MinChars != 400 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Patterns.SimilarityThreshold != 0.82 {
		t.Errorf("expected pattern threshold 0.82, got %v", cfg.Patterns.SimilarityThreshold)
	}
	if cfg.Patterns.NeighborInterval != 100*time.Millisecond {
		t.Errorf("expected neighbor interval 100ms, got %v", cfg.Patterns.NeighborInterval)
	}
	if cfg.Patterns.CacheTTL != time.Hour {
		t.Errorf("expected cache ttl 1h, got %v", cfg.Patterns.CacheTTL)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Backend)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.healthtrace.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.DataDir = "/tmp/ht"
	original.Patterns.CacheTTL = 30 * time.Minute
	original.Patterns.SimilarityThreshold = 0.75
	original.Retrieval.Limit = 8

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, original.DataDir)
	}
	if loaded.Patterns.CacheTTL != original.Patterns.CacheTTL {
		t.Errorf("cache_ttl: got %v, want %v", loaded.Patterns.CacheTTL, original.Patterns.CacheTTL)
	}
	if loaded.Patterns.SimilarityThreshold != 0.75 {
		t.Errorf("similarity_threshold: got %v", loaded.Patterns.SimilarityThreshold)
	}
	if loaded.Retrieval.Limit != 8 {
		t.Errorf("retrieval.limit: got %d", loaded.Retrieval.Limit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("HEALTHTRACE_PROVIDER", "openai")
	t.Setenv("HEALTHTRACE_PATTERNS__CACHE_TTL", "5m")
	t.Setenv("HEALTHTRACE_CACHE__BACKEND", "redis")
	t.Setenv("HEALTHTRACE_CACHE__REDIS_URL", "redis://cache:6379/1")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.Patterns.CacheTTL != 5*time.Minute {
		t.Errorf("nested env override failed: got %v", loaded.Patterns.CacheTTL)
	}
	if loaded.Cache.Backend != CacheRedis || loaded.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("cache override failed: %+v", loaded.Cache)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"HEALTHTRACE_PROVIDER":                 "provider",
		"HEALTHTRACE_RETRIEVAL__LIMIT":         "retrieval.limit",
		"HEALTHTRACE_PATTERNS__NEIGHBOR_COUNT": "patterns.neighbor_count",
		"HEALTHTRACE_LLM_REQUESTS_PER_MINUTE":  "llm_requests_per_minute",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty provider", func(c *Config) { c.Provider = "" }, true},
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }, true},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"anthropic embeddings", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }, true},
		{"google chat provider", func(c *Config) { c.Provider = ProviderGoogle }, true},
		{"google embeddings", func(c *Config) { c.EmbeddingProvider = ProviderGoogle }, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"min above max", func(c *Config) { c.Chunking.MinChars = 3000 }, true},
		{"zero max chars", func(c *Config) { c.Chunking.MaxChars = 0 }, true},
		{"retrieval threshold too high", func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 }, true},
		{"pattern threshold too low", func(c *Config) { c.Patterns.SimilarityThreshold = -2 }, true},
		{"cluster size one", func(c *Config) { c.Patterns.MinClusterSize = 1 }, true},
		{"negative interval", func(c *Config) { c.Patterns.NeighborInterval = -time.Second }, true},
		{"zero interval", func(c *Config) { c.Patterns.NeighborInterval = 0 }, false},
		{"redis without url", func(c *Config) { c.Cache.Backend = CacheRedis }, true},
		{"redis with url", func(c *Config) {
			c.Cache.Backend = CacheRedis
			c.Cache.RedisURL = "redis://localhost:6379/0"
		}, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultModels(t *testing.T) {
	m, e := DefaultModels(ProviderOllama)
	if m != "llama3" || e != "nomic-embed-text" {
		t.Errorf("ollama defaults = %q/%q", m, e)
	}
	m, _ = DefaultModels("unknown")
	if m != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected fallback to sonnet, got %q", m)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/ht"
	if got := cfg.DBPath(); got != filepath.Join("/var/ht", "healthtrace.db") {
		t.Errorf("DBPath = %q", got)
	}
	if got := cfg.IndexPath(); got != filepath.Join("/var/ht", "vectordb", "index.gob.gz") {
		t.Errorf("IndexPath = %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidateSimilarity(t *testing.T) {
	for _, ok := range []string{"0.82", " -1 ", "1"} {
		if err := validateSimilarity(ok); err != nil {
			t.Errorf("validateSimilarity(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"abc", "1.2", "-3"} {
		if err := validateSimilarity(bad); err == nil {
			t.Errorf("validateSimilarity(%q) should fail", bad)
		}
	}
}
