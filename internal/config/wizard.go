package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to healthtrace! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.Model, cfg.EmbeddingModel = DefaultModels(cfg.Provider)
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)

	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	thresholdPrompt := promptui.Prompt{
		Label:    "Pattern similarity threshold",
		Default:  strconv.FormatFloat(cfg.Patterns.SimilarityThreshold, 'f', -1, 64),
		Validate: validateSimilarity,
	}
	thresholdStr, err := thresholdPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("similarity threshold: %w", err)
	}
	cfg.Patterns.SimilarityThreshold, _ = strconv.ParseFloat(strings.TrimSpace(thresholdStr), 64)

	cachePrompt := promptui.Select{
		Label: "Pattern cache backend",
		Items: []string{string(CacheMemory), string(CacheRedis)},
	}
	_, backend, err := cachePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	cfg.Cache.Backend = CacheBackend(backend)
	if cfg.Cache.Backend == CacheRedis {
		redisPrompt := promptui.Prompt{
			Label:   "Redis URL",
			Default: "redis://localhost:6379/0",
		}
		if cfg.Cache.RedisURL, err = redisPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before ingesting data.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embedding API, so it pairs with OpenAI.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

func validateSimilarity(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if !inSimilarityRange(v) {
		return fmt.Errorf("must be within [-1, 1]")
	}
	return nil
}
