package llm

import (
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Environment variables read by NewProvider.
const (
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envOpenAIKey    = "OPENAI_API_KEY"
	envOpenAIBase   = "OPENAI_BASE_URL"
	envOllamaHost   = "OLLAMA_HOST"
)

// NewProvider builds the provider named by providerType (anthropic, openai
// or ollama) with keys and hosts taken from the environment. OPENAI_BASE_URL
// points the openai provider at any compatible endpoint.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "anthropic":
		key, err := requireEnv(envAnthropicKey)
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(key, model), nil

	case "openai":
		key, err := requireEnv(envOpenAIKey)
		if err != nil {
			return nil, err
		}
		cfg := openai.DefaultConfig(key)
		if base := os.Getenv(envOpenAIBase); base != "" {
			cfg.BaseURL = base
		}
		return NewOpenAIProviderWithConfig(cfg, model), nil

	case "ollama":
		return NewOllamaProvider(os.Getenv(envOllamaHost), model), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider %q (want anthropic, openai or ollama)", providerType)
	}
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s is not set (put it in the environment or a .env file)", name)
	}
	return v, nil
}
