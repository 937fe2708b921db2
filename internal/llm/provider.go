package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// CompleteText runs a system+user prompt and returns the trimmed reply.
// Provider errors and blank replies wrap ErrUnavailable.
func CompleteText(ctx context.Context, p Provider, system, user string, maxTokens int) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrUnavailable)
	}
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	resp, err := p.Complete(ctx, CompletionRequest{
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, p.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: %s returned an empty completion", ErrUnavailable, p.Name())
	}
	return strings.TrimSpace(resp.Content), nil
}
