package llm

import "errors"

// ErrUnavailable marks a failed or empty completion. Callers that can fall
// back to a template check for it with errors.Is.
var ErrUnavailable = errors.New("llm unavailable")

// Role is the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is provider-neutral. Model overrides the provider's
// configured model when set.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries the reply and token accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

const (
	defaultMaxTokens = 1024
	// DefaultTemperature keeps summaries and answers close to the source text.
	DefaultTemperature = 0.3
)
