package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/healthtrace/internal/llm"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
	"github.com/ziadkadry99/healthtrace/internal/retrieval"
)

// ContextRetriever builds grounding context. retrieval.Retriever satisfies it.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query, userID string, opts retrieval.Options) (*retrieval.Bundle, error)
}

// PatternSource returns a user's detected patterns. patterns.Detector
// satisfies it.
type PatternSource interface {
	Detect(ctx context.Context, userID string) []patterns.Pattern
}

// Turn is one earlier exchange in a conversation.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Answer is a grounded reply together with what grounded it.
type Answer struct {
	Answer   string             `json:"answer"`
	Context  *retrieval.Bundle  `json:"context"`
	Patterns []patterns.Pattern `json:"patterns"`
}

// maxHistory bounds how many earlier turns are replayed to the LLM.
const maxHistory = 10

const systemPrompt = `You are a health journaling assistant. Answer the person's question using their own check-ins, documents and detected patterns provided below. Refer to dates when they help. If the history does not cover the question, say so plainly. You are not a doctor: do not diagnose, and suggest seeing a clinician for anything that sounds urgent.`

// Agent answers questions about a user's health history.
type Agent struct {
	retriever ContextRetriever
	patterns  PatternSource
	provider  llm.Provider
	opts      retrieval.Options
	logger    *slog.Logger
}

// New creates an Agent. patterns may be nil.
func New(r ContextRetriever, p PatternSource, provider llm.Provider, opts retrieval.Options, logger *slog.Logger) *Agent {
	return &Agent{
		retriever: r,
		patterns:  p,
		provider:  provider,
		opts:      opts,
		logger:    logging.OrDefault(logger).With("component", "agent"),
	}
}

// Ask retrieves context for question, adds the user's patterns and asks the
// LLM. It fails when the question cannot be embedded or the LLM fails.
func (a *Agent) Ask(ctx context.Context, userID, question string, history ...Turn) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}

	bundle, err := a.retriever.Retrieve(ctx, question, userID, a.opts)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	var detected []patterns.Pattern
	if a.patterns != nil {
		detected = a.patterns.Detect(ctx, userID)
	}

	if a.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", llm.ErrUnavailable)
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: buildQuestionPrompt(question, bundle, detected)})

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   1024,
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrUnavailable, a.provider.Name(), err)
	}

	logging.WithUser(a.logger, userID).Debug("answered question",
		"context_items", len(bundle.Results),
		"patterns", len(detected))

	return &Answer{
		Answer:   strings.TrimSpace(resp.Content),
		Context:  bundle,
		Patterns: detected,
	}, nil
}

func buildQuestionPrompt(question string, bundle *retrieval.Bundle, detected []patterns.Pattern) string {
	var b strings.Builder

	b.WriteString("## Relevant Health History\n")
	if bundle != nil && bundle.CombinedContext != "" {
		b.WriteString(bundle.CombinedContext)
		b.WriteString("\n")
	} else {
		b.WriteString("(No relevant check-ins or documents found)\n")
	}

	b.WriteString("\n## Detected Patterns\n")
	if len(detected) > 0 {
		for _, p := range detected {
			fmt.Fprintf(&b, "- [%s] %s (%d occurrences, %s to %s)\n",
				p.Type, p.Description, p.Occurrences,
				p.FirstSeen.Format("2006-01-02"), p.LastSeen.Format("2006-01-02"))
		}
	} else {
		b.WriteString("(No patterns detected yet)\n")
	}

	fmt.Fprintf(&b, "\n## Question\n%s\n", question)
	return b.String()
}
