package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/llm"
)

// Summarizer writes a short natural-language description of a cluster.
type Summarizer interface {
	Describe(ctx context.Context, members []checkins.CheckIn, commonSymptoms []string) (string, error)
}

const describeSystemPrompt = `You describe recurring patterns in a person's health check-ins. Reply with one or two plain sentences addressed to the person. Mention the shared symptoms and how often they occurred. Do not diagnose and do not give medical advice.`

// LLMSummarizer describes clusters with an LLM provider.
type LLMSummarizer struct {
	provider llm.Provider
}

func NewLLMSummarizer(provider llm.Provider) *LLMSummarizer {
	return &LLMSummarizer{provider: provider}
}

// Describe returns an error wrapping llm.ErrUnavailable on any failure.
func (s *LLMSummarizer) Describe(ctx context.Context, members []checkins.CheckIn, commonSymptoms []string) (string, error) {
	if s == nil || s.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", llm.ErrUnavailable)
	}
	return llm.CompleteText(ctx, s.provider, describeSystemPrompt, buildDescribePrompt(members, commonSymptoms), 200)
}

func buildDescribePrompt(members []checkins.CheckIn, commonSymptoms []string) string {
	var b strings.Builder

	b.WriteString("## Check-ins\n")
	for _, m := range members {
		fmt.Fprintf(&b, "- %s: %s\n", m.CreatedAt.Format("2006-01-02"), strings.Join(strings.Fields(m.Text()), " "))
	}

	b.WriteString("\n## Common symptoms\n")
	if len(commonSymptoms) > 0 {
		b.WriteString(strings.Join(commonSymptoms, ", "))
	} else {
		b.WriteString("(none named; the check-ins are similar overall)")
	}

	fmt.Fprintf(&b, "\n\nDescribe this pattern across %d check-ins in one or two sentences.", len(members))
	return b.String()
}

// fallbackDescription is used whenever the summarizer fails.
func fallbackDescription(commonSymptoms []string, occurrences, daySpan int) string {
	days := "day"
	if daySpan != 1 {
		days = "days"
	}
	if len(commonSymptoms) == 0 {
		return fmt.Sprintf("%d similar check-ins over %d %s.", occurrences, daySpan, days)
	}
	return fmt.Sprintf("Recurring %s reported in %d check-ins over %d %s.",
		joinNames(commonSymptoms), occurrences, daySpan, days)
}

// joinNames renders "a", "a and b", "a, b and c".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
