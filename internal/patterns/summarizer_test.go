package patterns

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/llm"
)

type fakeProvider struct {
	reply string
	err   error
	last  llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestLLMSummarizer_Describe(t *testing.T) {
	p := &fakeProvider{reply: "  You often report headaches after poor sleep.  "}
	s := NewLLMSummarizer(p)

	members := []checkins.CheckIn{ci("A", 3, nil), ci("B", 2, nil), ci("C", 1, nil)}
	got, err := s.Describe(context.Background(), members, []string{"headache"})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "You often report headaches after poor sleep." {
		t.Errorf("Describe = %q", got)
	}

	prompt := p.last.Messages[len(p.last.Messages)-1].Content
	for _, want := range []string{"summary A", "summary C", "headache", "3 check-ins"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMSummarizer_Failures(t *testing.T) {
	s := NewLLMSummarizer(&fakeProvider{err: errors.New("429")})
	if _, err := s.Describe(context.Background(), nil, nil); !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	var nilSummarizer *LLMSummarizer
	if _, err := nilSummarizer.Describe(context.Background(), nil, nil); !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from nil summarizer, got %v", err)
	}
}

func TestFallbackDescription(t *testing.T) {
	tests := []struct {
		common []string
		n      int
		span   int
		want   string
	}{
		{nil, 4, 1, "4 similar check-ins over 1 day."},
		{[]string{"headache"}, 3, 5, "Recurring headache reported in 3 check-ins over 5 days."},
		{[]string{"a", "b", "c"}, 6, 2, "Recurring a, b and c reported in 6 check-ins over 2 days."},
	}
	for _, tt := range tests {
		if got := fallbackDescription(tt.common, tt.n, tt.span); got != tt.want {
			t.Errorf("fallbackDescription(%v, %d, %d) = %q, want %q", tt.common, tt.n, tt.span, got, tt.want)
		}
	}
}
