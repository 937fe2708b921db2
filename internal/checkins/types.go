package checkins

import (
	"fmt"
	"strings"
	"time"
)

// Source records how a check-in was captured.
type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
)

// Symptom is a named symptom reported in a check-in. Severity is 0 when the
// user did not rate it.
type Symptom struct {
	Name     string `json:"name"`
	Severity int    `json:"severity,omitempty"`
}

// CheckIn is one free-text or voice health log entry.
type CheckIn struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary"`
	Mood       int       `json:"mood,omitempty"`
	Energy     int       `json:"energy,omitempty"`
	Symptoms   []Symptom `json:"symptoms"`
	Source     Source    `json:"source"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeSymptom folds case and surrounding whitespace so "Headache " and
// "headache" count as the same symptom.
func NormalizeSymptom(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// SymptomNames returns the normalized, de-duplicated symptom names.
func (c *CheckIn) SymptomNames() []string {
	seen := make(map[string]bool, len(c.Symptoms))
	var names []string
	for _, s := range c.Symptoms {
		n := NormalizeSymptom(s.Name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// Text returns the summary, falling back to the transcript.
func (c *CheckIn) Text() string {
	if strings.TrimSpace(c.Summary) != "" {
		return c.Summary
	}
	return c.Transcript
}

// EmbeddingText is the text embedded for similarity search: the summary,
// the transcript, and the reported symptoms.
func (c *CheckIn) EmbeddingText() string {
	var parts []string
	if s := strings.TrimSpace(c.Summary); s != "" {
		parts = append(parts, s)
	}
	if t := strings.TrimSpace(c.Transcript); t != "" && t != strings.TrimSpace(c.Summary) {
		parts = append(parts, t)
	}
	if names := c.SymptomNames(); len(names) > 0 {
		parts = append(parts, "Symptoms: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "\n")
}

// Validate checks the fields the store enforces.
func (c *CheckIn) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(c.Transcript) == "" && strings.TrimSpace(c.Summary) == "" {
		return fmt.Errorf("transcript or summary is required")
	}
	if c.Mood < 0 || c.Mood > 10 {
		return fmt.Errorf("mood must be within 0-10")
	}
	if c.Energy < 0 || c.Energy > 10 {
		return fmt.Errorf("energy must be within 0-10")
	}
	switch c.Source {
	case "", SourceText, SourceVoice:
	default:
		return fmt.Errorf("invalid source %q", c.Source)
	}
	for _, s := range c.Symptoms {
		if s.Severity < 0 || s.Severity > 10 {
			return fmt.Errorf("symptom %q severity must be within 0-10", s.Name)
		}
	}
	return nil
}
