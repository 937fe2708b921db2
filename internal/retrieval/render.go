package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// render joins result lines until the next line would push the context past
// budget. It returns the results that made it in alongside the text.
func render(ranked []Result, budget int) ([]Result, string) {
	var (
		sb   strings.Builder
		kept []Result
		used int
	)
	for _, res := range ranked {
		line := fmt.Sprintf("- [%s]: %s", res.CreatedAt.Format("2006-01-02"), res.Text)

		size := utf8.RuneCountInString(line)
		if used > 0 {
			size++
		}
		if budget > 0 && used+size > budget {
			break
		}

		if used > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		used += size
		kept = append(kept, res)
	}
	return kept, sb.String()
}

func documentLine(d DocumentResult) string {
	return d.DocumentType.Label() + " - " + singleLine(d.Content)
}

func checkInLine(c CheckInResult) string {
	text := c.Summary
	if strings.TrimSpace(text) == "" {
		text = c.Transcript
	}
	line := "Check-in - " + singleLine(text)

	var vitals []string
	if c.Mood > 0 {
		vitals = append(vitals, fmt.Sprintf("mood %d/10", c.Mood))
	}
	if c.Energy > 0 {
		vitals = append(vitals, fmt.Sprintf("energy %d/10", c.Energy))
	}
	if len(vitals) > 0 {
		line += " (" + strings.Join(vitals, ", ") + ")"
	}
	return line
}

// singleLine collapses whitespace and truncates to maxLineText runes.
func singleLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLineText {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxLineText-3])) + "..."
}
