package vectordb

import (
	"fmt"
	"sort"
	"strings"
)

// FormatMatches renders raw query matches for debugging output.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No matches found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d match(es):\n\n", len(matches))

	for i, m := range matches {
		fmt.Fprintf(&sb, "--- Match %d (%s, similarity: %.4f) ---\n", i+1, m.Kind, m.Similarity)
		fmt.Fprintf(&sb, "ID: %s\n", m.ID)
		if !m.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "Created: %s\n", m.CreatedAt.Format("2006-01-02 15:04"))
		}

		keys := make([]string, 0, len(m.Fields))
		for k := range m.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if m.Fields[k] != "" {
				fmt.Fprintf(&sb, "%s: %s\n", k, m.Fields[k])
			}
		}

		sb.WriteString("\n")
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
