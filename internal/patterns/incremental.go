package patterns

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

// CheckNew compares a freshly embedded check-in with its nearest existing
// check-ins. When enough of them clear the similarity threshold it returns a
// recurring_symptom pattern and invalidates the user's cached patterns.
// Any failure returns nil; this check never blocks check-in creation.
func (d *Detector) CheckNew(ctx context.Context, c *checkins.CheckIn) *Pattern {
	if c == nil || len(c.Embedding) == 0 {
		return nil
	}
	log := logging.WithUser(d.logger, c.UserID)

	k := d.cfg.IncrementalNeighbors
	if c.ID != "" {
		k++
	}
	neighbors, err := d.index.Query(ctx, vectordb.KindCheckIn, c.UserID, c.Embedding, k)
	if err != nil {
		log.Warn("incremental pattern check failed", "checkin_id", c.ID, "error", err)
		d.metrics.IndexFailure("query_incremental")
		return nil
	}

	var matches []vectordb.Match
	considered := 0
	for _, n := range neighbors {
		if n.ID == c.ID {
			continue
		}
		if considered == d.cfg.IncrementalNeighbors {
			break
		}
		considered++
		if n.Similarity >= d.cfg.SimilarityThreshold {
			matches = append(matches, n)
		}
	}
	if len(matches) < d.cfg.MinClusterSize {
		return nil
	}

	ids := make([]string, 0, len(matches)+1)
	first, last := c.CreatedAt, c.CreatedAt
	counts := make(map[string]int)
	for _, name := range c.SymptomNames() {
		counts[name]++
	}
	for _, m := range matches {
		ids = append(ids, m.ID)
		if !m.CreatedAt.IsZero() && m.CreatedAt.Before(first) {
			first = m.CreatedAt
		}
		if m.CreatedAt.After(last) {
			last = m.CreatedAt
		}
		for _, name := range splitSymptoms(m.Fields[vectordb.FieldSymptoms]) {
			counts[name]++
		}
	}
	ids = append(ids, c.ID)

	common := []string{}
	for _, name := range c.SymptomNames() {
		if counts[name] >= 2 {
			common = append(common, name)
		}
	}

	p := &Pattern{
		Type:           TypeRecurringSymptom,
		Confidence:     d.cfg.IncrementalConfidence,
		Occurrences:    len(matches) + 1,
		RelatedItemIDs: ids,
		CommonSymptoms: common,
		FirstSeen:      first,
		LastSeen:       last,
		Description:    incrementalDescription(common, len(matches), daySpan(first, last)),
	}

	d.Invalidate(ctx, c.UserID)
	log.Info("new check-in matches an existing pattern", "checkin_id", c.ID, "matches", len(matches))
	return p
}

// splitSymptoms parses the symptom field stored in the index.
func splitSymptoms(s string) []string {
	var out []string
	for _, part := range vectordb.DecodeSymptoms(s) {
		if n := checkins.NormalizeSymptom(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func incrementalDescription(common []string, matches, span int) string {
	days := "day"
	if span != 1 {
		days = "days"
	}
	if len(common) > 0 {
		return fmt.Sprintf("This check-in resembles %d recent ones that also mention %s, over %d %s.",
			matches, joinNames(common), span, days)
	}
	return fmt.Sprintf("This check-in closely resembles %d recent check-ins over %d %s.", matches, span, days)
}
