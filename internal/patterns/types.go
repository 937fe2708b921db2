package patterns

import (
	"time"
)

// Type classifies a detected pattern.
type Type string

const (
	// TypeRecurringSymptom is a cluster sharing exactly one named symptom.
	TypeRecurringSymptom Type = "recurring_symptom"
	// TypeSymptomCluster is a cluster sharing two or more named symptoms.
	TypeSymptomCluster Type = "symptom_cluster"
	// TypeTrendChange is a cluster held together by overall similarity
	// rather than a named symptom.
	TypeTrendChange Type = "trend_change"
)

// Pattern is a recurring group of similar check-ins.
type Pattern struct {
	Type           Type      `json:"pattern_type"`
	Description    string    `json:"description"`
	Confidence     float64   `json:"confidence"`
	Occurrences    int       `json:"occurrences"`
	RelatedItemIDs []string  `json:"related_item_ids"`
	CommonSymptoms []string  `json:"common_symptoms"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// Config holds the detection tunables.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for an edge.
	SimilarityThreshold float32
	MinClusterSize      int
	WindowDays          int
	// NeighborCount is requested per check-in, including the check-in itself.
	NeighborCount int
	// NeighborInterval paces successive neighbour queries within one run.
	NeighborInterval time.Duration
	CacheTTL         time.Duration

	IncrementalNeighbors  int
	IncrementalConfidence float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:   0.82,
		MinClusterSize:        3,
		WindowDays:            30,
		NeighborCount:         6,
		NeighborInterval:      100 * time.Millisecond,
		CacheTTL:              time.Hour,
		IncrementalNeighbors:  5,
		IncrementalConfidence: 0.7,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = d.MinClusterSize
	}
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.NeighborCount <= 0 {
		c.NeighborCount = d.NeighborCount
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.IncrementalNeighbors <= 0 {
		c.IncrementalNeighbors = d.IncrementalNeighbors
	}
	if c.IncrementalConfidence <= 0 {
		c.IncrementalConfidence = d.IncrementalConfidence
	}
	return c
}
