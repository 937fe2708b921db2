package patterns

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

// CheckInSource loads a user's embedded check-ins. checkins.Store satisfies it.
type CheckInSource interface {
	ListEmbeddedSince(ctx context.Context, userID string, since time.Time) ([]checkins.CheckIn, error)
}

// Detector finds recurring patterns in a user's recent check-ins by
// clustering them on embedding similarity.
type Detector struct {
	checkIns   CheckInSource
	index      vectordb.SimilarityIndex
	summarizer Summarizer
	cache      Cache
	clock      clockwork.Clock
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// Option customizes a Detector.
type Option func(*Detector)

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) Option {
	return func(d *Detector) { d.cache = c }
}

// WithClock injects the clock used for the detection window and the default
// cache.
func WithClock(c clockwork.Clock) Option {
	return func(d *Detector) { d.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Detector) { d.metrics = m }
}

// NewDetector creates a Detector. summarizer may be nil, in which case every
// description uses the template.
func NewDetector(source CheckInSource, index vectordb.SimilarityIndex, summarizer Summarizer, cfg Config, opts ...Option) *Detector {
	d := &Detector{
		checkIns:   source,
		index:      index,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.cache == nil {
		d.cache = NewMemoryCache(d.cfg.CacheTTL, d.clock)
	}
	d.logger = logging.OrDefault(d.logger).With("component", "patterns")
	return d
}

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect returns the user's patterns ordered by confidence times
// occurrences. It never fails: storage and index errors shrink the result.
func (d *Detector) Detect(ctx context.Context, userID string) []Pattern {
	log := logging.WithUser(d.logger, userID)

	if cached, ok := d.cache.Get(ctx, userID); ok {
		d.metrics.PatternCache(metrics.CacheHit)
		log.Debug("pattern cache hit", "patterns", len(cached))
		return cached
	}
	d.metrics.PatternCache(metrics.CacheMiss)

	start := d.clock.Now()
	since := start.Add(-time.Duration(d.cfg.WindowDays) * 24 * time.Hour)
	window, err := d.checkIns.ListEmbeddedSince(ctx, userID, since)
	if err != nil {
		log.Warn("loading check-in window failed", "error", err)
		return []Pattern{}
	}
	if len(window) < d.cfg.MinClusterSize {
		log.Debug("not enough check-ins to detect patterns", "checkins", len(window))
		return []Pattern{}
	}

	graph, ok := d.buildGraph(ctx, log, userID, window)
	if !ok {
		return []Pattern{}
	}

	byID := make(map[string]checkins.CheckIn, len(window))
	for _, c := range window {
		byID[c.ID] = c
	}

	patterns := []Pattern{}
	for _, comp := range graph.Components() {
		if len(comp) < d.cfg.MinClusterSize {
			continue
		}
		members := make([]checkins.CheckIn, len(comp))
		for i, id := range comp {
			members[i] = byID[id]
		}
		patterns = append(patterns, d.characterize(ctx, log, members))
	}
	sortPatterns(patterns)

	d.cache.Set(ctx, userID, patterns)
	d.metrics.ObserveDetect(d.clock.Since(start))
	log.Info("detected patterns", "checkins", len(window), "patterns", len(patterns))
	return patterns
}

// buildGraph issues one paced neighbour query per check-in and links pairs
// at or above the similarity threshold. A failed query leaves that node
// without its own edges. ok is false only when ctx ends mid-run.
func (d *Detector) buildGraph(ctx context.Context, log *slog.Logger, userID string, window []checkins.CheckIn) (*Graph, bool) {
	inWindow := make(map[string]bool, len(window))
	g := NewGraph()
	for _, c := range window {
		inWindow[c.ID] = true
		g.AddNode(c.ID)
	}

	limit := rate.NewLimiter(rate.Inf, 1)
	if d.cfg.NeighborInterval > 0 {
		limit = rate.NewLimiter(rate.Every(d.cfg.NeighborInterval), 1)
	}

	for _, c := range window {
		if err := limit.Wait(ctx); err != nil {
			log.Warn("pattern detection interrupted", "error", err)
			return nil, false
		}

		neighbors, err := d.index.Query(ctx, vectordb.KindCheckIn, userID, c.Embedding, d.cfg.NeighborCount)
		if err != nil {
			log.Warn("neighbour query failed, skipping check-in", "checkin_id", c.ID, "error", err)
			d.metrics.IndexFailure("query_neighbors")
			continue
		}
		for _, n := range neighbors {
			if n.ID == c.ID || !inWindow[n.ID] {
				continue
			}
			if n.Similarity >= d.cfg.SimilarityThreshold {
				g.AddEdge(c.ID, n.ID)
			}
		}
	}
	return g, true
}

func (d *Detector) characterize(ctx context.Context, log *slog.Logger, members []checkins.CheckIn) Pattern {
	ids := make([]string, len(members))
	first, last := members[0].CreatedAt, members[0].CreatedAt
	for i, m := range members {
		ids[i] = m.ID
		if m.CreatedAt.Before(first) {
			first = m.CreatedAt
		}
		if m.CreatedAt.After(last) {
			last = m.CreatedAt
		}
	}

	common := commonSymptoms(members)
	span := daySpan(first, last)

	p := Pattern{
		Type:           classify(common),
		Confidence:     confidence(len(members), len(common) > 0),
		Occurrences:    len(members),
		RelatedItemIDs: ids,
		CommonSymptoms: common,
		FirstSeen:      first,
		LastSeen:       last,
	}

	if d.summarizer != nil {
		desc, err := d.summarizer.Describe(ctx, members, common)
		if err == nil && strings.TrimSpace(desc) != "" {
			p.Description = strings.TrimSpace(desc)
			return p
		}
		log.Warn("pattern summarizer failed, using template", "error", err)
	}
	d.metrics.SummarizerFallback()
	p.Description = fallbackDescription(common, len(members), span)
	return p
}

// commonSymptoms returns symptom names reported in at least two members,
// most frequent first.
func commonSymptoms(members []checkins.CheckIn) []string {
	counts := make(map[string]int)
	for _, m := range members {
		for _, name := range m.SymptomNames() {
			counts[name]++
		}
	}

	common := []string{}
	for name, n := range counts {
		if n >= 2 {
			common = append(common, name)
		}
	}
	sort.Slice(common, func(i, j int) bool {
		if counts[common[i]] != counts[common[j]] {
			return counts[common[i]] > counts[common[j]]
		}
		return common[i] < common[j]
	})
	return common
}

func classify(common []string) Type {
	switch {
	case len(common) >= 2:
		return TypeSymptomCluster
	case len(common) == 1:
		return TypeRecurringSymptom
	default:
		return TypeTrendChange
	}
}

func confidence(occurrences int, hasCommon bool) float64 {
	c := 0.5 + float64(occurrences)*0.08
	if hasCommon {
		c += 0.15
	}
	return math.Round(math.Min(0.95, c)*100) / 100
}

func daySpan(first, last time.Time) int {
	days := int(math.Ceil(last.Sub(first).Hours() / 24))
	return max(1, days)
}

func sortPatterns(ps []Pattern) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		sa, sb := a.Confidence*float64(a.Occurrences), b.Confidence*float64(b.Occurrences)
		if sa != sb {
			return sa > sb
		}
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return a.RelatedItemIDs[0] < b.RelatedItemIDs[0]
	})
}

// Invalidate drops the cached patterns for a user.
func (d *Detector) Invalidate(ctx context.Context, userID string) {
	d.cache.Invalidate(ctx, userID)
	d.metrics.PatternCache(metrics.CacheInvalidate)
}
