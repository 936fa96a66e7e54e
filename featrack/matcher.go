package featrack

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultRatioThreshold is Lowe's ratio used by RATIO_TEST selection
	DefaultRatioThreshold = 0.8
)

// MatcherConfig configures descriptor matching
type MatcherConfig struct {
	Metric    MetricFamily    `yaml:"metric"`
	Strategy  MatchStrategy   `yaml:"strategy"`
	Selection SelectionPolicy `yaml:"selection"`
	// Best candidate is accepted by RATIO_TEST only if d1 < RatioThreshold*d2
	RatioThreshold float64 `yaml:"ratio_threshold"`
	// Keep only mutual nearest neighbors. Applies to NEAREST selection
	CrossCheck bool `yaml:"cross_check"`
}

// DefaultMatcherConfig returns matcher settings of the reference pipeline
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Metric:         MetricFloating,
		Strategy:       StrategyApproximate,
		Selection:      SelectionRatioTest,
		RatioThreshold: DefaultRatioThreshold,
	}
}

// Validate checks matcher settings
func (cfg MatcherConfig) Validate() error {
	if _, ok := metricNames[cfg.Metric]; !ok {
		return errors.Wrapf(ErrUnknownTag, "metric family %d", cfg.Metric)
	}
	if _, ok := strategyNames[cfg.Strategy]; !ok {
		return errors.Wrapf(ErrUnknownTag, "match strategy %d", cfg.Strategy)
	}
	if _, ok := selectionNames[cfg.Selection]; !ok {
		return errors.Wrapf(ErrUnknownTag, "selection policy %d", cfg.Selection)
	}
	if cfg.Selection == SelectionRatioTest && !(cfg.RatioThreshold > 0 && cfg.RatioThreshold <= 1) {
		return errors.Wrapf(ErrInvalidConfig, "ratio threshold must be in (0; 1], got %f", cfg.RatioThreshold)
	}
	if cfg.CrossCheck && cfg.Selection != SelectionNearest {
		return errors.Wrapf(ErrInvalidConfig, "cross check requires %s selection, got %s", SelectionNearest, cfg.Selection)
	}
	return nil
}

// MatchStats describes single matching run
type MatchStats struct {
	// Number of query descriptors
	Queries int
	// Number of emitted matches
	Emitted int
	// Share of queries without match, percent
	RejectedPercent float64
}

// Matcher finds correspondences between descriptors of two frames
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher creates matcher
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{cfg: cfg}, nil
}

// MatchDescriptors matches current frame descriptors against reference frame descriptors using default ratio threshold
func MatchDescriptors(refKps, curKps []KeyPoint, refDesc, curDesc *Descriptors, metric MetricFamily, strategy MatchStrategy, selection SelectionPolicy) ([]Match, error) {
	matcher, err := NewMatcher(MatcherConfig{
		Metric:         metric,
		Strategy:       strategy,
		Selection:      selection,
		RatioThreshold: DefaultRatioThreshold,
	})
	if err != nil {
		return nil, err
	}
	matches, _, err := matcher.Match(refKps, curKps, refDesc, curDesc)
	return matches, err
}

// Match returns matches ordered by query index. Query side is current (newer) frame, train side is reference frame
func (m *Matcher) Match(refKps, curKps []KeyPoint, refDesc, curDesc *Descriptors) ([]Match, MatchStats, error) {
	stats := MatchStats{Queries: curDesc.Len()}
	if refDesc.Len() != len(refKps) {
		return nil, stats, errors.Wrapf(ErrShapeMismatch, "reference frame has %d keypoints and %d descriptors", len(refKps), refDesc.Len())
	}
	if curDesc.Len() != len(curKps) {
		return nil, stats, errors.Wrapf(ErrShapeMismatch, "current frame has %d keypoints and %d descriptors", len(curKps), curDesc.Len())
	}
	if refDesc.Len() == 0 || curDesc.Len() == 0 {
		if stats.Queries > 0 {
			stats.RejectedPercent = 100.0
		}
		return []Match{}, stats, nil
	}
	if refDesc.Dim() != curDesc.Dim() {
		return nil, stats, errors.Wrapf(ErrDimensionMismatch, "reference descriptors have %d elements, current ones have %d", refDesc.Dim(), curDesc.Dim())
	}
	if refDesc.Dim() == 0 {
		return nil, stats, errors.Wrap(ErrDimensionMismatch, "descriptors have no elements")
	}

	ref, cur, err := m.prepare(refDesc, curDesc)
	if err != nil {
		return nil, stats, err
	}

	var matches []Match
	switch m.cfg.Selection {
	case SelectionNearest:
		matches = m.selectNearest(ref, cur)
	case SelectionRatioTest:
		matches = m.selectRatioTest(ref, cur)
	case SelectionAssignment:
		matches = m.selectAssignment(ref, cur)
	default:
		return nil, stats, errors.Wrapf(ErrUnknownTag, "selection policy %d", m.cfg.Selection)
	}
	stats.Emitted = len(matches)
	stats.RejectedPercent = float64(stats.Queries-stats.Emitted) / float64(stats.Queries) * 100.0
	return matches, stats, nil
}

// prepare brings descriptors to numeric type required by metric family
func (m *Matcher) prepare(refDesc, curDesc *Descriptors) (*Descriptors, *Descriptors, error) {
	if m.cfg.Metric == MetricBinary {
		if refDesc.Type() != DescriptorUint8 || curDesc.Type() != DescriptorUint8 {
			return nil, nil, errors.Wrapf(ErrMetricMismatch, "%s metric requires %s descriptors, got %s and %s",
				MetricBinary, DescriptorUint8, refDesc.Type(), curDesc.Type())
		}
		return refDesc, curDesc, nil
	}
	return refDesc.AsFloat32(), curDesc.AsFloat32(), nil
}

// searcher returns k nearest neighbors of i-th row of queries among rows of train
type searcher func(i int, k int) []neighbor

func (m *Matcher) newSearcher(train, queries *Descriptors) searcher {
	binary := m.cfg.Metric == MetricBinary
	if m.cfg.Strategy == StrategyApproximate {
		index := newKDIndex(train, binary)
		return func(i int, k int) []neighbor {
			return index.knn(queries, i, k)
		}
	}
	distance := m.distanceFunc(train, queries)
	return func(i int, k int) []neighbor {
		kept := make(neighborHeap, 0, k)
		for j := 0; j < train.Len(); j++ {
			kept.Offer(neighbor{trainIdx: j, distance: distance(i, j)}, k)
		}
		return kept.Sorted()
	}
}

// distanceFunc returns distance between i-th query row and j-th train row
func (m *Matcher) distanceFunc(train, queries *Descriptors) func(i, j int) float64 {
	if m.cfg.Metric == MetricBinary {
		return func(i, j int) float64 {
			return hammingDistance(queries.Row8(i), train.Row8(j))
		}
	}
	return func(i, j int) float64 {
		return l2Distance(queries.Row32(i), train.Row32(j))
	}
}

func (m *Matcher) selectNearest(ref, cur *Descriptors) []Match {
	search := m.newSearcher(ref, cur)
	matches := make([]Match, 0, cur.Len())
	for i := 0; i < cur.Len(); i++ {
		best := search(i, 1)
		if len(best) == 0 {
			continue
		}
		matches = append(matches, Match{QueryIdx: i, TrainIdx: best[0].trainIdx, Distance: best[0].distance})
	}
	if !m.cfg.CrossCheck {
		return matches
	}
	reverse := m.newSearcher(cur, ref)
	backward := make(map[int]int, ref.Len())
	mutual := make([]Match, 0, len(matches))
	for _, match := range matches {
		queryIdx, ok := backward[match.TrainIdx]
		if !ok {
			best := reverse(match.TrainIdx, 1)
			if len(best) == 0 {
				continue
			}
			queryIdx = best[0].trainIdx
			backward[match.TrainIdx] = queryIdx
		}
		if queryIdx == match.QueryIdx {
			mutual = append(mutual, match)
		}
	}
	return mutual
}

func (m *Matcher) selectRatioTest(ref, cur *Descriptors) []Match {
	search := m.newSearcher(ref, cur)
	matches := make([]Match, 0, cur.Len())
	for i := 0; i < cur.Len(); i++ {
		best := search(i, 2)
		if len(best) < 2 {
			continue
		}
		if best[0].distance < m.cfg.RatioThreshold*best[1].distance {
			matches = append(matches, Match{QueryIdx: i, TrainIdx: best[0].trainIdx, Distance: best[0].distance})
		}
	}
	return matches
}

func sqrtNonNegative(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
