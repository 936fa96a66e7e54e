package featrack

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DetectorType is for keypoint detector variant
type DetectorType uint16

const (
	// DetectorShiTomasi is good features to track detector
	DetectorShiTomasi DetectorType = iota
	// DetectorHarris is built-in Harris corner extractor
	DetectorHarris
	DetectorFAST
	DetectorBRISK
	DetectorORB
	DetectorAKAZE
	DetectorSIFT
)

var detectorNames = map[DetectorType]string{
	DetectorShiTomasi: "SHI_TOMASI",
	DetectorHarris:    "HARRIS",
	DetectorFAST:      "FAST",
	DetectorBRISK:     "BRISK",
	DetectorORB:       "ORB",
	DetectorAKAZE:     "AKAZE",
	DetectorSIFT:      "SIFT",
}

var detectorAliases = map[string]DetectorType{
	"SHITOMASI": DetectorShiTomasi,
}

func (t DetectorType) String() string {
	return tagName(detectorNames, t)
}

// ParseDetectorType converts tag (case insensitive) to detector type
func ParseDetectorType(s string) (DetectorType, error) {
	t, err := parseTag(detectorNames, detectorAliases, s)
	return t, errors.Wrap(err, "detector")
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *DetectorType) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, t, ParseDetectorType)
}

// ExtractorType is for descriptor extractor variant
type ExtractorType uint16

const (
	ExtractorBRISK ExtractorType = iota
	ExtractorAKAZE
	ExtractorKAZE
	ExtractorMSER
	ExtractorORB
	ExtractorSIFT
	ExtractorFREAK
)

var extractorNames = map[ExtractorType]string{
	ExtractorBRISK: "BRISK",
	ExtractorAKAZE: "AKAZE",
	ExtractorKAZE:  "KAZE",
	ExtractorMSER:  "MSER",
	ExtractorORB:   "ORB",
	ExtractorSIFT:  "SIFT",
	ExtractorFREAK: "FREAK",
}

func (t ExtractorType) String() string {
	return tagName(extractorNames, t)
}

// DescriptorType returns numeric type of descriptors produced by extractor
func (t ExtractorType) DescriptorType() DescriptorType {
	switch t {
	case ExtractorSIFT, ExtractorKAZE:
		return DescriptorFloat32
	default:
		return DescriptorUint8
	}
}

// ParseExtractorType converts tag (case insensitive) to extractor type
func ParseExtractorType(s string) (ExtractorType, error) {
	t, err := parseTag(extractorNames, nil, s)
	return t, errors.Wrap(err, "extractor")
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *ExtractorType) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, t, ParseExtractorType)
}

// MetricFamily determines how descriptors of two frames are compared
type MetricFamily uint16

const (
	// MetricBinary is Hamming distance over byte-packed descriptors
	MetricBinary MetricFamily = iota
	// MetricFloating is Euclidean distance over float descriptors
	MetricFloating
)

var metricNames = map[MetricFamily]string{
	MetricBinary:   "BINARY",
	MetricFloating: "FLOATING",
}

var metricAliases = map[string]MetricFamily{
	"DES_BINARY": MetricBinary,
	"DES_HOG":    MetricFloating,
}

func (m MetricFamily) String() string {
	return tagName(metricNames, m)
}

// ParseMetricFamily converts tag (case insensitive) to metric family
func ParseMetricFamily(s string) (MetricFamily, error) {
	m, err := parseTag(metricNames, metricAliases, s)
	return m, errors.Wrap(err, "metric family")
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *MetricFamily) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, m, ParseMetricFamily)
}

// MatchStrategy is for nearest neighbor search algorithm
type MatchStrategy uint16

const (
	// StrategyExhaustive compares every query with every reference descriptor
	StrategyExhaustive MatchStrategy = iota
	// StrategyApproximate uses k-d tree index over reference descriptors
	StrategyApproximate
)

var strategyNames = map[MatchStrategy]string{
	StrategyExhaustive:  "EXHAUSTIVE",
	StrategyApproximate: "APPROXIMATE",
}

var strategyAliases = map[string]MatchStrategy{
	"MAT_BF":    StrategyExhaustive,
	"MAT_FLANN": StrategyApproximate,
}

func (s MatchStrategy) String() string {
	return tagName(strategyNames, s)
}

// ParseMatchStrategy converts tag (case insensitive) to match strategy
func ParseMatchStrategy(s string) (MatchStrategy, error) {
	v, err := parseTag(strategyNames, strategyAliases, s)
	return v, errors.Wrap(err, "match strategy")
}

// UnmarshalYAML implements yaml.Unmarshaler
func (s *MatchStrategy) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, s, ParseMatchStrategy)
}

// SelectionPolicy chooses how many candidates per query become matches
type SelectionPolicy uint16

const (
	// SelectionNearest emits single closest reference for every query
	SelectionNearest SelectionPolicy = iota
	// SelectionRatioTest emits closest reference only when it is clearly better than the second one
	SelectionRatioTest
	// SelectionAssignment emits one-to-one matches minimizing total distance
	SelectionAssignment
)

var selectionNames = map[SelectionPolicy]string{
	SelectionNearest:    "NEAREST",
	SelectionRatioTest:  "RATIO_TEST",
	SelectionAssignment: "ASSIGNMENT",
}

var selectionAliases = map[string]SelectionPolicy{
	"SEL_NN":  SelectionNearest,
	"SEL_KNN": SelectionRatioTest,
}

func (s SelectionPolicy) String() string {
	return tagName(selectionNames, s)
}

// ParseSelectionPolicy converts tag (case insensitive) to selection policy
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	v, err := parseTag(selectionNames, selectionAliases, s)
	return v, errors.Wrap(err, "selection policy")
}

// UnmarshalYAML implements yaml.Unmarshaler
func (s *SelectionPolicy) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, s, ParseSelectionPolicy)
}

func tagName[T comparable](names map[T]string, t T) string {
	if name, ok := names[t]; ok {
		return name
	}
	return "UNKNOWN"
}

func parseTag[T comparable](names map[T]string, aliases map[string]T, s string) (T, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range names {
		if name == key {
			return t, nil
		}
	}
	if t, ok := aliases[key]; ok {
		return t, nil
	}
	var zero T
	return zero, errors.Wrapf(ErrUnknownTag, "%q", s)
}

func unmarshalTag[T any](value *yaml.Node, dst *T, parse func(string) (T, error)) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	t, err := parse(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*dst = t
	return nil
}
