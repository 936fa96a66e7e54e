package featrack

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every pipeline option. It is copied into Pipeline on construction
type Config struct {
	// Keypoint detector
	Detector DetectorType `yaml:"detector"`
	// Descriptor extractor
	Extractor ExtractorType `yaml:"extractor"`
	// Descriptor matching
	Matcher MatcherConfig `yaml:"matcher"`
	// Number of frames held in ring buffer. At least 2 frames are needed for matching
	BufferCapacity int `yaml:"buffer_capacity"`
	// Region of interest filter
	ROI ROIConfig `yaml:"roi"`
	// Keypoint budget
	Budget BudgetConfig `yaml:"budget"`
	// Parameters of built-in Harris detector
	Harris HarrisConfig `yaml:"harris"`
}

// DefaultConfig returns configuration of the reference pipeline: FAST keypoints limited to
// the preceding vehicle, SIFT descriptors matched with k-d tree and ratio test.
func DefaultConfig() Config {
	return Config{
		Detector:       DetectorFAST,
		Extractor:      ExtractorSIFT,
		Matcher:        DefaultMatcherConfig(),
		BufferCapacity: 2,
		ROI: ROIConfig{
			Enabled: true,
			X:       535,
			Y:       180,
			Width:   180,
			Height:  150,
		},
		Budget: BudgetConfig{
			Enabled:      false,
			MaxKeypoints: 50,
		},
		Harris: DefaultHarrisConfig(),
	}
}

// LoadConfig decodes YAML document over DefaultConfig. Unknown fields are rejected
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "can't decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (cfg Config) Validate() error {
	if _, ok := detectorNames[cfg.Detector]; !ok {
		return errors.Wrapf(ErrUnknownTag, "detector %d", cfg.Detector)
	}
	if _, ok := extractorNames[cfg.Extractor]; !ok {
		return errors.Wrapf(ErrUnknownTag, "extractor %d", cfg.Extractor)
	}
	if err := cfg.Matcher.Validate(); err != nil {
		return errors.Wrap(err, "matcher")
	}
	if cfg.Matcher.Metric == MetricBinary && cfg.Extractor.DescriptorType() != DescriptorUint8 {
		return errors.Wrapf(ErrMetricMismatch, "%s extractor produces %s descriptors which can't be compared with %s metric",
			cfg.Extractor, cfg.Extractor.DescriptorType(), MetricBinary)
	}
	if cfg.BufferCapacity < 1 {
		return errors.Wrapf(ErrInvalidConfig, "buffer capacity must be positive, got %d", cfg.BufferCapacity)
	}
	if cfg.ROI.Enabled && (cfg.ROI.Width <= 0 || cfg.ROI.Height <= 0) {
		return errors.Wrapf(ErrInvalidConfig, "roi must have positive size, got %fx%f", cfg.ROI.Width, cfg.ROI.Height)
	}
	if cfg.Budget.Enabled && cfg.Budget.MaxKeypoints < 0 {
		return errors.Wrapf(ErrInvalidConfig, "keypoint budget must not be negative, got %d", cfg.Budget.MaxKeypoints)
	}
	if cfg.Detector == DetectorHarris {
		if err := cfg.Harris.Validate(); err != nil {
			return err
		}
	}
	return nil
}
