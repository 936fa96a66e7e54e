package featrack

import (
	"image"

	"github.com/pkg/errors"
)

// Detector finds keypoints on grayscale image
type Detector interface {
	Detect(img *image.Gray) ([]KeyPoint, error)
}

// Extractor computes descriptors for keypoints.
// Extractor may drop keypoints (e.g. too close to image border): returned keypoints are aligned
// by index with returned descriptors and must be used instead of the input ones
type Extractor interface {
	Compute(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error)
}

// DetectorFunc is an adapter to allow the use of ordinary functions as detectors
type DetectorFunc func(img *image.Gray) ([]KeyPoint, error)

// Detect calls f(img)
func (f DetectorFunc) Detect(img *image.Gray) ([]KeyPoint, error) {
	return f(img)
}

// ExtractorFunc is an adapter to allow the use of ordinary functions as extractors
type ExtractorFunc func(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error)

// Compute calls f(img, kps)
func (f ExtractorFunc) Compute(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error) {
	return f(img, kps)
}

// Registry is table of detector and extractor implementations keyed by type tag.
// Adding a variant is adding one entry.
type Registry struct {
	detectors  map[DetectorType]Detector
	extractors map[ExtractorType]Extractor
}

// NewRegistry creates registry with built-in Harris detector using default parameters
func NewRegistry() *Registry {
	registry := &Registry{
		detectors:  make(map[DetectorType]Detector),
		extractors: make(map[ExtractorType]Extractor),
	}
	harris, err := NewHarris(DefaultHarrisConfig())
	if err != nil {
		panic("default Harris parameters must be valid")
	}
	registry.RegisterDetector(DetectorHarris, harris)
	return registry
}

// RegisterDetector binds detector to type tag replacing previous binding
func (r *Registry) RegisterDetector(t DetectorType, d Detector) {
	r.detectors[t] = d
}

// RegisterExtractor binds extractor to type tag replacing previous binding
func (r *Registry) RegisterExtractor(t ExtractorType, e Extractor) {
	r.extractors[t] = e
}

// Detector returns detector bound to type tag
func (r *Registry) Detector(t DetectorType) (Detector, error) {
	if _, ok := detectorNames[t]; !ok {
		return nil, errors.Wrapf(ErrUnknownTag, "detector %d", t)
	}
	d, ok := r.detectors[t]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "detector %s", t)
	}
	return d, nil
}

// Extractor returns extractor bound to type tag
func (r *Registry) Extractor(t ExtractorType) (Extractor, error) {
	if _, ok := extractorNames[t]; !ok {
		return nil, errors.Wrapf(ErrUnknownTag, "extractor %d", t)
	}
	e, ok := r.extractors[t]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "extractor %s", t)
	}
	return e, nil
}
