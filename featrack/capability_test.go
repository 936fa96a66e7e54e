package featrack

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltinHarris(t *testing.T) {
	registry := NewRegistry()
	detector, err := registry.Detector(DetectorHarris)
	require.NoError(t, err)
	assert.IsType(t, &Harris{}, detector)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Detector(DetectorORB)
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = registry.Extractor(ExtractorFREAK)
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = registry.Detector(DetectorType(99))
	assert.ErrorIs(t, err, ErrUnknownTag)
	_, err = registry.Extractor(ExtractorType(99))
	assert.ErrorIs(t, err, ErrUnknownTag)

	calls := 0
	registry.RegisterDetector(DetectorORB, DetectorFunc(func(img *image.Gray) ([]KeyPoint, error) {
		calls++
		return []KeyPoint{NewKeyPoint(1, 2, 3, 4)}, nil
	}))
	detector, err := registry.Detector(DetectorORB)
	require.NoError(t, err)
	kps, err := detector.Detect(nil)
	require.NoError(t, err)
	assert.Len(t, kps, 1)
	assert.Equal(t, 1, calls)
}
