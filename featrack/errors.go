package featrack

import "github.com/pkg/errors"

var (
	// ErrUnknownTag is returned when configuration tag does not name any known variant
	ErrUnknownTag = errors.New("unknown tag")
	// ErrNotRegistered is returned when registry has no implementation for requested variant
	ErrNotRegistered = errors.New("capability is not registered")
	// ErrInvalidConfig is returned for out of range configuration values
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrShapeMismatch is returned when descriptors are not aligned with keypoints
	ErrShapeMismatch = errors.New("descriptors are not aligned with keypoints")
	// ErrDimensionMismatch is returned when descriptors of two frames have different length
	ErrDimensionMismatch = errors.New("descriptor dimensionality mismatch")
	// ErrMetricMismatch is returned when descriptor numeric type does not suit metric family
	ErrMetricMismatch = errors.New("descriptor type does not match metric family")
)
