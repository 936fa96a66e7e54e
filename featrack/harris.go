package featrack

import (
	"image"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	// Normalized Harris responses are mapped to [0; harrisNormMax]
	harrisNormMax = 255.0
)

// HarrisConfig is set of Harris corner extractor parameters
type HarrisConfig struct {
	// Neighborhood size used to sum gradient products
	BlockSize int `yaml:"block_size"`
	// Sobel aperture: 3, 5 or 7. Keypoint size is 2*ApertureSize
	ApertureSize int `yaml:"aperture_size"`
	// Harris detector free parameter
	K float64 `yaml:"k"`
	// Minimal normalized response in [0; 255] for pixel to become a candidate
	MinResponse float64 `yaml:"min_response"`
	// Candidates overlapping accepted keypoint by more than this value are suppressed
	MaxOverlap float64 `yaml:"max_overlap"`
	// Shape of keypoint support region used for overlap
	Support SupportShape `yaml:"support"`
	// Use uniform grid to look up accepted keypoints instead of linear scan
	UseSpatialIndex bool `yaml:"spatial_index"`
}

// DefaultHarrisConfig returns parameters used by the reference pipeline
func DefaultHarrisConfig() HarrisConfig {
	return HarrisConfig{
		BlockSize:       2,
		ApertureSize:    3,
		K:               0.04,
		MinResponse:     100,
		MaxOverlap:      0.0,
		Support:         SupportCircle,
		UseSpatialIndex: true,
	}
}

// Validate checks Harris parameters
func (cfg HarrisConfig) Validate() error {
	if cfg.BlockSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "harris block size must be positive, got %d", cfg.BlockSize)
	}
	if _, ok := sobelKernels[cfg.ApertureSize]; !ok {
		return errors.Wrapf(ErrInvalidConfig, "harris aperture size must be 3, 5 or 7, got %d", cfg.ApertureSize)
	}
	if cfg.MaxOverlap < 0 || cfg.MaxOverlap >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "harris max overlap must be in [0; 1), got %f", cfg.MaxOverlap)
	}
	if cfg.MinResponse < 0 || cfg.MinResponse >= harrisNormMax {
		return errors.Wrapf(ErrInvalidConfig, "harris min response must be in [0; %.0f), got %f", harrisNormMax, cfg.MinResponse)
	}
	return nil
}

// Harris is corner detector with overlap based non-maximum suppression.
// It implements Detector interface.
type Harris struct {
	cfg HarrisConfig
}

// NewHarris creates Harris detector
func NewHarris(cfg HarrisConfig) (*Harris, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Harris{cfg: cfg}, nil
}

// Detect returns sparse set of corners. It never fails, error is always nil
func (h *Harris) Detect(img *image.Gray) ([]KeyPoint, error) {
	resp := HarrisResponse(img, h.cfg.BlockSize, h.cfg.ApertureSize, h.cfg.K)
	norm := NormalizeMinMax(resp, 0, harrisNormMax)
	rows, cols := norm.Dims()
	size := 2.0 * float64(h.cfg.ApertureSize)

	candidates := make([]KeyPoint, 0)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			response := norm.At(i, j)
			if response > h.cfg.MinResponse {
				candidates = append(candidates, NewKeyPoint(float64(j), float64(i), size, response))
			}
		}
	}
	return suppressOverlaps(candidates, h.cfg.MaxOverlap, h.cfg.Support, h.cfg.UseSpatialIndex), nil
}

// SuppressOverlaps collapses overlapping keypoints to the strongest ones.
// Candidates are offered in order. Candidate crossing (overlap > maxOverlap) some accepted keypoints
// replaces the first of them in place when its response is higher than response of every crossed one;
// other crossed keypoints are dropped. Otherwise candidate is discarded.
// Candidate crossing nothing is appended.
// No two keypoints of the result overlap by more than maxOverlap.
func SuppressOverlaps(candidates []KeyPoint, maxOverlap float64, shape SupportShape) []KeyPoint {
	return suppressOverlaps(candidates, maxOverlap, shape, true)
}

func suppressOverlaps(candidates []KeyPoint, maxOverlap float64, shape SupportShape, useIndex bool) []KeyPoint {
	accepted := newAcceptedSet(candidates, maxOverlap, shape, useIndex)
	for _, candidate := range candidates {
		accepted.offer(candidate)
	}
	return accepted.keypoints()
}

// HarrisResponse computes per-pixel corner response R = det(M) - k*trace(M)^2,
// where M is structure tensor summed over blockSize x blockSize window.
// Borders are reflected without duplicating the edge pixel.
func HarrisResponse(img *image.Gray, blockSize, apertureSize int, k float64) *mat.Dense {
	if img == nil {
		return &mat.Dense{}
	}
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	kernels, ok := sobelKernels[apertureSize]
	if !ok {
		kernels = sobelKernels[3]
	}
	blockSize = maxInt(blockSize, 1)

	src := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			src[y*cols+x] = float64(img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
		}
	}

	// Same scale as OpenCV so raw responses are comparable with cornerHarris on 8-bit images
	scale := 1.0 / (float64(int(1)<<uint(len(kernels.smooth)-1)) * float64(blockSize) * 255.0)
	dx := separableFilter(src, rows, cols, kernels.derivative, kernels.smooth)
	dy := separableFilter(src, rows, cols, kernels.smooth, kernels.derivative)
	floats.Scale(scale, dx)
	floats.Scale(scale, dy)

	xx := make([]float64, len(src))
	xy := make([]float64, len(src))
	yy := make([]float64, len(src))
	floats.MulTo(xx, dx, dx)
	floats.MulTo(xy, dx, dy)
	floats.MulTo(yy, dy, dy)

	box := make([]float64, blockSize)
	for i := range box {
		box[i] = 1
	}
	a := separableFilter(xx, rows, cols, box, box)
	b := separableFilter(xy, rows, cols, box, box)
	c := separableFilter(yy, rows, cols, box, box)

	resp := make([]float64, len(src))
	for i := range resp {
		trace := a[i] + c[i]
		resp[i] = a[i]*c[i] - b[i]*b[i] - k*trace*trace
	}
	return mat.NewDense(rows, cols, resp)
}

// NormalizeMinMax linearly maps values of m to [lo; hi]. Constant matrix maps to lo
func NormalizeMinMax(m *mat.Dense, lo, hi float64) *mat.Dense {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	minV, maxV := floats.Min(data), floats.Max(data)
	if maxV-minV <= 0 {
		for i := range data {
			data[i] = lo
		}
		return mat.NewDense(rows, cols, data)
	}
	floats.AddConst(-minV, data)
	floats.Scale((hi-lo)/(maxV-minV), data)
	floats.AddConst(lo, data)
	return mat.NewDense(rows, cols, data)
}

type sobelPair struct {
	derivative []float64
	smooth     []float64
}

var sobelKernels = map[int]sobelPair{
	3: {derivative: []float64{-1, 0, 1}, smooth: []float64{1, 2, 1}},
	5: {derivative: []float64{-1, -2, 0, 2, 1}, smooth: []float64{1, 4, 6, 4, 1}},
	7: {derivative: []float64{-1, -4, -5, 0, 5, 4, 1}, smooth: []float64{1, 6, 15, 20, 15, 6, 1}},
}

// separableFilter correlates src with kernelX along rows and kernelY along columns.
// Kernel anchor is at len/2
func separableFilter(src []float64, rows, cols int, kernelX, kernelY []float64) []float64 {
	tmp := make([]float64, len(src))
	anchorX := len(kernelX) / 2
	for y := 0; y < rows; y++ {
		row := src[y*cols : (y+1)*cols]
		for x := 0; x < cols; x++ {
			sum := 0.0
			for i, w := range kernelX {
				sum += w * row[reflect101(x+i-anchorX, cols)]
			}
			tmp[y*cols+x] = sum
		}
	}
	dst := make([]float64, len(src))
	anchorY := len(kernelY) / 2
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			sum := 0.0
			for i, w := range kernelY {
				sum += w * tmp[reflect101(y+i-anchorY, rows)*cols+x]
			}
			dst[y*cols+x] = sum
		}
	}
	return dst
}

// reflect101 maps out of range index back into [0; n) mirroring around edge pixels: gfedcb|abcdefgh|gfedcba
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// ParseSupportShape converts "circle" or "square" to support shape
func ParseSupportShape(s string) (SupportShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circle":
		return SupportCircle, nil
	case "square":
		return SupportSquare, nil
	default:
		return SupportCircle, errors.Wrapf(ErrUnknownTag, "support shape %q", s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (shape *SupportShape) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalTag(value, shape, ParseSupportShape)
}
