// Package cvfeatures binds OpenCV detectors and descriptor extractors (via gocv) to featrack registry.
//
// OpenCV algorithm objects hold C memory and are not safe for concurrent use, so every call
// creates its own instance and closes it before returning.
package cvfeatures

import (
	"image"
	"math"

	"github.com/LdDl/featrack-go/featrack"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// cvDetector is common part of gocv feature detectors
type cvDetector interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// cvComputer is common part of gocv descriptor extractors
type cvComputer interface {
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// Register binds every detector and extractor OpenCV provides in its main modules.
// MSER has no descriptor and FREAK lives in contrib modules: they stay unbound so pipeline fails fast on them.
func Register(registry *featrack.Registry) {
	registry.RegisterDetector(featrack.DetectorShiTomasi, NewShiTomasi(DefaultShiTomasiConfig()))
	registry.RegisterDetector(featrack.DetectorFAST, newDetector(func() cvDetector {
		d := gocv.NewFastFeatureDetector()
		return &d
	}))
	registry.RegisterDetector(featrack.DetectorBRISK, newDetector(func() cvDetector {
		d := gocv.NewBRISK()
		return &d
	}))
	registry.RegisterDetector(featrack.DetectorORB, newDetector(func() cvDetector {
		d := gocv.NewORB()
		return &d
	}))
	registry.RegisterDetector(featrack.DetectorAKAZE, newDetector(func() cvDetector {
		d := gocv.NewAKAZE()
		return &d
	}))
	registry.RegisterDetector(featrack.DetectorSIFT, newDetector(func() cvDetector {
		d := gocv.NewSIFT()
		return &d
	}))

	// BRISK defaults are threshold 30, 3 octaves and pattern scale 1.0
	registry.RegisterExtractor(featrack.ExtractorBRISK, newExtractor(featrack.ExtractorBRISK, func() cvComputer {
		e := gocv.NewBRISK()
		return &e
	}))
	registry.RegisterExtractor(featrack.ExtractorAKAZE, newExtractor(featrack.ExtractorAKAZE, func() cvComputer {
		e := gocv.NewAKAZE()
		return &e
	}))
	registry.RegisterExtractor(featrack.ExtractorKAZE, newExtractor(featrack.ExtractorKAZE, func() cvComputer {
		e := gocv.NewKAZE()
		return &e
	}))
	registry.RegisterExtractor(featrack.ExtractorORB, newExtractor(featrack.ExtractorORB, func() cvComputer {
		e := gocv.NewORB()
		return &e
	}))
	registry.RegisterExtractor(featrack.ExtractorSIFT, newExtractor(featrack.ExtractorSIFT, func() cvComputer {
		e := gocv.NewSIFT()
		return &e
	}))
}

// Detector runs gocv feature detector. It implements featrack.Detector interface.
type Detector struct {
	create func() cvDetector
}

func newDetector(create func() cvDetector) *Detector {
	return &Detector{create: create}
}

// Detect returns keypoints found by OpenCV
func (d *Detector) Detect(img *image.Gray) ([]featrack.KeyPoint, error) {
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, errors.Wrap(err, "can't convert image to mat")
	}
	defer src.Close()

	detector := d.create()
	defer detector.Close()
	return fromCVKeypoints(detector.Detect(src)), nil
}

// Extractor runs gocv descriptor extractor. It implements featrack.Extractor interface.
type Extractor struct {
	kind   featrack.ExtractorType
	create func() cvComputer
}

func newExtractor(kind featrack.ExtractorType, create func() cvComputer) *Extractor {
	return &Extractor{kind: kind, create: create}
}

// Compute returns keypoints kept by OpenCV and descriptors aligned with them
func (e *Extractor) Compute(img *image.Gray, kps []featrack.KeyPoint) ([]featrack.KeyPoint, *featrack.Descriptors, error) {
	if len(kps) == 0 {
		return []featrack.KeyPoint{}, emptyDescriptors(e.kind.DescriptorType()), nil
	}
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't convert image to mat")
	}
	defer src.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	extractor := e.create()
	defer extractor.Close()
	computed, desc := extractor.Compute(src, mask, toCVKeypoints(kps))
	defer desc.Close()

	descriptors, err := fromCVDescriptors(desc, e.kind.DescriptorType())
	if err != nil {
		return nil, nil, errors.Wrapf(err, "can't read %s descriptors", e.kind)
	}
	return fromCVKeypoints(computed), descriptors, nil
}

// ShiTomasiConfig is set of good features to track parameters
type ShiTomasiConfig struct {
	BlockSize    int
	MaxOverlap   float64
	QualityLevel float64
}

// DefaultShiTomasiConfig returns parameters used by the reference pipeline
func DefaultShiTomasiConfig() ShiTomasiConfig {
	return ShiTomasiConfig{
		BlockSize:    4,
		MaxOverlap:   0.0,
		QualityLevel: 0.01,
	}
}

// ShiTomasi is good features to track detector. It implements featrack.Detector interface.
// Keypoints come sorted by corner quality
type ShiTomasi struct {
	cfg ShiTomasiConfig
}

// NewShiTomasi creates Shi-Tomasi detector
func NewShiTomasi(cfg ShiTomasiConfig) *ShiTomasi {
	return &ShiTomasi{cfg: cfg}
}

// Detect returns corners as keypoints of size BlockSize
func (st *ShiTomasi) Detect(img *image.Gray) ([]featrack.KeyPoint, error) {
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, errors.Wrap(err, "can't convert image to mat")
	}
	defer src.Close()

	minDistance := (1.0 - st.cfg.MaxOverlap) * float64(st.cfg.BlockSize)
	maxCorners := int(float64(src.Rows()*src.Cols()) / math.Max(1.0, minDistance))

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(src, &corners, maxCorners, st.cfg.QualityLevel, minDistance)

	kps := make([]featrack.KeyPoint, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		pt := corners.GetVecfAt(i, 0)
		kps = append(kps, featrack.NewKeyPoint(float64(pt[0]), float64(pt[1]), float64(st.cfg.BlockSize), 0))
	}
	return kps, nil
}

func toCVKeypoints(kps []featrack.KeyPoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
			ClassID:  kp.ClassID,
		}
	}
	return out
}

func fromCVKeypoints(kps []gocv.KeyPoint) []featrack.KeyPoint {
	out := make([]featrack.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = featrack.KeyPoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
			ClassID:  kp.ClassID,
		}
	}
	return out
}

// fromCVDescriptors copies descriptors out of C memory
func fromCVDescriptors(desc gocv.Mat, expected featrack.DescriptorType) (*featrack.Descriptors, error) {
	if desc.Empty() {
		return emptyDescriptors(expected), nil
	}
	rows, cols := desc.Rows(), desc.Cols()
	switch desc.Type() {
	case gocv.MatTypeCV8U:
		return featrack.NewDescriptorsFromBytes(desc.ToBytes(), rows, cols)
	case gocv.MatTypeCV32F:
		data, err := desc.DataPtrFloat32()
		if err != nil {
			return nil, err
		}
		owned := make([]float32, len(data))
		copy(owned, data)
		return featrack.NewDescriptorsFromFloats(owned, rows, cols)
	default:
		return nil, errors.Errorf("unsupported descriptor mat type %v", desc.Type())
	}
}

func emptyDescriptors(dtype featrack.DescriptorType) *featrack.Descriptors {
	if dtype == featrack.DescriptorFloat32 {
		d, _ := featrack.NewFloatDescriptors(nil)
		return d
	}
	d, _ := featrack.NewBinaryDescriptors(nil)
	return d
}
