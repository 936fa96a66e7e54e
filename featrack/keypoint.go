package featrack

// KeyPoint is a detected interest point.
// Angle, Octave and ClassID are passed through to extractors as is.
type KeyPoint struct {
	X float64
	Y float64
	// Diameter of the meaningful neighborhood. Descriptors use it as region of interest size
	Size float64
	// Orientation in degrees, -1 if not applicable
	Angle float64
	// Detector's strength of the point
	Response float64
	Octave   int
	ClassID  int
}

// NewKeyPoint creates keypoint with no orientation
func NewKeyPoint(x, y, size, response float64) KeyPoint {
	return KeyPoint{
		X:        x,
		Y:        y,
		Size:     size,
		Angle:    -1,
		Response: response,
		ClassID:  -1,
	}
}

// Point returns keypoint's position
func (kp KeyPoint) Point() Point {
	return NewPoint(kp.X, kp.Y)
}

// SupportRect returns square of side Size centered on the keypoint
func (kp KeyPoint) SupportRect() Rectangle {
	return Rectangle{
		X:      kp.X - kp.Size/2.0,
		Y:      kp.Y - kp.Size/2.0,
		Width:  kp.Size,
		Height: kp.Size,
	}
}

// Overlap returns intersection over union of circular support regions of two keypoints
func (kp KeyPoint) Overlap(other KeyPoint) float64 {
	return circleIoU(kp.Point(), kp.Size, other.Point(), other.Size)
}

// SupportShape is the shape of keypoint's support region used to compute overlap
type SupportShape uint16

const (
	// SupportCircle treats keypoint as a circle of diameter Size
	SupportCircle SupportShape = iota
	// SupportSquare treats keypoint as a square of side Size
	SupportSquare
)

func (shape SupportShape) String() string {
	switch shape {
	case SupportCircle:
		return "circle"
	case SupportSquare:
		return "square"
	default:
		return "unknown"
	}
}

// overlap computes support region overlap of two keypoints for given shape
func (shape SupportShape) overlap(a, b KeyPoint) float64 {
	if shape == SupportSquare {
		if a.Size <= 0 || b.Size <= 0 {
			return 0.0
		}
		return IoU(a.SupportRect(), b.SupportRect())
	}
	return a.Overlap(b)
}

func cloneKeypoints(kps []KeyPoint) []KeyPoint {
	if kps == nil {
		return nil
	}
	out := make([]KeyPoint, len(kps))
	copy(out, kps)
	return out
}
