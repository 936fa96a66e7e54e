package featrack

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Frame is a unit held in FrameBuffer.
// Frame is owned by the buffer: do not keep references to it after next Push.
type Frame struct {
	ID uuid.UUID
	// Seq is monotonically increasing number assigned by the buffer
	Seq   uint64
	Image *image.Gray
	// Keypoints in detection order
	Keypoints []KeyPoint
	// Descriptors aligned by index with Keypoints
	Descriptors *Descriptors
	// Matches against previous frame. QueryIdx refers to this frame, TrainIdx to the previous one
	Matches []Match
	Stats   FrameStats
}

// NewFrame creates empty frame for given image
func NewFrame(img *image.Gray) *Frame {
	return &Frame{
		ID:    uuid.New(),
		Image: img,
	}
}

// Match is a correspondence between two descriptors
type Match struct {
	// Index of keypoint/descriptor in the newer frame
	QueryIdx int
	// Index of keypoint/descriptor in the older (reference) frame
	TrainIdx int
	// Dissimilarity under matcher's metric
	Distance float64
}

// FrameStats holds per-stage counters and timings of a processed frame
type FrameStats struct {
	Detected     int
	AfterROI     int
	AfterBudget  int
	Described    int
	DetectTime   time.Duration
	DescribeTime time.Duration
	MatchTime    time.Duration
	Match        MatchStats
}
