package featrack

import "sort"

// ROIConfig restricts keypoints to a rectangle of interest
type ROIConfig struct {
	Enabled bool    `yaml:"enabled"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
}

// Rect returns ROI as rectangle
func (roi ROIConfig) Rect() Rectangle {
	return NewRect(roi.X, roi.Y, roi.Width, roi.Height)
}

// BudgetConfig limits number of keypoints per frame
type BudgetConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxKeypoints int  `yaml:"max_keypoints"`
	// Keep the first MaxKeypoints in detection order instead of the strongest ones.
	// Useful for detectors which already emit keypoints sorted by quality (Shi-Tomasi)
	TruncateFirst bool `yaml:"truncate_first"`
}

// KeypointFilter applies ROI filtering and then budget enforcement
type KeypointFilter struct {
	ROI    ROIConfig
	Budget BudgetConfig
}

// Apply runs enabled filters in fixed order: ROI first, budget second.
// Returned counters are numbers of keypoints after ROI and after budget stages
func (f KeypointFilter) Apply(kps []KeyPoint) ([]KeyPoint, int, int) {
	out := kps
	if f.ROI.Enabled {
		out = FilterROI(out, f.ROI.Rect())
	}
	afterROI := len(out)
	if f.Budget.Enabled {
		if f.Budget.TruncateFirst {
			out = RetainFirst(out, f.Budget.MaxKeypoints)
		} else {
			out = RetainBest(out, f.Budget.MaxKeypoints)
		}
	}
	return out, afterROI, len(out)
}

// FilterROI returns keypoints whose position lies in roi. Order of survivors is preserved
func FilterROI(kps []KeyPoint, roi Rectangle) []KeyPoint {
	out := make([]KeyPoint, 0, len(kps))
	for _, kp := range kps {
		if roi.Contains(kp.Point()) {
			out = append(out, kp)
		}
	}
	return out
}

// RetainBest returns n keypoints with the highest response.
// Ties are broken by original index, survivors keep detection order.
// If n is not less than number of keypoints the copy of input is returned
func RetainBest(kps []KeyPoint, n int) []KeyPoint {
	if n >= len(kps) {
		return cloneKeypoints(kps)
	}
	if n <= 0 {
		return []KeyPoint{}
	}
	order := make([]int, len(kps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return kps[order[i]].Response > kps[order[j]].Response
	})
	best := order[:n]
	sort.Ints(best)
	out := make([]KeyPoint, n)
	for i, idx := range best {
		out[i] = kps[idx]
	}
	return out
}

// RetainFirst returns the first n keypoints in detection order
func RetainFirst(kps []KeyPoint, n int) []KeyPoint {
	if n >= len(kps) {
		return cloneKeypoints(kps)
	}
	if n <= 0 {
		return []KeyPoint{}
	}
	return cloneKeypoints(kps[:n])
}
