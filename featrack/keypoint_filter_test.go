package featrack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func responses(kps []KeyPoint) []float64 {
	out := make([]float64, len(kps))
	for i, kp := range kps {
		out[i] = kp.Response
	}
	return out
}

func TestFilterROI(t *testing.T) {
	kps := []KeyPoint{
		NewKeyPoint(600, 200, 7, 1),
		NewKeyPoint(100, 100, 7, 2),
		NewKeyPoint(535, 180, 7, 3),
		NewKeyPoint(715, 250, 7, 4),
		NewKeyPoint(714.5, 329.5, 7, 5),
	}
	roi := NewRect(535, 180, 180, 150)
	filtered := FilterROI(kps, roi)
	if diff := cmp.Diff([]float64{1, 3, 5}, responses(filtered)); diff != "" {
		t.Errorf("FilterROI mismatch (-want +got):\n%s", diff)
	}
	for _, kp := range filtered {
		assert.True(t, roi.Contains(kp.Point()))
	}
}

func TestRetainBest(t *testing.T) {
	kps := []KeyPoint{
		NewKeyPoint(0, 0, 1, 5),
		NewKeyPoint(1, 0, 1, 9),
		NewKeyPoint(2, 0, 1, 1),
		NewKeyPoint(3, 0, 1, 9),
		NewKeyPoint(4, 0, 1, 7),
	}
	best := RetainBest(kps, 3)
	// Survivors keep detection order
	if diff := cmp.Diff([]float64{9, 9, 7}, responses(best)); diff != "" {
		t.Errorf("RetainBest mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1.0, best[0].X)
	assert.Equal(t, 3.0, best[1].X)

	// Ties are broken by original index
	tied := RetainBest(kps, 1)
	assert.Len(t, tied, 1)
	assert.Equal(t, 1.0, tied[0].X)

	all := RetainBest(kps, 10)
	assert.Equal(t, kps, all)
	all[0].Response = 100
	assert.Equal(t, 5.0, kps[0].Response, "input must not be modified")

	assert.Empty(t, RetainBest(kps, 0))
	assert.Empty(t, RetainBest(nil, 5))
}

func TestRetainFirst(t *testing.T) {
	kps := []KeyPoint{
		NewKeyPoint(0, 0, 1, 1),
		NewKeyPoint(1, 0, 1, 9),
		NewKeyPoint(2, 0, 1, 5),
	}
	if diff := cmp.Diff([]float64{1, 9}, responses(RetainFirst(kps, 2))); diff != "" {
		t.Errorf("RetainFirst mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, RetainFirst(kps, 5), 3)
	assert.Empty(t, RetainFirst(kps, -1))
}

func TestKeypointFilterApply(t *testing.T) {
	kps := []KeyPoint{
		NewKeyPoint(5, 5, 1, 1),
		NewKeyPoint(50, 50, 1, 8),
		NewKeyPoint(6, 6, 1, 3),
		NewKeyPoint(7, 7, 1, 2),
	}
	filter := KeypointFilter{
		ROI:    ROIConfig{Enabled: true, X: 0, Y: 0, Width: 10, Height: 10},
		Budget: BudgetConfig{Enabled: true, MaxKeypoints: 2},
	}
	out, afterROI, afterBudget := filter.Apply(kps)
	assert.Equal(t, 3, afterROI)
	assert.Equal(t, 2, afterBudget)
	// Strong keypoint outside ROI must not take budget slot
	if diff := cmp.Diff([]float64{3, 2}, responses(out)); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}

	disabled := KeypointFilter{}
	out, afterROI, afterBudget = disabled.Apply(kps)
	assert.Len(t, out, 4)
	assert.Equal(t, 4, afterROI)
	assert.Equal(t, 4, afterBudget)
}
