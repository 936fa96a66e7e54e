package featrack

import (
	"math"
	"sort"
)

// acceptedSet is arena of accepted keypoints used by overlap suppression.
// Slots are addressed by index: replacement is an indexed write, removal is a tombstone.
// Final order of keypoints is slot order.
type acceptedSet struct {
	slots      []KeyPoint
	alive      []bool
	maxOverlap float64
	shape      SupportShape
	grid       *keypointGrid
}

func newAcceptedSet(candidates []KeyPoint, maxOverlap float64, shape SupportShape, useIndex bool) *acceptedSet {
	set := &acceptedSet{
		slots:      make([]KeyPoint, 0),
		alive:      make([]bool, 0),
		maxOverlap: maxOverlap,
		shape:      shape,
	}
	if !useIndex {
		return set
	}
	maxSize := 0.0
	for _, kp := range candidates {
		maxSize = maxFloat64(maxSize, kp.Size)
	}
	// Grid lookup relies on "overlap > maxOverlap" implying support regions intersect
	if maxSize > 0 && maxOverlap >= 0 {
		set.grid = newKeypointGrid(maxSize)
	}
	return set
}

// offer processes single candidate
func (set *acceptedSet) offer(candidate KeyPoint) {
	crossed := set.crossed(candidate)
	if len(crossed) == 0 {
		set.add(candidate)
		return
	}
	for _, idx := range crossed {
		if candidate.Response <= set.slots[idx].Response {
			return
		}
	}
	set.replace(crossed[0], candidate)
	for _, idx := range crossed[1:] {
		set.remove(idx)
	}
}

// crossed returns ascending indices of alive slots overlapping candidate by more than maxOverlap
func (set *acceptedSet) crossed(candidate KeyPoint) []int {
	var crossed []int
	if set.grid == nil {
		for idx := range set.slots {
			if set.alive[idx] && set.shape.overlap(candidate, set.slots[idx]) > set.maxOverlap {
				crossed = append(crossed, idx)
			}
		}
		return crossed
	}
	for _, idx := range set.grid.near(candidate) {
		if set.alive[idx] && set.shape.overlap(candidate, set.slots[idx]) > set.maxOverlap {
			crossed = append(crossed, idx)
		}
	}
	sort.Ints(crossed)
	return crossed
}

func (set *acceptedSet) add(kp KeyPoint) {
	set.slots = append(set.slots, kp)
	set.alive = append(set.alive, true)
	if set.grid != nil {
		set.grid.insert(len(set.slots)-1, kp)
	}
}

func (set *acceptedSet) replace(idx int, kp KeyPoint) {
	if set.grid != nil {
		set.grid.delete(idx, set.slots[idx])
		set.grid.insert(idx, kp)
	}
	set.slots[idx] = kp
}

func (set *acceptedSet) remove(idx int) {
	if set.grid != nil {
		set.grid.delete(idx, set.slots[idx])
	}
	set.alive[idx] = false
}

// keypoints returns alive keypoints in slot order
func (set *acceptedSet) keypoints() []KeyPoint {
	out := make([]KeyPoint, 0, len(set.slots))
	for idx, kp := range set.slots {
		if set.alive[idx] {
			out = append(out, kp)
		}
	}
	return out
}

type gridCell struct {
	cx int
	cy int
}

// keypointGrid is uniform grid of slot indices keyed by keypoint position
type keypointGrid struct {
	cellSize float64
	maxSize  float64
	cells    map[gridCell][]int
}

func newKeypointGrid(maxSize float64) *keypointGrid {
	return &keypointGrid{
		cellSize: maxSize,
		maxSize:  maxSize,
		cells:    make(map[gridCell][]int),
	}
}

func (g *keypointGrid) cellOf(x, y float64) gridCell {
	return gridCell{
		cx: int(math.Floor(x / g.cellSize)),
		cy: int(math.Floor(y / g.cellSize)),
	}
}

func (g *keypointGrid) insert(idx int, kp KeyPoint) {
	cell := g.cellOf(kp.X, kp.Y)
	g.cells[cell] = append(g.cells[cell], idx)
}

func (g *keypointGrid) delete(idx int, kp KeyPoint) {
	cell := g.cellOf(kp.X, kp.Y)
	indices := g.cells[cell]
	for i, v := range indices {
		if v == idx {
			indices = append(indices[:i], indices[i+1:]...)
			break
		}
	}
	if len(indices) == 0 {
		delete(g.cells, cell)
		return
	}
	g.cells[cell] = indices
}

// near returns indices of keypoints whose support regions could intersect support region of kp.
// Two regions intersect only if centers are closer than half of sizes sum on both axes
func (g *keypointGrid) near(kp KeyPoint) []int {
	reach := (kp.Size + g.maxSize) / 2.0
	span := int(math.Ceil(reach / g.cellSize))
	center := g.cellOf(kp.X, kp.Y)
	var out []int
	for cx := center.cx - span; cx <= center.cx+span; cx++ {
		for cy := center.cy - span; cy <= center.cy+span; cy++ {
			out = append(out, g.cells[gridCell{cx: cx, cy: cy}]...)
		}
	}
	return out
}
