package featrack

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// descriptorPoint is a descriptor row in Euclidean space remembering its row index
type descriptorPoint struct {
	idx int
	vec []float64
}

// Compare returns signed distance of p from the plane passing through c and perpendicular to dimension d
func (p descriptorPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(descriptorPoint)
	return p.vec[d] - q.vec[d]
}

// Dims returns number of dimensions
func (p descriptorPoint) Dims() int { return len(p.vec) }

// Distance returns squared Euclidean distance
func (p descriptorPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(descriptorPoint)
	sum := 0.0
	for i, v := range p.vec {
		diff := v - q.vec[i]
		sum += diff * diff
	}
	return sum
}

// descriptorPoints implements kdtree.Interface
type descriptorPoints []descriptorPoint

func (p descriptorPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p descriptorPoints) Len() int                              { return len(p) }
func (p descriptorPoints) Pivot(d kdtree.Dim) int                { return descriptorPlane{descriptorPoints: p, Dim: d}.Pivot() }
func (p descriptorPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// descriptorPlane implements kdtree.SortSlicer for a single dimension
type descriptorPlane struct {
	kdtree.Dim
	descriptorPoints
}

func (p descriptorPlane) Less(i, j int) bool {
	return p.descriptorPoints[i].vec[p.Dim] < p.descriptorPoints[j].vec[p.Dim]
}
func (p descriptorPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p descriptorPlane) Slice(start, end int) kdtree.SortSlicer {
	p.descriptorPoints = p.descriptorPoints[start:end]
	return p
}
func (p descriptorPlane) Swap(i, j int) {
	p.descriptorPoints[i], p.descriptorPoints[j] = p.descriptorPoints[j], p.descriptorPoints[i]
}

// kdIndex answers k nearest neighbors queries over reference descriptors
type kdIndex struct {
	tree   *kdtree.Tree
	binary bool
}

// newKDIndex builds k-d tree over reference descriptors.
// Binary descriptors are expanded to bits so squared Euclidean distance is Hamming distance
func newKDIndex(ref *Descriptors, binary bool) *kdIndex {
	points := make(descriptorPoints, ref.Len())
	for i := range points {
		points[i] = descriptorPoint{idx: i, vec: embedRow(ref, i, binary)}
	}
	return &kdIndex{
		tree:   kdtree.New(points, false),
		binary: binary,
	}
}

// knn returns up to k nearest reference rows for i-th query row, the best first.
// Distances are Hamming for binary index and Euclidean otherwise
func (index *kdIndex) knn(query *Descriptors, i int, k int) []neighbor {
	q := descriptorPoint{idx: -1, vec: embedRow(query, i, index.binary)}
	keeper := kdtree.NewNKeeper(k)
	index.tree.NearestSet(keeper, q)

	found := make(neighborHeap, 0, k)
	for _, item := range keeper.Heap {
		// NKeeper is seeded with sentinel having no point
		if item.Comparable == nil {
			continue
		}
		dist := item.Dist
		if !index.binary {
			dist = sqrtNonNegative(dist)
		}
		found.Offer(neighbor{trainIdx: item.Comparable.(descriptorPoint).idx, distance: dist}, k)
	}
	return found.Sorted()
}

func embedRow(d *Descriptors, i int, binary bool) []float64 {
	if binary {
		return d.rowBits(i, make([]float64, 0, d.Dim()*8))
	}
	return d.rowFloat64(i, make([]float64, 0, d.Dim()))
}
