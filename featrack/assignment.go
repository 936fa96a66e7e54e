package featrack

import (
	"math"
	"sort"

	hungarian "github.com/arthurkushman/go-hungarian"
)

// selectAssignment finds one-to-one matches minimizing total distance (Kuhn-Munkres).
// Distances are turned into similarities so the solver maximizes.
// Rectangular problem is padded to square with zero similarity which is lower than any real pair.
// Solver output is treated as an initial guess: it is turned into a permutation and then
// improved until no exchange of columns along a cycle lowers the total distance.
func (m *Matcher) selectAssignment(ref, cur *Descriptors) []Match {
	numQueries := cur.Len()
	numTrain := ref.Len()
	distance := m.distanceFunc(ref, cur)

	paddedSize := maxInt(numQueries, numTrain)
	cost := make([][]float64, paddedSize)
	maxDistance := 0.0
	for i := 0; i < paddedSize; i++ {
		cost[i] = make([]float64, paddedSize)
		if i >= numQueries {
			continue
		}
		for j := 0; j < numTrain; j++ {
			cost[i][j] = distance(i, j)
			maxDistance = maxFloat64(maxDistance, cost[i][j])
		}
	}

	similarity := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		similarity[i] = make([]float64, paddedSize)
		if i >= numQueries {
			continue
		}
		for j := 0; j < numTrain; j++ {
			similarity[i][j] = maxDistance - cost[i][j] + 1.0
		}
	}

	assignment := permutationFromSolution(hungarian.SolveMax(similarity), paddedSize)
	improveAssignment(cost, assignment)

	matches := make([]Match, 0, minInt(numQueries, numTrain))
	for queryIdx := 0; queryIdx < numQueries; queryIdx++ {
		trainIdx := assignment[queryIdx]
		if trainIdx < numTrain {
			matches = append(matches, Match{QueryIdx: queryIdx, TrainIdx: trainIdx, Distance: cost[queryIdx][trainIdx]})
		}
	}
	return matches
}

// permutationFromSolution converts solver output (row -> column -> value) into row -> column permutation of size n.
// Rows and columns out of range and columns already taken are ignored.
// Rows left without column receive free columns in ascending order
func permutationFromSolution(solution map[int]map[int]float64, n int) []int {
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	used := make([]bool, n)

	rows := make([]int, 0, len(solution))
	for row := range solution {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	for _, row := range rows {
		if row < 0 || row >= n {
			continue
		}
		cols := make([]int, 0, len(solution[row]))
		for col := range solution[row] {
			cols = append(cols, col)
		}
		sort.Ints(cols)
		for _, col := range cols {
			if col >= 0 && col < n && !used[col] {
				assignment[row] = col
				used[col] = true
				break
			}
		}
	}

	free := 0
	for row := range assignment {
		if assignment[row] >= 0 {
			continue
		}
		for used[free] {
			free++
		}
		assignment[row] = free
		used[free] = true
	}
	return assignment
}

// improveAssignment cancels negative cycles until the permutation has minimal total cost.
// Edge i -> j means "row i takes column of row j" and weighs cost[i][assignment[j]] - cost[i][assignment[i]].
// Any other permutation differs from the current one by disjoint cycles of such edges,
// so the permutation is optimal exactly when there is no negative cycle.
func improveAssignment(cost [][]float64, assignment []int) {
	n := len(assignment)
	if n < 2 {
		return
	}
	scale := 1.0
	for _, row := range cost {
		for _, v := range row {
			scale = maxFloat64(scale, math.Abs(v))
		}
	}
	tolerance := 1e-9 * scale

	dist := make([]float64, n)
	pred := make([]int, n)
	for {
		cycle := negativeCycle(cost, assignment, dist, pred, tolerance)
		if len(cycle) == 0 {
			return
		}
		weight := 0.0
		for _, u := range cycle {
			from := pred[u]
			weight += cost[from][assignment[u]] - cost[from][assignment[from]]
		}
		if weight >= -tolerance {
			return
		}
		cols := make([]int, len(cycle))
		for i, u := range cycle {
			cols[i] = assignment[u]
		}
		for i, u := range cycle {
			assignment[pred[u]] = cols[i]
		}
	}
}

// negativeCycle runs Bellman-Ford from virtual source connected to every row and returns
// rows of a negative cycle, or nil if there is none. pred describes cycle edges: pred[u] -> u
func negativeCycle(cost [][]float64, assignment []int, dist []float64, pred []int, tolerance float64) []int {
	n := len(assignment)
	for i := range dist {
		dist[i] = 0
		pred[i] = -1
	}
	last := -1
	for round := 0; round < n; round++ {
		last = -1
		for i := 0; i < n; i++ {
			base := cost[i][assignment[i]]
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				w := cost[i][assignment[j]] - base
				if dist[i]+w < dist[j]-tolerance {
					dist[j] = dist[i] + w
					pred[j] = i
					last = j
				}
			}
		}
		if last < 0 {
			return nil
		}
	}

	// Node relaxed in the n-th round leads back to a cycle within n steps
	v := last
	for k := 0; k < n; k++ {
		if v < 0 {
			return nil
		}
		v = pred[v]
	}
	if v < 0 {
		return nil
	}
	cycle := []int{v}
	for u := pred[v]; u != v; u = pred[u] {
		if u < 0 || len(cycle) > n {
			return nil
		}
		cycle = append(cycle, u)
	}
	return cycle
}
