package optics

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Undefined is the sentinel reachability distance for points that start a
// new density-connected chain.
var Undefined = math.Inf(1)

var (
	// ErrNoPoints is returned when the feature matrix is empty.
	ErrNoPoints = errors.New("optics: no input points")
	// ErrInvalidMinPts is returned for a minPts below 1.
	ErrInvalidMinPts = errors.New("optics: minPts must be >= 1")
)

// Params configures one clustering pass.
type Params struct {
	// MinPts is the minimum neighbourhood size for a point to be a core
	// point (the sensitivity parameter of the multi-resolution sweep).
	MinPts int
	// MaxEps bounds the neighbourhood radius. Zero means unbounded, which
	// always yields a single density-connected chain.
	MaxEps float64
}

// Result is the output of one pass: Ordering[i] is the original index of the
// i-th point in cluster order and Reachability[i] its reachability distance
// at that position.
type Result struct {
	MinPts       int
	Ordering     []int
	Reachability []float64
}

// Run performs the OPTICS cluster-ordering pass over the feature matrix.
// Every row must have the same dimension. The context is checked once per
// processed point, so a cancelled batch stops within one expansion step.
func Run(ctx context.Context, features [][]float64, params Params) (*Result, error) {
	n := len(features)
	if n == 0 {
		return nil, ErrNoPoints
	}
	if params.MinPts < 1 {
		return nil, ErrInvalidMinPts
	}
	dim := len(features[0])
	for i, row := range features {
		if len(row) != dim {
			return nil, fmt.Errorf("optics: feature dim mismatch at row %d: got %d, want %d", i, len(row), dim)
		}
	}

	maxEps := params.MaxEps
	if maxEps <= 0 {
		maxEps = math.Inf(1)
	}

	res := &Result{
		MinPts:       params.MinPts,
		Ordering:     make([]int, 0, n),
		Reachability: make([]float64, 0, n),
	}

	processed := make([]bool, n)
	reach := make([]float64, n)
	for i := range reach {
		reach[i] = Undefined
	}

	for start := 0; start < n; start++ {
		if processed[start] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seeds := &seedQueue{reach: reach}
		emit := func(idx int) {
			processed[idx] = true
			res.Ordering = append(res.Ordering, idx)
			res.Reachability = append(res.Reachability, reach[idx])

			coreDist, neighbors := neighborhood(features, idx, maxEps, params.MinPts)
			if math.IsInf(coreDist, 1) {
				return // not a core point, nothing to seed
			}
			for _, nb := range neighbors {
				if processed[nb.idx] {
					continue
				}
				newReach := math.Max(coreDist, nb.dist)
				if newReach < reach[nb.idx] {
					reach[nb.idx] = newReach
					seeds.update(nb.idx)
				}
			}
		}

		emit(start)
		for seeds.Len() > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next := heap.Pop(seeds).(int)
			if processed[next] {
				continue
			}
			emit(next)
		}
	}

	return res, nil
}

type neighbor struct {
	idx  int
	dist float64
}

// neighborhood returns the core distance of point idx and its neighbours
// within maxEps, sorted by distance then index. The core distance is
// Undefined (+Inf) when fewer than minPts points (the point itself included)
// fall inside the radius.
func neighborhood(features [][]float64, idx int, maxEps float64, minPts int) (float64, []neighbor) {
	p := features[idx]
	neighbors := make([]neighbor, 0, 16)

	for j := range features {
		if j == idx {
			continue
		}
		d := euclidean(p, features[j])
		if d <= maxEps {
			neighbors = append(neighbors, neighbor{idx: j, dist: d})
		}
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].dist != neighbors[b].dist {
			return neighbors[a].dist < neighbors[b].dist
		}
		return neighbors[a].idx < neighbors[b].idx
	})

	// The point itself counts toward the minPts neighbourhood size.
	if len(neighbors)+1 < minPts {
		return Undefined, neighbors
	}
	if minPts == 1 {
		return 0, neighbors
	}
	return neighbors[minPts-2].dist, neighbors
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// seedQueue is a binary heap of point indices keyed by their current
// reachability, with the smaller index winning ties for reproducibility.
// Indices may be pushed more than once after a reachability improvement;
// stale entries are skipped by the processed check in the caller.
type seedQueue struct {
	reach []float64
	items []int
}

func (q *seedQueue) Len() int { return len(q.items) }

func (q *seedQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.reach[a] != q.reach[b] {
		return q.reach[a] < q.reach[b]
	}
	return a < b
}

func (q *seedQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *seedQueue) Push(x interface{}) { q.items = append(q.items, x.(int)) }

func (q *seedQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	x := old[n-1]
	q.items = old[:n-1]
	return x
}

func (q *seedQueue) update(idx int) { heap.Push(q, idx) }
