// Package distribute assigns ranked values to points so that the points
// receiving the last-ranked values are spread far apart.
//
// The assignment is a reverse greedy elimination: the final L slots are
// filled by farthest-point search, every earlier slot by a uniform random
// pick. Only the search-window selections carry a spacing guarantee.
package distribute

import (
	gomath "math"
	"slices"

	"github.com/Faultbox/glint/pkg/math"
)

// Curve yields a value for a parametric position in [0, 1].
type Curve interface {
	Evaluate(t float32) float32
}

// Random is the pseudo-random stream consumed by Assign.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	IntN(n int) int
}

// Assignment pairs Values[k] with the point Indices[k].
// Indices is a permutation of [0, N) and Values is sorted ascending.
type Assignment struct {
	Indices []int
	Values  []float32
}

// Len returns the number of assigned points.
func (a Assignment) Len() int {
	return len(a.Indices)
}

// ValueOf returns the assigned value of every point, indexed by point.
func (a Assignment) ValueOf() []float32 {
	out := make([]float32, len(a.Indices))
	for k, idx := range a.Indices {
		out[idx] = a.Values[k]
	}
	return out
}

// SampleValues evaluates c at n evenly spaced positions over [0, 1] and
// returns the results sorted ascending. A single value is taken at 0.
func SampleValues(c Curve, n int) []float32 {
	if n <= 0 {
		return nil
	}

	var step float32
	if n > 1 {
		step = 1 / float32(n-1)
	}

	values := make([]float32, n)
	for i := range values {
		values[i] = c.Evaluate(float32(i) * step)
	}
	slices.Sort(values)
	return values
}

// Distribute samples len(positions) values from c and assigns them.
func Distribute(positions []math.Vec3, c Curve, limit int, random Random) Assignment {
	return Assign(positions, SampleValues(c, len(positions)), limit, random)
}

// Assign decides which point receives each of the sorted values.
//
// Points are eliminated from the back of the index list. While more than
// N-limit points remain unprocessed, the next point is the one whose minimum
// squared distance to the processed points is largest; afterwards picks are
// uniformly random. A limit of zero or less means every pick is random.
//
// values must have len(positions) entries and is not copied.
func Assign(positions []math.Vec3, values []float32, limit int, random Random) Assignment {
	n := len(positions)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if limit < 0 {
		limit = 0
	}
	processingLimit := max(n-limit, 0)

	for unprocessed := n; unprocessed > 0; unprocessed-- {
		var candidate int
		if unprocessed > processingLimit {
			candidate = farthestPoint(indices, positions, unprocessed, limit, random)
		} else {
			candidate = random.IntN(unprocessed)
		}

		if candidate < 0 {
			break
		}

		last := unprocessed - 1
		indices[candidate], indices[last] = indices[last], indices[candidate]
	}

	return Assignment{Indices: indices, Values: values}
}

// farthestPoint returns the slot in [0, unprocessed) whose point is farthest
// from the processed points, or -1 when no point is strictly farther than 0.
// With nothing processed yet the first pick is random.
func farthestPoint(indices []int, positions []math.Vec3, unprocessed, limit int, random Random) int {
	n := len(positions)
	if unprocessed <= 0 {
		return -1
	}
	if unprocessed >= n {
		return random.IntN(n)
	}

	best := -1
	var bestDistance float32

	for slot := 0; slot < unprocessed; slot++ {
		d := minDistance(indices, positions, unprocessed, limit, positions[indices[slot]])
		if d > bestDistance {
			bestDistance = d
			best = slot
		}
	}

	return best
}

// minDistance is the smallest squared distance from point to the processed
// slots. With a positive limit only the first limit processed points count.
func minDistance(indices []int, positions []math.Vec3, unprocessed, limit int, point math.Vec3) float32 {
	n := len(positions)
	from := unprocessed
	if limit > 0 {
		from = max(from, n-limit)
	}

	best := float32(gomath.Inf(1))
	for slot := from; slot < n; slot++ {
		if d := point.DistanceSq(positions[indices[slot]]); d < best {
			best = d
		}
	}
	return best
}
