package surface

import (
	"iter"
	gomath "math"

	"github.com/Faultbox/glint/pkg/math"
)

// A float32 mantissa has 23 bits, so finer random steps would be lost anyway.
const (
	randomMax   = 1 << 23
	randomScale = float32(1) / randomMax
)

// degenerateArea is the area at or below which a triangle is dropped.
const degenerateArea = gomath.SmallestNonzeroFloat32

// Random is the pseudo-random stream consumed by a Sampler.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	IntN(n int) int
}

// TriangleRecord is an accepted triangle of the sampling catalogue.
type TriangleRecord struct {
	I0, I1, I2 int
	Direction  math.Vec3 // unnormalized cross product of the two edges
	Area       float32   // length of Direction
}

// Normal returns the unit normal, or zero for a degenerate triangle.
func (t TriangleRecord) Normal() math.Vec3 {
	if t.Area <= degenerateArea {
		return math.Vec3{}
	}
	return t.Direction.Scale(1 / t.Area)
}

// SamplePoint is one drawn sample: the owning triangle and a barycentric
// coordinate inside it.
type SamplePoint struct {
	I0, I1, I2 int
	Normal     math.Vec3
	Bary       math.Vec3 // (u, v, w), u+v+w = 1
}

// Position resolves the sample against the vertex positions it was drawn from.
func (p SamplePoint) Position(positions []math.Vec3) math.Vec3 {
	return math.Barycentric(positions[p.I0], positions[p.I1], positions[p.I2], p.Bary.X, p.Bary.Y, p.Bary.Z)
}

// Sampler builds an area-weighted catalogue of triangles and draws samples
// whose density follows surface area.
//
// A Sampler owns its random stream position: two samplers built from equal
// inputs and equally seeded streams produce identical sequences.
type Sampler struct {
	positions []math.Vec3
	random    Random
	triangles []TriangleRecord
	totalArea float64
}

// NewSampler creates an empty sampler over the given vertex positions.
func NewSampler(positions []math.Vec3, random Random) *Sampler {
	return &Sampler{
		positions: positions,
		random:    random,
	}
}

// Area returns the total area of all accepted triangles, in the
// cross-product units used for weighting.
func (s *Sampler) Area() float64 {
	return s.totalArea
}

// TriangleCount returns the number of accepted triangles.
func (s *Sampler) TriangleCount() int {
	return len(s.triangles)
}

// Triangle returns the i-th accepted triangle.
func (s *Sampler) Triangle(i int) TriangleRecord {
	return s.triangles[i]
}

// Triangles iterates accepted triangles in insertion order.
func (s *Sampler) Triangles() iter.Seq[TriangleRecord] {
	return func(yield func(TriangleRecord) bool) {
		for _, t := range s.triangles {
			if !yield(t) {
				return
			}
		}
	}
}

// AddTriangle adds the triangle (i0, i1, i2) to the catalogue.
// Degenerate triangles are dropped without error.
func (s *Sampler) AddTriangle(i0, i1, i2 int) {
	v0 := s.positions[i0]
	delta1 := s.positions[i1].Sub(v0)
	delta2 := s.positions[i2].Sub(v0)
	direction := delta1.Cross(delta2)
	area := direction.Length()

	if area <= degenerateArea {
		return
	}

	s.triangles = append(s.triangles, TriangleRecord{
		I0:        i0,
		I1:        i1,
		I2:        i2,
		Direction: direction,
		Area:      area,
	})
	s.totalArea += float64(area)
}

// AddGroup adds every primitive of the surface's group at groupIndex.
// Quads (a, b, c, d) are split into (a, b, c) and (a, c, d). Trailing
// incomplete primitives and out-of-range group indices are ignored.
func (s *Sampler) AddGroup(surf Surface, groupIndex int) {
	if groupIndex < 0 || groupIndex >= len(surf.Groups) {
		return
	}

	group := surf.Groups[groupIndex]
	indices := group.Indices

	switch group.Topology {
	case Triangles:
		for start := 0; start+3 <= len(indices); start += 3 {
			s.AddTriangle(indices[start], indices[start+1], indices[start+2])
		}
	case Quads:
		for start := 0; start+4 <= len(indices); start += 4 {
			a, b, c, d := indices[start], indices[start+1], indices[start+2], indices[start+3]
			s.AddTriangle(a, b, c)
			s.AddTriangle(a, c, d)
		}
	}
}

// AddSurface adds every group for which include returns true.
// A nil include adds all groups.
func (s *Sampler) AddSurface(surf Surface, include func(groupIndex int) bool) {
	for i := range surf.Groups {
		if include != nil && !include(i) {
			continue
		}
		s.AddGroup(surf, i)
	}
}

// Sample returns a lazy sequence of exactly count samples distributed over
// the catalogue in proportion to triangle area.
//
// Triangles are visited in insertion order. Each emits
// floor(runningArea*count/totalArea) minus the running total emitted so far,
// and the last triangle closes the sequence at count.
//
// The sequence draws from the sampler's random stream as it is consumed, so
// ranging over it twice yields two different sequences.
func (s *Sampler) Sample(count int) iter.Seq[SamplePoint] {
	return func(yield func(SamplePoint) bool) {
		if count <= 0 || len(s.triangles) == 0 || s.totalArea <= 0 {
			return
		}

		areaScale := float64(count) / s.totalArea
		last := len(s.triangles) - 1
		emitted := 0
		runningArea := 0.0

		for i, tri := range s.triangles {
			runningArea += float64(tri.Area)

			target := int(runningArea * areaScale)
			if i == last || target > count {
				target = count
			}

			delta := target - emitted
			if delta <= 0 {
				continue
			}
			emitted = target

			sample := SamplePoint{
				I0:     tri.I0,
				I1:     tri.I1,
				I2:     tri.I2,
				Normal: tri.Normal(),
			}

			for ; delta > 0; delta-- {
				sample.Bary = s.RandomBarycentric()
				if !yield(sample) {
					return
				}
			}
		}
	}
}

// RandomFloat draws a value in [0, 1) with 23 bits of resolution.
func (s *Sampler) RandomFloat() float32 {
	return float32(s.random.IntN(randomMax)) * randomScale
}

// RandomBarycentric draws a uniformly distributed barycentric coordinate.
// Points falling outside the triangle half of the unit square are folded back.
func (s *Sampler) RandomBarycentric() math.Vec3 {
	u := s.RandomFloat()
	v := s.RandomFloat()

	if u+v >= 1 {
		u = 1 - u
		v = 1 - v
	}

	return math.Vec3{X: u, Y: v, Z: 1 - u - v}
}
