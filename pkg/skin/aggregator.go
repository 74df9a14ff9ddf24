package skin

import (
	"sort"

	"github.com/Faultbox/glint/pkg/math"
)

// normEpsilon is the smallest total weight that still counts as an influence.
const normEpsilon = 1e-6

type influence struct {
	bone   int
	weight float32
}

// Aggregator accumulates bone influences from several vertices and reduces
// them to a single four-slot BoneWeight.
//
// The scratch buffer is reused across blends; call Clear before each one.
// An Aggregator must not be shared between goroutines.
type Aggregator struct {
	data []influence
}

// NewAggregator returns an empty aggregator sized for a triangle's worth of
// influences.
func NewAggregator() *Aggregator {
	return &Aggregator{data: make([]influence, 0, 3*MaxInfluences)}
}

// Clear drops all accumulated influences.
func (a *Aggregator) Clear() {
	a.data = a.data[:0]
}

// Len returns the number of distinct bones accumulated so far.
func (a *Aggregator) Len() int {
	return len(a.data)
}

// Add accumulates every slot of bw with a non-negative bone index and a
// positive weight, scaled by factor.
func (a *Aggregator) Add(bw BoneWeight, factor float32) {
	for slot := 0; slot < MaxInfluences; slot++ {
		bone, weight := bw.Get(slot)
		if bone >= 0 && weight > 0 {
			a.AddBone(bone, weight*factor)
		}
	}
}

// AddBone adds weight to bone, merging with an earlier entry for the same bone.
func (a *Aggregator) AddBone(bone int, weight float32) {
	for i := range a.data {
		if a.data[i].bone == bone {
			a.data[i].weight += weight
			return
		}
	}
	a.data = append(a.data, influence{bone: bone, weight: weight})
}

// Get reduces the accumulated influences to the four strongest, normalized to
// sum to one. When the retained weights sum to 1e-6 or less it returns the
// zero BoneWeight and false.
func (a *Aggregator) Get() (BoneWeight, bool) {
	sort.SliceStable(a.data, func(i, j int) bool {
		return a.data[i].weight > a.data[j].weight
	})

	count := min(len(a.data), MaxInfluences)
	var norm float32

	for i := 0; i < count; i++ {
		if a.data[i].weight <= 0 {
			a.data[i].weight = 0
		} else {
			norm += a.data[i].weight
		}
	}

	if norm <= normEpsilon {
		return BoneWeight{}, false
	}

	norm = 1 / norm

	var bw BoneWeight
	for i := 0; i < count; i++ {
		bw = bw.Set(i, a.data[i].bone, a.data[i].weight*norm)
	}
	return bw, true
}

// Blend clears the aggregator and mixes the weights of triangle corners
// (i0, i1, i2) by the barycentric coordinate bary. Empty weights yield the
// zero BoneWeight.
func (a *Aggregator) Blend(weights []BoneWeight, i0, i1, i2 int, bary math.Vec3) BoneWeight {
	if len(weights) == 0 {
		return BoneWeight{}
	}

	a.Clear()
	a.Add(weights[i0], bary.X)
	a.Add(weights[i1], bary.Y)
	a.Add(weights[i2], bary.Z)

	bw, _ := a.Get()
	return bw
}
