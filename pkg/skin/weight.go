// Package skin blends per-vertex bone influences for skinned surfaces.
package skin

// MaxInfluences is the number of bone slots in a BoneWeight.
const MaxInfluences = 4

// BoneWeight holds up to four (bone index, weight) influences of a vertex.
type BoneWeight struct {
	Indices [MaxInfluences]int     `yaml:"bones"`
	Weights [MaxInfluences]float32 `yaml:"weights"`
}

// Get returns the bone index and weight at slot, or (-1, 0) when slot is
// out of range.
func (bw BoneWeight) Get(slot int) (bone int, weight float32) {
	if slot < 0 || slot >= MaxInfluences {
		return -1, 0
	}
	return bw.Indices[slot], bw.Weights[slot]
}

// Set returns a copy with slot replaced. Out-of-range slots are ignored.
func (bw BoneWeight) Set(slot, bone int, weight float32) BoneWeight {
	if slot < 0 || slot >= MaxInfluences {
		return bw
	}
	bw.Indices[slot] = bone
	bw.Weights[slot] = weight
	return bw
}

// Sum returns the total weight over all slots.
func (bw BoneWeight) Sum() float32 {
	return bw.Weights[0] + bw.Weights[1] + bw.Weights[2] + bw.Weights[3]
}

// Normalized returns a copy whose weights sum to one. A zero sum is returned
// unchanged.
func (bw BoneWeight) Normalized() BoneWeight {
	sum := bw.Sum()
	if sum == 0 {
		return bw
	}
	for i := range bw.Weights {
		bw.Weights[i] /= sum
	}
	return bw
}

// IsZero reports whether the weight carries no influence.
func (bw BoneWeight) IsZero() bool {
	return bw == BoneWeight{}
}
