// Package sparkles turns a source surface into a cloud of camera-facing
// quads ("sparkles") with farthest-point distributed sizes and animated
// intensity.
package sparkles

import (
	"github.com/Faultbox/glint/pkg/curve"
	"github.com/Faultbox/glint/pkg/math"
)

// VolumeMask is a sphere inside which samples are discarded.
type VolumeMask struct {
	Center math.Vec3
	Radius float32
}

// Settings controls sparkle generation and animation.
type Settings struct {
	SampleCount int
	Seed        int64
	SearchLimit int // farthest-point window; 0 assigns sizes at random

	Distribution   curve.Curve // sizes, sampled over [0, 1]
	Intensity      curve.Curve // brightness over one cycle, always looped
	AnimationSpeed float32

	SubmeshMask     []bool
	VolumeMasks     []VolumeMask
	VolumeMaskScale float32
}

// DefaultSettings returns the settings a new effect starts with.
func DefaultSettings() Settings {
	return Settings{
		SampleCount:     1000,
		SearchLimit:     100,
		Distribution:    curve.Constant(1),
		Intensity:       curve.Constant(1),
		AnimationSpeed:  1,
		VolumeMaskScale: 1,
	}
}

// IsSubmeshIncluded reports whether group i takes part in sampling. An empty
// mask includes everything; indices past the end repeat the last entry.
func (s Settings) IsSubmeshIncluded(i int) bool {
	if len(s.SubmeshMask) == 0 {
		return true
	}
	if i < len(s.SubmeshMask) {
		return s.SubmeshMask[i]
	}
	return s.SubmeshMask[len(s.SubmeshMask)-1]
}

// scaledMask is a volume mask with VolumeMaskScale applied and the radius
// squared.
type scaledMask struct {
	center   math.Vec3
	radiusSq float32
}

func (s Settings) scaledMasks() []scaledMask {
	masks := make([]scaledMask, len(s.VolumeMasks))
	for i, m := range s.VolumeMasks {
		r := m.Radius * s.VolumeMaskScale
		masks[i] = scaledMask{
			center:   m.Center.Scale(s.VolumeMaskScale),
			radiusSq: r * r,
		}
	}
	return masks
}

// insideMask reports whether p lies in or on any mask.
func insideMask(p math.Vec3, masks []scaledMask) bool {
	for _, m := range masks {
		if p.DistanceSq(m.center) <= m.radiusSq {
			return true
		}
	}
	return false
}
