package sparkles

import (
	"errors"
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/Faultbox/glint/internal/source"
	"github.com/Faultbox/glint/pkg/distribute"
	"github.com/Faultbox/glint/pkg/math"
	"github.com/Faultbox/glint/pkg/skin"
	"github.com/Faultbox/glint/pkg/surface"
)

// ErrNoSource is returned when Build is given no source mesh.
var ErrNoSource = errors.New("no source mesh")

// Corner UVs of every quad, in vertex order.
var quadUVs = [4]math.Vec2{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}

// Triangle corners of every quad, relative to its first vertex.
var quadTriangles = [6]int{0, 1, 2, 0, 2, 3}

// Mesh is a generated sparkle mesh. Every sparkle is a quad of four
// vertices sharing one position; the shader expands it using Shape.
//
// Shape holds, per vertex, the rotated corner offset in X and Y, the
// sparkle size in Z and the current intensity in W.
type Mesh struct {
	Name        string
	Positions   []math.Vec3
	Normals     []math.Vec3
	BoneWeights []skin.BoneWeight // nil when the source is not skinned
	UV0         []math.Vec2
	Shape       []math.Vec4
	Triangles   []int

	Phases []float32 // per quad, in [0, 1)
	Sizes  []float32 // per quad

	BindPoses []math.Mat4
	Bounds    math.Bounds
}

// QuadCount returns the number of sparkles.
func (m *Mesh) QuadCount() int {
	return len(m.Positions) / 4
}

// Center returns the position of quad q.
func (m *Mesh) Center(q int) math.Vec3 {
	return m.Positions[q*4]
}

// Build samples the source surface and generates the sparkle mesh.
//
// Everything random is drawn from one stream seeded with settings.Seed, in
// a fixed order: sample positions, one rotation per accepted sample, size
// assignment, then one phase per quad. Equal inputs always give equal
// meshes. Samples that fall inside a volume mask are dropped, so the mesh
// may hold fewer than SampleCount quads, or none.
func Build(src *source.Mesh, settings Settings) (*Mesh, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if err := src.Surface.Validate(); err != nil {
		return nil, fmt.Errorf("source %q: %w", src.Name, err)
	}

	seed := uint64(settings.Seed)
	random := rand.New(rand.NewPCG(seed, seed))

	sampler := surface.NewSampler(src.Surface.Positions, random)
	sampler.AddSurface(src.Surface, settings.IsSubmeshIncluded)

	masks := settings.scaledMasks()
	hasWeights := src.HasWeights()
	aggregator := skin.NewAggregator()

	mesh := &Mesh{
		Name:      src.Name,
		BindPoses: src.BindPoses,
		Bounds:    src.Bounds,
	}

	for sample := range sampler.Sample(settings.SampleCount) {
		position := sample.Position(src.Surface.Positions)
		if insideMask(position, masks) {
			continue
		}

		var weight skin.BoneWeight
		if hasWeights {
			weight = aggregator.Blend(src.BoneWeights, sample.I0, sample.I1, sample.I2, sample.Bary)
		}

		angle := random.Float64() * 2 * gomath.Pi
		sin, cos := gomath.Sincos(angle)
		mesh.addQuad(position, sample.Normal, weight, hasWeights, float32(sin), float32(cos))
	}

	quads := mesh.QuadCount()
	centers := make([]math.Vec3, quads)
	for q := range centers {
		centers[q] = mesh.Center(q)
	}

	assignment := distribute.Distribute(centers, settings.Distribution, settings.SearchLimit, random)
	mesh.Sizes = assignment.ValueOf()

	mesh.Phases = make([]float32, quads)
	for q := range mesh.Phases {
		mesh.Phases[q] = float32(random.Float64())
	}

	for q, size := range mesh.Sizes {
		for corner := range 4 {
			mesh.Shape[q*4+corner].Z = size
		}
	}

	return mesh, nil
}

func (m *Mesh) addQuad(position, normal math.Vec3, weight skin.BoneWeight, skinned bool, sin, cos float32) {
	start := len(m.Positions)

	for _, uv := range quadUVs {
		m.Positions = append(m.Positions, position)
		m.Normals = append(m.Normals, normal)
		if skinned {
			m.BoneWeights = append(m.BoneWeights, weight)
		}
		m.UV0 = append(m.UV0, uv)

		offset := uv.Sub(math.Vec2{X: 0.5, Y: 0.5}).Rotate(sin, cos)
		m.Shape = append(m.Shape, math.Vec4{X: offset.X, Y: offset.Y})
	}

	for _, corner := range quadTriangles {
		m.Triangles = append(m.Triangles, start+corner)
	}
}
