// Package surface describes indexed mesh surfaces and draws area-weighted
// random points on them.
package surface

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/glint/pkg/math"
)

// Surface validation errors.
var (
	ErrIndexOutOfRange = errors.New("vertex index out of range")
	ErrIndexCount      = errors.New("index count is not a multiple of the primitive size")
	ErrUnknownTopology = errors.New("unknown topology")
)

// Topology is the primitive layout of a group's index buffer.
type Topology uint8

const (
	Triangles Topology = iota // 3 indices per primitive
	Quads                     // 4 indices per primitive, split along (a, c)
)

// String returns the lower-case topology name.
func (t Topology) String() string {
	switch t {
	case Triangles:
		return "triangles"
	case Quads:
		return "quads"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// PrimitiveSize returns the number of indices per primitive.
func (t Topology) PrimitiveSize() int {
	if t == Quads {
		return 4
	}
	return 3
}

// ParseTopology parses a topology name, case-insensitively.
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "triangles", "tris":
		return Triangles, nil
	case "quads":
		return Quads, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTopology, s)
	}
}

// Group is one primitive group (submesh) of a surface.
type Group struct {
	Topology Topology
	Indices  []int
}

// PrimitiveCount returns the number of complete primitives in the group.
func (g Group) PrimitiveCount() int {
	return len(g.Indices) / g.Topology.PrimitiveSize()
}

// Surface is a set of vertex positions plus primitive groups indexing them.
// A Surface is treated as immutable once handed to a Sampler.
type Surface struct {
	Positions []math.Vec3
	Groups    []Group
}

// Validate checks that every index references a position and that each
// group holds whole primitives.
func (s Surface) Validate() error {
	for gi, g := range s.Groups {
		if len(g.Indices)%g.Topology.PrimitiveSize() != 0 {
			return fmt.Errorf("group %d (%s, %d indices): %w", gi, g.Topology, len(g.Indices), ErrIndexCount)
		}
		for i, idx := range g.Indices {
			if idx < 0 || idx >= len(s.Positions) {
				return fmt.Errorf("group %d index %d = %d (have %d vertices): %w",
					gi, i, idx, len(s.Positions), ErrIndexOutOfRange)
			}
		}
	}
	return nil
}

// TriangleCount returns the number of triangles the surface tessellates into.
func (s Surface) TriangleCount() int {
	n := 0
	for _, g := range s.Groups {
		switch g.Topology {
		case Quads:
			n += 2 * g.PrimitiveCount()
		default:
			n += g.PrimitiveCount()
		}
	}
	return n
}
