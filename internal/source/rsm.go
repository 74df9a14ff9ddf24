package source

import (
	"errors"
	"maps"
	"slices"

	"github.com/Faultbox/glint/pkg/formats"
	"github.com/Faultbox/glint/pkg/math"
	"github.com/Faultbox/glint/pkg/surface"
)

// ErrEmptyModel is returned when a model has no usable faces.
var ErrEmptyModel = errors.New("model has no faces")

// FromRSM flattens every node of an RSM model into one triangle surface.
// Faces are grouped by global texture index in ascending order; faces that
// reference missing vertices are skipped.
func FromRSM(rsm *formats.RSM, opts Options) (*Mesh, error) {
	var positions []math.Vec3
	groups := make(map[int][]int)

	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		if len(node.Faces) == 0 {
			continue
		}

		matrix := nodeMatrix(node, rsm, opts.AnimTimeMs)
		base := len(positions)
		for _, v := range node.Vertices {
			pos := matrix.TransformPoint(math.V3(v))
			// Flip Y for RO coordinate system
			pos.Y = -pos.Y
			positions = append(positions, pos)
		}

		for _, face := range node.Faces {
			if !validFace(face, len(node.Vertices)) {
				continue
			}

			ids := face.VertexIDs
			if opts.ReverseWinding {
				ids[1], ids[2] = ids[2], ids[1]
			}

			texIdx := 0
			if int(face.TextureID) < len(node.TextureIDs) {
				texIdx = int(node.TextureIDs[face.TextureID])
			}
			groups[texIdx] = append(groups[texIdx],
				base+int(ids[0]), base+int(ids[1]), base+int(ids[2]))
		}
	}

	if len(groups) == 0 {
		return nil, ErrEmptyModel
	}

	mesh := &Mesh{
		Name:    rsm.RootNode,
		Surface: surface.Surface{Positions: positions},
		Bounds:  math.BoundsOf(positions),
	}
	for _, texIdx := range slices.Sorted(maps.Keys(groups)) {
		mesh.Surface.Groups = append(mesh.Surface.Groups, surface.Group{
			Topology: surface.Triangles,
			Indices:  groups[texIdx],
		})
	}
	return mesh, nil
}

func validFace(face formats.RSMFace, vertexCount int) bool {
	for _, vid := range face.VertexIDs {
		if int(vid) >= vertexCount {
			return false
		}
	}
	return true
}
