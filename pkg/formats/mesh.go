// Mesh documents are YAML descriptions of an indexed surface. They carry
// what RSM cannot: quad groups and per-vertex bone weights.
package formats

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mesh document errors.
var (
	ErrEmptyMesh          = errors.New("mesh has no vertices")
	ErrBoneWeightCount    = errors.New("bone weight count does not match vertex count")
	ErrEmptyGroup         = errors.New("mesh group has no indices")
)

// MeshDocument is the on-disk form of a source mesh.
type MeshDocument struct {
	Name        string           `yaml:"name,omitempty"`
	Vertices    [][3]float32     `yaml:"vertices"`
	Groups      []MeshGroup      `yaml:"groups"`
	BoneWeights []MeshBoneWeight `yaml:"bone_weights,omitempty"`
	BindPoses   [][16]float32    `yaml:"bind_poses,omitempty"`
	Bounds      *MeshBounds      `yaml:"bounds,omitempty"`
}

// MeshGroup is one submesh: a topology name ("triangles" or "quads") and
// its index buffer.
type MeshGroup struct {
	Topology string `yaml:"topology"`
	Indices  []int  `yaml:"indices,flow"`
}

// MeshBoneWeight is up to four bone influences of a vertex.
type MeshBoneWeight struct {
	Bones   [4]int     `yaml:"bones,flow"`
	Weights [4]float32 `yaml:"weights,flow"`
}

// MeshBounds is an explicit bounding box to pass through to the output.
type MeshBounds struct {
	Min [3]float32 `yaml:"min,flow"`
	Max [3]float32 `yaml:"max,flow"`
}

// ParseMesh decodes and sanity-checks a YAML mesh document.
func ParseMesh(data []byte) (*MeshDocument, error) {
	var doc MeshDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding mesh: %w", err)
	}

	if len(doc.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}
	if len(doc.BoneWeights) != 0 && len(doc.BoneWeights) != len(doc.Vertices) {
		return nil, fmt.Errorf("%w: %d weights, %d vertices",
			ErrBoneWeightCount, len(doc.BoneWeights), len(doc.Vertices))
	}
	for i, g := range doc.Groups {
		if len(g.Indices) == 0 {
			return nil, fmt.Errorf("group %d: %w", i, ErrEmptyGroup)
		}
	}

	return &doc, nil
}

// ParseMeshFile reads a mesh document from disk.
func ParseMeshFile(path string) (*MeshDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return ParseMesh(data)
}

// MarshalMesh encodes a mesh document as YAML.
func MarshalMesh(doc *MeshDocument) ([]byte, error) {
	return yaml.Marshal(doc)
}
