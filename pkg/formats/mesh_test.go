package formats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const quadMeshYAML = `
name: plate
vertices:
  - [0, 0, 0]
  - [1, 0, 0]
  - [1, 1, 0]
  - [0, 1, 0]
groups:
  - topology: quads
    indices: [0, 1, 2, 3]
bone_weights:
  - {bones: [0, 0, 0, 0], weights: [1, 0, 0, 0]}
  - {bones: [1, 0, 0, 0], weights: [1, 0, 0, 0]}
  - {bones: [1, 0, 0, 0], weights: [1, 0, 0, 0]}
  - {bones: [0, 1, 0, 0], weights: [0.5, 0.5, 0, 0]}
bounds:
  min: [0, 0, 0]
  max: [1, 1, 0]
`

func TestParseMesh(t *testing.T) {
	doc, err := ParseMesh([]byte(quadMeshYAML))
	if err != nil {
		t.Fatalf("ParseMesh: %v", err)
	}

	if doc.Name != "plate" {
		t.Errorf("Name = %q, want plate", doc.Name)
	}
	if len(doc.Vertices) != 4 || doc.Vertices[2] != [3]float32{1, 1, 0} {
		t.Errorf("Vertices = %v", doc.Vertices)
	}
	if len(doc.Groups) != 1 || doc.Groups[0].Topology != "quads" {
		t.Errorf("Groups = %+v", doc.Groups)
	}
	if doc.BoneWeights[3].Weights[1] != 0.5 {
		t.Errorf("BoneWeights[3] = %+v", doc.BoneWeights[3])
	}
	if doc.Bounds == nil || doc.Bounds.Max != [3]float32{1, 1, 0} {
		t.Errorf("Bounds = %+v", doc.Bounds)
	}
}

func TestParseMesh_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"no vertices", "groups: []", ErrEmptyMesh},
		{
			"weight mismatch",
			"vertices: [[0,0,0],[1,0,0]]\nbone_weights: [{bones: [0,0,0,0], weights: [1,0,0,0]}]",
			ErrBoneWeightCount,
		},
		{
			"empty group",
			"vertices: [[0,0,0]]\ngroups: [{topology: triangles, indices: []}]",
			ErrEmptyGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMesh([]byte(tt.yaml))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseMesh() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ParseMesh([]byte("vertices: {not: a list}")); err == nil {
		t.Error("expected decode error")
	}
}

func TestMarshalMesh_ReadBack(t *testing.T) {
	doc, err := ParseMesh([]byte(quadMeshYAML))
	if err != nil {
		t.Fatal(err)
	}

	data, err := MarshalMesh(doc)
	if err != nil {
		t.Fatalf("MarshalMesh: %v", err)
	}

	path := filepath.Join(t.TempDir(), "mesh.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	again, err := ParseMeshFile(path)
	if err != nil {
		t.Fatalf("ParseMeshFile: %v", err)
	}
	if len(again.Vertices) != len(doc.Vertices) || again.Groups[0].Indices[3] != 3 {
		t.Errorf("read back %+v", again)
	}
}
