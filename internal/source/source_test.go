package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/glint/pkg/formats"
	"github.com/Faultbox/glint/pkg/grf"
	"github.com/Faultbox/glint/pkg/math"
	"github.com/Faultbox/glint/pkg/surface"
)

func testNode(name, parent string) formats.RSMNode {
	return formats.RSMNode{
		Name:       name,
		Parent:     parent,
		TextureIDs: []int32{0},
		Matrix:     [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Scale:      [3]float32{1, 1, 1},
		Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:      []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}}},
	}
}

func approxVec(a, b math.Vec3) bool {
	return a.Sub(b).Length() < 1e-5
}

func TestFromRSM_SingleNode(t *testing.T) {
	rsm := &formats.RSM{RootNode: "root", Nodes: []formats.RSMNode{testNode("root", "")}}

	mesh, err := FromRSM(rsm, Options{})
	if err != nil {
		t.Fatalf("FromRSM: %v", err)
	}

	if mesh.Name != "root" {
		t.Errorf("Name = %q, want root", mesh.Name)
	}
	want := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}}
	for i, w := range want {
		if !approxVec(mesh.Surface.Positions[i], w) {
			t.Errorf("Positions[%d] = %v, want %v", i, mesh.Surface.Positions[i], w)
		}
	}
	if len(mesh.Surface.Groups) != 1 || mesh.Surface.TriangleCount() != 1 {
		t.Errorf("Groups = %+v", mesh.Surface.Groups)
	}
	if mesh.HasWeights() {
		t.Error("RSM meshes carry no bone weights")
	}
	if mesh.Bounds.Min.Y != -1 || mesh.Bounds.Max.X != 1 {
		t.Errorf("Bounds = %+v", mesh.Bounds)
	}
}

func TestFromRSM_GroupsByTexture(t *testing.T) {
	node := testNode("root", "")
	node.TextureIDs = []int32{5, 2}
	node.Vertices = append(node.Vertices, [3]float32{1, 1, 0})
	node.Faces = []formats.RSMFace{
		{VertexIDs: [3]uint16{0, 1, 2}, TextureID: 0},
		{VertexIDs: [3]uint16{1, 3, 2}, TextureID: 1},
		{VertexIDs: [3]uint16{0, 1, 9}, TextureID: 1}, // missing vertex
	}
	rsm := &formats.RSM{Nodes: []formats.RSMNode{node}}

	mesh, err := FromRSM(rsm, Options{})
	if err != nil {
		t.Fatalf("FromRSM: %v", err)
	}

	if len(mesh.Surface.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(mesh.Surface.Groups))
	}
	// texture 2 sorts before texture 5
	if got := mesh.Surface.Groups[0].Indices; got[0] != 1 || got[1] != 3 || len(got) != 3 {
		t.Errorf("Groups[0].Indices = %v, want [1 3 2]", got)
	}
	if got := mesh.Surface.Groups[1].Indices; got[2] != 2 {
		t.Errorf("Groups[1].Indices = %v, want [0 1 2]", got)
	}
}

func TestFromRSM_Hierarchy(t *testing.T) {
	parent := testNode("parent", "")
	parent.Position = [3]float32{0, 1, 0}
	parent.Offset = [3]float32{10, 10, 10}
	parent.Faces = nil

	child := testNode("child", "parent")
	child.Position = [3]float32{1, 0, 0}

	rsm := &formats.RSM{Nodes: []formats.RSMNode{parent, child}}
	mesh, err := FromRSM(rsm, Options{})
	if err != nil {
		t.Fatalf("FromRSM: %v", err)
	}

	// The parent's offset applies only to its own vertices
	if got := mesh.Surface.Positions[0]; !approxVec(got, math.Vec3{X: 1, Y: -1, Z: 0}) {
		t.Errorf("child origin = %v, want (1, -1, 0)", got)
	}
}

func TestFromRSM_CyclicParents(t *testing.T) {
	a := testNode("a", "b")
	b := testNode("b", "a")
	rsm := &formats.RSM{Nodes: []formats.RSMNode{a, b}}

	mesh, err := FromRSM(rsm, Options{})
	if err != nil {
		t.Fatalf("FromRSM: %v", err)
	}
	if len(mesh.Surface.Positions) != 6 {
		t.Errorf("len(Positions) = %d, want 6", len(mesh.Surface.Positions))
	}
}

func TestFromRSM_ReverseWinding(t *testing.T) {
	rsm := &formats.RSM{Nodes: []formats.RSMNode{testNode("root", "")}}

	mesh, err := FromRSM(rsm, Options{ReverseWinding: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := mesh.Surface.Groups[0].Indices; got[1] != 2 || got[2] != 1 {
		t.Errorf("Indices = %v, want [0 2 1]", got)
	}
}

func TestFromRSM_Empty(t *testing.T) {
	node := testNode("root", "")
	node.Faces = []formats.RSMFace{{VertexIDs: [3]uint16{7, 8, 9}}}

	_, err := FromRSM(&formats.RSM{Nodes: []formats.RSMNode{node}}, Options{})
	if !errors.Is(err, ErrEmptyModel) {
		t.Errorf("FromRSM() error = %v, want %v", err, ErrEmptyModel)
	}
}

func TestScaleAt(t *testing.T) {
	keys := []formats.RSMScaleKeyframe{
		{Frame: 0, Scale: [3]float32{1, 1, 1}},
		{Frame: 100, Scale: [3]float32{3, 3, 3}},
	}

	tests := []struct {
		timeMs float32
		want   float32
	}{
		{-10, 1},
		{0, 1},
		{50, 2},
		{100, 3},
		{250, 3},
	}
	for _, tt := range tests {
		if got := scaleAt(keys, tt.timeMs); got.X != tt.want {
			t.Errorf("scaleAt(%v) = %v, want %v", tt.timeMs, got.X, tt.want)
		}
	}

	if got := scaleAt(nil, 10); got != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("scaleAt(nil) = %v, want unit", got)
	}
}

func TestRotationAt(t *testing.T) {
	if got := rotationAt(nil, 0); got != math.QuatIdentity() {
		t.Errorf("rotationAt(nil) = %v, want identity", got)
	}

	keys := []formats.RSMRotKeyframe{{Frame: 0, Quaternion: [4]float32{0, 0, 1, 0}}}
	if got := rotationAt(keys, 500); got.Z != 1 {
		t.Errorf("rotationAt(single) = %v", got)
	}
}

const skinnedMeshYAML = `
vertices: [[0,0,0],[2,0,0],[2,2,0],[0,2,0]]
groups:
  - topology: quads
    indices: [0,1,2,3]
bone_weights:
  - {bones: [0,0,0,0], weights: [1,0,0,0]}
  - {bones: [1,0,0,0], weights: [1,0,0,0]}
  - {bones: [1,0,0,0], weights: [1,0,0,0]}
  - {bones: [0,0,0,0], weights: [1,0,0,0]}
bind_poses:
  - [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]
  - [1,0,0,0, 0,1,0,0, 0,0,1,0, -2,0,0,1]
`

func TestLoad_Document(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.yaml")
	if err := os.WriteFile(path, []byte(skinnedMeshYAML), 0644); err != nil {
		t.Fatal(err)
	}

	mesh, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if mesh.Name != "plate" {
		t.Errorf("Name = %q, want plate", mesh.Name)
	}
	if !mesh.HasWeights() {
		t.Error("HasWeights() = false, want true")
	}
	if len(mesh.BindPoses) != 2 || mesh.BindPoses[1][12] != -2 {
		t.Errorf("BindPoses = %v", mesh.BindPoses)
	}
	if mesh.Surface.Groups[0].Topology != surface.Quads {
		t.Errorf("Topology = %v, want quads", mesh.Surface.Groups[0].Topology)
	}
	if mesh.Bounds.Max != (math.Vec3{X: 2, Y: 2, Z: 0}) {
		t.Errorf("Bounds = %+v", mesh.Bounds)
	}
}

func TestFromDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     formats.MeshDocument
		wantErr error
	}{
		{
			name: "bad topology",
			doc: formats.MeshDocument{
				Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Groups:   []formats.MeshGroup{{Topology: "fans", Indices: []int{0, 1, 2}}},
			},
			wantErr: surface.ErrUnknownTopology,
		},
		{
			name: "index out of range",
			doc: formats.MeshDocument{
				Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Groups:   []formats.MeshGroup{{Indices: []int{0, 1, 3}}},
			},
			wantErr: surface.ErrIndexOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(&tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FromDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode([]byte("o cube"), "model.obj", Options{})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Decode() error = %v, want %v", err, ErrUnknownFormat)
	}
}

func TestLoad_Archive(t *testing.T) {
	var buf bytes.Buffer
	err := grf.Write(&buf, []grf.File{{Name: `data\model\Plate.yaml`, Data: []byte(skinnedMeshYAML)}})
	if err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(t.TempDir(), "models.GRF")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	mesh, err := Load(archivePath+":data/model/plate.yaml", Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mesh.Name != "plate" || !mesh.HasWeights() {
		t.Errorf("mesh %q weights %v", mesh.Name, mesh.HasWeights())
	}

	_, err = Load(archivePath+":data/model/missing.rsm", Options{})
	if !errors.Is(err, grf.ErrNotFound) {
		t.Errorf("Load(missing entry) error = %v, want %v", err, grf.ErrNotFound)
	}
}

func TestSplitArchivePath(t *testing.T) {
	tests := []struct {
		path, archive, name string
		ok                  bool
	}{
		{"data.grf:data/model/a.rsm", "data.grf", "data/model/a.rsm", true},
		{"C:/ro/Data.GRF:model.rsm", "C:/ro/Data.GRF", "model.rsm", true},
		{"model.rsm", "", "", false},
	}
	for _, tt := range tests {
		archive, name, ok := splitArchivePath(tt.path)
		if archive != tt.archive || name != tt.name || ok != tt.ok {
			t.Errorf("splitArchivePath(%q) = %q, %q, %v", tt.path, archive, name, ok)
		}
	}
}
