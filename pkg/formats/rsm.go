// Package formats reads the model files glint samples sparkles from.
// RSM (Resource Model) is the Ragnarok Online static/animated model format.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"

	"github.com/Faultbox/glint/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidElementCount   = errors.New("invalid RSM element count")
)

// Upper bounds on per-file element counts; anything larger is corrupt.
const (
	maxRSMNodes    = 10000
	maxRSMTextures = 1000
	maxRSMElements = 100000
	maxRSMKeys     = 10000
	rsmNameLength  = 40
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// RSMFace is a triangle of a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16 // index into the node's TextureIDs
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position keyframe (v < 1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe stored as an X, Y, Z, W quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale keyframe (v >= 1.5).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is a node of the model hierarchy with its own mesh.
type RSMNode struct {
	Name       string
	Parent     string // empty for the root
	TextureIDs []int32

	Matrix   [9]float32 // 3x3, applied to vertices only
	Offset   [3]float32 // pivot, applied to vertices only
	Position [3]float32
	RotAngle float32 // radians, used when there are no rotation keys
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices      [][3]float32
	TexCoordCount int
	Faces         []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSM is a parsed model.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // milliseconds
	Shading    RSMShadingType
	Alpha      float32
	Textures   []string
	RootNode   string
	Nodes      []RSMNode
}

// rsmReader is a little-endian reader that remembers the first short read.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(p []byte) {
	if rr.err != nil {
		return
	}
	if _, err := io.ReadFull(rr.r, p); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

func (rr *rsmReader) u8() uint8 {
	var b [1]byte
	rr.read(b[:])
	return b[0]
}

func (rr *rsmReader) u16() uint16 {
	var b [2]byte
	rr.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (rr *rsmReader) i32() int32 {
	var b [4]byte
	rr.read(b[:])
	return int32(binary.LittleEndian.Uint32(b[:]))
}

func (rr *rsmReader) f32() float32 {
	var b [4]byte
	rr.read(b[:])
	return gomath.Float32frombits(binary.LittleEndian.Uint32(b[:]))
}

func (rr *rsmReader) vec3() [3]float32 {
	return [3]float32{rr.f32(), rr.f32(), rr.f32()}
}

func (rr *rsmReader) skip(n int) {
	if rr.err != nil {
		return
	}
	if rr.r.Len() < n {
		rr.err = ErrTruncatedRSMData
		return
	}
	_, _ = rr.r.Seek(int64(n), io.SeekCurrent)
}

// str reads a fixed-length, NUL-terminated EUC-KR string.
func (rr *rsmReader) str(length int) string {
	buf := make([]byte, length)
	rr.read(buf)
	return encoding.FixedStringToUTF8(buf)
}

// count reads an element count and checks it against limit.
func (rr *rsmReader) count(limit int, what string) int {
	n := rr.i32()
	if rr.err != nil {
		return 0
	}
	if n < 0 || int(n) > limit {
		rr.err = fmt.Errorf("%w: %d %s", ErrInvalidElementCount, n, what)
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rr := &rsmReader{r: bytes.NewReader(data[4:])}

	rsm := &RSM{Version: RSMVersion{Major: rr.u8(), Minor: rr.u8()}}
	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = rr.i32()
	rsm.Shading = RSMShadingType(rr.i32())

	rsm.Alpha = 1
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(rr.u8()) / 255
	}

	rr.skip(16) // reserved

	textureCount := rr.count(maxRSMTextures, "textures")
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = rr.str(rsmNameLength)
	}

	rsm.RootNode = rr.str(rsmNameLength)

	nodeCount := rr.i32()
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, ErrInvalidNodeCount
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(rr, rsm.Version, &rsm.Nodes[i])
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}

	// Volume boxes follow; they carry no surface and are not read.
	return rsm, nil
}

func parseRSMNode(rr *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = rr.str(rsmNameLength)
	node.Parent = rr.str(rsmNameLength)

	node.TextureIDs = make([]int32, rr.count(maxRSMTextures, "node textures"))
	for i := range node.TextureIDs {
		node.TextureIDs[i] = rr.i32()
	}

	for i := range node.Matrix {
		node.Matrix[i] = rr.f32()
	}
	node.Offset = rr.vec3()
	node.Position = rr.vec3()
	node.RotAngle = rr.f32()
	node.RotAxis = rr.vec3()
	node.Scale = rr.vec3()

	node.Vertices = make([][3]float32, rr.count(maxRSMElements, "vertices"))
	for i := range node.Vertices {
		node.Vertices[i] = rr.vec3()
	}

	// Texture coordinates are not needed for sampling; skip past them.
	node.TexCoordCount = rr.count(maxRSMElements, "texcoords")
	texCoordSize := 8
	if version.AtLeast(1, 2) {
		texCoordSize += 4 // vertex color
	}
	rr.skip(node.TexCoordCount * texCoordSize)

	node.Faces = make([]RSMFace, rr.count(maxRSMElements, "faces"))
	for i := range node.Faces {
		face := &node.Faces[i]
		for j := range face.VertexIDs {
			face.VertexIDs[j] = rr.u16()
		}
		for j := range face.TexCoordIDs {
			face.TexCoordIDs[j] = rr.u16()
		}
		face.TextureID = rr.u16()
		rr.skip(2) // padding
		face.TwoSide = rr.i32()
		if version.AtLeast(1, 2) {
			face.SmoothGroup = rr.i32()
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, rr.count(maxRSMKeys, "position keys"))
		for i := range node.PosKeys {
			node.PosKeys[i] = RSMPosKeyframe{Frame: rr.i32(), Position: rr.vec3()}
		}
	}

	node.RotKeys = make([]RSMRotKeyframe, rr.count(maxRSMKeys, "rotation keys"))
	for i := range node.RotKeys {
		key := &node.RotKeys[i]
		key.Frame = rr.i32()
		for j := range key.Quaternion {
			key.Quaternion[j] = rr.f32()
		}
	}

	if version.AtLeast(1, 5) {
		node.ScaleKeys = make([]RSMScaleKeyframe, rr.count(maxRSMKeys, "scale keys"))
		for i := range node.ScaleKeys {
			node.ScaleKeys[i] = RSMScaleKeyframe{Frame: rr.i32(), Scale: rr.vec3()}
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by RootNode.
func (rsm *RSM) Root() *RSMNode {
	return rsm.NodeByName(rsm.RootNode)
}

// HasAnimation reports whether the model animates: it needs a positive length
// and at least one node with more than one key of some kind.
func (rsm *RSM) HasAnimation() bool {
	if rsm.AnimLength <= 0 {
		return false
	}
	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		if len(node.RotKeys) > 1 || len(node.PosKeys) > 1 || len(node.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}
