// Package source assembles the surface a sparkle effect is built from,
// either from an RSM model or from a YAML mesh document.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/glint/pkg/formats"
	"github.com/Faultbox/glint/pkg/grf"
	"github.com/Faultbox/glint/pkg/math"
	"github.com/Faultbox/glint/pkg/skin"
	"github.com/Faultbox/glint/pkg/surface"
)

// ErrUnknownFormat is returned by Load for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown model format")

// Mesh is a source surface with optional skinning data.
type Mesh struct {
	Name        string
	Surface     surface.Surface
	BoneWeights []skin.BoneWeight // empty, or one per vertex
	BindPoses   []math.Mat4
	Bounds      math.Bounds
}

// HasWeights reports whether every vertex carries bone weights.
func (m *Mesh) HasWeights() bool {
	return len(m.BoneWeights) > 0 && len(m.BoneWeights) == len(m.Surface.Positions)
}

// Options controls how RSM models are flattened.
type Options struct {
	AnimTimeMs     float32 // pose to sample node keyframes at
	ReverseWinding bool    // swap the last two corners of every face
}

// Load reads a model, choosing the decoder by extension. A path of the form
// "archive.grf:data/model/tree.rsm" reads the model from a GRF archive.
func Load(path string, opts Options) (*Mesh, error) {
	if archivePath, name, ok := splitArchivePath(path); ok {
		return LoadArchive(archivePath, name, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	return Decode(data, path, opts)
}

// LoadArchive reads the model name from a GRF archive.
func LoadArchive(archivePath, name string, opts Options) (*Mesh, error) {
	archive, err := grf.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	data, err := archive.Read(name)
	if err != nil {
		return nil, err
	}
	return Decode(data, name, opts)
}

// Decode parses model bytes; name supplies the extension and the fallback
// mesh name.
func Decode(data []byte, name string, opts Options) (*Mesh, error) {
	var (
		mesh *Mesh
		err  error
	)

	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".rsm":
		var rsm *formats.RSM
		if rsm, err = formats.ParseRSM(data); err == nil {
			mesh, err = FromRSM(rsm, opts)
		}
	case ".yaml", ".yml":
		var doc *formats.MeshDocument
		if doc, err = formats.ParseMesh(data); err == nil {
			mesh, err = FromDocument(doc)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if mesh.Name == "" {
		mesh.Name = strings.TrimSuffix(filepath.Base(filepath.ToSlash(name)), ext)
	}
	return mesh, nil
}

// splitArchivePath splits "x.grf:inner" into its archive and entry parts.
func splitArchivePath(path string) (archive, name string, ok bool) {
	i := strings.Index(strings.ToLower(path), ".grf:")
	if i < 0 {
		return "", "", false
	}
	return path[:i+4], path[i+5:], true
}

// FromDocument converts a parsed mesh document and checks its indices.
func FromDocument(doc *formats.MeshDocument) (*Mesh, error) {
	mesh := &Mesh{Name: doc.Name}

	mesh.Surface.Positions = make([]math.Vec3, len(doc.Vertices))
	for i, v := range doc.Vertices {
		mesh.Surface.Positions[i] = math.V3(v)
	}

	for i, g := range doc.Groups {
		topo, err := surface.ParseTopology(g.Topology)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		mesh.Surface.Groups = append(mesh.Surface.Groups, surface.Group{
			Topology: topo,
			Indices:  g.Indices,
		})
	}

	if err := mesh.Surface.Validate(); err != nil {
		return nil, err
	}

	if len(doc.BoneWeights) > 0 {
		mesh.BoneWeights = make([]skin.BoneWeight, len(doc.BoneWeights))
		for i, bw := range doc.BoneWeights {
			mesh.BoneWeights[i] = skin.BoneWeight{Indices: bw.Bones, Weights: bw.Weights}
		}
	}

	for _, m := range doc.BindPoses {
		mesh.BindPoses = append(mesh.BindPoses, math.Mat4(m))
	}

	if doc.Bounds != nil {
		mesh.Bounds = math.Bounds{Min: math.V3(doc.Bounds.Min), Max: math.V3(doc.Bounds.Max)}
	} else {
		mesh.Bounds = math.BoundsOf(mesh.Surface.Positions)
	}

	return mesh, nil
}
