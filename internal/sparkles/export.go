package sparkles

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/glint/pkg/math"
)

// flowFloats marshals as a single-line YAML sequence.
type flowFloats []float32

func (f flowFloats) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range f {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(float64(v), 'g', -1, 32),
		})
	}
	return node, nil
}

type exportWeight struct {
	Bones   []int      `yaml:"bones,flow"`
	Weights flowFloats `yaml:"weights"`
}

type exportBounds struct {
	Min flowFloats `yaml:"min"`
	Max flowFloats `yaml:"max"`
}

type exportDocument struct {
	Name        string         `yaml:"name,omitempty"`
	Quads       int            `yaml:"quads"`
	Positions   []flowFloats   `yaml:"positions"`
	Normals     []flowFloats   `yaml:"normals"`
	BoneWeights []exportWeight `yaml:"bone_weights,omitempty"`
	UV0         []flowFloats   `yaml:"uv0"`
	Shape       []flowFloats   `yaml:"shape"`
	Triangles   []int          `yaml:"triangles,flow"`
	Phases      flowFloats     `yaml:"phases"`
	Sizes       flowFloats     `yaml:"sizes"`
	BindPoses   []flowFloats   `yaml:"bind_poses,omitempty"`
	Bounds      exportBounds   `yaml:"bounds"`
}

func vec3(v math.Vec3) flowFloats { return flowFloats{v.X, v.Y, v.Z} }

// WriteYAML writes the mesh as a YAML document for engine import.
func WriteYAML(w io.Writer, m *Mesh) error {
	doc := exportDocument{
		Name:      m.Name,
		Quads:     m.QuadCount(),
		Triangles: m.Triangles,
		Phases:    m.Phases,
		Sizes:     m.Sizes,
		Bounds:    exportBounds{Min: vec3(m.Bounds.Min), Max: vec3(m.Bounds.Max)},
	}

	for i := range m.Positions {
		doc.Positions = append(doc.Positions, vec3(m.Positions[i]))
		doc.Normals = append(doc.Normals, vec3(m.Normals[i]))
		doc.UV0 = append(doc.UV0, flowFloats{m.UV0[i].X, m.UV0[i].Y})
		s := m.Shape[i]
		doc.Shape = append(doc.Shape, flowFloats{s.X, s.Y, s.Z, s.W})
	}
	for _, bw := range m.BoneWeights {
		doc.BoneWeights = append(doc.BoneWeights, exportWeight{
			Bones:   bw.Indices[:],
			Weights: bw.Weights[:],
		})
	}
	for _, pose := range m.BindPoses {
		doc.BindPoses = append(doc.BindPoses, pose[:])
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding sparkle mesh: %w", err)
	}
	return enc.Close()
}
