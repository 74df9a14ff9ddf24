// Package config handles glint configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/Faultbox/glint/internal/preview"
	"github.com/Faultbox/glint/internal/source"
	"github.com/Faultbox/glint/internal/sparkles"
	"github.com/Faultbox/glint/pkg/curve"
	"github.com/Faultbox/glint/pkg/math"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Sparkles SparklesConfig `yaml:"sparkles"`
	Model    ModelConfig    `yaml:"model"`
	Preview  PreviewConfig  `yaml:"preview"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SparklesConfig holds generation and animation settings.
type SparklesConfig struct {
	SampleCount     int                `yaml:"sample_count"`
	Seed            int64              `yaml:"seed"`
	SearchLimit     int                `yaml:"search_limit"`
	Distribution    curve.Curve        `yaml:"distribution"`
	Intensity       curve.Curve        `yaml:"intensity"`
	AnimationSpeed  float32            `yaml:"animation_speed"`
	SubmeshMask     []bool             `yaml:"submesh_mask,omitempty,flow"`
	VolumeMasks     []VolumeMaskConfig `yaml:"volume_masks,omitempty"`
	VolumeMaskScale float32            `yaml:"volume_mask_scale"`
}

// VolumeMaskConfig is an exclusion sphere.
type VolumeMaskConfig struct {
	Center [3]float32 `yaml:"center,flow"`
	Radius float32    `yaml:"radius"`
}

// ModelConfig holds source model options.
type ModelConfig struct {
	AnimTimeMs     float32 `yaml:"anim_time_ms"`
	ReverseWinding bool    `yaml:"reverse_winding"`
}

// PreviewConfig holds preview camera and look settings.
type PreviewConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Supersample int     `yaml:"supersample"`
	Yaw         float32 `yaml:"yaw"`
	Pitch       float32 `yaml:"pitch"`
	Distance    float32 `yaml:"distance"`
	FOV         float32 `yaml:"fov"`
	Background  string  `yaml:"background"` // #rrggbb or #rrggbbaa
	Color       string  `yaml:"color"`
	QuadScale   float32 `yaml:"quad_scale"`
	Time        float32 `yaml:"time"` // animation time to render, in seconds
}

// OutputConfig holds output locations.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	ImageFormat string `yaml:"image_format"` // webp or png
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	s := sparkles.DefaultSettings()
	return &Config{
		Sparkles: SparklesConfig{
			SampleCount:     s.SampleCount,
			Seed:            s.Seed,
			SearchLimit:     s.SearchLimit,
			Distribution:    s.Distribution,
			Intensity:       s.Intensity,
			AnimationSpeed:  s.AnimationSpeed,
			VolumeMaskScale: s.VolumeMaskScale,
		},
		Preview: PreviewConfig{
			Width:       512,
			Height:      512,
			Supersample: 2,
			Yaw:         30,
			Pitch:       20,
			FOV:         45,
			Background:  "#000000",
			Color:       "#fff4d6",
		},
		Output: OutputConfig{
			Dir:         ".",
			ImageFormat: "webp",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Settings converts the sparkle section to generation settings.
func (c SparklesConfig) Settings() sparkles.Settings {
	s := sparkles.Settings{
		SampleCount:     c.SampleCount,
		Seed:            c.Seed,
		SearchLimit:     c.SearchLimit,
		Distribution:    c.Distribution,
		Intensity:       c.Intensity,
		AnimationSpeed:  c.AnimationSpeed,
		SubmeshMask:     c.SubmeshMask,
		VolumeMaskScale: c.VolumeMaskScale,
	}
	s.Distribution.Sort()
	s.Intensity.Sort()
	for _, m := range c.VolumeMasks {
		s.VolumeMasks = append(s.VolumeMasks, sparkles.VolumeMask{
			Center: math.V3(m.Center),
			Radius: m.Radius,
		})
	}
	return s
}

// Options converts the model section to source options.
func (c ModelConfig) Options() source.Options {
	return source.Options{AnimTimeMs: c.AnimTimeMs, ReverseWinding: c.ReverseWinding}
}

// Options converts the preview section to render options.
func (c PreviewConfig) Options() (preview.Options, error) {
	bg, err := ParseColor(c.Background)
	if err != nil {
		return preview.Options{}, fmt.Errorf("preview.background: %w", err)
	}
	fg, err := ParseColor(c.Color)
	if err != nil {
		return preview.Options{}, fmt.Errorf("preview.color: %w", err)
	}

	return preview.Options{
		Width:       c.Width,
		Height:      c.Height,
		Supersample: c.Supersample,
		Yaw:         c.Yaw,
		Pitch:       c.Pitch,
		Distance:    c.Distance,
		FOV:         c.FOV,
		Background:  bg,
		Color:       fg,
		QuadScale:   c.QuadScale,
	}, nil
}

// ParseColor parses #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	s := c.Sparkles
	switch {
	case s.SampleCount < 0:
		return fmt.Errorf("%w: sparkles.sample_count %d is negative", ErrInvalid, s.SampleCount)
	case s.SearchLimit < 0:
		return fmt.Errorf("%w: sparkles.search_limit %d is negative", ErrInvalid, s.SearchLimit)
	case s.VolumeMaskScale < 0:
		return fmt.Errorf("%w: sparkles.volume_mask_scale %v is negative", ErrInvalid, s.VolumeMaskScale)
	}
	for i, m := range s.VolumeMasks {
		if m.Radius < 0 {
			return fmt.Errorf("%w: sparkles.volume_masks[%d] radius %v is negative", ErrInvalid, i, m.Radius)
		}
	}

	p := c.Preview
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: preview size %dx%d", ErrInvalid, p.Width, p.Height)
	}
	if p.Supersample < 1 || p.Supersample > 8 {
		return fmt.Errorf("%w: preview.supersample %d not in [1, 8]", ErrInvalid, p.Supersample)
	}
	if _, err := p.Options(); err != nil {
		return err
	}

	switch c.Output.ImageFormat {
	case "webp", "png":
	default:
		return fmt.Errorf("%w: output.image_format %q", ErrInvalid, c.Output.ImageFormat)
	}

	return nil
}
