package config

import (
	"errors"
	"flag"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/glint/pkg/curve"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sparkles.SampleCount != 1000 {
		t.Errorf("expected sample count 1000, got %d", cfg.Sparkles.SampleCount)
	}
	if cfg.Sparkles.SearchLimit != 100 {
		t.Errorf("expected search limit 100, got %d", cfg.Sparkles.SearchLimit)
	}
	if cfg.Sparkles.AnimationSpeed != 1 || cfg.Sparkles.VolumeMaskScale != 1 {
		t.Errorf("expected unit speed and mask scale, got %v and %v",
			cfg.Sparkles.AnimationSpeed, cfg.Sparkles.VolumeMaskScale)
	}
	if got := cfg.Sparkles.Distribution.Evaluate(0.5); got != 1 {
		t.Errorf("expected constant distribution 1, got %v", got)
	}
	if cfg.Preview.Width != 512 || cfg.Preview.Supersample != 2 {
		t.Errorf("unexpected preview defaults %+v", cfg.Preview)
	}
	if cfg.Output.ImageFormat != "webp" {
		t.Errorf("expected webp output, got %s", cfg.Output.ImageFormat)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glint.yaml")

	yamlContent := `
sparkles:
  sample_count: 250
  seed: 7
  search_limit: 0
  distribution:
    keys:
      - {time: 0, value: 0.5}
      - {time: 1, value: 2}
  intensity:
    keys:
      - {time: 0, value: 0}
      - {time: 0.5, value: 1}
      - {time: 1, value: 0}
    post_wrap: loop
  submesh_mask: [true, false]
  volume_masks:
    - {center: [0, 1, 0], radius: 0.5}

model:
  anim_time_ms: 300

preview:
  width: 256
  color: "#ff000080"

logging:
  level: "debug"
  log_file: "glint.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Sparkles.SampleCount != 250 || cfg.Sparkles.Seed != 7 || cfg.Sparkles.SearchLimit != 0 {
		t.Errorf("sparkles = %+v", cfg.Sparkles)
	}
	if len(cfg.Sparkles.Intensity.Keys) != 3 || cfg.Sparkles.Intensity.PostWrap != curve.Loop {
		t.Errorf("intensity = %+v", cfg.Sparkles.Intensity)
	}
	if cfg.Model.AnimTimeMs != 300 {
		t.Errorf("expected anim time 300, got %v", cfg.Model.AnimTimeMs)
	}

	// Unset values keep their defaults
	if cfg.Sparkles.AnimationSpeed != 1 {
		t.Errorf("expected default speed 1, got %v", cfg.Sparkles.AnimationSpeed)
	}
	if cfg.Preview.Width != 256 || cfg.Preview.Height != 512 {
		t.Errorf("preview size = %dx%d, want 256x512", cfg.Preview.Width, cfg.Preview.Height)
	}

	settings := cfg.Sparkles.Settings()
	if len(settings.VolumeMasks) != 1 || settings.VolumeMasks[0].Center.Y != 1 {
		t.Errorf("volume masks = %+v", settings.VolumeMasks)
	}
	if settings.IsSubmeshIncluded(1) || !settings.IsSubmeshIncluded(0) {
		t.Errorf("submesh mask = %v", settings.SubmeshMask)
	}
	if got := settings.Distribution.Evaluate(1); got != 2 {
		t.Errorf("distribution at 1 = %v, want 2", got)
	}

	opts, err := cfg.Preview.Options()
	if err != nil {
		t.Fatalf("Preview.Options: %v", err)
	}
	if opts.Color != (color.NRGBA{R: 255, A: 128}) {
		t.Errorf("color = %v", opts.Color)
	}

	if src := cfg.Model.Options(); src.AnimTimeMs != 300 {
		t.Errorf("model options = %+v", src)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sparkles: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a decode error")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "glint.yaml")

	cfg := Default()
	cfg.Sparkles.SampleCount = 42
	cfg.Sparkles.Intensity = curve.Linear(0, 0, 2, 1)
	cfg.Preview.Background = "#102030"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Sparkles.SampleCount != 42 {
		t.Errorf("expected sample count 42, got %d", loaded.Sparkles.SampleCount)
	}
	if loaded.Sparkles.Intensity.End() != 2 {
		t.Errorf("expected intensity end 2, got %v", loaded.Sparkles.Intensity.End())
	}
	if loaded.Preview.Background != "#102030" {
		t.Errorf("expected background #102030, got %s", loaded.Preview.Background)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir := ConfigDir()
	if dir == "" {
		t.Fatal("ConfigDir returned empty string")
	}
	if filepath.Base(dir) != "glint" && filepath.Base(dir) != "Glint" {
		t.Errorf("unexpected config dir %s", dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative count", func(c *Config) { c.Sparkles.SampleCount = -1 }},
		{"negative limit", func(c *Config) { c.Sparkles.SearchLimit = -5 }},
		{"negative mask scale", func(c *Config) { c.Sparkles.VolumeMaskScale = -1 }},
		{"negative radius", func(c *Config) {
			c.Sparkles.VolumeMasks = []VolumeMaskConfig{{Radius: -1}}
		}},
		{"zero width", func(c *Config) { c.Preview.Width = 0 }},
		{"supersample", func(c *Config) { c.Preview.Supersample = 16 }},
		{"bad color", func(c *Config) { c.Preview.Color = "red" }},
		{"bad format", func(c *Config) { c.Output.ImageFormat = "gif" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want %v", err, ErrInvalid)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#000000", color.NRGBA{A: 255}, false},
		{"fff4d6", color.NRGBA{R: 0xff, G: 0xf4, B: 0xd6, A: 255}, false},
		{"#11223344", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, false},
		{"#12345", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFlagsApply(t *testing.T) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	flags := BindFlags(fs)

	if err := fs.Parse([]string{"-n", "64", "-seed", "0", "-size", "128", "-debug", "-t", "1.5"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg := Default()
	cfg.Sparkles.Seed = 99
	flags.Apply(cfg)

	if cfg.Sparkles.SampleCount != 64 {
		t.Errorf("expected sample count 64, got %d", cfg.Sparkles.SampleCount)
	}
	if cfg.Sparkles.Seed != 0 {
		t.Errorf("explicit -seed 0 did not override, got %d", cfg.Sparkles.Seed)
	}
	if cfg.Preview.Width != 128 || cfg.Preview.Height != 128 {
		t.Errorf("expected 128x128, got %dx%d", cfg.Preview.Width, cfg.Preview.Height)
	}
	if cfg.Logging.Level != "debug" || cfg.Preview.Time != 1.5 {
		t.Errorf("level %q time %v", cfg.Logging.Level, cfg.Preview.Time)
	}

	// Unset flags leave the config alone
	if cfg.Sparkles.SearchLimit != 100 || cfg.Output.ImageFormat != "webp" {
		t.Errorf("unset flags changed config: limit %d format %s",
			cfg.Sparkles.SearchLimit, cfg.Output.ImageFormat)
	}
}
