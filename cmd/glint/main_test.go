package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/glint/internal/config"
	"github.com/Faultbox/glint/pkg/grf"
)

const plateYAML = `
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
`

// workspace isolates a test from any real config file and returns a temp dir
// holding plate.yaml.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, "plate.yaml"), []byte(plateYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	if code, _, stderr := runCmd(t); code != 1 || !strings.Contains(stderr, "Usage:") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, stdout, _ := runCmd(t, "help"); code != 0 || !strings.Contains(stdout, "Commands:") {
		t.Errorf("help: code %d, stdout %q", code, stdout)
	}
	if code, _, stderr := runCmd(t, "bogus"); code != 1 || !strings.Contains(stderr, "Unknown command: bogus") {
		t.Errorf("bogus: code %d, stderr %q", code, stderr)
	}
}

func TestRun_MissingModel(t *testing.T) {
	workspace(t)

	code, _, stderr := runCmd(t, "generate")
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "needs a model") || !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_Info(t *testing.T) {
	workspace(t)

	code, stdout, stderr := runCmd(t, "info", "plate.yaml")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}

	for _, want := range []string{
		"Model:     plate",
		"Vertices:  4",
		"Triangles: 2 (2 sampled, 0 degenerate)",
		"Area:      1.0000",
		"Skinned:   true",
		"quads",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestRun_Generate(t *testing.T) {
	dir := workspace(t)

	code, _, stderr := runCmd(t, "generate", "-n", "10", "-seed", "3", "-o", "out/plate.sparkles.yaml", "plate.yaml")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "plate.sparkles.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: plate", "quads: 10", "bone_weights:"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRun_GenerateDeterministic(t *testing.T) {
	workspace(t)

	_, first, _ := runCmd(t, "generate", "-n", "25", "-seed", "9", "plate.yaml")
	_, second, _ := runCmd(t, "generate", "-n", "25", "-seed", "9", "plate.yaml")
	_, other, _ := runCmd(t, "generate", "-n", "25", "-seed", "10", "plate.yaml")

	if first == "" || first != second {
		t.Error("equal seeds produced different documents")
	}
	if first == other {
		t.Error("different seeds produced identical documents")
	}
}

func TestRun_Preview(t *testing.T) {
	dir := workspace(t)

	code, stdout, stderr := runCmd(t, "preview", "-n", "20", "-size", "48", "-t", "0.25", "-o", "plate.png", "plate.yaml")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "20 sparkles") {
		t.Errorf("stdout = %q", stdout)
	}

	f, err := os.Open(filepath.Join(dir, "plate.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 48 || b.Dy() != 48 {
		t.Errorf("preview size = %v, want 48x48", b)
	}
}

func TestRun_PreviewDefaultOutput(t *testing.T) {
	dir := workspace(t)

	code, _, stderr := runCmd(t, "preview", "-n", "5", "-size", "16", "plate.yaml")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}

	cfg := config.Default()
	want := filepath.Join(dir, cfg.Output.Dir, "plate."+cfg.Output.ImageFormat)
	if _, err := os.Stat(want); err != nil {
		t.Errorf("default output: %v", err)
	}
}

func TestRun_List(t *testing.T) {
	dir := workspace(t)

	archive := filepath.Join(dir, "data.grf")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	err = grf.Write(f, []grf.File{
		{Name: `data\model\tree.rsm`, Data: []byte("GRSM")},
		{Name: `data\model\rock.rsm`, Data: []byte("GRSM")},
		{Name: `data\texture\bark.bmp`, Data: []byte("BM")},
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCmd(t, "list", "data.grf")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}
	if want := "data/model/rock.rsm\ndata/model/tree.rsm\n"; stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}

	_, stdout, _ = runCmd(t, "list", "data.grf", "data/texture/*")
	if stdout != "data/texture/bark.bmp\n" {
		t.Errorf("pattern stdout = %q", stdout)
	}
}

func TestRun_Config(t *testing.T) {
	dir := workspace(t)

	code, stdout, stderr := runCmd(t, "config", "-n", "123")
	if code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "sample_count: 123") {
		t.Errorf("stdout missing sample_count:\n%s", stdout)
	}

	path := filepath.Join(dir, "glint.yaml")
	if code, _, stderr := runCmd(t, "config", "-seed", "42", "-o", path); code != 0 {
		t.Fatalf("code = %d, stderr %q", code, stderr)
	}

	// ./glint.yaml is now picked up without -config
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sparkles.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Sparkles.Seed)
	}
}
