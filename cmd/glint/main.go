// glint generates sparkle meshes from RSM models and mesh documents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/glint/internal/config"
	"github.com/Faultbox/glint/internal/logger"
	"github.com/Faultbox/glint/internal/preview"
	"github.com/Faultbox/glint/internal/source"
	"github.com/Faultbox/glint/internal/sparkles"
	"github.com/Faultbox/glint/pkg/grf"
	"github.com/Faultbox/glint/pkg/surface"
)

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, args := args[0], args[1:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args, stdout)
	case "generate", "gen":
		err = cmdGenerate(args, stdout)
	case "preview":
		err = cmdPreview(args, stdout)
	case "list", "ls":
		err = cmdList(args, stdout)
	case "config":
		err = cmdConfig(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(stderr)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `glint - sparkle mesh generator

Usage:
  glint <command> [options] <model>

Models are .rsm, .yaml or .yml files, or archive entries written as
archive.grf:data/model/name.rsm.

Commands:
  info <model>                       Show surface statistics
  generate [-o out.yaml] <model>     Write a sparkle mesh document
  preview [-o out.webp] <model>      Render a sparkle preview image
  list <file.grf> [pattern]          List models in a GRF archive
  config [-o path]                   Write the effective config

Options (generate, preview):
  -config path   Config file (default ./glint.yaml, then the user config dir)
  -debug         Enable debug logging
  -n count       Sparkle count          -seed s      Random seed
  -limit L       Size search window     -speed v     Animation speed
  -t seconds     Preview time           -size px     Preview size
  -yaw deg       Camera yaw             -pitch deg   Camera pitch
  -format f      Image format (webp, png)

Examples:
  glint info tree.rsm
  glint generate -n 500 -seed 7 -o tree.sparkles.yaml tree.rsm
  glint preview -t 0.5 -o tree.webp data.grf:data/model/tree.rsm`)
}

// setup parses a subcommand's flags, loads config and starts logging.
func setup(name string, args []string, extra func(*flag.FlagSet)) (*config.Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := config.BindFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, nil, err
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, err
	}
	return cfg, fs, nil
}

func loadModel(cfg *config.Config, fs *flag.FlagSet) (*source.Mesh, error) {
	if fs.NArg() < 1 {
		return nil, fmt.Errorf("%w: %s needs a model", errUsage, fs.Name())
	}

	path := fs.Arg(0)
	mesh, err := source.Load(path, cfg.Model.Options())
	if err != nil {
		return nil, err
	}
	logger.Debug("model loaded",
		zap.String("path", path),
		zap.Int("vertices", len(mesh.Surface.Positions)),
		zap.Int("groups", len(mesh.Surface.Groups)))
	return mesh, nil
}

func cmdInfo(args []string, stdout io.Writer) error {
	cfg, fs, err := setup("info", args, nil)
	if err != nil {
		return err
	}
	mesh, err := loadModel(cfg, fs)
	if err != nil {
		return err
	}

	// Triangle weights are cross-product lengths, twice the geometric area
	sampler := surface.NewSampler(mesh.Surface.Positions, rand.New(rand.NewPCG(0, 0)))
	sampler.AddSurface(mesh.Surface, nil)
	logger.Sugar.Debugf("sampler accepted %d of %d triangles", sampler.TriangleCount(), mesh.Surface.TriangleCount())

	fmt.Fprintf(stdout, "Model:     %s\n", mesh.Name)
	fmt.Fprintf(stdout, "Vertices:  %d\n", len(mesh.Surface.Positions))
	fmt.Fprintf(stdout, "Triangles: %d (%d sampled, %d degenerate)\n",
		mesh.Surface.TriangleCount(), sampler.TriangleCount(),
		mesh.Surface.TriangleCount()-sampler.TriangleCount())
	fmt.Fprintf(stdout, "Area:      %.4f\n", sampler.Area()/2)
	fmt.Fprintf(stdout, "Skinned:   %v (%d bind poses)\n", mesh.HasWeights(), len(mesh.BindPoses))
	fmt.Fprintf(stdout, "Bounds:    %v - %v\n", mesh.Bounds.Min, mesh.Bounds.Max)
	fmt.Fprintln(stdout, "Groups:")
	for i, g := range mesh.Surface.Groups {
		included := ""
		if !cfg.Sparkles.Settings().IsSubmeshIncluded(i) {
			included = " (masked)"
		}
		fmt.Fprintf(stdout, "  %-3d %-9s %d primitives%s\n", i, g.Topology, g.PrimitiveCount(), included)
	}
	return nil
}

// startEffect builds an active effect for the configured model.
func startEffect(cfg *config.Config, fs *flag.FlagSet) (*sparkles.Effect, error) {
	mesh, err := loadModel(cfg, fs)
	if err != nil {
		return nil, err
	}

	effect := sparkles.NewEffect(cfg.Sparkles.Settings(), logger.Named("sparkles"))
	if err := effect.Start(mesh); err != nil {
		return nil, err
	}
	if effect.Mesh().QuadCount() == 0 {
		logger.Warn("no sparkles generated", zap.String("model", mesh.Name), zap.Int("samples", cfg.Sparkles.SampleCount))
	}
	return effect, nil
}

func cmdGenerate(args []string, stdout io.Writer) error {
	var output string
	cfg, fs, err := setup("generate", args, func(fs *flag.FlagSet) {
		fs.StringVar(&output, "o", "", "Output file (default stdout)")
	})
	if err != nil {
		return err
	}

	effect, err := startEffect(cfg, fs)
	if err != nil {
		return err
	}
	defer effect.Destroy()

	if err := effect.Update(cfg.Preview.Time); err != nil {
		return err
	}

	if output == "" {
		return sparkles.WriteYAML(stdout, effect.Mesh())
	}
	if err := writeFile(output, func(w io.Writer) error {
		return sparkles.WriteYAML(w, effect.Mesh())
	}); err != nil {
		return err
	}
	logger.Info("sparkle mesh written", zap.String("path", output), zap.Int("quads", effect.Mesh().QuadCount()))
	return nil
}

func cmdPreview(args []string, stdout io.Writer) error {
	var output string
	cfg, fs, err := setup("preview", args, func(fs *flag.FlagSet) {
		fs.StringVar(&output, "o", "", "Output image (default <output.dir>/<model>.<format>)")
	})
	if err != nil {
		return err
	}

	opts, err := cfg.Preview.Options()
	if err != nil {
		return err
	}

	effect, err := startEffect(cfg, fs)
	if err != nil {
		return err
	}
	defer effect.Destroy()

	if err := effect.Update(cfg.Preview.Time); err != nil {
		return err
	}

	format := cfg.Output.ImageFormat
	if output == "" {
		output = filepath.Join(cfg.Output.Dir, effect.Mesh().Name+"."+format)
	} else if ext := preview.FormatFromPath(output); ext != "" {
		format = ext
	}

	img := preview.Render(effect.Mesh(), opts)
	if err := writeFile(output, func(w io.Writer) error {
		return preview.Encode(w, img, format)
	}); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %s (%d sparkles, t=%.2fs)\n", output, effect.Mesh().QuadCount(), cfg.Preview.Time)
	return nil
}

func cmdList(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: list needs an archive", errUsage)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := "data/model/*.rsm"
	if fs.NArg() > 1 {
		pattern = fs.Arg(1)
	}
	names, err := archive.Match(pattern)
	if err != nil {
		return err
	}

	for i, name := range names {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func cmdConfig(args []string, stdout io.Writer) error {
	var output string
	cfg, _, err := setup("config", args, func(fs *flag.FlagSet) {
		fs.StringVar(&output, "o", "", "Write to this path instead of stdout")
	})
	if err != nil {
		return err
	}

	if output != "" {
		if err := cfg.SaveTo(output); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", output)
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
