package config

import "flag"

// Flags are command-line overrides bound to a FlagSet. Only flags given on
// the command line override the loaded config.
type Flags struct {
	fs *flag.FlagSet

	Config string
	Debug  bool

	count  int
	seed   int64
	limit  int
	speed  float64
	size   int
	yaw    float64
	pitch  float64
	time   float64
	format string
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.count, "n", 0, "Number of sparkles to sample")
	fs.Int64Var(&f.seed, "seed", 0, "Random seed")
	fs.IntVar(&f.limit, "limit", 0, "Farthest-point search window (0 = random sizes)")
	fs.Float64Var(&f.speed, "speed", 0, "Animation speed")
	fs.IntVar(&f.size, "size", 0, "Preview width and height in pixels")
	fs.Float64Var(&f.yaw, "yaw", 0, "Preview camera yaw in degrees")
	fs.Float64Var(&f.pitch, "pitch", 0, "Preview camera pitch in degrees")
	fs.Float64Var(&f.time, "t", 0, "Animation time in seconds")
	fs.StringVar(&f.format, "format", "", "Image format (webp, png)")
	return f
}

// Apply copies every flag that was set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.Debug {
				cfg.Logging.Level = "debug"
			}
		case "n":
			cfg.Sparkles.SampleCount = f.count
		case "seed":
			cfg.Sparkles.Seed = f.seed
		case "limit":
			cfg.Sparkles.SearchLimit = f.limit
		case "speed":
			cfg.Sparkles.AnimationSpeed = float32(f.speed)
		case "size":
			cfg.Preview.Width = f.size
			cfg.Preview.Height = f.size
		case "yaw":
			cfg.Preview.Yaw = float32(f.yaw)
		case "pitch":
			cfg.Preview.Pitch = float32(f.pitch)
		case "t":
			cfg.Preview.Time = float32(f.time)
		case "format":
			cfg.Output.ImageFormat = f.format
		}
	})
}
