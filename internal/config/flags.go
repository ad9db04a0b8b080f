package config

import "flag"

// Flags holds CLI overrides for a subcommand's flag set.
type Flags struct {
	fs *flag.FlagSet

	configPath string

	debug    bool
	logFile  string
	interval float64
	levels   int
	strategy string
	minElev  float64
	maxElev  float64
	fixed    float64

	removeHoles bool
	inset       bool
	insetMM     float64

	scale       float64
	baseMM      float64
	noBase      bool
	noWalls     bool
	contourMode bool
	flip        bool

	format string
	output string
	name   string
}

// RegisterFlags installs the shared override flags on a subcommand's
// flag set. Values are applied to a Config only when explicitly set.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}

	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Log file path")

	fs.Float64Var(&f.interval, "interval", 0, "Elevation spacing between contour levels")
	fs.IntVar(&f.levels, "levels", 0, "Number of elevation bands")
	fs.StringVar(&f.strategy, "strategy", "", "Level spacing: uniform, logarithmic, exponential")
	fs.Float64Var(&f.minElev, "min", 0, "Minimum elevation clip")
	fs.Float64Var(&f.maxElev, "max", 0, "Maximum elevation clip")
	fs.Float64Var(&f.fixed, "water-level", 0, "Extra fixed elevation level")
	fs.BoolVar(&f.removeHoles, "remove-holes", false, "Drop interior rings from contour polygons")
	fs.BoolVar(&f.inset, "inset", false, "Carve seating grooves for the layer above")
	fs.Float64Var(&f.insetMM, "inset-mm", 0, "Inset groove width in millimeters")

	fs.Float64Var(&f.scale, "z-scale", 0, "Vertical exaggeration")
	fs.Float64Var(&f.baseMM, "base", 0, "Base platform thickness in millimeters")
	fs.BoolVar(&f.noBase, "no-base", false, "Skip the base platform")
	fs.BoolVar(&f.noWalls, "no-walls", false, "Skip perimeter walls")
	fs.BoolVar(&f.contourMode, "flat", false, "Flat-topped tiles instead of terrain-following")
	fs.BoolVar(&f.flip, "flip", false, "Invert triangle winding")

	fs.StringVar(&f.format, "format", "", "Output format: stl, stl-ascii, geojson, svg")
	fs.StringVar(&f.output, "o", "", "Output path")
	fs.StringVar(&f.name, "name", "", "Model name for STL output")

	return f
}

// ConfigPath returns the explicit config path, if any.
func (f *Flags) ConfigPath() string {
	return f.configPath
}

// Apply copies explicitly set flags onto cfg. Defaults and file values
// stay untouched for flags the user did not pass.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			cfg.Logging.Level = "debug"
		case "log-file":
			cfg.Logging.LogFile = f.logFile
		case "interval":
			cfg.Contour.Interval = f.interval
		case "levels":
			cfg.Contour.NumLevels = f.levels
			cfg.Heightmap.NumLayers = f.levels
		case "strategy":
			cfg.Contour.Strategy = f.strategy
		case "min":
			v := f.minElev
			cfg.Contour.MinElevation = &v
			cfg.Heightmap.MinElevation = &v
		case "max":
			v := f.maxElev
			cfg.Contour.MaxElevation = &v
			cfg.Heightmap.MaxElevation = &v
		case "water-level":
			v := f.fixed
			cfg.Contour.FixedElevation = &v
		case "remove-holes":
			cfg.Contour.RemoveHoles = f.removeHoles
		case "inset":
			cfg.Contour.InsetUpperLayers = f.inset
		case "inset-mm":
			cfg.Contour.InsetOffsetMM = f.insetMM
		case "z-scale":
			cfg.Heightmap.VerticalScale = f.scale
		case "base":
			cfg.Heightmap.BaseHeightMM = f.baseMM
		case "no-base":
			cfg.Heightmap.GenerateBase = !f.noBase
		case "no-walls":
			cfg.Heightmap.GenerateWalls = !f.noWalls
		case "flat":
			cfg.Heightmap.ContourMode = f.contourMode
		case "flip":
			cfg.Heightmap.FlipNormals = f.flip
		case "format":
			cfg.Output.Format = f.format
		case "o":
			cfg.Output.Path = f.output
		case "name":
			cfg.Output.ModelName = f.name
		}
	})
}
