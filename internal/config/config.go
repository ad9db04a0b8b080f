// Package config handles pipeline configuration loading and management.
package config

// Config holds all generation settings.
type Config struct {
	Contour   ContourConfig   `yaml:"contour"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Heightmap HeightmapConfig `yaml:"heightmap"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ContourConfig holds contour extraction settings.
type ContourConfig struct {
	Interval           float64  `yaml:"interval"`   // Elevation spacing between levels
	NumLevels          int      `yaml:"num_levels"` // Number of elevation bands
	Strategy           string   `yaml:"strategy"`   // uniform, logarithmic, exponential
	MinElevation       *float64 `yaml:"min_elevation,omitempty"`
	MaxElevation       *float64 `yaml:"max_elevation,omitempty"`
	ElevationThreshold float64  `yaml:"elevation_threshold"` // Signed window: >0 keeps near min, <0 near max
	FixedElevation     *float64 `yaml:"fixed_elevation,omitempty"`
	RemoveHoles        bool     `yaml:"remove_holes"`
	ForceAllLayers     bool     `yaml:"force_all_layers"`
	InsetUpperLayers   bool     `yaml:"inset_upper_layers"`
	InsetOffsetMM      float64  `yaml:"inset_offset_mm"`
}

// MeshConfig holds mesh builder settings.
type MeshConfig struct {
	VertexTolerance float64 `yaml:"vertex_tolerance"` // Spatial vertex dedup distance
	Stacked         bool    `yaml:"stacked"`          // One stacked mesh vs per-layer meshes
}

// HeightmapConfig holds direct raster triangulation settings.
type HeightmapConfig struct {
	VerticalScale float64  `yaml:"vertical_scale"`
	BaseHeightMM  float64  `yaml:"base_height_mm"`
	GenerateBase  bool     `yaml:"generate_base"`
	GenerateWalls bool     `yaml:"generate_walls"`
	ContourMode   bool     `yaml:"contour_mode"` // Flat-topped tiles instead of terrain-following
	FlipNormals   bool     `yaml:"flip_normals"`
	MinElevation  *float64 `yaml:"min_elevation,omitempty"`
	MaxElevation  *float64 `yaml:"max_elevation,omitempty"`
	NumLayers     int      `yaml:"num_layers"` // >1 splits the range into equal bands
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Format    string `yaml:"format"` // stl, stl-ascii, geojson, svg
	Path      string `yaml:"path"`
	ModelName string `yaml:"model_name"` // Solid name written into STL output
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`    // debug, info, warn, error
	LogFile string `yaml:"log_file"` // Empty = console only
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Contour: ContourConfig{
			Interval:      100,
			NumLevels:     10,
			Strategy:      "uniform",
			InsetOffsetMM: 1.0,
		},
		Mesh: MeshConfig{
			VertexTolerance: 1e-6,
			Stacked:         true,
		},
		Heightmap: HeightmapConfig{
			VerticalScale: 1.0,
			BaseHeightMM:  5.0,
			GenerateBase:  true,
			GenerateWalls: true,
		},
		Output: OutputConfig{
			Format:    "stl",
			Path:      "terrain.stl",
			ModelName: "terrain",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
