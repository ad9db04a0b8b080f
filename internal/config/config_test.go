package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test contour defaults
	if cfg.Contour.Interval != 100 {
		t.Errorf("expected interval 100, got %f", cfg.Contour.Interval)
	}
	if cfg.Contour.NumLevels != 10 {
		t.Errorf("expected 10 levels, got %d", cfg.Contour.NumLevels)
	}
	if cfg.Contour.Strategy != "uniform" {
		t.Errorf("expected strategy 'uniform', got %s", cfg.Contour.Strategy)
	}
	if cfg.Contour.RemoveHoles {
		t.Error("expected remove_holes to be false by default")
	}
	if cfg.Contour.InsetOffsetMM != 1.0 {
		t.Errorf("expected inset offset 1.0mm, got %f", cfg.Contour.InsetOffsetMM)
	}

	// Test mesh defaults
	if cfg.Mesh.VertexTolerance != 1e-6 {
		t.Errorf("expected vertex tolerance 1e-6, got %g", cfg.Mesh.VertexTolerance)
	}
	if !cfg.Mesh.Stacked {
		t.Error("expected stacked to be true by default")
	}

	// Test heightmap defaults
	if cfg.Heightmap.VerticalScale != 1.0 {
		t.Errorf("expected vertical scale 1.0, got %f", cfg.Heightmap.VerticalScale)
	}
	if !cfg.Heightmap.GenerateBase {
		t.Error("expected generate_base to be true by default")
	}
	if !cfg.Heightmap.GenerateWalls {
		t.Error("expected generate_walls to be true by default")
	}
	if cfg.Heightmap.ContourMode {
		t.Error("expected contour_mode to be false by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
contour:
  interval: 50
  num_levels: 8
  strategy: "logarithmic"
  remove_holes: true
  inset_upper_layers: true
  inset_offset_mm: 2.5

mesh:
  vertex_tolerance: 0.001
  stacked: false

heightmap:
  vertical_scale: 2.0
  base_height_mm: 10
  contour_mode: true

output:
  format: "geojson"
  path: "out.geojson"

logging:
  level: "debug"
  log_file: "forge.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Contour.Interval != 50 {
		t.Errorf("expected interval 50, got %f", cfg.Contour.Interval)
	}
	if cfg.Contour.NumLevels != 8 {
		t.Errorf("expected 8 levels, got %d", cfg.Contour.NumLevels)
	}
	if cfg.Contour.Strategy != "logarithmic" {
		t.Errorf("expected strategy 'logarithmic', got %s", cfg.Contour.Strategy)
	}
	if !cfg.Contour.RemoveHoles {
		t.Error("expected remove_holes to be true")
	}
	if cfg.Contour.InsetOffsetMM != 2.5 {
		t.Errorf("expected inset offset 2.5, got %f", cfg.Contour.InsetOffsetMM)
	}

	if cfg.Mesh.VertexTolerance != 0.001 {
		t.Errorf("expected vertex tolerance 0.001, got %g", cfg.Mesh.VertexTolerance)
	}
	if cfg.Mesh.Stacked {
		t.Error("expected stacked to be false")
	}

	if cfg.Heightmap.VerticalScale != 2.0 {
		t.Errorf("expected vertical scale 2.0, got %f", cfg.Heightmap.VerticalScale)
	}
	if !cfg.Heightmap.ContourMode {
		t.Error("expected contour_mode to be true")
	}

	if cfg.Output.Format != "geojson" {
		t.Errorf("expected format 'geojson', got %s", cfg.Output.Format)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "forge.log" {
		t.Errorf("expected log file 'forge.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
contour:
  interval: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := Default()
	cfg.Contour.NumLevels = 7
	min := 200.0
	cfg.Contour.MinElevation = &min

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Contour.NumLevels != 7 {
		t.Errorf("expected 7 levels after round trip, got %d", loaded.Contour.NumLevels)
	}
	if loaded.Contour.MinElevation == nil || *loaded.Contour.MinElevation != 200 {
		t.Errorf("expected min elevation 200 after round trip, got %v", loaded.Contour.MinElevation)
	}
}

func TestFlagsApplyOnlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)

	if err := fs.Parse([]string{"-levels", "5", "-min", "300", "-no-base"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg := Default()
	f.Apply(cfg)

	if cfg.Contour.NumLevels != 5 {
		t.Errorf("expected 5 levels from flag, got %d", cfg.Contour.NumLevels)
	}
	if cfg.Heightmap.NumLayers != 5 {
		t.Errorf("expected heightmap layers to follow -levels, got %d", cfg.Heightmap.NumLayers)
	}
	if cfg.Contour.MinElevation == nil || *cfg.Contour.MinElevation != 300 {
		t.Errorf("expected min elevation 300 from flag, got %v", cfg.Contour.MinElevation)
	}
	if cfg.Heightmap.GenerateBase {
		t.Error("expected -no-base to disable the base platform")
	}

	// Unset flags must not disturb defaults or file values.
	if cfg.Contour.Interval != 100 {
		t.Errorf("interval changed without a flag, got %f", cfg.Contour.Interval)
	}
	if cfg.Contour.MaxElevation != nil {
		t.Errorf("max elevation set without a flag, got %v", cfg.Contour.MaxElevation)
	}
	if !cfg.Heightmap.GenerateWalls {
		t.Error("walls disabled without a flag")
	}
}

func TestFlagsDebugSetsLogLevel(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)

	if err := fs.Parse([]string{"-debug"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg := Default()
	f.Apply(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}
