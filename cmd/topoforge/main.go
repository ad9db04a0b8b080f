// topoforge converts elevation rasters into contour layers and
// fabrication-ready terrain meshes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/topoforge/topoforge/internal/config"
	"github.com/topoforge/topoforge/internal/contour"
	"github.com/topoforge/topoforge/internal/export"
	"github.com/topoforge/topoforge/internal/heightmap"
	"github.com/topoforge/topoforge/internal/logger"
	"github.com/topoforge/topoforge/internal/mesh"
	"github.com/topoforge/topoforge/internal/pipeline"
	"github.com/topoforge/topoforge/internal/raster"
	"github.com/topoforge/topoforge/pkg/dem"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "contours":
		cmdContours(args)
	case "mesh":
		cmdMesh(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`topoforge - terrain contour and mesh generator

Usage:
  topoforge <command> [options] <dem-file>

Commands:
  info <dem>       Show grid dimensions, elevation range and pixel size
  contours <dem>   Extract contour layers to GeoJSON or SVG
  mesh <dem>       Build a printable mesh (contour stack or heightmap surface)

DEM formats: SRTM .hgt tiles, Esri ASCII grids (.asc)

Examples:
  topoforge info N47E008.hgt
  topoforge contours -levels 8 -format svg -o contours.svg N47E008.hgt
  topoforge mesh -levels 10 -inset -o terrain.stl N47E008.hgt
  topoforge mesh -surface -z-scale 2 -o relief.stl alps.asc`)
}

// setup parses the subcommand flag set and assembles config + logger.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger) {
	f := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(f.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	f.Apply(cfg)

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, log
}

// loadDEM dispatches on file extension.
func loadDEM(path string) (*raster.Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hgt":
		return dem.ReadHGT(path)
	case ".asc", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dem.ReadEsriASCII(f)
	}
	return nil, fmt.Errorf("unsupported DEM format: %s", path)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg, log := setup(fs, args)
	defer log.Sync()
	_ = cfg

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: topoforge info <dem-file>")
		os.Exit(1)
	}

	g, err := loadDEM(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:    %s\n", fs.Arg(0))
	fmt.Printf("Grid:    %d x %d samples\n", g.Width, g.Height)
	fmt.Printf("Valid:   %d of %d samples\n", g.ValidCount(), g.Width*g.Height)
	if minV, maxV, ok := g.ValidRange(); ok {
		fmt.Printf("Range:   %.1f to %.1f m\n", minV, maxV)
	} else {
		fmt.Println("Range:   no valid samples")
	}
	mx, my := g.MetersPerPixel()
	fmt.Printf("Pixel:   %.1f x %.1f m\n", mx, my)
	fmt.Printf("Origin:  (%.6f, %.6f)\n", g.Transform[0], g.Transform[3])
}

func cmdContours(args []string) {
	fs := flag.NewFlagSet("contours", flag.ExitOnError)
	cfg, log := setup(fs, args)
	defer log.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: topoforge contours [options] <dem-file>")
		os.Exit(1)
	}

	g, err := loadDEM(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ccfg, err := contourConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	engine := contour.NewEngine(ccfg, log)
	layers, stats, err := engine.Generate(g, cfg.Contour.NumLevels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := cfg.Output.Path
	if out == "" || strings.HasSuffix(out, ".stl") {
		if cfg.Output.Format == "svg" {
			out = "contours.svg"
		} else {
			out = "contours.geojson"
		}
	}
	file, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	switch cfg.Output.Format {
	case "svg":
		err = export.WriteSVG(file, layers, export.DefaultSVGOptions())
	default:
		err = export.WriteGeoJSON(file, layers)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Layers:  %d (run %s)\n", len(layers), stats.RunID)
	for i, l := range layers {
		fmt.Printf("  %2d: %8.1f m, %d polygons, %.1f m2\n",
			i, l.Elevation, len(l.Polygons), l.Area)
	}
	fmt.Printf("Wrote:   %s\n", out)
}

func cmdMesh(args []string) {
	fs := flag.NewFlagSet("mesh", flag.ExitOnError)
	surface := fs.Bool("surface", false, "Triangulate the raster directly instead of stacking contours")
	cfg, log := setup(fs, args)
	defer log.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: topoforge mesh [options] <dem-file>")
		os.Exit(1)
	}

	g, err := loadDEM(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *surface && cfg.Heightmap.NumLayers > 1 {
		writeSurfaceLayers(cfg, g, log)
		return
	}
	if !*surface && !cfg.Mesh.Stacked {
		writeContourLayers(cfg, g, log)
		return
	}

	var store *mesh.Store
	if *surface {
		store, err = buildSurfaceMesh(cfg, g, log)
	} else {
		store, err = buildContourMesh(cfg, g, log)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := outputPath(cfg, "terrain.stl")
	file, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	name := cfg.Output.ModelName
	if cfg.Output.Format == "stl-ascii" {
		err = export.WriteSTLASCII(file, store, name)
	} else {
		err = export.WriteSTLBinary(file, store, name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report := store.Validate()
	stats := store.Stats()
	fmt.Printf("Mesh:    %d vertices, %d triangles\n", stats.Vertices, stats.Triangles)
	fmt.Printf("Bounds:  (%.1f %.1f %.1f) to (%.1f %.1f %.1f)\n",
		stats.Min.X, stats.Min.Y, stats.Min.Z, stats.Max.X, stats.Max.Y, stats.Max.Z)
	if report.Watertight {
		fmt.Println("Shell:   watertight")
	} else {
		fmt.Printf("Shell:   %d boundary edges, %d non-manifold edges\n",
			report.BoundaryEdges, report.NonManifoldEdges)
	}
	fmt.Printf("Wrote:   %s\n", out)
}

func buildContourMesh(cfg *config.Config, g *raster.Grid, log *zap.Logger) (*mesh.Store, error) {
	ccfg, err := contourConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		Contour:         ccfg,
		NumLayers:       cfg.Contour.NumLevels,
		VertexTolerance: cfg.Mesh.VertexTolerance,
		Stacked:         true,
	}
	p := pipeline.New(opts, log)
	res, err := p.Run(g)
	if err != nil {
		return nil, err
	}
	return res.Stacked, nil
}

// writeContourLayers runs the pipeline in per-layer mode and writes
// one STL per contour shell.
func writeContourLayers(cfg *config.Config, g *raster.Grid, log *zap.Logger) {
	ccfg, err := contourConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts := pipeline.Options{
		Contour:         ccfg,
		NumLayers:       cfg.Contour.NumLevels,
		VertexTolerance: cfg.Mesh.VertexTolerance,
		Stacked:         false,
	}
	res, err := pipeline.New(opts, log).Run(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	base := outputPath(cfg, "terrain.stl")
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i, store := range res.Meshes {
		out := fmt.Sprintf("%s_layer%02d%s", stem, i+1, ext)
		if err := writeSTL(cfg, store, out, i+1); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Layer %2d: %8.1f m, %d triangles -> %s\n",
			i+1, res.Layers[i].Elevation, store.NumTriangles(), out)
	}
}

func writeSTL(cfg *config.Config, store *mesh.Store, path string, layer int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	name := cfg.Output.ModelName
	if layer > 0 {
		name = fmt.Sprintf("%s_layer%02d", name, layer)
	}
	if cfg.Output.Format == "stl-ascii" {
		return export.WriteSTLASCII(file, store, name)
	}
	return export.WriteSTLBinary(file, store, name)
}

// writeSurfaceLayers splits the elevation range into bands and writes
// one STL per band, suffixing the output name.
func writeSurfaceLayers(cfg *config.Config, g *raster.Grid, log *zap.Logger) {
	tr := heightmap.New(surfaceConfig(cfg), log)
	stores, stats, err := tr.TriangulateLayers(g, cfg.Heightmap.NumLayers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	base := outputPath(cfg, "terrain.stl")
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i, store := range stores {
		out := fmt.Sprintf("%s_layer%02d%s", stem, i+1, ext)
		if err := writeSTL(cfg, store, out, i+1); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Layer %2d: %d triangles -> %s\n", i+1, stats[i].SurfaceTriangles, out)
	}
}

func buildSurfaceMesh(cfg *config.Config, g *raster.Grid, log *zap.Logger) (*mesh.Store, error) {
	return heightmap.New(surfaceConfig(cfg), log).Triangulate(g)
}

func surfaceConfig(cfg *config.Config) heightmap.Config {
	hc := cfg.Heightmap
	return heightmap.Config{
		VerticalScale:   hc.VerticalScale,
		BaseHeightMM:    hc.BaseHeightMM,
		GenerateBase:    hc.GenerateBase,
		GenerateWalls:   hc.GenerateWalls,
		ContourMode:     hc.ContourMode,
		FlipNormals:     hc.FlipNormals,
		MinElevation:    hc.MinElevation,
		MaxElevation:    hc.MaxElevation,
		VertexTolerance: cfg.Mesh.VertexTolerance,
	}
}

// contourConfig maps file/flag settings onto the engine config.
func contourConfig(cfg *config.Config) (contour.Config, error) {
	strategy, err := contour.ParseStrategy(cfg.Contour.Strategy)
	if err != nil {
		return contour.Config{}, err
	}
	return contour.Config{
		Interval:           cfg.Contour.Interval,
		NumLevels:          cfg.Contour.NumLevels,
		Strategy:           strategy,
		MinElevation:       cfg.Contour.MinElevation,
		MaxElevation:       cfg.Contour.MaxElevation,
		ElevationThreshold: cfg.Contour.ElevationThreshold,
		FixedElevation:     cfg.Contour.FixedElevation,
		RemoveHoles:        cfg.Contour.RemoveHoles,
		ForceAllLayers:     cfg.Contour.ForceAllLayers,
		InsetUpperLayers:   cfg.Contour.InsetUpperLayers,
		InsetOffsetMM:      cfg.Contour.InsetOffsetMM,
		VertexTolerance:    cfg.Mesh.VertexTolerance,
	}, nil
}

func outputPath(cfg *config.Config, fallback string) string {
	if cfg.Output.Path != "" {
		return cfg.Output.Path
	}
	return fallback
}
