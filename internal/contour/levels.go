// Package contour extracts elevation-banded polygon layers from a
// raster using cumulative binary masks.
package contour

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Contour errors.
var (
	ErrNoLevelsInRange  = errors.New("contour: no contour level falls inside the valid data range")
	ErrMemoryExhausted  = errors.New("contour: memory pressure persists at maximum downsampling")
	ErrInvalidRaster    = errors.New("contour: raster has no valid samples")
	ErrInvalidLayerSpec = errors.New("contour: layer count must be positive")
)

// Strategy selects the spacing of contour levels.
type Strategy int

const (
	Uniform Strategy = iota
	Logarithmic
	Exponential
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "uniform":
		return Uniform, nil
	case "logarithmic", "log":
		return Logarithmic, nil
	case "exponential", "exp":
		return Exponential, nil
	}
	return Uniform, fmt.Errorf("contour: unknown strategy %q", s)
}

// Config holds contour extraction settings.
type Config struct {
	Interval           float64
	NumLevels          int
	Strategy           Strategy
	MinElevation       *float64
	MaxElevation       *float64
	ElevationThreshold float64 // >0 keeps within threshold of the minimum, <0 of the maximum
	FixedElevation     *float64
	RemoveHoles        bool
	ForceAllLayers     bool
	InsetUpperLayers   bool
	InsetOffsetMM      float64
	VertexTolerance    float64
}

// DefaultConfig returns extraction defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        100,
		Strategy:        Uniform,
		InsetOffsetMM:   1.0,
		VertexTolerance: 1e-6,
	}
}

// GenerateLevels produces n+1 strictly increasing elevation thresholds
// spanning the filtered data range. An optional fixed elevation (a
// water line) is injected and the result re-sorted. A user range
// disjoint from the data range is a configuration error; a range made
// degenerate by the threshold window falls back to a small band around
// the midpoint.
func GenerateLevels(minElev, maxElev float64, n int, cfg Config) ([]float64, error) {
	lo, hi := minElev, maxElev
	if cfg.MinElevation != nil {
		lo = math.Max(lo, *cfg.MinElevation)
	}
	if cfg.MaxElevation != nil {
		hi = math.Min(hi, *cfg.MaxElevation)
	}
	if lo > maxElev || hi < minElev {
		return nil, ErrNoLevelsInRange
	}

	// Signed window: positive keeps terrain near the valley floor,
	// negative keeps peaks.
	if cfg.ElevationThreshold > 0 {
		hi = math.Min(hi, minElev+cfg.ElevationThreshold)
	} else if cfg.ElevationThreshold < 0 {
		lo = math.Max(lo, maxElev+cfg.ElevationThreshold)
	}

	if lo >= hi {
		mid := (minElev + maxElev) / 2
		lo, hi = mid-50, mid+50
	}

	if n <= 0 {
		if cfg.Interval <= 0 {
			return nil, ErrInvalidLayerSpec
		}
		n = int(math.Ceil((hi - lo) / cfg.Interval))
		if n < 1 {
			n = 1
		}
	}

	levels := make([]float64, n+1)
	switch cfg.Strategy {
	case Logarithmic:
		logLo := math.Log(math.Max(lo, 1))
		logHi := math.Log(math.Max(hi, lo+1))
		floats.Span(levels, logLo, logHi)
		for i, v := range levels {
			levels[i] = math.Exp(v)
		}
	case Exponential:
		span := hi - lo
		denom := math.Exp(2) - 1
		for i := range levels {
			t := float64(i) / float64(n)
			levels[i] = lo + span*(math.Exp(2*t)-1)/denom
		}
	default:
		floats.Span(levels, lo, hi)
	}

	if cfg.FixedElevation != nil {
		fixed := *cfg.FixedElevation
		found := false
		for _, l := range levels {
			if math.Abs(l-fixed) < 1e-6 {
				found = true
				break
			}
		}
		if !found {
			levels = append(levels, fixed)
			sort.Float64s(levels)
		}
	}
	return levels, nil
}
