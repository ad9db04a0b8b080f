// Package dem provides readers for digital elevation model files.
package dem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/topoforge/topoforge/internal/raster"
)

// HGT format errors.
var (
	ErrInvalidHGTSize = errors.New("hgt file is not a square int16 grid")
	ErrInvalidHGTName = errors.New("hgt filename missing N/S/E/W tile coordinates")
)

// SRTM tile sizes in samples per side.
const (
	srtm1Size = 3601 // 1 arc-second
	srtm3Size = 1201 // 3 arc-second
)

// ReadHGT reads an SRTM .hgt tile. The grid size is inferred from the
// file length and the tile's southwest corner from the filename
// (e.g. N47E008.hgt). Samples are big-endian int16 meters; -32768
// marks voids.
func ReadHGT(path string) (*raster.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	size, err := hgtSize(len(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lat, lon, err := parseHGTName(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// One tile spans exactly one degree; rows run north to south, so
	// the origin is the tile's northwest corner.
	step := 1.0 / float64(size-1)
	transform := [6]float64{
		float64(lon), step, 0,
		float64(lat) + 1, 0, -step,
	}

	g, err := raster.New(size, size, transform, raster.DefaultNoData)
	if err != nil {
		return nil, err
	}
	for i := range g.Samples {
		g.Samples[i] = float32(int16(binary.BigEndian.Uint16(data[i*2:])))
	}
	return g, nil
}

// hgtSize infers samples-per-side from the byte length.
func hgtSize(n int) (int, error) {
	switch n {
	case srtm1Size * srtm1Size * 2:
		return srtm1Size, nil
	case srtm3Size * srtm3Size * 2:
		return srtm3Size, nil
	}
	return 0, fmt.Errorf("%w: %d bytes", ErrInvalidHGTSize, n)
}

// parseHGTName extracts the southwest corner from names like
// "N47E008.hgt" or "s12w077.hgt".
func parseHGTName(name string) (lat, lon int, err error) {
	base := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
	if len(base) != 7 {
		return 0, 0, ErrInvalidHGTName
	}

	latSign, lonSign := 1, 1
	switch base[0] {
	case 'N':
	case 'S':
		latSign = -1
	default:
		return 0, 0, ErrInvalidHGTName
	}
	switch base[3] {
	case 'E':
	case 'W':
		lonSign = -1
	default:
		return 0, 0, ErrInvalidHGTName
	}

	lat, err = strconv.Atoi(base[1:3])
	if err != nil {
		return 0, 0, ErrInvalidHGTName
	}
	lon, err = strconv.Atoi(base[4:7])
	if err != nil {
		return 0, 0, ErrInvalidHGTName
	}
	return latSign * lat, lonSign * lon, nil
}
