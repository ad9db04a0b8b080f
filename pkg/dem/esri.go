package dem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/topoforge/topoforge/internal/raster"
)

// Esri ASCII grid errors.
var (
	ErrInvalidEsriHeader = errors.New("invalid esri ascii grid header")
	ErrTruncatedEsriData = errors.New("truncated esri ascii grid data")
)

// ReadEsriASCII reads an Esri ASCII grid (.asc): a header of
// ncols/nrows/xllcorner/yllcorner/cellsize and optional nodata_value,
// followed by whitespace-separated samples in row-major order, north
// row first.
func ReadEsriASCII(r io.Reader) (*raster.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	header := map[string]float64{
		"nodata_value": float64(raster.DefaultNoData),
	}
	var firstSample string

	// Header keys come in key/value pairs until the first bare number.
	for {
		tok, ok := next()
		if !ok {
			return nil, ErrInvalidEsriHeader
		}
		key := strings.ToLower(tok)
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			firstSample = tok
			break
		}
		val, ok := next()
		if !ok {
			return nil, ErrInvalidEsriHeader
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidEsriHeader, key, val)
		}
		header[key] = f
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	cell := header["cellsize"]
	if cols <= 0 || rows <= 0 || cell <= 0 {
		return nil, fmt.Errorf("%w: ncols=%d nrows=%d cellsize=%g",
			ErrInvalidEsriHeader, cols, rows, cell)
	}

	// Lower-left corner or cell-center origin; convert to the top-left
	// corner the geotransform expects.
	xll, hasCorner := header["xllcorner"]
	yll := header["yllcorner"]
	if !hasCorner {
		if xc, ok := header["xllcenter"]; ok {
			xll = xc - cell/2
			yll = header["yllcenter"] - cell/2
		} else {
			return nil, fmt.Errorf("%w: missing xllcorner/xllcenter", ErrInvalidEsriHeader)
		}
	}
	transform := [6]float64{
		xll, cell, 0,
		yll + float64(rows)*cell, 0, -cell,
	}

	noData := float32(header["nodata_value"])
	g, err := raster.New(cols, rows, transform, noData)
	if err != nil {
		return nil, err
	}

	tok := firstSample
	for i := 0; i < cols*rows; i++ {
		if i > 0 {
			var ok bool
			tok, ok = next()
			if !ok {
				return nil, fmt.Errorf("%w: %d of %d samples", ErrTruncatedEsriData, i, cols*rows)
			}
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad sample %q", ErrTruncatedEsriData, tok)
		}
		g.Samples[i] = float32(v)
	}
	return g, sc.Err()
}
