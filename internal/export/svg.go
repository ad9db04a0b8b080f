package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"

	"github.com/topoforge/topoforge/internal/contour"
)

// SVGOptions controls the rendered document.
type SVGOptions struct {
	// Width of the output in SVG units; height follows the aspect
	// ratio of the layer bounds.
	Width       float64
	StrokeWidth float64
}

// DefaultSVGOptions returns render defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, StrokeWidth: 0.5}
}

// WriteSVG renders the layer stack as nested filled paths, bottom
// layer first. Holes render through even-odd fill. Y is flipped so
// north stays up.
func WriteSVG(w io.Writer, layers []contour.Layer, opts SVGOptions) error {
	if len(layers) == 0 {
		return ErrNoLayers
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}

	bound, ok := layersBound(layers)
	if !ok {
		return ErrNoLayers
	}
	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if spanX <= 0 || spanY <= 0 {
		return ErrNoLayers
	}
	scale := opts.Width / spanX
	height := spanY * scale

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.3f %.3f">`+"\n",
		opts.Width, height)

	for i, layer := range layers {
		shade := layerShade(i, len(layers))
		fmt.Fprintf(bw, `  <g fill="%s" fill-rule="evenodd" stroke="#333" stroke-width="%.3f">`+"\n",
			shade, opts.StrokeWidth)
		for _, poly := range layer.Polygons {
			fmt.Fprint(bw, `    <path d="`)
			for _, ring := range poly {
				writeRingPath(bw, ring, bound, scale, height)
			}
			fmt.Fprint(bw, `"/>`+"\n")
		}
		fmt.Fprint(bw, "  </g>\n")
	}
	fmt.Fprint(bw, "</svg>\n")
	return bw.Flush()
}

func layersBound(layers []contour.Layer) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, layer := range layers {
		for _, poly := range layer.Polygons {
			b := poly.Bound()
			if !found {
				bound = b
				found = true
			} else {
				bound = bound.Union(b)
			}
		}
	}
	return bound, found
}

func writeRingPath(w io.Writer, ring orb.Ring, bound orb.Bound, scale, height float64) {
	for i, pt := range ring {
		x := (pt[0] - bound.Min[0]) * scale
		y := height - (pt[1]-bound.Min[1])*scale
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(w, "%s%.3f %.3f ", cmd, x, y)
	}
	fmt.Fprint(w, "Z ")
}

// layerShade darkens with height so the stack reads like a relief map.
func layerShade(i, n int) string {
	if n < 2 {
		n = 2
	}
	t := float64(i) / float64(n-1)
	v := int(math.Round(230 - 150*t))
	return fmt.Sprintf("#%02x%02x%02x", v, v, v)
}
