package export

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/topoforge/topoforge/internal/contour"
)

// ErrNoLayers rejects exporting an empty layer set.
var ErrNoLayers = errors.New("export: no layers to write")

// WriteGeoJSON writes one Feature per contour layer, each a
// MultiPolygon tagged with its elevation and planar area.
func WriteGeoJSON(w io.Writer, layers []contour.Layer) error {
	if len(layers) == 0 {
		return ErrNoLayers
	}
	fc := geojson.NewFeatureCollection()
	for i, layer := range layers {
		mp := make(orb.MultiPolygon, 0, len(layer.Polygons))
		mp = append(mp, layer.Polygons...)
		f := geojson.NewFeature(mp)
		f.Properties["layer"] = i
		f.Properties["elevation"] = layer.Elevation
		f.Properties["area"] = layer.Area
		fc.Append(f)
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
