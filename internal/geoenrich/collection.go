package geoenrich

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/inspection-cli/internal/model"
)

// SRID of feature geometries.
const SRID = 4326

// Point returns the WGS84 point for loc, or nil.
func Point(loc *model.Location) *geom.Point {
	if loc == nil {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{loc.Longitude, loc.Latitude}).SetSRID(SRID)
}

// ToGeoJSON converts a feature. A feature without a location gets a null
// geometry.
func ToGeoJSON(f *model.Feature) *geojson.Feature {
	gf := &geojson.Feature{Properties: f.Properties}
	if p := Point(f.Location); p != nil {
		gf.Geometry = p
	}
	return gf
}

// FeatureCollection packages the non-nil features in order.
func FeatureCollection(features []*model.Feature) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		if f == nil {
			continue
		}
		fc.Features = append(fc.Features, ToGeoJSON(f))
	}
	return fc
}

// WriteFeatureCollection encodes the features as a GeoJSON
// FeatureCollection.
func WriteFeatureCollection(w io.Writer, features []*model.Feature) error {
	data, err := json.MarshalIndent(FeatureCollection(features), "", "  ")
	if err != nil {
		return eris.Wrap(err, "geoenrich: encode feature collection")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "geoenrich: write feature collection")
	}
	return nil
}
