package geospatial

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Marker is a single point to place on the map
type Marker struct {
	ID        string
	Latitude  float64
	Longitude float64
	Thumbnail string
}

// Viewport is the initial map window for a set of markers
type Viewport struct {
	Center orb.Point
	Bound  orb.Bound
	Empty  bool
}

// Point converts a marker into an orb point (lon, lat order)
func (m Marker) Point() orb.Point {
	return orb.Point{m.Longitude, m.Latitude}
}

// FeatureCollection builds GeoJSON features for the markers
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(m.Point())
		f.ID = m.ID
		f.Properties["id"] = m.ID
		if m.Thumbnail != "" {
			f.Properties["thumbnail"] = m.Thumbnail
		}
		fc.Append(f)
	}
	return fc
}

// MarshalFeatureCollection encodes markers as a GeoJSON document
func MarshalFeatureCollection(markers []Marker) (string, error) {
	data, err := json.Marshal(FeatureCollection(markers))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CalculateViewport returns the bounding box and centroid of the markers
func CalculateViewport(markers []Marker) Viewport {
	if len(markers) == 0 {
		return Viewport{Empty: true}
	}
	mp := make(orb.MultiPoint, 0, len(markers))
	for _, m := range markers {
		mp = append(mp, m.Point())
	}
	return Viewport{
		Center: CalculateCentroid(mp),
		Bound:  mp.Bound(),
	}
}

// CalculateCentroid calculates the centroid of a geometry
func CalculateCentroid(geometry orb.Geometry) orb.Point {
	centroid, _ := planar.CentroidArea(geometry)
	return centroid
}
