package geometry

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature roles stored in the "role" property.
const (
	RoleBoundary = "boundary"
	RoleObstacle = "obstacle"
)

// FeatureCollection converts the set into GeoJSON features tagged by role.
func (s PolygonSet) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(s.Boundary) > 0 {
		f := geojson.NewFeature(s.Boundary)
		f.Properties["role"] = RoleBoundary
		fc.Append(f)
	}
	for i, o := range s.Obstacles {
		f := geojson.NewFeature(o)
		f.Properties["role"] = RoleObstacle
		f.Properties["index"] = i
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON encodes the set as a GeoJSON feature collection.
func WriteGeoJSON(w io.Writer, s PolygonSet) error {
	data, err := s.FeatureCollection().MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal polygons: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write polygons: %w", err)
	}
	return nil
}

// ReadGeoJSON decodes a feature collection written by WriteGeoJSON.
// Features without a role are treated as obstacles; MultiPolygons are split.
func ReadGeoJSON(data []byte) (PolygonSet, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return PolygonSet{}, fmt.Errorf("failed to parse feature collection: %w", err)
	}

	var set PolygonSet
	for _, f := range fc.Features {
		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		case nil:
			continue
		default:
			log.Printf("⚠️  Skipping unsupported geometry %s\n", g.GeoJSONType())
			continue
		}

		role, _ := f.Properties["role"].(string)
		if role == RoleBoundary && len(polys) > 0 {
			set.Boundary = polys[0]
			polys = polys[1:]
		}
		set.Obstacles = append(set.Obstacles, polys...)
	}
	return set, nil
}

// SaveGeoJSON writes the set to a file.
func SaveGeoJSON(s PolygonSet, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	return WriteGeoJSON(f, s)
}

// LoadGeoJSON reads a set from a file.
func LoadGeoJSON(filename string) (PolygonSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return PolygonSet{}, fmt.Errorf("failed to read file: %w", err)
	}
	return ReadGeoJSON(data)
}
