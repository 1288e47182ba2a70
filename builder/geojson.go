package builder

import (
	geojson "github.com/paulmach/go.geojson"
)

// RouteGeoJSON renders a built route as a GeoJSON FeatureCollection for
// tools that consume standard geo formats directly: one LineString feature
// per shape and one Point feature per stop. GeoJSON positions are
// [lon, lat], the reverse of the route document's point pairs.
func RouteGeoJSON(doc *RouteDocument) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, shape := range doc.Shapes {
		coords := make([][]float64, 0, len(shape.Points))
		for _, point := range shape.Points {
			coords = append(coords, []float64{point[1], point[0]})
		}
		feature := geojson.NewLineStringFeature(coords)
		feature.SetProperty("routeKey", doc.Key)
		feature.SetProperty("shapeId", shape.ShapeID)
		feature.SetProperty("directionKeys", shape.DirectionKeys)
		feature.SetProperty("color", doc.Color)
		fc.AddFeature(feature)
	}

	for _, stop := range doc.Stops {
		feature := geojson.NewPointFeature([]float64{stop.Lon, stop.Lat})
		feature.SetProperty("routeKey", doc.Key)
		feature.SetProperty("stopId", stop.StopID)
		feature.SetProperty("name", stop.Name)
		fc.AddFeature(feature)
	}

	return fc
}
