package api

import (
	"time"

	"github.com/mr1hm/croc-sightings/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

func toGeoJSON(records []models.Sighting) FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, s := range records {
		day := s.Day().String()
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{s.Longitude, s.Latitude},
			},
			Properties: map[string]any{
				"date":      day,
				"timestamp": s.Timestamp.UTC().Format(time.RFC3339),
				"popup":     popupText(day),
				"fields":    s.Fields,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func popupText(day string) string {
	return "Date: " + day
}
