package api

import "github.com/mr1hm/croc-sightings/internal/models"

const (
	mapZoom     = 5
	mapTiles    = "CartoDB positron"
	markerColor = "#FF6600"
	markerSize  = 5
)

type MarkerStyle struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fill_color"`
	Radius      int     `json:"radius"`
	FillOpacity float64 `json:"fill_opacity"`
}

// MapView is everything the page needs to draw the map besides the markers.
// Center is nil when there is nothing to show.
type MapView struct {
	Title  string              `json:"title"`
	Date   *models.Day         `json:"date,omitempty"`
	Center *models.Coordinates `json:"center"`
	Zoom   int                 `json:"zoom"`
	Tiles  string              `json:"tiles"`
	Marker MarkerStyle         `json:"marker"`
	Empty  bool                `json:"empty"`
	Count  int                 `json:"count"`
}

func newMapView(day *models.Day, count int) MapView {
	title := "Map of all sightings"
	if day != nil {
		title += " on " + day.String()
	}
	return MapView{
		Title: title,
		Date:  day,
		Zoom:  mapZoom,
		Tiles: mapTiles,
		Marker: MarkerStyle{
			Color:       markerColor,
			FillColor:   markerColor,
			Radius:      markerSize,
			FillOpacity: 0.2,
		},
		Count: count,
	}
}
