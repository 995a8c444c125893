package models

import (
	"maps"
	"time"
)

type Sighting struct {
	Timestamp time.Time         // parsed from utc_date, always UTC
	Latitude  float64
	Longitude float64
	Fields    map[string]string // every other column, keyed by lowercase name
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s Sighting) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
}

func (s Sighting) Day() Day {
	return DayOf(s.Timestamp)
}

// Clone returns a copy that shares no mutable state with s.
func (s Sighting) Clone() Sighting {
	if s.Fields != nil {
		s.Fields = maps.Clone(s.Fields)
	}
	return s
}
