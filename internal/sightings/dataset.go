package sightings

import (
	"slices"
	"time"

	"github.com/mr1hm/croc-sightings/internal/models"
)

// Dataset is an ordered, read-only collection of sightings. Accessors return
// copies and filters return new datasets, so a Dataset can be shared between
// requests without locking.
type Dataset struct {
	maxRows  int
	loadedAt time.Time
	columns  []string
	records  []models.Sighting
}

// NewDataset builds a dataset from already-typed records.
func NewDataset(columns []string, records []models.Sighting) *Dataset {
	recs := make([]models.Sighting, len(records))
	for i, r := range records {
		recs[i] = r.Clone()
	}
	return &Dataset{
		maxRows: len(records),
		columns: slices.Clone(columns),
		records: recs,
	}
}

func (d *Dataset) Len() int { return len(d.records) }

// MaxRows is the row limit the dataset was loaded with.
func (d *Dataset) MaxRows() int { return d.maxRows }

func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

func (d *Dataset) Columns() []string { return slices.Clone(d.columns) }

func (d *Dataset) At(i int) models.Sighting { return d.records[i].Clone() }

func (d *Dataset) Records() []models.Sighting {
	out := make([]models.Sighting, len(d.records))
	for i, r := range d.records {
		out[i] = r.Clone()
	}
	return out
}

// FilterByDate returns the sightings whose UTC calendar date is day, in their
// original order. No match yields an empty dataset.
func (d *Dataset) FilterByDate(day models.Day) *Dataset {
	out := &Dataset{
		maxRows:  d.maxRows,
		loadedAt: d.loadedAt,
		columns:  d.columns,
		records:  make([]models.Sighting, 0),
	}
	for _, r := range d.records {
		if r.Day() == day {
			out.records = append(out.records, r)
		}
	}
	return out
}

// AvailableDates returns the distinct calendar days present, ascending.
func (d *Dataset) AvailableDates() []models.Day {
	seen := make(map[models.Day]struct{})
	days := make([]models.Day, 0)
	for _, r := range d.records {
		day := r.Day()
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b models.Day) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	return days
}

// DateRange returns the first and last calendar day in the dataset.
func (d *Dataset) DateRange() (models.Day, models.Day, error) {
	days := d.AvailableDates()
	if len(days) == 0 {
		return models.Day{}, models.Day{}, ErrEmptyDataset
	}
	return days[0], days[len(days)-1], nil
}

// BoundingCenter is the mean latitude and longitude of all sightings.
func (d *Dataset) BoundingCenter() (models.Coordinates, error) {
	if len(d.records) == 0 {
		return models.Coordinates{}, ErrEmptyDataset
	}
	var lat, lon float64
	for _, r := range d.records {
		lat += r.Latitude
		lon += r.Longitude
	}
	n := float64(len(d.records))
	return models.Coordinates{Latitude: lat / n, Longitude: lon / n}, nil
}
