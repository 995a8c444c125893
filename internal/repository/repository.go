package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/croc-sightings/internal/models"
	"github.com/mr1hm/croc-sightings/internal/sightings"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

type Filter struct {
	MaxRows int
	Day     *models.Day
	Limit   int
	Offset  int
}

// Snapshot describes one stored copy of a loaded dataset.
type Snapshot struct {
	MaxRows  int
	Columns  []string
	Rows     int
	LoadedAt time.Time
}

// StoredSighting is a sighting plus its position in the loaded dataset.
type StoredSighting struct {
	Index int
	models.Sighting
}

type SightingRepository interface {
	ReplaceSnapshot(ctx context.Context, ds *sightings.Dataset) error
	GetSnapshot(ctx context.Context, maxRows int) (*Snapshot, error)
	ListSightings(ctx context.Context, opts Filter) ([]StoredSighting, error)
	CountSightings(ctx context.Context, opts Filter) (int, error)
}
