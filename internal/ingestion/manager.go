package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/croc-sightings/internal/config"
	"github.com/mr1hm/croc-sightings/internal/events"
	"github.com/mr1hm/croc-sightings/internal/observability"
	"github.com/mr1hm/croc-sightings/internal/repository"
	"github.com/mr1hm/croc-sightings/internal/sightings"
	"github.com/mr1hm/croc-sightings/internal/worker"
)

// Source produces the raw table for a row limit.
type Source interface {
	Fetch(ctx context.Context, url string, maxRows int) (sightings.Table, error)
}

// Manager owns the dataset memo. Loads happen on first use of a row limit or
// from the preload pool, and each real load is recorded in the snapshot
// store and announced on the broadcaster.
type Manager struct {
	cfg         *config.Config
	source      Source
	cache       *sightings.Cache
	repo        repository.SightingRepository
	broadcaster *events.Broadcaster
	metrics     *observability.Metrics
	clock       clockwork.Clock
	pool        *worker.WorkerPool[int]
}

// NewManager wires a manager. repo and broadcaster may be nil.
func NewManager(
	cfg *config.Config,
	source Source,
	repo repository.SightingRepository,
	broadcaster *events.Broadcaster,
	metrics *observability.Metrics,
	clock clockwork.Clock,
) *Manager {
	m := &Manager{
		cfg:         cfg,
		source:      source,
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     metrics,
		clock:       clock,
	}
	m.cache = sightings.NewCache(m.load)
	return m
}

// Load returns the dataset for maxRows, fetching it on first use.
func (m *Manager) Load(ctx context.Context, maxRows int) (*sightings.Dataset, error) {
	ds, lookup, err := m.cache.Get(ctx, maxRows)
	if errors.Is(err, sightings.ErrInvalidRowLimit) {
		return nil, err
	}
	m.metrics.CacheLookups.WithLabelValues(string(lookup)).Inc()
	return ds, err
}

func (m *Manager) DefaultMaxRows() int {
	return m.cfg.Data.MaxRows
}

// Loaded reports the row limits currently memoized.
func (m *Manager) Loaded() []int {
	return m.cache.Keys()
}

func (m *Manager) load(ctx context.Context, maxRows int) (*sightings.Dataset, error) {
	start := m.clock.Now()
	url := m.cfg.Data.URL
	slog.Info("loading sightings", "url", url, "max_rows", maxRows)
	m.broadcast(events.LoadEvent{MaxRows: maxRows, State: events.StateLoading})

	ds, err := m.fetchAndNormalize(ctx, url, maxRows)
	m.metrics.LoadDuration.Observe(m.clock.Since(start).Seconds())
	if err != nil {
		m.metrics.Loads.WithLabelValues(outcome(err)).Inc()
		slog.Error("load failed", "max_rows", maxRows, "error", err)
		m.broadcast(events.LoadEvent{MaxRows: maxRows, State: events.StateFailed, Error: err.Error()})
		return nil, err
	}

	if m.repo != nil {
		// the in-memory dataset still serves if the snapshot cannot be written
		if err := m.repo.ReplaceSnapshot(ctx, ds); err != nil {
			slog.Error("error writing snapshot", "max_rows", maxRows, "error", err)
		}
	}

	m.metrics.Loads.WithLabelValues("success").Inc()
	m.metrics.RowsLoaded.WithLabelValues(strconv.Itoa(maxRows)).Set(float64(ds.Len()))
	slog.Info("loaded sightings", "max_rows", maxRows, "rows", ds.Len(), "duration", m.clock.Since(start))
	m.broadcast(events.LoadEvent{MaxRows: maxRows, State: events.StateLoaded, Rows: ds.Len()})
	return ds, nil
}

func (m *Manager) fetchAndNormalize(ctx context.Context, url string, maxRows int) (*sightings.Dataset, error) {
	table, err := m.source.Fetch(ctx, url, maxRows)
	if err != nil {
		return nil, err
	}
	return sightings.Normalize(table, maxRows, m.clock.Now())
}

func (m *Manager) broadcast(ev events.LoadEvent) {
	if m.broadcaster == nil {
		return
	}
	ev.At = m.clock.Now()
	m.broadcaster.Broadcast(ev)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, sightings.ErrFetch):
		return "fetch_error"
	case errors.Is(err, sightings.ErrParse):
		return "parse_error"
	default:
		return "error"
	}
}

// Start runs the preload pool and, if enabled, warms the default row limit.
func (m *Manager) Start(ctx context.Context) {
	processor := func(ctx context.Context, maxRows int) error {
		_, err := m.Load(ctx, maxRows)
		return err
	}

	m.pool = worker.NewWorkerPool("preload", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, processor)
	m.pool.Start(ctx)

	// the startup preload waits for queue space; later requests use Preload
	if m.cfg.Data.PreloadEnabled {
		slog.Info("preloading default row limit", "max_rows", m.cfg.Data.MaxRows)
		m.pool.Submit(m.cfg.Data.MaxRows)
	}
}

// Preload queues a background load for maxRows. It returns false when the
// row limit is invalid or the queue is full.
func (m *Manager) Preload(maxRows int) bool {
	if maxRows < 1 || m.pool == nil {
		return false
	}
	if m.cache.Cached(maxRows) {
		return true
	}
	if !m.pool.TrySubmit(maxRows) {
		slog.Warn("preload queue full", "max_rows", maxRows)
		return false
	}
	slog.Debug("preload queued", "max_rows", maxRows)
	return true
}

func (m *Manager) Stop() {
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}
