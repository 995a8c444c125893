// Command sightings-check loads the configured spreadsheet once and reports
// what the map service would serve. It exits non-zero when the load fails.
package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/croc-sightings/internal/config"
	"github.com/mr1hm/croc-sightings/internal/ingestion"
	"github.com/mr1hm/croc-sightings/internal/logging"
	"github.com/mr1hm/croc-sightings/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	fetcher := ingestion.NewFetcher(cfg.Data.FetchTimeout)
	mgr := ingestion.NewManager(cfg, fetcher, nil, nil, observability.NewMetrics(), clockwork.NewRealClock())

	ds, err := mgr.Load(context.Background(), cfg.Data.MaxRows)
	if err != nil {
		logging.Fatalf("load failed: %v", err)
	}

	attrs := []any{"rows", ds.Len(), "columns", ds.Columns()}
	if first, last, err := ds.DateRange(); err == nil {
		attrs = append(attrs, "days", len(ds.AvailableDates()), "first_day", first.String(), "last_day", last.String())
	}
	if center, err := ds.BoundingCenter(); err == nil {
		attrs = append(attrs, "center_latitude", center.Latitude, "center_longitude", center.Longitude)
	} else {
		slog.Warn("dataset is empty", "url", cfg.Data.URL)
	}

	slog.Info("sightings check passed", attrs...)
}
