package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/croc-sightings/internal/events"
	"github.com/mr1hm/croc-sightings/internal/models"
	"github.com/mr1hm/croc-sightings/internal/observability"
	"github.com/mr1hm/croc-sightings/internal/repository"
	"github.com/mr1hm/croc-sightings/internal/sightings"
)

//go:embed static/index.html
var indexHTML []byte

const (
	defaultRawLimit = 100
	maxRawLimit     = 1000
)

// DatasetSource is the part of the load manager the API depends on.
type DatasetSource interface {
	Load(ctx context.Context, maxRows int) (*sightings.Dataset, error)
	DefaultMaxRows() int
	Preload(maxRows int) bool
}

type Handler struct {
	source      DatasetSource
	repo        repository.SightingRepository
	broadcaster *events.Broadcaster
	metrics     *observability.Metrics
}

func NewHandler(source DatasetSource, repo repository.SightingRepository, broadcaster *events.Broadcaster, metrics *observability.Metrics) *Handler {
	return &Handler{
		source:      source,
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.index)
	r.GET("/api/sightings", h.getSightings)
	r.GET("/api/dates", h.getDates)
	r.GET("/api/center", h.getCenter)
	r.GET("/api/map", h.getMap)
	r.GET("/api/raw", h.getRaw)
	r.GET("/api/events", h.streamEvents)
	r.POST("/api/preload", h.preload)
	r.GET("/health", h.health)
}

func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handler) getSightings(c *gin.Context) {
	ds, _, ok := h.dataset(c)
	if !ok {
		return
	}

	fc := toGeoJSON(ds.Records())
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

type datesResponse struct {
	Dates []models.Day `json:"dates"`
	Min   *models.Day  `json:"min"`
	Max   *models.Day  `json:"max"`
}

// getDates always describes the whole dataset so the date picker can offer
// every day, whatever is currently selected.
func (h *Handler) getDates(c *gin.Context) {
	maxRows, err := h.rowsParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ds, err := h.source.Load(c.Request.Context(), maxRows)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := datesResponse{Dates: ds.AvailableDates()}
	if first, last, err := ds.DateRange(); err == nil {
		resp.Min, resp.Max = &first, &last
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getCenter(c *gin.Context) {
	ds, _, ok := h.dataset(c)
	if !ok {
		return
	}

	center, err := ds.BoundingCenter()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, center)
}

func (h *Handler) getMap(c *gin.Context) {
	ds, day, ok := h.dataset(c)
	if !ok {
		return
	}

	view := newMapView(day, ds.Len())
	if center, err := ds.BoundingCenter(); err == nil {
		view.Center = &center
	} else {
		view.Empty = true
	}
	c.JSON(http.StatusOK, view)
}

type rawResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

func (h *Handler) getRaw(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultRawLimit, 1, maxRawLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := intParam(c, "offset", 0, 0, -1)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ds, day, ok := h.dataset(c)
	if !ok {
		return
	}

	resp := rawResponse{Columns: ds.Columns(), Limit: limit, Offset: offset}
	ctx := c.Request.Context()

	if stored, total, err := h.rawFromSnapshot(ctx, ds.MaxRows(), day, limit, offset); err == nil {
		resp.Rows = make([][]string, 0, len(stored))
		for _, s := range stored {
			resp.Rows = append(resp.Rows, rawRow(resp.Columns, s.Sighting))
		}
		resp.Total = total
	} else {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			slog.Warn("snapshot read failed, paging in memory", "request_id", c.GetString(requestIDKey), "error", err)
		}
		resp.Total = ds.Len()
		resp.Rows = make([][]string, 0)
		for i := offset; i < ds.Len() && i < offset+limit; i++ {
			resp.Rows = append(resp.Rows, rawRow(resp.Columns, ds.At(i)))
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) rawFromSnapshot(ctx context.Context, maxRows int, day *models.Day, limit, offset int) ([]repository.StoredSighting, int, error) {
	if h.repo == nil {
		return nil, 0, repository.ErrSnapshotNotFound
	}
	if _, err := h.repo.GetSnapshot(ctx, maxRows); err != nil {
		return nil, 0, err
	}
	filter := repository.Filter{MaxRows: maxRows, Day: day, Limit: limit, Offset: offset}
	total, err := h.repo.CountSightings(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows, err := h.repo.ListSightings(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (h *Handler) streamEvents(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)
	h.metrics.SSEClients.Inc()
	defer h.metrics.SSEClients.Dec()

	c.Header("Cache-Control", "no-cache")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("load", ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *Handler) preload(c *gin.Context) {
	maxRows, err := h.rowsParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !h.source.Preload(maxRows) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preload queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "rows": maxRows})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// dataset loads the row limit requested by the query and applies the date
// filter when a date is given. On failure the response is already written.
func (h *Handler) dataset(c *gin.Context) (*sightings.Dataset, *models.Day, bool) {
	maxRows, err := h.rowsParam(c)
	if err != nil {
		h.writeError(c, err)
		return nil, nil, false
	}
	day, err := dayParam(c)
	if err != nil {
		h.writeError(c, err)
		return nil, nil, false
	}

	ds, err := h.source.Load(c.Request.Context(), maxRows)
	if err != nil {
		h.writeError(c, err)
		return nil, nil, false
	}
	if day != nil {
		ds = ds.FilterByDate(*day)
	}
	return ds, day, true
}

var errBadRequest = errors.New("bad request")

func (h *Handler) rowsParam(c *gin.Context) (int, error) {
	limit := h.source.DefaultMaxRows()
	v, ok := c.GetQuery("rows")
	if !ok {
		return limit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > limit {
		return 0, fmt.Errorf("rows must be between 1 and %d: %w", limit, sightings.ErrInvalidRowLimit)
	}
	return n, nil
}

func dayParam(c *gin.Context) (*models.Day, error) {
	v, ok := c.GetQuery("date")
	if !ok {
		return nil, nil
	}
	day, err := models.ParseDay(v)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", errBadRequest)
	}
	return &day, nil
}

// intParam parses an optional integer query param within [lo, hi]; hi < 0
// means unbounded.
func intParam(c *gin.Context, name string, fallback, lo, hi int) (int, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, errBadRequest)
	}
	return n, nil
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		status = http.StatusInternalServerError
		body   = gin.H{"error": err.Error()}
		perr   *sightings.ParseError
	)
	switch {
	case errors.Is(err, sightings.ErrInvalidRowLimit), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.As(err, &perr):
		status = http.StatusUnprocessableEntity
		body["row"] = perr.Row
		body["column"] = perr.Column
	case errors.Is(err, sightings.ErrFetch):
		status = http.StatusBadGateway
	case errors.Is(err, sightings.ErrEmptyDataset):
		status = http.StatusNotFound
		body["error"] = "no sightings"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path, "status", status, "error", err)
	} else {
		slog.Warn("request rejected", "request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, body)
}

func rawRow(columns []string, s models.Sighting) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case sightings.DateColumn:
			row[i] = s.Timestamp.UTC().Format(time.DateTime)
		case sightings.LatitudeColumn:
			row[i] = strconv.FormatFloat(s.Latitude, 'f', -1, 64)
		case sightings.LongitudeColumn:
			row[i] = strconv.FormatFloat(s.Longitude, 'f', -1, 64)
		default:
			row[i] = s.Fields[col]
		}
	}
	return row
}
