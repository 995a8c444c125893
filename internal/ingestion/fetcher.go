package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mr1hm/croc-sightings/internal/sightings"
)

// Fetcher downloads a workbook over HTTP and reads its first sheet.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the header and at most maxRows non-blank data rows of the
// first sheet at url. Every failure is a *sightings.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, maxRows int) (sightings.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return sightings.Table{}, &sightings.FetchError{URL: url, Err: fmt.Errorf("error creating request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return sightings.Table{}, &sightings.FetchError{URL: url, Err: fmt.Errorf("error while doing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sightings.Table{}, &sightings.FetchError{
			URL: url,
			Err: fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status),
		}
	}

	table, err := ReadWorkbook(resp.Body, maxRows)
	if err != nil {
		return sightings.Table{}, &sightings.FetchError{URL: url, Err: err}
	}

	slog.Debug("fetched workbook", "url", url, "columns", len(table.Columns), "rows", len(table.Rows))
	return table, nil
}

func (f *Fetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// ReadWorkbook decodes an .xlsx stream. The first non-blank row of the first
// sheet is the header. Blank rows are skipped and do not count toward maxRows.
// Cells are returned as raw values, so date cells arrive as Excel serials.
func ReadWorkbook(r io.Reader, maxRows int) (sightings.Table, error) {
	if maxRows < 1 {
		return sightings.Table{}, sightings.ErrInvalidRowLimit
	}

	wb, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return sightings.Table{}, fmt.Errorf("error decoding workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return sightings.Table{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return sightings.Table{}, fmt.Errorf("error reading sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var (
		table  sightings.Table
		number int
	)
	for rows.Next() {
		number++
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return sightings.Table{}, fmt.Errorf("error reading row %d: %w", number, err)
		}
		if isBlank(cells) {
			continue
		}
		if table.Columns == nil {
			table.Columns = cells
			continue
		}
		table.Rows = append(table.Rows, sightings.Row{Number: number, Cells: cells})
		if len(table.Rows) == maxRows {
			break
		}
	}
	if err := rows.Error(); err != nil {
		return sightings.Table{}, fmt.Errorf("error iterating sheet %q: %w", sheets[0], err)
	}

	return table, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
