package sightings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mr1hm/croc-sightings/internal/models"
)

const (
	DateColumn      = "utc_date"
	LatitudeColumn  = "latitude"
	LongitudeColumn = "longitude"
)

// columnAliases maps known source spellings (after lowercasing) to canonical names.
var columnAliases = map[string]string{
	"latitude__": LatitudeColumn,
}

// Layouts tried for text date cells, after Excel serial numbers. Fractional
// seconds are accepted after any seconds field.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"2-Jan-2006 15:04:05",
	"2-Jan-2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// Row is one data row of a sheet. Number is the 1-based row number in the sheet.
type Row struct {
	Number int
	Cells  []string
}

// Table is the raw content of a spreadsheet: the header row and its data rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// NormalizeColumns lowercases every column name and applies the alias table.
// Blank headers are named "unnamed: N" after their zero-based position.
func NormalizeColumns(columns []string) ([]string, error) {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		name := strings.ToLower(strings.TrimSpace(c))
		if name == "" {
			name = fmt.Sprintf("unnamed: %d", i)
		}
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		if prev, dup := seen[name]; dup {
			return nil, malformed("columns %d and %d both normalize to %q", prev+1, i+1, name)
		}
		seen[name] = i
		out[i] = name
	}
	return out, nil
}

// Normalize converts a raw table into an immutable Dataset. Any cell in the
// date or coordinate columns that cannot be parsed fails the whole call.
func Normalize(t Table, maxRows int, loadedAt time.Time) (*Dataset, error) {
	if maxRows < 1 {
		return nil, ErrInvalidRowLimit
	}
	if len(t.Columns) == 0 {
		return nil, malformed("no header row")
	}

	columns, err := NormalizeColumns(t.Columns)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	for _, required := range []string{DateColumn, LatitudeColumn, LongitudeColumn} {
		if _, ok := idx[required]; !ok {
			return nil, malformed("missing required column %q", required)
		}
	}

	rows := t.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	records := make([]models.Sighting, 0, len(rows))
	for _, row := range rows {
		cell := func(col string) string {
			i := idx[col]
			if i < len(row.Cells) {
				return strings.TrimSpace(row.Cells[i])
			}
			return ""
		}

		ts, err := parseTimestamp(cell(DateColumn))
		if err != nil {
			return nil, &ParseError{Row: row.Number, Column: DateColumn, Value: cell(DateColumn), Err: err}
		}
		lat, err := parseCoordinate(cell(LatitudeColumn), 90)
		if err != nil {
			return nil, &ParseError{Row: row.Number, Column: LatitudeColumn, Value: cell(LatitudeColumn), Err: err}
		}
		lon, err := parseCoordinate(cell(LongitudeColumn), 180)
		if err != nil {
			return nil, &ParseError{Row: row.Number, Column: LongitudeColumn, Value: cell(LongitudeColumn), Err: err}
		}

		fields := make(map[string]string, len(columns)-3)
		for i, c := range columns {
			switch c {
			case DateColumn, LatitudeColumn, LongitudeColumn:
				continue
			}
			if i < len(row.Cells) {
				fields[c] = row.Cells[i]
			} else {
				fields[c] = ""
			}
		}

		records = append(records, models.Sighting{
			Timestamp: ts,
			Latitude:  lat,
			Longitude: lon,
			Fields:    fields,
		})
	}

	return &Dataset{
		maxRows:  maxRows,
		loadedAt: loadedAt,
		columns:  columns,
		records:  records,
	}, nil
}

// parseTimestamp accepts Excel serial dates (raw cell values) and the text
// layouts in timestampLayouts. Results are in UTC.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty value")
	}
	// 8-digit integers are compact dates, far beyond any Excel serial
	if len(s) == 8 && isDigits(s) {
		t, err := time.Parse("20060102", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid compact date: %w", err)
		}
		return t, nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 || serial >= maxExcelSerial+1 {
			return time.Time{}, errors.New("not a valid excel date serial")
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseCoordinate(s string, limit float64) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, fmt.Errorf("out of range [-%g, %g]", limit, limit)
	}
	return v, nil
}
