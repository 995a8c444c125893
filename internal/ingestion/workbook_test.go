package ingestion

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"
)

var sightingHeader = []any{"UTC_Date", "Latitude__", "Longitude", "Species", "Size_m"}

// buildWorkbook writes rows starting at A1 of Sheet1. A nil row leaves a gap.
func buildWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func sampleWorkbook(t *testing.T) []byte {
	return buildWorkbook(t,
		sightingHeader,
		[]any{"2021-06-01 08:30:00", -12.46, 130.84, "saltwater", 3.2},
		nil,
		[]any{44348.75, -12.5, 130.9, "saltwater", 2.1},
		[]any{"2021-06-02 09:00:00", -12.6, 131.0, "freshwater", 1.4},
	)
}

type xlsxServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newXLSXServer(t *testing.T, status int, body []byte) *xlsxServer {
	t.Helper()
	s := &xlsxServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}
