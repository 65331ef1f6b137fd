package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseTable reads an uploaded CSV or XLSX file into a row-major string
// table. The filename extension selects the parser; XLSX reads only the
// first sheet, matching how finance teams export single-statement files.
func ParseTable(filename string, r io.Reader) ([][]string, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv: %w", err)
		}
		return rows, nil
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("ingest: workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
