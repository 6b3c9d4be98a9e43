package usecase

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseCSVRows reads a batch input file: a header row naming a "text"
// column plus one record per row. Additional columns are ignored. Data row
// order determines the row index.
func parseCSVRows(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are handled per row

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("usecase: csv input is empty")
		}
		return nil, fmt.Errorf("usecase: read csv header: %w", err)
	}

	textCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "text") {
			textCol = i
			break
		}
	}
	if textCol < 0 {
		return nil, errors.New(`usecase: csv header has no "text" column`)
	}

	var rows []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("usecase: read csv row %d: %w", len(rows), err)
		}
		if textCol >= len(record) {
			// Short row: recorded as a row with empty text, which the
			// orchestrator turns into a row-level validation failure.
			rows = append(rows, "")
			continue
		}
		rows = append(rows, record[textCol])
	}
	return rows, nil
}
