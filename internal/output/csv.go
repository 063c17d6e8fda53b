// internal/output/csv.go
package output

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// CSVWriter writes records as CSV with a header row. Columns are the
// sorted union of field names across all records; fields absent from a
// record produce empty cells.
type CSVWriter struct {
	file *os.File
}

// NewCSVWriter creates a CSV writer over the given file path.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{file: file}, nil
}

// Write emits the header followed by one row per record.
func (w *CSVWriter) Write(ctx context.Context, records []extract.Record) error {
	columns := columnsOf(records)
	cw := csv.NewWriter(w.file)

	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		flat := flatten(rec)
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellString(flat[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Close closes the underlying file.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
