// internal/output/json.go
package output

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// JSONWriter writes records as a pretty-printed JSON array.
type JSONWriter struct {
	file *os.File
}

// NewJSONWriter creates a JSON writer over the given file path.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{file: file}, nil
}

// Write encodes the flattened records as one JSON array.
func (w *JSONWriter) Write(ctx context.Context, records []extract.Record) error {
	flat := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		flat[i] = flatten(rec)
	}

	encoder := json.NewEncoder(w.file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(flat)
}

// Close syncs and closes the underlying file.
func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
