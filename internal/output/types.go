// internal/output/types.go

// Package output persists extracted records. Each writer serializes the
// same flat view of a record: the extracted fields plus the source page
// and extraction timestamp from record metadata.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// Format identifies an output destination type.
type Format string

const (
	FormatJSON       Format = "json"
	FormatCSV        Format = "csv"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgresql"
	FormatMySQL      Format = "mysql"
	FormatMongoDB    Format = "mongodb"
	FormatExcel      Format = "excel"
)

// ValidFormats returns all supported format values.
func ValidFormats() []Format {
	return []Format{
		FormatJSON, FormatCSV, FormatSQLite, FormatPostgreSQL,
		FormatMySQL, FormatMongoDB, FormatExcel,
	}
}

// IsValidFormat checks whether a format value is supported.
func IsValidFormat(f Format) bool {
	for _, valid := range ValidFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// Writer persists records to one destination.
type Writer interface {
	Write(ctx context.Context, records []extract.Record) error
	Close() error
}

// Config selects and parameterizes a destination. File covers the
// file-based formats; DSN and the database fields cover the rest.
type Config struct {
	Format     Format `yaml:"format" json:"format"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
	SheetName  string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	BatchSize  int    `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
}

// Validate checks that the config names a supported format with the
// parameters it needs.
func (c *Config) Validate() error {
	if !IsValidFormat(c.Format) {
		return fmt.Errorf("unsupported output format: %q", c.Format)
	}
	switch c.Format {
	case FormatJSON, FormatCSV, FormatSQLite, FormatExcel:
		if c.File == "" {
			return fmt.Errorf("%s output requires a file path", c.Format)
		}
	case FormatPostgreSQL, FormatMySQL, FormatMongoDB:
		if c.DSN == "" {
			return fmt.Errorf("%s output requires a DSN", c.Format)
		}
	}
	return nil
}

// metadataColumns are appended after the extracted field columns.
var metadataColumns = []string{"source_page", "extracted_at"}

// columnsOf returns the sorted union of field names across records,
// excluding the metadata entry, followed by the metadata columns.
func columnsOf(records []extract.Record) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		for name := range rec {
			if name == extract.MetadataKey {
				continue
			}
			set[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for name := range set {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return append(fields, metadataColumns...)
}

// flatten returns the serializable view of a record: its fields plus the
// metadata columns.
func flatten(rec extract.Record) map[string]interface{} {
	flat := make(map[string]interface{}, len(rec)+1)
	for name, value := range rec {
		if name == extract.MetadataKey {
			continue
		}
		flat[name] = value
	}
	if meta, ok := rec.Meta(); ok {
		flat["source_page"] = meta.SourcePage
		flat["extracted_at"] = meta.ExtractedAt.Format(time.RFC3339)
	}
	return flat
}

// cellString renders a value for text formats. Composite values are
// serialized as JSON.
func cellString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
