// internal/extract/record.go

// Package extract interprets a declarative schema against a rendered
// document. FieldExtractor resolves one field rule to one typed value,
// ItemExtractor applies a field set to each item container, and
// ListExtractor assembles the ordered, validated record list for a page.
package extract

import (
	"time"
)

// MetadataKey is the record key holding extraction metadata.
const MetadataKey = "_metadata"

// Record is one extracted structured item. It is created once per item
// per page and must not be mutated after ItemExtractor returns it.
type Record map[string]interface{}

// Metadata describes where and when a record was extracted. It is
// attached after field extraction and is not visible to field transforms.
type Metadata struct {
	Index       int       `json:"index"`
	SourcePage  int       `json:"source_page"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Meta returns the record's metadata, if attached.
func (r Record) Meta() (Metadata, bool) {
	m, ok := r[MetadataKey].(Metadata)
	return m, ok
}

// Field returns a value by name, ignoring the metadata entry.
func (r Record) Field(name string) (interface{}, bool) {
	if name == MetadataKey {
		return nil, false
	}
	v, ok := r[name]
	return v, ok
}
