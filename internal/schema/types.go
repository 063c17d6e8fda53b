// internal/schema/types.go

// Package schema defines the declarative extraction schema: field rules,
// item layout, and pagination settings. Schemas are plain data, typically
// decoded from a YAML job file, and are interpreted by internal/extract
// and internal/paginate.
package schema

import (
	"github.com/jungyu/DataScout-sub003/internal/pipeline"
)

// FieldType identifies how a field value is extracted from its node.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeAttr     FieldType = "attr"
	TypeHTML     FieldType = "html"
	TypeURL      FieldType = "url"
	TypeDate     FieldType = "date"
	TypeNumber   FieldType = "number"
	TypeJSON     FieldType = "json"
	TypeTable    FieldType = "table"
	TypeCompound FieldType = "compound"
)

// ValidFieldTypes returns every supported field type.
func ValidFieldTypes() []FieldType {
	return []FieldType{
		TypeText, TypeAttr, TypeHTML, TypeURL, TypeDate,
		TypeNumber, TypeJSON, TypeTable, TypeCompound,
	}
}

// TransformFunc is an optional programmatic post-transform. It must be a
// pure function of its input; a panic is recovered by the extractor and
// the pre-transform value is kept.
type TransformFunc func(interface{}) interface{}

// FieldSpec is one extraction rule: where to look, how to interpret the
// matched nodes, and how to post-process the value.
type FieldSpec struct {
	Selector         string    `yaml:"selector" json:"selector"`
	FallbackSelector string    `yaml:"fallback_selector,omitempty" json:"fallback_selector,omitempty"`
	Type             FieldType `yaml:"type" json:"type"`

	// Attribute names the source attribute for attr/url fields
	// (and the optional JSON carrier attribute). Defaults to "href".
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	Multiple  bool        `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Required  bool        `yaml:"required,omitempty" json:"required,omitempty"`
	MaxLength int         `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Default   interface{} `yaml:"default,omitempty" json:"default,omitempty"`

	// Regex is an optional post-filter applied to string values.
	// Capture group 1 is taken when present, otherwise the whole match.
	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`

	DateFormat          string `yaml:"date_format,omitempty" json:"date_format,omitempty"`
	JSONPath            string `yaml:"json_path,omitempty" json:"json_path,omitempty"`
	TableHeaderSelector string `yaml:"table_header_selector,omitempty" json:"table_header_selector,omitempty"`

	// Fields holds the nested schema for compound fields. Non-empty iff
	// Type == compound; nesting depth is bounded only by the schema itself.
	Fields map[string]FieldSpec `yaml:"fields,omitempty" json:"fields,omitempty"`

	Transform     pipeline.TransformList `yaml:"transform,omitempty" json:"transform,omitempty"`
	TransformFunc TransformFunc          `yaml:"-" json:"-"`
}

// ItemSpec describes how to locate repeated items on a page and which
// fields to extract from each of them.
type ItemSpec struct {
	ContainerSelector string               `yaml:"container_selector" json:"container_selector"`
	ItemSelector      string               `yaml:"item_selector" json:"item_selector"`
	Fields            map[string]FieldSpec `yaml:"fields" json:"fields"`
	MaxItems          int                  `yaml:"max_items,omitempty" json:"max_items,omitempty"`
	Parallel          bool                 `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// RequiredFields returns the names of fields that must be present for a
// record to survive validation.
func (s ItemSpec) RequiredFields() []string {
	var required []string
	for name, field := range s.Fields {
		if field.Required {
			required = append(required, name)
		}
	}
	return required
}

// NavigationType identifies the pagination paradigm for a run.
type NavigationType string

const (
	NavURLParameter   NavigationType = "url_parameter"
	NavNextButton     NavigationType = "next_button"
	NavPageNumber     NavigationType = "page_number"
	NavFormSubmit     NavigationType = "form_submit"
	NavInfiniteScroll NavigationType = "infinite_scroll"
)

// NavigationSpec is a discriminated union keyed by Type. Exactly one
// variant's fields are consulted per run.
type NavigationSpec struct {
	Type NavigationType `yaml:"type" json:"type"`

	// url_parameter
	URLTemplate string `yaml:"url_template,omitempty" json:"url_template,omitempty"`
	PageParam   string `yaml:"page_param,omitempty" json:"page_param,omitempty"`

	// next_button
	NextButtonSelector string `yaml:"next_button_selector,omitempty" json:"next_button_selector,omitempty"`

	// page_number
	PageLinkSelector string `yaml:"page_link_selector,omitempty" json:"page_link_selector,omitempty"`

	// form_submit
	FormSelector string            `yaml:"form_selector,omitempty" json:"form_selector,omitempty"`
	FormFields   map[string]string `yaml:"form_fields,omitempty" json:"form_fields,omitempty"`

	// infinite_scroll
	ScrollContainerSelector string  `yaml:"scroll_container_selector,omitempty" json:"scroll_container_selector,omitempty"`
	NewItemSelector         string  `yaml:"new_item_selector,omitempty" json:"new_item_selector,omitempty"`
	ScrollThreshold         float64 `yaml:"scroll_threshold,omitempty" json:"scroll_threshold,omitempty"`
}
