// internal/extract/field.go
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/schema"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// FieldExtractor resolves one FieldSpec against one DOM scope to one
// typed value. Failures below the DOM backend degrade to the field
// default; only a backend failure propagates as an error.
type FieldExtractor struct {
	log utils.Logger
	now func() time.Time
}

// NewFieldExtractor creates a field extractor.
func NewFieldExtractor(log utils.Logger) *FieldExtractor {
	if log == nil {
		log = utils.NewComponentLogger("field-extractor")
	}
	return &FieldExtractor{log: log, now: time.Now}
}

// Resolve locates the field's nodes under scope (nil scope means the
// document root) and produces the field value. A missing node set, after
// the fallback selector, yields the field default with no error.
func (fe *FieldExtractor) Resolve(ctx context.Context, page dom.Context, scope *dom.Node, spec schema.FieldSpec) (interface{}, error) {
	nodes := page.Query(scope, spec.Selector)
	if len(nodes) == 0 && spec.FallbackSelector != "" {
		nodes = page.Query(scope, spec.FallbackSelector)
	}
	if len(nodes) == 0 {
		return spec.Default, nil
	}

	if spec.Multiple {
		return fe.resolveMultiple(ctx, page, nodes, spec)
	}

	value, err := fe.resolveNode(ctx, page, nodes[0], spec)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return spec.Default, nil
	}
	return fe.applyTransforms(ctx, spec, value), nil
}

// resolveMultiple resolves every matched node and reduces to a slice.
// Compound fields produce []Record, everything else []interface{}.
func (fe *FieldExtractor) resolveMultiple(ctx context.Context, page dom.Context, nodes []*dom.Node, spec schema.FieldSpec) (interface{}, error) {
	if spec.Type == schema.TypeCompound {
		records := make([]Record, 0, len(nodes))
		for _, n := range nodes {
			v, err := fe.resolveNode(ctx, page, n, spec)
			if err != nil {
				return nil, err
			}
			if rec, ok := v.(Record); ok {
				records = append(records, rec)
			}
		}
		if len(records) == 0 {
			return spec.Default, nil
		}
		return fe.applyTransforms(ctx, spec, records), nil
	}

	values := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		v, err := fe.resolveNode(ctx, page, n, spec)
		if err != nil {
			return nil, err
		}
		if v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return spec.Default, nil
	}
	return fe.applyTransforms(ctx, spec, values), nil
}

// resolveNode extracts the raw typed value for a single node. A nil
// result means the node had nothing usable and the default applies.
func (fe *FieldExtractor) resolveNode(ctx context.Context, page dom.Context, n *dom.Node, spec schema.FieldSpec) (interface{}, error) {
	switch spec.Type {
	case schema.TypeText:
		text := strings.TrimSpace(page.Text(n))
		text = applyRegex(spec.Regex, text)
		if text == "" {
			return nil, nil
		}
		if spec.MaxLength > 0 {
			text = truncate(text, spec.MaxLength)
		}
		return text, nil

	case schema.TypeAttr:
		value, ok := page.Attribute(n, fe.attributeName(spec))
		if !ok {
			return nil, nil
		}
		value = applyRegex(spec.Regex, value)
		if value == "" {
			return nil, nil
		}
		if spec.MaxLength > 0 {
			value = truncate(value, spec.MaxLength)
		}
		return value, nil

	case schema.TypeURL:
		raw, ok := page.Attribute(n, fe.attributeName(spec))
		if !ok {
			return nil, nil
		}
		raw = applyRegex(spec.Regex, raw)
		if raw == "" {
			return nil, nil
		}
		return resolveURL(page.BaseURL(), raw), nil

	case schema.TypeHTML:
		markup, err := page.HTML(n)
		if err != nil {
			return nil, err
		}
		return markup, nil

	case schema.TypeDate:
		t, ok := parseDate(page.Text(n), spec.DateFormat, fe.now())
		if !ok {
			return nil, nil
		}
		return t, nil

	case schema.TypeNumber:
		v, ok := parseNumber(page.Text(n))
		if !ok {
			return nil, nil
		}
		return v, nil

	case schema.TypeJSON:
		return fe.resolveJSON(page, n, spec)

	case schema.TypeTable:
		return fe.resolveTable(page, n, spec)

	case schema.TypeCompound:
		return fe.resolveCompound(ctx, page, n, spec)
	}

	return nil, nil
}

// resolveJSON reads a JSON payload from the node text, then the carrier
// attribute, then an embedded script assignment within the node markup.
func (fe *FieldExtractor) resolveJSON(page dom.Context, n *dom.Node, spec schema.FieldSpec) (interface{}, error) {
	candidates := make([]string, 0, 3)

	if text := strings.TrimSpace(page.Text(n)); text != "" {
		candidates = append(candidates, text)
	}
	if spec.Attribute != "" {
		if attr, ok := page.Attribute(n, spec.Attribute); ok && strings.TrimSpace(attr) != "" {
			candidates = append(candidates, strings.TrimSpace(attr))
		}
	}
	if markup, err := page.InnerHTML(n); err == nil {
		if embedded, ok := extractEmbeddedJSON(markup); ok {
			candidates = append(candidates, embedded)
		}
	}

	for _, raw := range candidates {
		value, err := parseJSONValue(raw, spec.JSONPath)
		if err == nil {
			return value, nil
		}
	}
	return nil, nil
}

// resolveTable zips header cells against body rows. Headers come from
// exactly one row; that row never appears in the body, and body rows
// whose cell count differs from the header are malformed and skipped.
func (fe *FieldExtractor) resolveTable(page dom.Context, table *dom.Node, spec schema.FieldSpec) (interface{}, error) {
	rows := page.Query(table, "tr")
	if len(rows) == 0 {
		return nil, nil
	}

	var headerCells []*dom.Node
	if spec.TableHeaderSelector != "" {
		headerCells = page.Query(table, spec.TableHeaderSelector)
	} else {
		headerRow := rows[0]
		if thead := page.Query(table, "thead tr"); len(thead) > 0 {
			headerRow = thead[0]
		}
		headerCells = page.Query(headerRow, "th, td")
	}
	var headers []string
	for _, cell := range headerCells {
		headers = append(headers, strings.TrimSpace(page.Text(cell)))
	}
	if len(headers) == 0 {
		return nil, nil
	}

	var out []Record
	for i, row := range rows {
		if isHeaderRow(page, row, i, spec.TableHeaderSelector) {
			continue
		}
		cells := page.Query(row, "th, td")
		if len(cells) != len(headers) {
			continue
		}
		rec := make(Record, len(headers))
		for j, cell := range cells {
			rec[headers[j]] = strings.TrimSpace(page.Text(cell))
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// isHeaderRow reports whether a table row supplied the headers: any thead
// row, the first row when the default header is in use, or a row whose
// cells match the explicit header selector.
func isHeaderRow(page dom.Context, row *dom.Node, index int, headerSel string) bool {
	if row.Is("thead tr") {
		return true
	}
	if headerSel == "" {
		return index == 0
	}
	cells := page.Query(row, "th, td")
	return len(cells) > 0 && cells[0].Is(headerSel)
}

// resolveCompound recursively resolves the nested field set with the node
// as the new scope root. Empty nested results are omitted, never inserted
// as nils, and an entirely empty record resolves to nothing.
func (fe *FieldExtractor) resolveCompound(ctx context.Context, page dom.Context, n *dom.Node, spec schema.FieldSpec) (interface{}, error) {
	rec := make(Record, len(spec.Fields))
	for name, nested := range spec.Fields {
		value, err := fe.Resolve(ctx, page, n, nested)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}
		rec[name] = value
	}
	if len(rec) == 0 {
		return nil, nil
	}
	return rec, nil
}

// applyTransforms runs the declarative pipeline on string values and then
// the programmatic transform. A transform failure is logged and the
// pre-transform value is kept; transforms never abort a field.
func (fe *FieldExtractor) applyTransforms(ctx context.Context, spec schema.FieldSpec, value interface{}) interface{} {
	if len(spec.Transform) > 0 {
		if s, ok := value.(string); ok {
			out, err := spec.Transform.Apply(ctx, s)
			if err != nil {
				fe.log.Warnf("transform pipeline failed for selector %q: %v", spec.Selector, err)
			} else {
				value = out
			}
		}
	}

	if spec.TransformFunc != nil {
		value = fe.safeTransform(spec, value)
	}
	return value
}

// safeTransform invokes the programmatic transform, keeping the input
// value when the transform panics.
func (fe *FieldExtractor) safeTransform(spec schema.FieldSpec, value interface{}) (result interface{}) {
	result = value
	defer func() {
		if r := recover(); r != nil {
			fe.log.Warnf("transform panicked for selector %q: %v", spec.Selector, r)
		}
	}()
	if out := spec.TransformFunc(value); out != nil {
		result = out
	}
	return result
}

func (fe *FieldExtractor) attributeName(spec schema.FieldSpec) string {
	if spec.Attribute != "" {
		return spec.Attribute
	}
	return "href"
}
