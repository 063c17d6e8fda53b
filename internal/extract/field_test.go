// internal/extract/field_test.go
package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/pipeline"
	"github.com/jungyu/DataScout-sub003/internal/schema"
)

func mustDocument(t *testing.T, html, baseURL string) *dom.Document {
	t.Helper()
	doc, err := dom.NewDocument(html, baseURL)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func newTestFieldExtractor(now time.Time) *FieldExtractor {
	fe := NewFieldExtractor(nil)
	fe.now = func() time.Time { return now }
	return fe
}

func TestResolveTextField(t *testing.T) {
	doc := mustDocument(t, `
		<div class="item">
			<h3 class="title">  Breaking News  </h3>
			<p class="summary">A fairly long summary of the article body text.</p>
		</div>`, "")
	fe := NewFieldExtractor(nil)
	ctx := context.Background()

	t.Run("trimmed text", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".title", Type: schema.TypeText})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "Breaking News" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("max length truncates", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".summary", Type: schema.TypeText, MaxLength: 13})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "A fairly long…" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("missing selector falls to default", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".nope", Type: schema.TypeText, Default: "n/a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "n/a" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("fallback selector used", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector:         ".headline",
			FallbackSelector: ".title",
			Type:             schema.TypeText,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "Breaking News" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("regex no match degrades to default", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector: ".title",
			Type:     schema.TypeText,
			Regex:    `\d+`,
			Default:  "none",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "none" {
			t.Errorf("got %v", v)
		}
	})
}

func TestResolveAttrAndURLFields(t *testing.T) {
	doc := mustDocument(t, `
		<a class="link" href="/article/42" data-id="A-99">read</a>
		<img class="thumb" src="//cdn.example.com/pic.jpg">`,
		"https://news.example.com/list")
	fe := NewFieldExtractor(nil)
	ctx := context.Background()

	t.Run("attr defaults to href", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".link", Type: schema.TypeAttr})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "/article/42" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("named attribute with regex group", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector:  ".link",
			Type:      schema.TypeAttr,
			Attribute: "data-id",
			Regex:     `A-(\d+)`,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "99" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("url resolves root relative", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".link", Type: schema.TypeURL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "https://news.example.com/article/42" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("url resolves protocol relative", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".thumb", Type: schema.TypeURL, Attribute: "src"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "https://cdn.example.com/pic.jpg" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("missing attribute falls to default", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector:  ".link",
			Type:      schema.TypeAttr,
			Attribute: "title",
			Default:   "untitled",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "untitled" {
			t.Errorf("got %v", v)
		}
	})
}

func TestResolveHTMLField(t *testing.T) {
	doc := mustDocument(t, `<div class="body"><p>one</p><p>two</p></div>`, "")
	fe := NewFieldExtractor(nil)

	v, err := fe.Resolve(context.Background(), doc, nil, schema.FieldSpec{Selector: ".body", Type: schema.TypeHTML})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	markup, ok := v.(string)
	if !ok || !strings.Contains(markup, "<p>one</p>") {
		t.Errorf("got %v", v)
	}
}

func TestResolveDateField(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	doc := mustDocument(t, `
		<span class="published">2024-06-10</span>
		<span class="relative">3天前</span>
		<span class="garbled">soonish</span>`, "")
	fe := newTestFieldExtractor(now)
	ctx := context.Background()

	t.Run("absolute date", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".published", Type: schema.TypeDate})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := v.(time.Time); !got.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("cjk relative date", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".relative", Type: schema.TypeDate})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := v.(time.Time); !got.Equal(now.AddDate(0, 0, -3)) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("unparseable falls to default", func(t *testing.T) {
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".garbled", Type: schema.TypeDate, Default: "unknown"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "unknown" {
			t.Errorf("got %v", v)
		}
	})
}

func TestResolveNumberField(t *testing.T) {
	doc := mustDocument(t, `
		<span class="views">閱讀 12,345 次</span>
		<span class="price">NT$ 299.50</span>`, "")
	fe := NewFieldExtractor(nil)
	ctx := context.Background()

	v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".views", Type: schema.TypeNumber})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != int64(12345) {
		t.Errorf("got %v (%T)", v, v)
	}

	v, err = fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".price", Type: schema.TypeNumber})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != float64(299.5) {
		t.Errorf("got %v (%T)", v, v)
	}
}

func TestResolveJSONField(t *testing.T) {
	ctx := context.Background()
	fe := NewFieldExtractor(nil)

	t.Run("from node text", func(t *testing.T) {
		doc := mustDocument(t, `<script type="application/ld+json" class="ld">{"headline": "x", "author": {"name": "amy"}}</script>`, "")
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".ld", Type: schema.TypeJSON, JSONPath: "author.name"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "amy" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("from attribute", func(t *testing.T) {
		doc := mustDocument(t, `<div class="widget" data-state='{"count": 7}'></div>`, "")
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector:  ".widget",
			Type:      schema.TypeJSON,
			Attribute: "data-state",
			JSONPath:  "count",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != float64(7) {
			t.Errorf("got %v", v)
		}
	})

	t.Run("from embedded assignment", func(t *testing.T) {
		doc := mustDocument(t, `<div class="holder"><script>
			var initial = {"page": {"total": 120}}; // bootstrap
		</script></div>`, "")
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector: ".holder",
			Type:     schema.TypeJSON,
			JSONPath: "page.total",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != float64(120) {
			t.Errorf("got %v", v)
		}
	})
}

func TestResolveTableField(t *testing.T) {
	ctx := context.Background()
	fe := NewFieldExtractor(nil)

	t.Run("thead and tbody", func(t *testing.T) {
		doc := mustDocument(t, `<table class="specs">
			<thead><tr><th>規格</th><th>數值</th></tr></thead>
			<tbody>
				<tr><td>寬度</td><td>10cm</td></tr>
				<tr><td>高度</td><td>20cm</td></tr>
				<tr><td>malformed row</td></tr>
			</tbody>
		</table>`, "")

		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".specs", Type: schema.TypeTable})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows, ok := v.([]Record)
		if !ok {
			t.Fatalf("got %T", v)
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2 (malformed skipped)", len(rows))
		}
		if rows[0]["規格"] != "寬度" || rows[0]["數值"] != "10cm" {
			t.Errorf("row 0 = %v", rows[0])
		}
		if rows[1]["規格"] != "高度" {
			t.Errorf("row 1 = %v", rows[1])
		}
	})

	t.Run("plain rows with header row", func(t *testing.T) {
		doc := mustDocument(t, `<table class="flat">
			<tr><td>Name</td><td>Age</td></tr>
			<tr><td>bo</td><td>3</td></tr>
		</table>`, "")

		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".flat", Type: schema.TypeTable})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows := v.([]Record)
		if len(rows) != 1 || rows[0]["Name"] != "bo" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("explicit header selector", func(t *testing.T) {
		doc := mustDocument(t, `<table class="report">
			<tr class="head"><td>項目</td><td>金額</td></tr>
			<tr><td>運費</td><td>60</td></tr>
			<tr><td>稅金</td><td>15</td></tr>
		</table>`, "")

		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{
			Selector:            ".report",
			Type:                schema.TypeTable,
			TableHeaderSelector: "tr.head td",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows := v.([]Record)
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2 (header row excluded)", len(rows))
		}
		if rows[0]["項目"] != "運費" || rows[1]["金額"] != "15" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("no header falls to default", func(t *testing.T) {
		doc := mustDocument(t, `<table class="empty"></table>`, "")
		v, err := fe.Resolve(ctx, doc, nil, schema.FieldSpec{Selector: ".empty", Type: schema.TypeTable, Default: "none"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "none" {
			t.Errorf("got %v", v)
		}
	})
}

func TestResolveCompoundField(t *testing.T) {
	doc := mustDocument(t, `
		<div class="author">
			<span class="name">  Chen Wei  </span>
			<a class="profile" href="/u/chenwei">profile</a>
			<span class="badge"></span>
		</div>`, "https://forum.example.com/thread/1")
	fe := NewFieldExtractor(nil)

	spec := schema.FieldSpec{
		Selector: ".author",
		Type:     schema.TypeCompound,
		Fields: map[string]schema.FieldSpec{
			"name":  {Selector: ".name", Type: schema.TypeText},
			"url":   {Selector: ".profile", Type: schema.TypeURL},
			"badge": {Selector: ".badge", Type: schema.TypeText},
			"rank":  {Selector: ".rank", Type: schema.TypeText},
		},
	}

	v, err := fe.Resolve(context.Background(), doc, nil, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, ok := v.(Record)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if rec["name"] != "Chen Wei" {
		t.Errorf("name = %v", rec["name"])
	}
	if rec["url"] != "https://forum.example.com/u/chenwei" {
		t.Errorf("url = %v", rec["url"])
	}
	if _, present := rec["badge"]; present {
		t.Error("empty nested field should be omitted")
	}
	if _, present := rec["rank"]; present {
		t.Error("missing nested field should be omitted")
	}
}

func TestResolveMultiple(t *testing.T) {
	doc := mustDocument(t, `
		<ul class="tags">
			<li>go</li><li>testing</li><li></li><li>web</li>
		</ul>`, "")
	fe := NewFieldExtractor(nil)

	v, err := fe.Resolve(context.Background(), doc, nil, schema.FieldSpec{
		Selector: ".tags li",
		Type:     schema.TypeText,
		Multiple: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values, ok := v.([]interface{})
	if !ok {
		t.Fatalf("got %T", v)
	}
	if len(values) != 3 {
		t.Fatalf("got %d values, want 3 (empty omitted)", len(values))
	}
	if values[0] != "go" || values[2] != "web" {
		t.Errorf("values = %v", values)
	}
}

func TestApplyTransforms(t *testing.T) {
	doc := mustDocument(t, `<span class="price">  NT$ 1,299  </span>`, "")
	fe := NewFieldExtractor(nil)

	t.Run("pipeline runs on strings", func(t *testing.T) {
		v, err := fe.Resolve(context.Background(), doc, nil, schema.FieldSpec{
			Selector: ".price",
			Type:     schema.TypeText,
			Transform: []pipeline.TransformRule{
				{Type: "regex", Pattern: `[^\d]`, Replacement: ""},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "1299" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("panicking transform keeps value", func(t *testing.T) {
		v, err := fe.Resolve(context.Background(), doc, nil, schema.FieldSpec{
			Selector:      ".price",
			Type:          schema.TypeText,
			TransformFunc: func(interface{}) interface{} { panic("boom") },
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "NT$ 1,299" {
			t.Errorf("got %v", v)
		}
	})

	t.Run("transform func rewrites value", func(t *testing.T) {
		v, err := fe.Resolve(context.Background(), doc, nil, schema.FieldSpec{
			Selector:      ".price",
			Type:          schema.TypeText,
			TransformFunc: func(in interface{}) interface{} { return strings.ToLower(in.(string)) },
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "nt$ 1,299" {
			t.Errorf("got %v", v)
		}
	})
}
