// internal/extract/list.go
package extract

import (
	"context"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/schema"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// ListExtractor produces the ordered, validated record list for one page:
// item extraction followed by required-field validation. Records failing
// validation are dropped and counted, never fatal.
type ListExtractor struct {
	items *ItemExtractor
	log   utils.Logger
}

// NewListExtractor creates a list extractor.
func NewListExtractor(items *ItemExtractor, log utils.Logger) *ListExtractor {
	if items == nil {
		items = NewItemExtractor(log)
	}
	if log == nil {
		log = utils.NewComponentLogger("list-extractor")
	}
	return &ListExtractor{items: items, log: log}
}

// Extract returns the surviving records for the page and the number of
// records dropped by required-field validation.
func (le *ListExtractor) Extract(ctx context.Context, page dom.Context, spec schema.ItemSpec, sourcePage int) ([]Record, int, error) {
	records, err := le.items.ExtractAll(ctx, page, spec, sourcePage)
	if err != nil {
		return nil, 0, err
	}

	required := spec.RequiredFields()
	if len(required) == 0 {
		return records, 0, nil
	}

	kept := make([]Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if missing := missingFields(rec, required); len(missing) > 0 {
			dropped++
			le.log.Debugf("dropping record: %v", &ValidationError{Missing: missing})
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped, nil
}

func missingFields(rec Record, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := rec.Field(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
