// internal/extract/item.go
package extract

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/schema"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

const (
	defaultWorkerCap         = 4
	defaultSettleWait        = 500 * time.Millisecond
	defaultParallelThreshold = 8
)

// ItemExtractor applies a field set to every item container on a page,
// producing one Record per item. Field failures degrade to defaults and
// never abort an item; output order always equals DOM order.
type ItemExtractor struct {
	fields *FieldExtractor
	log    utils.Logger

	// WorkerCap bounds the extraction worker pool for parallel specs.
	WorkerCap int

	// SettleWait is the single bounded pause before re-querying an item
	// selector that matched nothing, covering lazily rendered lists.
	SettleWait time.Duration

	// ParallelThreshold is the minimum item count before a parallel spec
	// actually fans out.
	ParallelThreshold int
}

// NewItemExtractor creates an item extractor with default pool settings.
func NewItemExtractor(log utils.Logger) *ItemExtractor {
	if log == nil {
		log = utils.NewComponentLogger("item-extractor")
	}
	return &ItemExtractor{
		fields:            NewFieldExtractor(log),
		log:               log,
		WorkerCap:         defaultWorkerCap,
		SettleWait:        defaultSettleWait,
		ParallelThreshold: defaultParallelThreshold,
	}
}

// ExtractAll locates the item container and extracts every item element,
// capped at spec.MaxItems. A missing container is an ElementNotFoundError;
// an empty item list after one settle-wait retry is an empty result, not
// an error.
func (ie *ItemExtractor) ExtractAll(ctx context.Context, page dom.Context, spec schema.ItemSpec, sourcePage int) ([]Record, error) {
	containers := page.Query(nil, spec.ContainerSelector)
	if len(containers) == 0 {
		return nil, &ElementNotFoundError{Selector: spec.ContainerSelector}
	}
	container := containers[0]

	items := page.Query(container, spec.ItemSelector)
	if len(items) == 0 {
		if err := sleepCtx(ctx, ie.SettleWait); err != nil {
			return nil, err
		}
		items = page.Query(container, spec.ItemSelector)
		if len(items) == 0 {
			ie.log.Debugf("item selector %q matched nothing after settle wait", spec.ItemSelector)
			return []Record{}, nil
		}
	}

	if spec.MaxItems > 0 && len(items) > spec.MaxItems {
		items = items[:spec.MaxItems]
	}

	var records []Record
	if spec.Parallel && len(items) > ie.ParallelThreshold {
		records = ie.extractParallel(ctx, page, items, spec)
	} else {
		records = make([]Record, len(items))
		for i, item := range items {
			records[i] = ie.extractItem(ctx, page, item, spec)
		}
	}

	// metadata goes on after extraction so transforms never see it
	extractedAt := time.Now()
	for i := range records {
		records[i][MetadataKey] = Metadata{
			Index:       i,
			SourcePage:  sourcePage,
			ExtractedAt: extractedAt,
		}
	}

	return records, nil
}

// extractParallel fans item extraction out to a bounded worker pool.
// Items are tagged with their DOM index before dispatch and results are
// re-sorted by index, so completion order never changes output order.
func (ie *ItemExtractor) extractParallel(ctx context.Context, page dom.Context, items []*dom.Node, spec schema.ItemSpec) []Record {
	type indexed struct {
		idx int
		rec Record
	}

	workers := ie.WorkerCap
	if workers <= 0 {
		workers = defaultWorkerCap
	}
	if len(items) < workers {
		workers = len(items)
	}

	results := make([]indexed, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = indexed{idx: i, rec: ie.extractItem(gctx, page, item, spec)}
			return nil
		})
	}
	// workers only write their own slot and never return errors
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].idx < results[b].idx })

	records := make([]Record, len(results))
	for i, r := range results {
		records[i] = r.rec
	}
	return records
}

// extractItem runs every field spec against one item element. A failing
// field is logged and excluded from the record, with the default
// substituted when one is configured.
func (ie *ItemExtractor) extractItem(ctx context.Context, page dom.Context, item *dom.Node, spec schema.ItemSpec) Record {
	rec := make(Record, len(spec.Fields))
	for name, field := range spec.Fields {
		value, err := ie.fields.Resolve(ctx, page, item, field)
		if err != nil {
			ie.log.Warnf("field %q failed: %v", name, err)
			if field.Default != nil {
				rec[name] = field.Default
			}
			continue
		}
		if value == nil {
			continue
		}
		rec[name] = value
	}
	return rec
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
