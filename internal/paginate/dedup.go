// internal/paginate/dedup.go
package paginate

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// Tracker detects duplicate records across pages. The identity key is a
// configured field, falling back to a stable hash of title+url. First
// occurrence wins; the key set is mutated only by the controller's
// goroutine so no locking is needed.
type Tracker struct {
	keyField string
	seen     map[string]struct{}
}

// NewTracker creates a tracker keyed by the given identity field, or by
// the title+url hash when the field name is empty.
func NewTracker(keyField string) *Tracker {
	return &Tracker{
		keyField: keyField,
		seen:     make(map[string]struct{}),
	}
}

// Seed marks keys as already seen, for resuming a prior run.
func (t *Tracker) Seed(keys []string) {
	for _, k := range keys {
		t.seen[k] = struct{}{}
	}
}

// Filter returns the records not seen before, in input order, and the
// number of duplicates dropped. Records without any identity are kept and
// not tracked.
func (t *Tracker) Filter(records []extract.Record) ([]extract.Record, int) {
	kept := make([]extract.Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		key, ok := t.Key(rec)
		if !ok {
			kept = append(kept, rec)
			continue
		}
		if _, dup := t.seen[key]; dup {
			dropped++
			continue
		}
		t.seen[key] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, dropped
}

// Key derives the identity key for a record.
func (t *Tracker) Key(rec extract.Record) (string, bool) {
	if t.keyField != "" {
		v, ok := rec.Field(t.keyField)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%v", v), true
	}

	title, hasTitle := rec.Field("title")
	u, hasURL := rec.Field("url")
	if !hasTitle && !hasURL {
		return "", false
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%v|%v", title, u)
	return fmt.Sprintf("%016x", h.Sum64()), true
}

// Keys returns the tracked key set in sorted order, for persistence.
func (t *Tracker) Keys() []string {
	keys := make([]string, 0, len(t.seen))
	for k := range t.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return len(t.seen)
}
