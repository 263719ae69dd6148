// Package index holds one genome's transcripts bucketed by scaffold and strand.
package index

import (
	"fmt"
	"io"
	"sort"

	"github.com/phobologic/orthoscan/internal/annotation"
	"github.com/phobologic/orthoscan/internal/model"
)

// DuplicateTranscriptError reports a transcript name seen twice while building.
type DuplicateTranscriptError struct {
	Name string
	Side model.Side
}

func (e *DuplicateTranscriptError) Error() string {
	return fmt.Sprintf("duplicate transcript %q in annotation for side %s", e.Name, e.Side)
}

// Options controls which annotation records are indexed.
type Options struct {
	// FeatureType is the GFF type treated as a transcript ("mRNA" if empty).
	FeatureType string
	// Allow restricts the index to the listed names. Nil indexes everything.
	Allow map[string]struct{}
}

// Index is an immutable transcript index for one side. It is safe for
// concurrent readers.
type Index struct {
	side    model.Side
	byName  map[string]model.TranscriptRecord
	buckets map[model.ScaffoldKey]*bucket
}

// bucket holds one scaffold/strand's records sorted by (Start, End, Name).
type bucket struct {
	records []model.TranscriptRecord
	maxSpan int // longest End-Start in records
}

// Build reads an annotation stream and indexes its allowed transcripts.
func Build(side model.Side, r io.Reader, opts Options) (*Index, error) {
	b := NewBuilder(side)
	err := annotation.Scan(r, opts.FeatureType, func(t annotation.Transcript) error {
		if opts.Allow != nil {
			if _, ok := opts.Allow[t.ID]; !ok {
				return nil
			}
		}
		return b.Add(model.TranscriptRecord{Name: t.ID, Side: side, Interval: t.Interval})
	})
	if err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

// Builder accumulates records before freezing them into an Index.
type Builder struct {
	idx *Index
}

// NewBuilder returns an empty builder for the given side.
func NewBuilder(side model.Side) *Builder {
	return &Builder{idx: &Index{
		side:    side,
		byName:  make(map[string]model.TranscriptRecord),
		buckets: make(map[model.ScaffoldKey]*bucket),
	}}
}

// Add inserts one record. A repeated name fails with *DuplicateTranscriptError.
func (b *Builder) Add(rec model.TranscriptRecord) error {
	if _, dup := b.idx.byName[rec.Name]; dup {
		return &DuplicateTranscriptError{Name: rec.Name, Side: b.idx.side}
	}
	if rec.Interval.Start > rec.Interval.End {
		return fmt.Errorf("transcript %q: start %d after end %d", rec.Name, rec.Interval.Start, rec.Interval.End)
	}
	rec.Side = b.idx.side
	b.idx.byName[rec.Name] = rec

	key := rec.Interval.Key()
	bk := b.idx.buckets[key]
	if bk == nil {
		bk = &bucket{}
		b.idx.buckets[key] = bk
	}
	bk.records = append(bk.records, rec)
	if span := rec.Interval.End - rec.Interval.Start; span > bk.maxSpan {
		bk.maxSpan = span
	}
	return nil
}

// Finish sorts the buckets and returns the index. The builder must not be
// used afterwards.
func (b *Builder) Finish() *Index {
	for _, bk := range b.idx.buckets {
		sort.Slice(bk.records, func(i, j int) bool {
			a, c := bk.records[i].Interval, bk.records[j].Interval
			if a.Start != c.Start {
				return a.Start < c.Start
			}
			if a.End != c.End {
				return a.End < c.End
			}
			return bk.records[i].Name < bk.records[j].Name
		})
	}
	idx := b.idx
	b.idx = nil
	return idx
}

// Side returns the side this index was built for.
func (x *Index) Side() model.Side {
	return x.side
}

// Len returns the number of indexed transcripts.
func (x *Index) Len() int {
	return len(x.byName)
}

// Get returns the record for name.
func (x *Index) Get(name string) (model.TranscriptRecord, bool) {
	rec, ok := x.byName[name]
	return rec, ok
}

// Lookup is Get with the error return shared by other index backends.
func (x *Index) Lookup(name string) (model.TranscriptRecord, bool, error) {
	rec, ok := x.byName[name]
	return rec, ok, nil
}

// ScaffoldSize returns how many transcripts sit on the scaffold/strand.
func (x *Index) ScaffoldSize(key model.ScaffoldKey) (int, error) {
	bk := x.buckets[key]
	if bk == nil {
		return 0, nil
	}
	return len(bk.records), nil
}

// Overlapping returns the records on key whose interval overlaps
// [start, end], with overlap meaning min(End, end) > max(Start, start).
// Intervals that only touch the boundary are not returned.
func (x *Index) Overlapping(key model.ScaffoldKey, start, end int) ([]model.TranscriptRecord, error) {
	bk := x.buckets[key]
	if bk == nil || start >= end {
		return nil, nil
	}
	recs := bk.records

	// Any overlap needs Start < end and End > start; End is at most
	// Start+maxSpan, so Start must also exceed start-maxSpan.
	lo := sort.Search(len(recs), func(i int) bool { return recs[i].Interval.Start > start-bk.maxSpan })
	hi := sort.Search(len(recs), func(i int) bool { return recs[i].Interval.Start >= end })

	var out []model.TranscriptRecord
	for _, rec := range recs[lo:max(lo, hi)] {
		if overlaps(rec.Interval, start, end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Records returns every record, ordered by scaffold, strand, then position.
func (x *Index) Records() []model.TranscriptRecord {
	keys := x.Keys()
	out := make([]model.TranscriptRecord, 0, len(x.byName))
	for _, k := range keys {
		out = append(out, x.buckets[k].records...)
	}
	return out
}

// Keys returns the scaffold/strand buckets in sorted order.
func (x *Index) Keys() []model.ScaffoldKey {
	keys := make([]model.ScaffoldKey, 0, len(x.buckets))
	for k := range x.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Scaffold != keys[j].Scaffold {
			return keys[i].Scaffold < keys[j].Scaffold
		}
		return keys[i].Strand < keys[j].Strand
	})
	return keys
}

func overlaps(iv model.GenomicInterval, start, end int) bool {
	return min(iv.End, end) > max(iv.Start, start)
}
