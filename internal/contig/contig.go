// Package contig measures how the members of an ortholog group cluster on
// their genome's scaffolds.
package contig

import (
	"fmt"
	"sort"

	"github.com/phobologic/orthoscan/internal/model"
)

// Index is the read-only transcript lookup the analyzer runs against.
// *index.Index and *store.SideView both satisfy it.
type Index interface {
	Side() model.Side
	Lookup(name string) (model.TranscriptRecord, bool, error)
	ScaffoldSize(key model.ScaffoldKey) (int, error)
	Overlapping(key model.ScaffoldKey, start, end int) ([]model.TranscriptRecord, error)
}

// UnresolvedTranscriptError reports a queried name missing from the index.
type UnresolvedTranscriptError struct {
	Name string
	Side model.Side
}

func (e *UnresolvedTranscriptError) Error() string {
	return fmt.Sprintf("transcript %q not found in index for side %s", e.Name, e.Side)
}

// ConsistencyError reports an index whose answers contradict each other, such
// as member counts that do not add up to the number of names queried.
type ConsistencyError struct {
	Side   model.Side
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent index for side %s: %s", e.Side, e.Reason)
}

// Analyze returns one summary per scaffold/strand touched by names, sorted by
// side, scaffold, then strand. Repeated names count once. Nothing is returned
// unless every name resolves.
func Analyze(idx Index, names []string) ([]model.ScaffoldSummary, error) {
	query := make(map[string]struct{}, len(names))
	var recs []model.TranscriptRecord
	for _, name := range names {
		if _, seen := query[name]; seen {
			continue
		}
		r, ok, err := idx.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &UnresolvedTranscriptError{Name: name, Side: idx.Side()}
		}
		if r.Name != name {
			return nil, &ConsistencyError{Side: idx.Side(), Reason: fmt.Sprintf("lookup of %q returned %q", name, r.Name)}
		}
		query[name] = struct{}{}
		recs = append(recs, r)
	}

	type partition struct {
		count      int
		start, end int
	}
	parts := make(map[model.ScaffoldKey]*partition)
	for _, r := range recs {
		key := r.Interval.Key()
		p := parts[key]
		if p == nil {
			parts[key] = &partition{count: 1, start: r.Interval.Start, end: r.Interval.End}
			continue
		}
		p.count++
		p.start = min(p.start, r.Interval.Start)
		p.end = max(p.end, r.Interval.End)
	}

	summaries := make([]model.ScaffoldSummary, 0, len(parts))
	placed := 0
	for key, p := range parts {
		size, err := idx.ScaffoldSize(key)
		if err != nil {
			return nil, err
		}
		if size < p.count {
			return nil, &ConsistencyError{Side: idx.Side(),
				Reason: fmt.Sprintf("%s holds %d transcripts but %d members resolved there", key, size, p.count)}
		}
		overlapping, err := idx.Overlapping(key, p.start, p.end)
		if err != nil {
			return nil, err
		}
		intervening := 0
		for _, o := range overlapping {
			if _, member := query[o.Name]; !member {
				intervening++
			}
		}
		placed += p.count
		summaries = append(summaries, model.ScaffoldSummary{
			Side:                  idx.Side(),
			Scaffold:              key.Scaffold,
			Strand:                key.Strand,
			OrthologsOnScaffold:   p.count,
			TranscriptsOnScaffold: size,
			GroupStart:            p.start,
			GroupEnd:              p.end,
			InterveningGenes:      intervening,
		})
	}
	if placed != len(query) {
		return nil, &ConsistencyError{Side: idx.Side(),
			Reason: fmt.Sprintf("%d transcripts queried but %d placed on scaffolds", len(query), placed)}
	}

	SortSummaries(summaries)
	return summaries, nil
}

// SortSummaries orders summaries by side, scaffold, then strand.
func SortSummaries(s []model.ScaffoldSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Side != s[j].Side {
			return s[i].Side < s[j].Side
		}
		if s[i].Scaffold != s[j].Scaffold {
			return s[i].Scaffold < s[j].Scaffold
		}
		return s[i].Strand < s[j].Strand
	})
}
