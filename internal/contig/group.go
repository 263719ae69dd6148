package contig

import (
	"fmt"

	"github.com/phobologic/orthoscan/internal/model"
)

// Resolver maps a report label on one side to the transcript name the index
// is keyed by.
type Resolver interface {
	Resolve(side model.Side, label string) (string, error)
}

// Group analyzes both sides of one ortholog group. indexes must hold an Index
// for each of model.Sides.
func Group(pos int, g *model.OrthologGroup, res Resolver, indexes map[model.Side]Index) (model.GroupReport, error) {
	rep := model.GroupReport{Index: pos, SizeA: len(g.A), SizeB: len(g.B)}
	for _, side := range model.Sides {
		idx, ok := indexes[side]
		if !ok {
			return model.GroupReport{}, fmt.Errorf("no index for side %s", side)
		}
		members := g.Members(side)
		names := make([]string, 0, len(members))
		for _, m := range members {
			name, err := res.Resolve(side, m.Label)
			if err != nil {
				return model.GroupReport{}, err
			}
			names = append(names, name)
		}
		summaries, err := Analyze(idx, names)
		if err != nil {
			return model.GroupReport{}, fmt.Errorf("group %d side %s: %w", pos+1, side, err)
		}
		rep.Summaries = append(rep.Summaries, summaries...)
	}
	SortSummaries(rep.Summaries)
	return rep, nil
}
