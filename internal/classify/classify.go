// Package classify sorts ortholog groups by the cardinality of their sides.
package classify

import (
	"fmt"
	"sort"

	"github.com/phobologic/orthoscan/internal/model"
)

// Cardinality names the shape of a group relationship.
type Cardinality string

const (
	OneToOne   Cardinality = "1_to_1"
	OneToMany  Cardinality = "1_to_n"
	ManyToOne  Cardinality = "n_to_1"
	ManyToMany Cardinality = "n_to_n"
)

// Of returns the cardinality of g. A group with an empty side is an error.
func Of(g *model.OrthologGroup) (Cardinality, error) {
	a, b := len(g.A), len(g.B)
	switch {
	case a == 0 || b == 0:
		return "", fmt.Errorf("unexpectedly empty group (a:b = %d:%d)", a, b)
	case a == 1 && b == 1:
		return OneToOne, nil
	case a > 1 && b > 1:
		return ManyToMany, nil
	case a > 1:
		return ManyToOne, nil
	default:
		return OneToMany, nil
	}
}

// NeedsContiguity reports whether g is worth a contiguity analysis. One-to-one
// groups are trivially contiguous with themselves.
func NeedsContiguity(g *model.OrthologGroup) bool {
	return !(len(g.A) == 1 && len(g.B) == 1)
}

// Count is one line of a cardinality summary.
type Count struct {
	Kind  Cardinality
	Count int
}

// Summarize counts groups per cardinality. Only kinds that occur are
// returned, sorted by name.
func Summarize(groups []model.OrthologGroup) ([]Count, error) {
	counts := make(map[Cardinality]int)
	for i := range groups {
		kind, err := Of(&groups[i])
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		counts[kind]++
	}

	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// Select returns the positions of the groups that need contiguity analysis,
// keeping report order. If limit > 0, at most limit positions are returned.
func Select(groups []model.OrthologGroup, limit int) []int {
	var picked []int
	for i := range groups {
		if !NeedsContiguity(&groups[i]) {
			continue
		}
		picked = append(picked, i)
		if limit > 0 && len(picked) == limit {
			break
		}
	}
	return picked
}
