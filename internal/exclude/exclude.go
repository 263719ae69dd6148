// Package exclude hides scaffolds matching gitignore-style patterns from
// contiguity output.
package exclude

import (
	"fmt"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/orthoscan/internal/model"
)

// Matcher matches scaffold names against a pattern list.
type Matcher struct {
	gi *ignore.GitIgnore
}

// Parse compiles a comma-separated pattern list such as "MtDNA,*_random".
// An argument starting with "@" names a file with one pattern per line.
// An empty list yields a nil Matcher, which matches nothing.
func Parse(patterns string) (*Matcher, error) {
	patterns = strings.TrimSpace(patterns)
	if patterns == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(patterns, "@"); ok {
		gi, err := ignore.CompileIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading scaffold patterns: %w", err)
		}
		return &Matcher{gi: gi}, nil
	}

	var lines []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return &Matcher{gi: ignore.CompileIgnoreLines(lines...)}, nil
}

// Match reports whether scaffold is excluded.
func (m *Matcher) Match(scaffold string) bool {
	if m == nil {
		return false
	}
	return m.gi.MatchesPath(scaffold)
}

// Filter returns a copy of reports without summaries on excluded scaffolds.
// Groups left with no summaries are dropped.
func (m *Matcher) Filter(reports []model.GroupReport) []model.GroupReport {
	if m == nil {
		return reports
	}
	out := make([]model.GroupReport, 0, len(reports))
	for _, r := range reports {
		var kept []model.ScaffoldSummary
		for _, s := range r.Summaries {
			if !m.Match(s.Scaffold) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			continue
		}
		r.Summaries = kept
		out = append(out, r)
	}
	return out
}
