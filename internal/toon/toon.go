// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/orthoscan/internal/classify"
	"github.com/phobologic/orthoscan/internal/model"
)

var (
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	escaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
)

// Encode converts a ContiguityReport into TOON format. Groups are numbered
// from 1 in report order.
func Encode(rep *model.ContiguityReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("report: %s", encodeValue(rep.Report)))

	var groupRows [][]string
	for i := range rep.Groups {
		g := &rep.Groups[i]
		groupRows = append(groupRows, []string{
			strconv.Itoa(g.Index + 1),
			strconv.Itoa(g.SizeA),
			strconv.Itoa(g.SizeB),
		})
	}
	parts = append(parts, formatTabular("groups", []string{"group", "a", "b"}, groupRows))

	var scaffoldRows [][]string
	for i := range rep.Groups {
		g := &rep.Groups[i]
		for j := range g.Summaries {
			s := &g.Summaries[j]
			scaffoldRows = append(scaffoldRows, []string{
				strconv.Itoa(g.Index + 1),
				string(s.Side),
				s.Scaffold,
				string(s.Strand),
				strconv.Itoa(s.OrthologsOnScaffold),
				strconv.Itoa(s.TranscriptsOnScaffold),
				strconv.Itoa(s.GroupStart),
				strconv.Itoa(s.GroupEnd),
				strconv.Itoa(s.InterveningGenes),
			})
		}
	}
	parts = append(parts, formatTabular("scaffolds", []string{
		"group", "side", "scaffold", "strand", "orthologs", "transcripts", "start", "end", "intervening",
	}, scaffoldRows))

	return strings.Join(parts, "\n")
}

// EncodeCounts converts a cardinality summary into a TOON table.
func EncodeCounts(counts []classify.Count) string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{string(c.Kind), strconv.Itoa(c.Count)})
	}
	return formatTabular("cardinality", []string{"kind", "count"}, rows)
}

// formatTabular writes a `name[N]{cols}:` header followed by one indented,
// comma-joined row per line.
func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		b.WriteString("\n  ")
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(encodeValue(cell))
		}
	}
	return b.String()
}

// encodeValue leaves numbers and plain names bare and quotes anything a TOON
// reader could misread.
func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case looksNumeric.MatchString(value):
		return value
	case mustQuote(value):
		return `"` + escaper.Replace(value) + `"`
	}
	return value
}

func mustQuote(value string) bool {
	if value != strings.TrimSpace(value) || strings.HasPrefix(value, "-") {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "false", "null":
		return true
	}
	return strings.ContainsAny(value, ",:\"\\{}[]\n\r\t")
}
