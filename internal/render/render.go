// Package render writes parse and contiguity results for people and scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/phobologic/orthoscan/internal/classify"
	"github.com/phobologic/orthoscan/internal/model"
	"github.com/phobologic/orthoscan/internal/toon"
)

// Formats lists the accepted -format values.
var Formats = []string{"text", "toon", "json"}

// Valid reports whether format is one of Formats.
func Valid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Contiguity writes rep in the given format.
func Contiguity(w io.Writer, format string, rep *model.ContiguityReport) error {
	switch format {
	case "text":
		return Text(w, rep)
	case "toon":
		_, err := fmt.Fprintln(w, toon.Encode(rep))
		return err
	case "json":
		return JSON(w, rep)
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(Formats, ", "))
}

// Text writes one block per group: a "Group (a:b = N:M)" header, then one
// line per scaffold summary. Blocks are separated by a blank line.
func Text(w io.Writer, rep *model.ContiguityReport) error {
	for i := range rep.Groups {
		g := &rep.Groups[i]
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Group (a:b = %d:%d)\n", g.SizeA, g.SizeB); err != nil {
			return err
		}
		for _, s := range g.Summaries {
			_, err := fmt.Fprintf(w, "%s %-20s %-4s %d %d %d %d %d\n",
				s.Side, s.Scaffold, s.Strand,
				s.OrthologsOnScaffold, s.TranscriptsOnScaffold,
				s.GroupStart, s.GroupEnd, s.InterveningGenes)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Counts writes a cardinality summary as key=value lines, or as TOON.
func Counts(w io.Writer, format string, counts []classify.Count) error {
	switch format {
	case "text":
		for _, c := range counts {
			if _, err := fmt.Fprintf(w, "%s=%d\n", c.Kind, c.Count); err != nil {
				return err
			}
		}
		return nil
	case "toon":
		_, err := fmt.Fprintln(w, toon.EncodeCounts(counts))
		return err
	case "json":
		m := make(map[string]int, len(counts))
		for _, c := range counts {
			m[string(c.Kind)] = c.Count
		}
		return JSON(w, m)
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(Formats, ", "))
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
