// Package mapping translates report-local sequence labels back to the
// transcript names used in the genome annotation.
package mapping

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/phobologic/orthoscan/internal/model"
)

// MissingLabelError reports a report label absent from a side's mapping.
type MissingLabelError struct {
	Side  model.Side
	Label string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("label %q has no entry in the side %s name mapping", e.Label, e.Side)
}

// Mapping holds the label tables for both sides.
type Mapping struct {
	// Prefix is prepended to the canonical name, matching annotation IDs
	// such as "transcript:ABC.1".
	Prefix string
	labels map[model.Side]map[string]string
}

// New returns an empty mapping that prepends prefix to every name.
func New(prefix string) *Mapping {
	return &Mapping{Prefix: prefix, labels: make(map[model.Side]map[string]string)}
}

// Read loads a JSON object of label to original header for side.
func (m *Mapping) Read(side model.Side, r io.Reader) error {
	var table map[string]string
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return fmt.Errorf("decoding side %s name mapping: %w", side, err)
	}
	m.labels[side] = table
	return nil
}

// ReadFile loads the mapping for side from path.
func (m *Mapping) ReadFile(side model.Side, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Read(side, f)
}

// Resolve returns the annotation name for a report label: the first
// whitespace-delimited token of the original header, with Prefix prepended.
func (m *Mapping) Resolve(side model.Side, label string) (string, error) {
	full, ok := m.labels[side][label]
	if !ok {
		return "", &MissingLabelError{Side: side, Label: label}
	}
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", fmt.Errorf("label %q maps to an empty header on side %s", label, side)
	}
	return m.Prefix + fields[0], nil
}

// Names returns the resolved name of every label on side, for use as an
// index allowlist, and the sorted labels whose header is empty.
func (m *Mapping) Names(side model.Side) (map[string]struct{}, []string) {
	out := make(map[string]struct{}, len(m.labels[side]))
	var empty []string
	for label := range m.labels[side] {
		name, err := m.Resolve(side, label)
		if err != nil {
			empty = append(empty, label)
			continue
		}
		out[name] = struct{}{}
	}
	sort.Strings(empty)
	return out, empty
}
