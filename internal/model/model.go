// Package model defines core data structures for orthoscan.
package model

import (
	"encoding/json"
	"fmt"
)

// Side identifies one of the two compared gene sets.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Sides lists both sides in presentation order.
var Sides = []Side{SideA, SideB}

// Strand is the genomic strand of a feature.
type Strand string

const (
	Plus  Strand = "+"
	Minus Strand = "-"
)

// GroupMember is one sequence participating in one side of an ortholog group.
type GroupMember struct {
	Label      string
	Confidence float64 // fraction in [0,1]
}

// MarshalJSON encodes the member as a [label, confidence] pair.
func (m GroupMember) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{m.Label, m.Confidence})
}

// UnmarshalJSON decodes a [label, confidence] pair.
func (m *GroupMember) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("group member: expected [label, score], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &m.Label); err != nil {
		return fmt.Errorf("group member label: %w", err)
	}
	if err := json.Unmarshal(pair[1], &m.Confidence); err != nil {
		return fmt.Errorf("group member score: %w", err)
	}
	return nil
}

// OrthologGroup is one predicted ortholog cluster. Member order within each
// side follows the report.
type OrthologGroup struct {
	A []GroupMember `json:"a"`
	B []GroupMember `json:"b"`
}

// Members returns the members on the given side.
func (g *OrthologGroup) Members(s Side) []GroupMember {
	if s == SideA {
		return g.A
	}
	return g.B
}

// ParseResult is the ordered list of groups read from one report.
type ParseResult struct {
	Groups []OrthologGroup `json:"groups"`
}

// GenomicInterval locates a feature. Coordinates are 1-based inclusive.
type GenomicInterval struct {
	Scaffold string
	Start    int
	End      int
	Strand   Strand
}

// Key returns the scaffold/strand bucket the interval belongs to.
func (iv GenomicInterval) Key() ScaffoldKey {
	return ScaffoldKey{Scaffold: iv.Scaffold, Strand: iv.Strand}
}

// ScaffoldKey buckets transcripts by scaffold and strand.
type ScaffoldKey struct {
	Scaffold string
	Strand   Strand
}

func (k ScaffoldKey) String() string {
	return k.Scaffold + ":" + string(k.Strand)
}

// TranscriptRecord is one annotated transcript of one genome.
type TranscriptRecord struct {
	Name     string
	Side     Side
	Interval GenomicInterval
}

// ScaffoldSummary describes how the members of one group side that fall on a
// single scaffold/strand are laid out there.
type ScaffoldSummary struct {
	Side                  Side   `json:"side"`
	Scaffold              string `json:"scaffold"`
	Strand                Strand `json:"strand"`
	OrthologsOnScaffold   int    `json:"orthologs_on_scaffold"`
	TranscriptsOnScaffold int    `json:"transcripts_on_scaffold"`
	GroupStart            int    `json:"group_start"`
	GroupEnd              int    `json:"group_end"`
	InterveningGenes      int    `json:"intervening_genes"`
}

// GroupReport holds the contiguity result for one analyzed group.
type GroupReport struct {
	Index     int               `json:"index"` // position in the report, 0-based
	SizeA     int               `json:"a"`
	SizeB     int               `json:"b"`
	Summaries []ScaffoldSummary `json:"scaffolds"`
}

// ContiguityReport is the complete analysis output, ready for serialization.
type ContiguityReport struct {
	Report string        `json:"report"`
	Groups []GroupReport `json:"groups"`
}
