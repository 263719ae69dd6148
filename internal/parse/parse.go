// Package parse reads the human-readable InParanoid report into ortholog groups.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/phobologic/orthoscan/internal/model"
)

// State is a parser state.
type State int

const (
	FileHeader State = iota
	NewGroup
	GroupHeader
	GroupSeq
	BootstrapSupport
)

func (s State) String() string {
	switch s {
	case FileHeader:
		return "FileHeader"
	case NewGroup:
		return "NewGroup"
	case GroupHeader:
		return "GroupHeader"
	case GroupSeq:
		return "GroupSeq"
	case BootstrapSupport:
		return "BootstrapSupport"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const separatorLen = 83

var separator = strings.Repeat("_", separatorLen)

const maxLineSize = 4 * 1024 * 1024

// Report parses an InParanoid report from r.
func Report(r io.Reader) (*model.ParseResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var p parser
	for sc.Scan() {
		if err := p.feed(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return p.finish()
}

// Lines parses a report that has already been split into lines.
func Lines(lines []string) (*model.ParseResult, error) {
	var p parser
	for _, line := range lines {
		if err := p.feed(line); err != nil {
			return nil, err
		}
	}
	return p.finish()
}

type parser struct {
	state   State
	lineNum int
	current *model.OrthologGroup
	groups  []model.OrthologGroup
	started bool
}

// feed runs one input line through the machine, re-dispatching it for as long
// as the active state asks to refire.
func (p *parser) feed(line string) error {
	p.lineNum++
	line = strings.TrimSuffix(line, "\r")
	for {
		next, emitted, refire, err := p.step(line)
		if err != nil {
			return err
		}
		if emitted != nil {
			p.groups = append(p.groups, *emitted)
		}
		p.state = next
		if !refire {
			return nil
		}
	}
}

func (p *parser) step(line string) (next State, emitted *model.OrthologGroup, refire bool, err error) {
	switch p.state {
	case FileHeader:
		if isSeparator(line) {
			p.started = true
			return NewGroup, nil, true, nil
		}
		return FileHeader, nil, false, nil

	case NewGroup:
		if !isSeparator(line) {
			return NewGroup, nil, false, p.malformed(line, "no transition: expected separator line")
		}
		p.current = &model.OrthologGroup{A: []model.GroupMember{}, B: []model.GroupMember{}}
		return GroupHeader, nil, false, nil

	case GroupHeader:
		if strings.HasPrefix(line, "Group of") || strings.HasPrefix(line, "Score difference") {
			return GroupHeader, nil, false, nil
		}
		return GroupSeq, nil, true, nil

	case GroupSeq:
		if isBootstrap(line) {
			g := p.current
			if len(g.A) == 0 || len(g.B) == 0 {
				return GroupSeq, nil, false, p.malformed(line,
					fmt.Sprintf("group finished with %d:%d members", len(g.A), len(g.B)))
			}
			p.current = nil
			return BootstrapSupport, g, true, nil
		}
		if err := p.memberRow(line); err != nil {
			return GroupSeq, nil, false, err
		}
		return GroupSeq, nil, false, nil

	case BootstrapSupport:
		if isBootstrap(line) {
			return BootstrapSupport, nil, false, nil
		}
		return NewGroup, nil, true, nil
	}
	return p.state, nil, false, p.malformed(line, "unknown state")
}

// memberRow appends the members listed on one tab-separated group row.
func (p *parser) memberRow(line string) error {
	raw := strings.Split(line, "\t")
	var fields []string
	for _, f := range raw {
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) != 4 {
		// A side with no member leaves its two columns empty.
		if len(raw) != 4 {
			return p.formatErr(line, "", fmt.Sprintf("expected 4 fields, got %d", len(fields)))
		}
		fields = raw
	}

	added := 0
	for i, side := range model.Sides {
		name, score := strings.TrimSpace(fields[2*i]), fields[2*i+1]
		if name == "" {
			if strings.TrimSpace(score) != "" {
				return p.formatErr(line, score, fmt.Sprintf("score without sequence on side %s", side))
			}
			continue
		}
		conf, reason := percentage(score)
		if reason != "" {
			return p.formatErr(line, score, reason)
		}
		m := model.GroupMember{Label: name, Confidence: conf}
		if side == model.SideA {
			p.current.A = append(p.current.A, m)
		} else {
			p.current.B = append(p.current.B, m)
		}
		added++
	}
	if added == 0 {
		return p.formatErr(line, "", "row lists no sequences")
	}
	return nil
}

func (p *parser) finish() (*model.ParseResult, error) {
	if !p.started {
		return nil, &MalformedReportError{Line: p.lineNum, State: p.state, Reason: "no separator line found"}
	}
	// A group still open at end of input never reached its bootstrap lines
	// and is dropped.
	p.current = nil
	groups := p.groups
	if groups == nil {
		groups = []model.OrthologGroup{}
	}
	return &model.ParseResult{Groups: groups}, nil
}

func (p *parser) malformed(line, reason string) error {
	return &MalformedReportError{Line: p.lineNum, Text: line, State: p.state, Reason: reason}
}

func (p *parser) formatErr(line, token, reason string) error {
	return &FormatError{Line: p.lineNum, Text: line, Token: token, Reason: reason}
}

// Percentage converts a token such as "93.5%" to 0.935. Tokens without the
// trailing "%" fail with a *FormatError.
func Percentage(token string) (float64, error) {
	v, reason := percentage(token)
	if reason != "" {
		return 0, &FormatError{Token: token, Reason: reason}
	}
	return v, nil
}

func percentage(token string) (float64, string) {
	token = strings.TrimSpace(token)
	if !strings.HasSuffix(token, "%") {
		return 0, fmt.Sprintf("putative percentage %q does not end with %%", token)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(token, "%"), 64)
	if err != nil {
		return 0, fmt.Sprintf("putative percentage %q is not a number", token)
	}
	return v / 100, ""
}

func isSeparator(line string) bool {
	return line == separator
}

func isBootstrap(line string) bool {
	return strings.HasPrefix(line, "Bootstrap support for")
}
