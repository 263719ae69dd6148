package parse

import "fmt"

// MalformedReportError reports a line the parser could not transition from.
// Nothing parsed before it is returned.
type MalformedReportError struct {
	Line   int // 1-based
	Text   string
	State  State
	Reason string
}

func (e *MalformedReportError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("malformed report at line %d (state %s): %s", e.Line, e.State, e.Reason)
	}
	return fmt.Sprintf("malformed report at line %d (state %s): %s: %q", e.Line, e.State, e.Reason, e.Text)
}

// FormatError reports a member row or percentage token that cannot be read.
type FormatError struct {
	Line   int // 0 when the token was parsed outside a report
	Text   string
	Token  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return e.Reason
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}
