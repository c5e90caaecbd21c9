package ldscript

import (
	"fmt"
	"strings"
)

// ParseError is a fatal syntactic failure in a linker script. It cites the
// file, line, column and a one-line excerpt of the offending input.
type ParseError struct {
	Pos     Pos
	Excerpt string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("%s: %s\n\t%s", e.Pos, e.Msg, e.Excerpt)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func newParseError(pos Pos, src string, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Pos:     pos,
		Excerpt: excerptLine(src, pos.Line),
		Msg:     fmt.Sprintf(format, args...),
	}
}

// excerptLine returns the trimmed source line for an error message.
func excerptLine(src string, line int) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(lines[line-1])
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

// EvalError is a fatal evaluation failure: an undefined symbol was reached
// while computing a region ORIGIN or LENGTH. It names the symbol and its
// first use site.
type EvalError struct {
	Symbol string
	Pos    Pos
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: undefined symbol %q in ORIGIN/LENGTH expression", e.Pos, e.Symbol)
}

// Warning is a non-fatal diagnostic collected during parsing or evaluation:
// duplicate regions, unknown directives, suspicious hierarchy.
type Warning struct {
	Pos Pos
	Msg string
}

func (w Warning) String() string {
	if w.Pos.Line == 0 {
		return w.Msg
	}
	return fmt.Sprintf("%s: %s", w.Pos, w.Msg)
}

// errUndefined is an internal marker carried while an expression still
// references symbols that have no binding yet. The executor retries such
// expressions; only ORIGIN/LENGTH failures escalate to *EvalError.
type errUndefined struct {
	symbol string
	pos    Pos
}

func (e *errUndefined) Error() string {
	return fmt.Sprintf("undefined symbol %q at %s", e.symbol, e.pos)
}
