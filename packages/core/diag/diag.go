// Package diag describes problems found while parsing and compiling shell
// input, with enough position information to point at the culprit.
package diag

import (
	"fmt"
	"strings"
)

// Code classifies a diagnostic.
type Code int

const (
	// CodeSyntax is a malformed-input error reported by the parser.
	CodeSyntax Code = iota
	// CodeUnknownBuiltin is a call to a built-in name that is not registered.
	CodeUnknownBuiltin
	// CodeUnknownProvider is a provider.function call on an unknown provider.
	CodeUnknownProvider
	// CodeUnknownProviderFunction is a call to a function the provider lacks.
	CodeUnknownProviderFunction
	// CodeTypeMismatch is an argument that cannot be converted to the
	// parameter's declared type.
	CodeTypeMismatch
	// CodeNoCode is reported when no statement of a program compiled.
	CodeNoCode
)

var codeNames = map[Code]string{
	CodeSyntax:                  "syntax error",
	CodeUnknownBuiltin:          "unknown function",
	CodeUnknownProvider:         "unknown provider",
	CodeUnknownProviderFunction: "unknown provider function",
	CodeTypeMismatch:            "type mismatch",
	CodeNoCode:                  "no code",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Pos is a position in a source buffer. Line and Column are 1-based.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the half-open byte range [From.Offset, To.Offset) of the culprit.
type Span struct {
	From Pos
	To   Pos
}

// Diagnostic is a single problem attached to a parse or compile result.
type Diagnostic struct {
	Code    Code
	Message string
	Span    Span
	// Partial is set on syntax diagnostics raised because input ended before
	// the statement was complete. Partial input is buffered, not rejected.
	Partial bool
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Span.From, d.Message)
}

// Semantic reports whether the diagnostic was raised by the compiler rather
// than the parser.
func (d *Diagnostic) Semantic() bool {
	return d.Code != CodeSyntax
}

// Show renders the diagnostic followed by the offending source line with the
// culprit underlined by carets.
func (d *Diagnostic) Show(source, indent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s: %s", indent, d.Span.From, d.Message)

	from := clamp(d.Span.From.Offset, len(source))
	to := clamp(d.Span.To.Offset, len(source))
	if to < from {
		to = from
	}

	lineStart := strings.LastIndexByte(source[:from], '\n') + 1
	lineEnd := strings.IndexByte(source[from:], '\n')
	if lineEnd < 0 {
		lineEnd = len(source)
	} else {
		lineEnd += from
	}
	line := source[lineStart:lineEnd]
	if strings.TrimSpace(line) == "" {
		return sb.String()
	}
	if to > lineEnd {
		to = lineEnd
	}

	width := to - from
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(&sb, "\n%s  %s\n%s  %s%s", indent, line,
		indent, strings.Repeat(" ", from-lineStart), strings.Repeat("^", width))
	return sb.String()
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// List is the set of diagnostics produced by one parse or compile.
type List []*Diagnostic

// Incomplete reports whether the list is non-empty and every entry is a
// partial-input syntax diagnostic.
func (l List) Incomplete() bool {
	if len(l) == 0 {
		return false
	}
	for _, d := range l {
		if !d.Partial {
			return false
		}
	}
	return true
}

// HasSyntax reports whether any entry is a syntax diagnostic.
func (l List) HasSyntax() bool {
	for _, d := range l {
		if d.Code == CodeSyntax {
			return true
		}
	}
	return false
}

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "; ")
}
