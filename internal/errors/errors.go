// Package errors provides the structured error model shared by every pass of
// the compiler: lexer, parser, type dictionary, HIR elaborator, and MIR
// verifier all report failures as a single *errors.Report type, classified by
// Kind and carrying a stable error Code alongside a source Span.
package errors

import "fmt"

// Kind classifies a Report by which subsystem raised it.
type Kind int

const (
	// Lex is a malformed-token error (unterminated string, stray byte, ...).
	Lex Kind = iota
	// Parse is a syntax violation.
	Parse
	// Name is an unresolved type or constant name.
	Name
	// Type is a conformance / arity / unification failure.
	Type
	// Program is a semantically invalid but well-typed construct.
	Program
	// Internal marks a verifier failure: a bug in the compiler itself.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "LexError"
	case Parse:
		return "ParseError"
	case Name:
		return "NameError"
	case Type:
		return "TypeError"
	case Program:
		return "ProgramError"
	case Internal:
		return "InternalBug"
	default:
		return "UnknownError"
	}
}

// Span is a source location: line/column are 1-based, Offset is the 0-based
// byte offset into File's contents.
type Span struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Report is the single error value every pass returns.
type Report struct {
	Kind    Kind
	Code    string
	Message string
	Span    Span
	Notes   []string
}

func (r *Report) Error() string {
	msg := fmt.Sprintf("%s [%s] %s: %s", r.Span, r.Code, r.Kind, r.Message)
	for _, n := range r.Notes {
		msg += "\n  note: " + n
	}
	return msg
}

// New builds a Report, looking up Kind/phase metadata from the Code registry
// when available so callers only need to pass a code and a message.
func New(code string, span Span, format string, args ...interface{}) *Report {
	info, ok := Registry[code]
	kind := Internal
	if ok {
		kind = info.Kind
	}
	return &Report{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// WithNote appends a secondary annotation and returns the same report for
// chaining at the call site, e.g. `errors.New(...).WithNote(...)`.
func (r *Report) WithNote(format string, args ...interface{}) *Report {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
	return r
}
