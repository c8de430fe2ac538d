// Package diag defines the structured diagnostics shared by every compiler
// stage. Parse and validation problems are reported as Diagnostic values
// collected per template; invariant violations inside the compiler itself are
// reported as *InternalError, which is a Go error, not a user diagnostic.
package diag

import "fmt"

// Kind classifies a user-facing diagnostic.
type Kind int

const (
	// Syntax marks malformed markup reported by the parser.
	Syntax Kind = iota
	// Semantic marks template-language rule violations reported by the
	// validator.
	Semantic
)

// String returns the lowercase name used in rendered diagnostics.
func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	default:
		return fmt.Sprintf("diag.Kind(%d)", int(k))
	}
}

// Loc is a position in a template source file. Line and Col are 1-based,
// Offset is the 0-based byte offset into the source.
type Loc struct {
	File   string
	Line   int
	Col    int
	Offset int
}

// String formats the location as file:line:col.
func (l Loc) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Diagnostic is one user-facing compile problem. A template that produced any
// diagnostic yields no generated program.
type Diagnostic struct {
	Kind    Kind
	Message string
	Loc     Loc
}

// String renders the diagnostic in file:line:col: kind: message form.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Kind, d.Message)
}

// Syntaxf builds a Syntax diagnostic at loc.
func Syntaxf(loc Loc, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: Syntax, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Semanticf builds a Semantic diagnostic at loc.
func Semanticf(loc Loc, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: Semantic, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// InternalError reports a compiler invariant violation: an analyzer or
// generator bug, never user input. It aborts the compilation of the template
// that hit it and must not be surfaced as a Diagnostic.
type InternalError struct {
	// Stage names the pipeline stage that detected the violation, e.g.
	// "analyze" or "codegen".
	Stage string
	// Path locates the offending node, e.g. "root/element(ul)[0]/foreach".
	Path string
	// Msg describes the violated invariant.
	Msg string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("internal compiler error [%s]: %s", e.Stage, e.Msg)
	}
	return fmt.Sprintf("internal compiler error [%s] at %s: %s", e.Stage, e.Path, e.Msg)
}

// Internalf builds an *InternalError for the given stage and node path.
func Internalf(stage, path, format string, args ...any) *InternalError {
	return &InternalError{Stage: stage, Path: path, Msg: fmt.Sprintf(format, args...)}
}
