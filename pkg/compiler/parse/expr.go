package parse

import (
	"strings"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/ir"
)

// parseExpression parses the text between interpolation braces into an
// Expression. The template expression grammar is deliberately tiny: a
// dot-chain of identifiers (a, a.b, a.b.c). Calls, literals, operators and
// arbitrary code are rejected here so no template can smuggle in executable
// logic.
func parseExpression(raw string, loc diag.Loc) (ir.Expression, []diag.Diagnostic) {
	expr := ir.Expression{Raw: raw, Loc: loc}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return expr, []diag.Diagnostic{diag.Syntaxf(loc, "empty expression")}
	}

	var diags []diag.Diagnostic
	segs := strings.Split(trimmed, ".")
	path := make([]string, 0, len(segs))
	for _, seg := range segs {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			diags = append(diags, diag.Syntaxf(loc, "invalid expression %q: empty member segment", trimmed))
			continue
		}
		if !IsIdentifier(seg) {
			diags = append(diags, diag.Syntaxf(loc,
				"invalid expression %q: %q is not a property identifier (templates allow dot-chained property access only)",
				trimmed, seg))
			continue
		}
		path = append(path, seg)
	}
	if diags == nil {
		expr.Path = path
	}
	return expr, diags
}

// IsIdentifier reports whether s is a plain identifier in the template
// expression alphabet.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}
