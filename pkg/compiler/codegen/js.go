package codegen

import (
	"fmt"
	"strings"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

// quoteJS renders s as a double-quoted JS string literal. U+2028 and U+2029
// are escaped because they terminate lines in JS source even inside string
// literals.
func quoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case ' ':
			b.WriteString(`\u2028`)
		case ' ':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// objKey renders an object literal key, quoting it only when it is not a
// plain identifier.
func objKey(s string) string {
	if jsIdent(s) {
		return s
	}
	return quoteJS(s)
}

func jsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '$':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// memberExpr renders a template expression as a JS member access. Roots
// bound by an enclosing iteration stay bare; everything else reads off the
// component view.
func memberExpr(e ir.Expression, aliases map[string]bool) string {
	if aliases[e.Root()] {
		return strings.Join(e.Path, ".")
	}
	return "$cmp." + strings.Join(e.Path, ".")
}

// ctorIdent derives the imported constructor identifier for a custom
// element tag: x-card becomes _xCard.
func ctorIdent(tag string) string {
	return "_" + camelTag(tag)
}

// moduleSpecifier derives the import specifier for a custom element tag:
// the namespace segment, a slash, and the camel-cased remainder, so
// x-card-list resolves from "x/cardList".
func moduleSpecifier(tag string) string {
	ns, name := parse.SplitComponentTag(tag)
	return ns + "/" + camelTag(name)
}

func camelTag(s string) string {
	parts := strings.Split(s, "-")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// camelProp maps an attribute name to the component property it sets:
// kebab-case becomes camelCase.
func camelProp(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	return camelTag(name)
}
