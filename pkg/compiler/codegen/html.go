package codegen

import (
	"strings"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

// serializeFragment renders a static element subtree back to markup for a
// hoisted fragment. token, when non-empty, is woven into every element as a
// bare scoping attribute. Only literal content can appear here; anything
// else is an analysis bug.
func serializeFragment(el *ir.Element, token, path string) (string, error) {
	var b strings.Builder
	if err := writeStaticNode(&b, el, token, path); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeStaticNode(b *strings.Builder, n ir.Node, token, path string) error {
	switch node := n.(type) {
	case *ir.Text:
		b.WriteString(escapeText(node.Value))
	case *ir.Comment:
		b.WriteString("<!--")
		b.WriteString(node.Value)
		b.WriteString("-->")
	case *ir.Element:
		b.WriteByte('<')
		b.WriteString(node.Tag)
		for _, a := range node.Attrs {
			if a.Bound() {
				return diag.Internalf("codegen", path, "bound attribute %q inside a hoisted fragment", a.Name)
			}
			b.WriteByte(' ')
			b.WriteString(a.Name)
			if !a.Bare {
				b.WriteString(`="`)
				b.WriteString(escapeAttr(a.Value))
				b.WriteByte('"')
			}
		}
		if token != "" {
			b.WriteByte(' ')
			b.WriteString(token)
		}
		b.WriteByte('>')
		if parse.IsVoid(node.Tag) {
			return nil
		}
		for _, c := range node.Children {
			if err := writeStaticNode(b, c, token, path+"/"+node.Tag); err != nil {
				return err
			}
		}
		b.WriteString("</")
		b.WriteString(node.Tag)
		b.WriteByte('>')
	default:
		return diag.Internalf("codegen", path, "non-static node in a hoisted fragment")
	}
	return nil
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	return strings.ReplaceAll(s, `"`, "&quot;")
}

// booleanAttrs lists HTML attributes whose presence alone is the value.
// Bound forms of these render as a presence/absence conditional instead of
// a string value.
var booleanAttrs = map[string]bool{
	"allowfullscreen": true,
	"async":           true,
	"autofocus":       true,
	"autoplay":        true,
	"checked":         true,
	"controls":        true,
	"default":         true,
	"defer":           true,
	"disabled":        true,
	"formnovalidate":  true,
	"hidden":          true,
	"inert":           true,
	"ismap":           true,
	"loop":            true,
	"multiple":        true,
	"muted":           true,
	"nomodule":        true,
	"novalidate":      true,
	"open":            true,
	"playsinline":     true,
	"readonly":        true,
	"required":        true,
	"reversed":        true,
	"selected":        true,
}
