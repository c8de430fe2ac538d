package codegen

import (
	"strings"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/style"
)

// buildData assembles the data literal for a creation call. Field order is
// fixed: class, style, attrs, props, then key. Inside the attribute and
// property maps, source order is preserved. The second result reports
// whether every field is a literal, which lets the whole object hoist into
// the constant pool when the key is also literal.
func (g *generator) buildData(attrs []ir.Attr, sc scope, keyExpr string, isComponent, weave bool) (string, bool) {
	var (
		class  string
		styleF string
		attrsF []string
		propsF []string
	)
	static := true
	for _, a := range attrs {
		switch {
		case a.Name == "class" && !a.Bound() && !a.Bare:
			names := strings.Fields(a.Value)
			entries := make([]string, len(names))
			for i, n := range names {
				entries[i] = objKey(n) + ": true"
			}
			class = "classMap: {" + strings.Join(entries, ", ") + "}"
		case a.Name == "class" && a.Bound():
			class = "className: " + memberExpr(*a.Expr, sc.aliases)
			static = false
		case a.Name == "style" && !a.Bound() && !a.Bare:
			if decls := styleDecls(a.Value); decls != "" {
				styleF = "styleDecls: " + decls
			}
		case a.Name == "style" && a.Bound():
			styleF = "style: " + memberExpr(*a.Expr, sc.aliases)
			static = false
		case isComponent && a.Name != "slot":
			propsF = append(propsF, objKey(camelProp(a.Name))+": "+g.attrValue(a, sc))
			if a.Bound() {
				static = false
			}
		default:
			attrsF = append(attrsF, objKey(a.Name)+": "+g.attrValue(a, sc))
			if a.Bound() {
				static = false
			}
		}
	}
	if weave && g.token != "" {
		attrsF = append(attrsF, quoteJS(g.token)+`: ""`)
	}

	var fields []string
	if class != "" {
		fields = append(fields, class)
	}
	if styleF != "" {
		fields = append(fields, styleF)
	}
	if len(attrsF) > 0 {
		fields = append(fields, "attrs: {"+strings.Join(attrsF, ", ")+"}")
	}
	if len(propsF) > 0 {
		fields = append(fields, "props: {"+strings.Join(propsF, ", ")+"}")
	}
	fields = append(fields, "key: "+keyExpr)
	return "{" + strings.Join(fields, ", ") + "}", static
}

// attrValue renders one attribute value. Bare attributes carry the empty
// string. Bound boolean attributes become a presence conditional the
// runtime maps to set-or-remove; other bound attributes pass the expression
// through.
func (g *generator) attrValue(a ir.Attr, sc scope) string {
	switch {
	case a.Bare:
		return `""`
	case !a.Bound():
		return quoteJS(a.Value)
	case booleanAttrs[a.Name]:
		return memberExpr(*a.Expr, sc.aliases) + ` ? "" : null`
	default:
		return memberExpr(*a.Expr, sc.aliases)
	}
}

// styleDecls renders a literal style attribute as ordered
// [property, value, important] triples. Authored order is kept exactly;
// consuming code must not reorder or dedupe.
func styleDecls(value string) string {
	decls := style.ParseDeclarations(value)
	if len(decls) == 0 {
		return ""
	}
	triples := make([]string, len(decls))
	for i, d := range decls {
		imp := "false"
		if d.Important {
			imp = "true"
		}
		triples[i] = "[" + quoteJS(d.Property) + ", " + quoteJS(d.Value) + ", " + imp + "]"
	}
	return "[" + strings.Join(triples, ", ") + "]"
}

func (g *generator) elementData(el *ir.Element, sc scope, keyExpr string) (string, bool) {
	return g.buildData(el.Attrs, sc, keyExpr, false, true)
}

func (g *generator) componentData(c *ir.Component, sc scope, keyExpr string) (string, bool) {
	return g.buildData(c.Attrs, sc, keyExpr, true, false)
}

func (g *generator) imported(tag string) bool {
	for _, t := range g.componentTags {
		if t == tag {
			return true
		}
	}
	return false
}
