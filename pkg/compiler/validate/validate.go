// Package validate enforces the template-language rules the parser cannot:
// directive placement and combination, slot uniqueness, reserved attributes,
// expression reference resolution, and custom-element naming. Validation
// never mutates the tree; a tree that produced no diagnostics is the
// validated tree.
package validate

import (
	"strings"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

// Options configures a validation pass.
type Options struct {
	// PublicProperties is the component's public property/method contract.
	// When non-nil, every expression root that is not an iteration alias
	// must appear in it. When nil, unknown roots are deferred to runtime.
	PublicProperties []string
}

// Validate checks root against the template-language rules and returns all
// violations. Any returned diagnostic is terminal for this template's
// compilation but never for a batch.
func Validate(root *ir.Root, opts Options) []diag.Diagnostic {
	v := &validator{slotNames: map[string]diag.Loc{}}
	if opts.PublicProperties != nil {
		v.public = map[string]bool{}
		for _, p := range opts.PublicProperties {
			v.public[p] = true
		}
	}
	for _, c := range root.Children {
		v.walk(c, scope{})
	}
	return v.diags
}

type validator struct {
	public    map[string]bool
	diags     []diag.Diagnostic
	slotNames map[string]diag.Loc
}

// scope carries walk context: the iteration aliases in force, whether the
// walk is inside a for:each subtree, whether the immediate parent is a
// custom element (which is what makes a slot="…" attribute meaningful), and
// the for:each that directly wraps the current node, if any, which is what
// licenses a key.
type scope struct {
	aliases       map[string]bool
	inIteration   bool
	parentIsOwner bool
	keyOwner      *ir.ForEach
}

func (s scope) withAliases(names ...string) scope {
	next := scope{aliases: map[string]bool{}, inIteration: true}
	for a := range s.aliases {
		next.aliases[a] = true
	}
	for _, n := range names {
		if n != "" {
			next.aliases[n] = true
		}
	}
	return next
}

func (v *validator) errorf(loc diag.Loc, format string, args ...any) {
	v.diags = append(v.diags, diag.Semanticf(loc, format, args...))
}

func (v *validator) walk(n ir.Node, sc scope) {
	switch node := n.(type) {
	case *ir.Directive:
		v.checkDirective(node, sc)
	case *ir.Element:
		v.checkAttrs(node.Attrs, sc)
		v.checkKey(node.Key, sc.keyOwner)
		child := scope{aliases: sc.aliases, inIteration: sc.inIteration}
		for _, c := range node.Children {
			v.walk(c, child)
		}
	case *ir.Component:
		v.checkComponent(node, sc)
	case *ir.Slot:
		v.checkSlot(node, sc)
	case *ir.Expr:
		v.checkExpr(node.Value, sc)
	case *ir.Text, *ir.Comment:
		// Nothing to check.
	default:
		panic("validate: unknown node kind")
	}
}

// checkDirective enforces the one-control-directive rule and validates the
// directive bindings before descending into the wrapped node.
func (v *validator) checkDirective(d *ir.Directive, sc scope) {
	if d.ForEach != nil && d.If != nil {
		v.errorf(d.Loc, "if: and for:each cannot both target the same element; nest the conditional in an explicit wrapper")
	}
	if _, isSlot := d.Node.(*ir.Slot); isSlot {
		v.errorf(d.Loc, "if: and for:each directives are not allowed on <slot>")
	}
	if d.If != nil {
		v.checkExpr(d.If.Cond, sc)
	}
	inner := sc
	if fe := d.ForEach; fe != nil {
		v.checkExpr(fe.List, sc)
		v.checkAlias(fe.Item, "for:item", fe.Loc)
		if fe.Index != "" {
			v.checkAlias(fe.Index, "for:index", fe.Loc)
			if fe.Index == fe.Item {
				v.errorf(fe.Loc, "for:item and for:index must use different names")
			}
		}
		inner = sc.withAliases(fe.Item, fe.Index)
		inner.keyOwner = fe
	}
	v.walk(d.Node, inner)
}

// checkKey reports keys authored outside an iteration and keys that cannot
// vary per iteration. Static uniqueness is not checked: analysis cannot
// evaluate expressions, so per-iteration uniqueness is a runtime contract.
func (v *validator) checkKey(key *ir.Expression, fe *ir.ForEach) {
	if key == nil {
		return
	}
	if fe == nil {
		v.errorf(key.Loc, "key={…} is only allowed on an element with for:each")
		return
	}
	root := key.Root()
	if root != fe.Item && (fe.Index == "" || root != fe.Index) {
		v.errorf(key.Loc, "key must derive from the iteration variable %q", fe.Item)
	}
}

func (v *validator) checkComponent(n *ir.Component, sc scope) {
	ns, name := parse.SplitComponentTag(n.Tag)
	if ns == "" || name == "" || strings.Contains(n.Tag, "--") || strings.HasSuffix(n.Tag, "-") {
		v.errorf(n.Loc, "invalid custom element tag <%s>: expected namespace-name", n.Tag)
	}
	v.checkAttrs(n.Attrs, sc)
	v.checkKey(n.Key, sc.keyOwner)
	child := scope{aliases: sc.aliases, inIteration: sc.inIteration, parentIsOwner: true}
	for _, c := range n.Children {
		v.walk(c, child)
	}
}

func (v *validator) checkSlot(n *ir.Slot, sc scope) {
	if sc.inIteration {
		v.errorf(n.Loc, "<slot> cannot appear inside for:each: slot names would no longer be unique")
	}
	if prev, dup := v.slotNames[n.Name]; dup {
		v.errorf(n.Loc, "duplicate slot name %q (previously declared at %s)", n.Name, prev)
	} else {
		v.slotNames[n.Name] = n.Loc
	}
	for _, a := range n.Attrs {
		if a.Name == "name" && a.Bound() {
			v.errorf(a.Loc, "slot name must be a literal string")
		}
	}
	v.checkAttrs(n.Attrs, sc)
	child := scope{aliases: sc.aliases, inIteration: sc.inIteration}
	for _, c := range n.Children {
		v.walk(c, child)
	}
}

// checkAttrs validates one attribute list. Residual directive-namespace
// attributes here mean the parser could not lift them: wrong value shape or
// missing companion directive.
func (v *validator) checkAttrs(attrs []ir.Attr, sc scope) {
	for _, a := range attrs {
		switch {
		case a.Name == "for:each" || a.Name == "if:true" || a.Name == "if:false":
			v.errorf(a.Loc, "%s must be an expression binding, e.g. %s={items}", a.Name, a.Name)
			continue
		case a.Name == "for:item" || a.Name == "for:index":
			if a.Bound() || a.Bare {
				v.errorf(a.Loc, "%s must be a literal identifier", a.Name)
			} else {
				v.errorf(a.Loc, "%s requires for:each on the same element", a.Name)
			}
			continue
		case strings.HasPrefix(a.Name, "for:") || strings.HasPrefix(a.Name, "if:") || strings.HasPrefix(a.Name, "loom:"):
			v.errorf(a.Loc, "unknown directive %q", a.Name)
			continue
		case a.Name == "key":
			v.errorf(a.Loc, "key is a reserved attribute: write key={expression} on an element with for:each")
			continue
		case a.Name == "is":
			v.errorf(a.Loc, "the is attribute is not supported")
		case a.Name == "slot":
			if a.Bound() {
				v.errorf(a.Loc, "slot attribute must be a literal string")
			} else if !sc.parentIsOwner {
				v.errorf(a.Loc, "slot attribute is only allowed on direct children of a custom element")
			}
		}
		if a.Bound() {
			v.checkExpr(*a.Expr, sc)
		}
	}
}

// checkExpr resolves the expression root against the iteration scope and,
// when a contract was supplied, the component's public surface.
func (v *validator) checkExpr(e ir.Expression, sc scope) {
	if len(e.Path) == 0 {
		// The parser already reported the malformed expression.
		return
	}
	root := e.Root()
	if sc.aliases[root] {
		return
	}
	if v.public != nil && !v.public[root] {
		v.errorf(e.Loc, "expression %q references unknown public property %q", e.Raw, root)
	}
}

// checkAlias validates a for:item / for:index alias identifier. Aliases
// become parameters in generated code, so reserved words and $-prefixed
// names (the runtime's own parameter namespace) are rejected.
func (v *validator) checkAlias(name, attr string, loc diag.Loc) {
	if !parse.IsIdentifier(name) {
		v.errorf(loc, "%s must be a plain identifier, got %q", attr, name)
		return
	}
	if strings.HasPrefix(name, "$") {
		v.errorf(loc, "%s must not start with $: %q", attr, name)
		return
	}
	if jsReserved[name] {
		v.errorf(loc, "%s must not be a reserved word: %q", attr, name)
	}
}

// jsReserved lists identifiers that cannot be parameter names in the emitted
// program.
var jsReserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"await": true,
}
