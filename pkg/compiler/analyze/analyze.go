// Package analyze computes the static facts the code generator consumes:
// which subtrees are fully static and hoistable, the structural key of every
// creation site, declared and caller-populated slots, referenced custom
// elements, and the template's scoping tokens. Analysis never mutates the
// tree; all results live beside it.
package analyze

import (
	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/style"
)

// Options configures an analysis pass.
type Options struct {
	// Identity names the template for scope-token derivation, typically the
	// component specifier ("x/card"). Two templates compiled under the same
	// identity share a token; distinct identities never do.
	Identity string

	// NativeShadow disables synthetic style scoping. Tokens are still
	// derived for the stylesheet stage, but the generator will not weave
	// them into creation calls or hoisted markup.
	NativeShadow bool
}

// StaticReason records why a node was classified dynamic. StaticOK marks
// static nodes.
type StaticReason uint8

const (
	StaticOK StaticReason = iota
	DynText                // expression in text position
	DynAttr                // bound attribute
	DynDirective           // if: or for:each wrapper
	DynSlot                // projection depends on caller content
	DynComponent           // custom elements own their subtree at runtime
	DynChild               // a descendant is dynamic
)

func (r StaticReason) String() string {
	switch r {
	case StaticOK:
		return "static"
	case DynText:
		return "dynamic text"
	case DynAttr:
		return "bound attribute"
	case DynDirective:
		return "control directive"
	case DynSlot:
		return "slot projection"
	case DynComponent:
		return "custom element"
	case DynChild:
		return "dynamic descendant"
	}
	return "unknown"
}

// Template is the analyzed form of a parse tree. The tree itself is shared,
// unmodified, with the analysis results addressable by node.
type Template struct {
	Root *ir.Root

	// Token scopes selectors and woven attributes for this template.
	// HostToken is its host-element variant.
	Token     string
	HostToken string

	// NativeShadow mirrors Options.NativeShadow for the generator.
	NativeShadow bool

	// Slots lists declared slot names in source order. The default slot is
	// the empty string.
	Slots []string

	// Components lists referenced custom-element tags in first-use order.
	Components []string

	facts map[ir.Node]*nodeFacts
}

type nodeFacts struct {
	static       bool
	reason       StaticReason
	key          int
	hasKey       bool
	fragmentRoot bool
	slotTarget   string
	hasSlot      bool
	callerSlots  []string
}

// Analyze computes per-node facts for a validated tree.
func Analyze(root *ir.Root, opts Options) *Template {
	token := style.Token(opts.Identity)
	t := &Template{
		Root:         root,
		Token:        token,
		HostToken:    style.HostToken(token),
		NativeShadow: opts.NativeShadow,
		facts:        map[ir.Node]*nodeFacts{},
	}
	a := &analyzer{t: t, seen: map[string]bool{}}
	for _, c := range root.Children {
		a.classify(c)
	}
	for _, c := range root.Children {
		a.place(c, false)
	}
	for _, c := range root.Children {
		a.resolve(c)
	}
	return t
}

// Static reports whether n and everything below it is free of dynamic
// bindings.
func (t *Template) Static(n ir.Node) bool {
	return t.facts[n] != nil && t.facts[n].static
}

// Reason returns the classification detail for n.
func (t *Template) Reason(n ir.Node) StaticReason {
	if f := t.facts[n]; f != nil {
		return f.reason
	}
	return StaticOK
}

// Key returns n's structural key. Only creation sites carry one: elements,
// custom elements, slots, and hoisted fragment roots.
func (t *Template) Key(n ir.Node) (int, bool) {
	if f := t.facts[n]; f != nil && f.hasKey {
		return f.key, true
	}
	return 0, false
}

// FragmentRoot reports whether n is the root of a maximal static subtree,
// hoisted once and instantiated by reference on every render.
func (t *Template) FragmentRoot(n ir.Node) bool {
	return t.facts[n] != nil && t.facts[n].fragmentRoot
}

// SlotTarget returns the slot a component child is projected into. The
// second result is false for nodes that are not direct children of a custom
// element.
func (t *Template) SlotTarget(n ir.Node) (string, bool) {
	if f := t.facts[n]; f != nil && f.hasSlot {
		return f.slotTarget, true
	}
	return "", false
}

// CallerSlots returns the slot names a custom-element invocation populates,
// in first-use order.
func (t *Template) CallerSlots(c *ir.Component) []string {
	if f := t.facts[c]; f != nil {
		return f.callerSlots
	}
	return nil
}

type analyzer struct {
	t    *Template
	next int
	seen map[string]bool
}

func (a *analyzer) fact(n ir.Node) *nodeFacts {
	f := a.t.facts[n]
	if f == nil {
		f = &nodeFacts{}
		a.t.facts[n] = f
	}
	return f
}

// classify runs the bottom-up static fold. A leaf is static unless it is an
// expression; an element is static iff every attribute is literal and every
// child is static. Directive wrappers, slots, and custom elements are
// always dynamic, but their children classify independently so static
// content under them still hoists.
func (a *analyzer) classify(n ir.Node) (bool, StaticReason) {
	f := a.fact(n)
	switch node := n.(type) {
	case *ir.Text, *ir.Comment:
		f.static, f.reason = true, StaticOK
	case *ir.Expr:
		f.static, f.reason = false, DynText
	case *ir.Directive:
		a.classify(node.Node)
		f.static, f.reason = false, DynDirective
	case *ir.Slot:
		for _, c := range node.Children {
			a.classify(c)
		}
		f.static, f.reason = false, DynSlot
	case *ir.Component:
		for _, c := range node.Children {
			a.classify(c)
		}
		f.static, f.reason = false, DynComponent
	case *ir.Element:
		f.static, f.reason = true, StaticOK
		for _, attr := range node.Attrs {
			if attr.Bound() {
				f.static, f.reason = false, DynAttr
				break
			}
		}
		for _, c := range node.Children {
			static, _ := a.classify(c)
			if !static && f.static {
				f.static, f.reason = false, DynChild
			}
		}
	default:
		f.static, f.reason = false, StaticOK
	}
	return f.static, f.reason
}

// place assigns structural keys in preorder and marks maximal static element
// subtrees as fragment roots. Keys number exactly the creation calls the
// render function will make, so nodes inside a hoisted fragment consume
// none; the fragment root keeps one as its instantiation key.
func (a *analyzer) place(n ir.Node, inFragment bool) {
	switch node := n.(type) {
	case *ir.Directive:
		a.place(node.Node, inFragment)
	case *ir.Element:
		f := a.fact(n)
		if inFragment {
			for _, c := range node.Children {
				a.place(c, true)
			}
			return
		}
		f.key, f.hasKey = a.next, true
		a.next++
		if f.static {
			f.fragmentRoot = true
			for _, c := range node.Children {
				a.place(c, true)
			}
			return
		}
		for _, c := range node.Children {
			a.place(c, false)
		}
	case *ir.Component:
		f := a.fact(n)
		f.key, f.hasKey = a.next, true
		a.next++
		for _, c := range node.Children {
			a.place(c, false)
		}
	case *ir.Slot:
		f := a.fact(n)
		f.key, f.hasKey = a.next, true
		a.next++
		for _, c := range node.Children {
			a.place(c, false)
		}
	}
}

// resolve records slot declarations, caller-side slot population, and
// referenced custom elements, all in source order.
func (a *analyzer) resolve(n ir.Node) {
	switch node := n.(type) {
	case *ir.Directive:
		a.resolve(node.Node)
	case *ir.Slot:
		a.t.Slots = append(a.t.Slots, node.Name)
		for _, c := range node.Children {
			a.resolve(c)
		}
	case *ir.Component:
		if !a.seen[node.Tag] {
			a.seen[node.Tag] = true
			a.t.Components = append(a.t.Components, node.Tag)
		}
		f := a.fact(n)
		for _, c := range node.Children {
			a.assignSlot(c, f)
			a.resolve(c)
		}
	case *ir.Element:
		for _, c := range node.Children {
			a.resolve(c)
		}
	}
}

// assignSlot maps one direct child of a custom element to the slot it
// populates: the literal slot attribute when present, the default slot
// otherwise. Text and comment children always land in the default slot.
func (a *analyzer) assignSlot(child ir.Node, component *nodeFacts) {
	name := ""
	var attrs []ir.Attr
	switch inner := ir.Unwrap(child).(type) {
	case *ir.Element:
		attrs = inner.Attrs
	case *ir.Component:
		attrs = inner.Attrs
	}
	for _, attr := range attrs {
		if attr.Name == "slot" && !attr.Bound() && !attr.Bare {
			name = attr.Value
			break
		}
	}
	f := a.fact(child)
	f.slotTarget, f.hasSlot = name, true
	for _, existing := range component.callerSlots {
		if existing == name {
			return
		}
	}
	component.callerSlots = append(component.callerSlots, name)
}
