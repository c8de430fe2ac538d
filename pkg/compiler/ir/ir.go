// Package ir defines the template parse tree. Node is a closed sum over the
// kinds a template can contain: Root, Element, Component, Slot, Text, Expr,
// Comment and Directive. Every traversal is expected to switch over all of
// them; an unknown kind is a compiler bug.
package ir

import (
	"strings"

	"github.com/loomkit/loom/pkg/diag"
)

// Node is the interface implemented by all parse tree nodes. The parent owns
// its children; nodes are never shared between trees and never form cycles.
type Node interface {
	// Pos returns the node's position in the template source.
	Pos() diag.Loc

	node()
}

// Root is the top of a parsed template. Templates are fragments: a root may
// have any number of children.
type Root struct {
	Children []Node
	Loc      diag.Loc
}

// Element is a plain HTML element.
type Element struct {
	// Tag is the lowercase tag name.
	Tag string
	// Namespace is "" for HTML elements and "svg" inside an <svg> subtree.
	Namespace string
	Attrs     []Attr
	Children  []Node
	// Key holds the author-supplied key={expr} binding, when present.
	Key *Expression
	// SelfClosed records <tag/> syntax, Void records membership in the
	// void-element whitelist. Both kinds of element have no children.
	SelfClosed bool
	Void       bool
	Loc        diag.Loc
}

// Component is a custom-element invocation (a namespaced, hyphenated tag).
type Component struct {
	// Tag is the full custom-element tag name, e.g. "x-card".
	Tag      string
	Attrs    []Attr
	Children []Node
	Key      *Expression
	Loc      diag.Loc
}

// Slot is a <slot> declaration. The default slot's name is the empty string.
// Children are the declared fallback content, rendered only when the caller
// supplies nothing for the slot.
type Slot struct {
	Name     string
	Attrs    []Attr
	Children []Node
	Loc      diag.Loc
}

// Text is a literal text run with entities already decoded.
type Text struct {
	Value string
	Loc   diag.Loc
}

// Expr is an interpolated expression in text position. Adjacent literal text
// is kept in separate Text nodes.
type Expr struct {
	Value Expression
	Loc   diag.Loc
}

// Comment is an HTML comment. Whether comments survive compilation is a
// generator option; the parse tree always keeps them.
type Comment struct {
	Value string
	Loc   diag.Loc
}

// Directive wraps the subtree an iteration or conditional directive controls.
// The parser attaches every directive written on one element to a single
// wrapper, so the validator can reject if:* and for:each targeting the same
// node. In a valid tree at most one of ForEach/If is set.
type Directive struct {
	ForEach *ForEach
	If      *IfCond
	// Node is the wrapped Element, Component or Slot the directives were
	// written on.
	Node Node
	Loc  diag.Loc
}

// ForEach is a for:each iteration: for:each={list} with optional
// for:item="ident" and for:index="ident" alias bindings.
type ForEach struct {
	List Expression
	// Item is the per-iteration alias, "item" when the author omits
	// for:item. Index is the iteration counter alias, "index" when the
	// author omits for:index. Both always name generated parameters.
	Item  string
	Index string
	Loc   diag.Loc
}

// IfCond is an if:true / if:false conditional. Negate is set for if:false.
type IfCond struct {
	Cond   Expression
	Negate bool
	Loc    diag.Loc
}

func (*Root) node()      {}
func (*Element) node()   {}
func (*Component) node() {}
func (*Slot) node()      {}
func (*Text) node()      {}
func (*Expr) node()      {}
func (*Comment) node()   {}
func (*Directive) node() {}

// Pos implementations.
func (n *Root) Pos() diag.Loc      { return n.Loc }
func (n *Element) Pos() diag.Loc   { return n.Loc }
func (n *Component) Pos() diag.Loc { return n.Loc }
func (n *Slot) Pos() diag.Loc      { return n.Loc }
func (n *Text) Pos() diag.Loc      { return n.Loc }
func (n *Expr) Pos() diag.Loc      { return n.Loc }
func (n *Comment) Pos() diag.Loc   { return n.Loc }
func (n *Directive) Pos() diag.Loc { return n.Loc }

// Expression is a validated-shape template expression: a dot-chain of
// identifiers such as item.label. Raw preserves the authored text.
type Expression struct {
	Raw  string
	Path []string
	Loc  diag.Loc
}

// Root returns the first identifier of the chain.
func (e Expression) Root() string {
	if len(e.Path) == 0 {
		return ""
	}
	return e.Path[0]
}

// String returns the canonical dotted form.
func (e Expression) String() string {
	return strings.Join(e.Path, ".")
}

// Attr is one attribute as authored: either a literal value or a bound
// expression. Attribute order in the slice matches source order and must be
// preserved through code generation.
type Attr struct {
	Name string
	// Value is the decoded literal value. Meaningless when Expr is set.
	Value string
	// Expr is non-nil for name={expr} bindings.
	Expr *Expression
	// Bare marks a value-less attribute (<input disabled>).
	Bare bool
	Loc  diag.Loc
}

// Bound reports whether the attribute value is an expression binding.
func (a Attr) Bound() bool { return a.Expr != nil }

// Children returns the ordered children of n, or nil for leaves.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Root:
		return v.Children
	case *Element:
		return v.Children
	case *Component:
		return v.Children
	case *Slot:
		return v.Children
	case *Directive:
		return []Node{v.Node}
	case *Text, *Expr, *Comment:
		return nil
	default:
		panic("ir: unknown node kind")
	}
}

// Walk visits n and its descendants in preorder. It stops descending below
// any node for which fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Unwrap peels Directive wrappers off n, returning the wrapped node.
func Unwrap(n Node) Node {
	for {
		d, ok := n.(*Directive)
		if !ok {
			return n
		}
		n = d.Node
	}
}
