// Package parse turns template markup into the ir parse tree. Parsing is
// referentially transparent: the same source always yields the same tree and
// the same diagnostics, and independent problems are collected rather than
// short-circuited so one compile can report several errors.
package parse

import (
	"strings"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/ir"
)

// Parse parses one template source. The returned tree is best-effort when
// diagnostics are non-empty; callers must treat any diagnostic as fatal for
// code generation.
func Parse(src Source) (*ir.Root, []diag.Diagnostic) {
	p := &parser{s: newScanner(src)}
	rootLoc := p.s.loc()
	children := p.parseNodes("", false)
	return &ir.Root{Children: children, Loc: rootLoc}, p.diags
}

type parser struct {
	s     *scanner
	diags []diag.Diagnostic
	// openTags tracks enclosing open elements for close-tag recovery.
	openTags []string
}

func (p *parser) errorf(loc diag.Loc, format string, args ...any) {
	p.diags = append(p.diags, diag.Syntaxf(loc, format, args...))
}

func (p *parser) inOpenStack(name string) bool {
	for _, t := range p.openTags {
		if t == name {
			return true
		}
	}
	return false
}

// parseNodes parses a sibling sequence until EOF or a closing tag that
// belongs to closeTag or one of its ancestors. The matching close tag is left
// unconsumed for the caller.
func (p *parser) parseNodes(closeTag string, svg bool) []ir.Node {
	var nodes []ir.Node
	for !p.s.eof() {
		switch {
		case p.s.peek("</"):
			name, ok := p.s.peekCloseName()
			if !ok {
				loc := p.s.loc()
				p.s.consume("</")
				p.s.scanUntil(">")
				p.s.consume(">")
				p.errorf(loc, "malformed closing tag")
				continue
			}
			if closeTag != "" && name == closeTag {
				return normalizeText(nodes)
			}
			if p.inOpenStack(name) {
				// Close tag for an ancestor: unwind and let it handle.
				return normalizeText(nodes)
			}
			loc := p.s.loc()
			p.consumeCloseTag()
			if IsVoid(name) {
				p.errorf(loc, "void element <%s> cannot have a closing tag", name)
			} else {
				p.errorf(loc, "unexpected closing tag </%s>; no matching open tag", name)
			}
		case p.s.peek("<!--"):
			if n := p.parseComment(); n != nil {
				nodes = append(nodes, n)
			}
		case p.s.peek("<!"):
			loc := p.s.loc()
			p.s.scanUntil(">")
			p.s.consume(">")
			p.errorf(loc, "unexpected markup declaration")
		case p.s.peek("<"):
			if n := p.parseElement(svg); n != nil {
				nodes = append(nodes, n)
			}
		case p.s.peek("{"):
			if n := p.parseInterpolation(); n != nil {
				nodes = append(nodes, n)
			}
		default:
			if n := p.parseText(); n != nil {
				nodes = append(nodes, n)
			}
		}
	}
	return normalizeText(nodes)
}

// consumeCloseTag consumes a closing tag the scanner is positioned at.
func (p *parser) consumeCloseTag() {
	p.s.consume("</")
	p.s.scanTagName()
	p.s.skipSpace()
	if !p.s.consume(">") {
		p.errorf(p.s.loc(), "malformed closing tag")
		p.s.scanUntil(">", "<")
		p.s.consume(">")
	}
}

func (p *parser) parseText() *ir.Text {
	loc := p.s.loc()
	raw := p.s.scanUntil("<", "{")
	if raw == "" {
		// Nothing scanned; skip one byte so the node loop always advances.
		p.s.advance()
		return nil
	}
	return &ir.Text{Value: decodeEntities(raw), Loc: loc}
}

func (p *parser) parseInterpolation() *ir.Expr {
	loc := p.s.loc()
	p.s.consume("{")
	raw := p.s.scanUntil("}", "<")
	if !p.s.consume("}") {
		p.errorf(loc, "unterminated expression; a literal '{' must be written as &#123;")
		return nil
	}
	expr, diags := parseExpression(raw, loc)
	p.diags = append(p.diags, diags...)
	return &ir.Expr{Value: expr, Loc: loc}
}

func (p *parser) parseComment() *ir.Comment {
	loc := p.s.loc()
	p.s.consume("<!--")
	value := p.s.scanUntil("-->")
	if !p.s.consume("-->") {
		p.errorf(loc, "unterminated comment")
		return nil
	}
	return &ir.Comment{Value: value, Loc: loc}
}

// parseElement parses an element open tag, its children and its close tag,
// classifying the result as Element, Component or Slot and wrapping it in a
// Directive node when for:each / if: attributes are present.
func (p *parser) parseElement(svg bool) ir.Node {
	loc := p.s.loc()
	p.s.consume("<")
	tag := p.s.scanTagName()
	if tag == "" {
		p.errorf(loc, "invalid character in tag name")
		p.s.scanUntil(">", "<")
		p.s.consume(">")
		return nil
	}

	svgCtx := svg || tag == "svg"
	if !svgCtx && tag != strings.ToLower(tag) {
		p.errorf(loc, "tag names must be lowercase: <%s>", tag)
	}
	if reason := ForbiddenReason(strings.ToLower(tag)); reason != "" {
		p.errorf(loc, "%s", reason)
	}
	if svg && !AllowedInSVG(tag) {
		p.errorf(loc, "element <%s> is not allowed inside the svg namespace", tag)
	}

	attrs, key, forEach, ifCond := p.parseAttrs(tag, svgCtx)

	selfClosed := false
	var children []ir.Node
	switch {
	case p.s.consume("/>"):
		selfClosed = true
	case p.s.consume(">"):
		if !IsVoid(tag) {
			childSVG := svgCtx && tag != "foreignObject"
			p.openTags = append(p.openTags, tag)
			children = p.parseNodes(tag, childSVG)
			p.openTags = p.openTags[:len(p.openTags)-1]
			if name, ok := p.s.peekCloseName(); ok && name == tag {
				p.consumeCloseTag()
			} else {
				p.errorf(loc, "unclosed tag <%s>", tag)
			}
		}
	default:
		p.errorf(loc, "unclosed tag <%s>", tag)
	}

	var node ir.Node
	switch {
	case tag == "slot":
		node = &ir.Slot{Name: slotName(attrs), Attrs: attrs, Children: children, Loc: loc}
	case IsCustomElement(tag):
		node = &ir.Component{Tag: tag, Attrs: attrs, Children: children, Key: key, Loc: loc}
	default:
		ns := ""
		if svgCtx {
			ns = "svg"
		}
		node = &ir.Element{
			Tag:        tag,
			Namespace:  ns,
			Attrs:      attrs,
			Children:   children,
			Key:        key,
			SelfClosed: selfClosed,
			Void:       IsVoid(tag),
			Loc:        loc,
		}
	}
	if forEach != nil || ifCond != nil {
		node = &ir.Directive{ForEach: forEach, If: ifCond, Node: node, Loc: loc}
	}
	return node
}

// parseAttrs parses the attribute list of an open tag. Well-formed bound
// directives (for:each, if:true, if:false) and the key binding are lifted out
// of the attribute list; malformed ones are left in place for the validator
// to report. Source order of the remaining attributes is preserved.
func (p *parser) parseAttrs(tag string, svgCtx bool) (attrs []ir.Attr, key *ir.Expression, forEach *ir.ForEach, ifCond *ir.IfCond) {
	seen := map[string]bool{}
	var forEachExpr *ir.Expression
	var forEachLoc, itemLoc, indexLoc diag.Loc
	itemName, indexName := "", ""
	itemSeen, indexSeen := false, false

	for {
		p.s.skipSpace()
		if p.s.eof() || p.s.peek(">") || p.s.peek("/>") {
			break
		}
		aloc := p.s.loc()
		name := p.s.scanAttrName()
		if name == "" {
			p.errorf(aloc, "invalid character %q in attribute name", string(p.s.cur()))
			p.s.advance()
			continue
		}
		if !svgCtx && name != strings.ToLower(name) {
			p.errorf(aloc, "attribute names must be lowercase: %q", name)
		}
		if seen[name] {
			p.errorf(aloc, "duplicate attribute %q", name)
		}
		seen[name] = true

		attr := ir.Attr{Name: name, Loc: aloc}
		p.s.skipSpace()
		if p.s.consume("=") {
			p.s.skipSpace()
			switch {
			case p.s.peek(`"`) || p.s.peek("'"):
				quote := string(p.s.cur())
				p.s.advance()
				raw := p.s.scanUntil(quote)
				if !p.s.consume(quote) {
					p.errorf(aloc, "unterminated value for attribute %q", name)
				}
				attr.Value = decodeEntities(raw)
			case p.s.peek("{"):
				p.s.consume("{")
				raw := p.s.scanUntil("}", ">")
				if !p.s.consume("}") {
					p.errorf(aloc, "unterminated expression binding for attribute %q", name)
					break
				}
				expr, diags := parseExpression(raw, aloc)
				p.diags = append(p.diags, diags...)
				attr.Expr = &expr
			default:
				p.errorf(aloc, "value for attribute %q must be quoted or an expression binding {…}", name)
				p.s.scanUntil(" ", "\t", "\n", ">", "/>")
			}
		} else {
			attr.Bare = true
		}

		// Directive recognition: only well-shaped bindings are lifted here;
		// everything else stays in the attribute list so the validator can
		// report placement and shape problems with full context.
		switch {
		case name == "for:each" && attr.Bound():
			forEachExpr = attr.Expr
			forEachLoc = aloc
			continue
		case name == "for:item" && !attr.Bound() && !attr.Bare:
			itemName = attr.Value
			itemSeen = true
			itemLoc = aloc
			continue
		case name == "for:index" && !attr.Bound() && !attr.Bare:
			indexName = attr.Value
			indexSeen = true
			indexLoc = aloc
			continue
		case name == "if:true" && attr.Bound():
			ifCond = &ir.IfCond{Cond: *attr.Expr, Loc: aloc}
			continue
		case name == "if:false" && attr.Bound():
			ifCond = &ir.IfCond{Cond: *attr.Expr, Negate: true, Loc: aloc}
			continue
		case name == "key" && attr.Bound() && tag != "slot":
			key = attr.Expr
			continue
		}
		attrs = append(attrs, attr)
	}

	if forEachExpr != nil {
		item := itemName
		if item == "" {
			item = "item"
		}
		index := indexName
		if index == "" {
			index = "index"
		}
		forEach = &ir.ForEach{List: *forEachExpr, Item: item, Index: index, Loc: forEachLoc}
	} else if itemSeen || indexSeen {
		// Aliases without an iteration: surface them to the validator.
		if itemSeen {
			attrs = append(attrs, ir.Attr{Name: "for:item", Value: itemName, Loc: itemLoc})
		}
		if indexSeen {
			attrs = append(attrs, ir.Attr{Name: "for:index", Value: indexName, Loc: indexLoc})
		}
	}
	return attrs, key, forEach, ifCond
}

// slotName extracts the literal name attribute of a slot; the default slot's
// name is the empty string.
func slotName(attrs []ir.Attr) string {
	for _, a := range attrs {
		if a.Name == "name" && !a.Bound() && !a.Bare {
			return a.Value
		}
	}
	return ""
}

// normalizeText collapses whitespace runs inside text nodes and drops
// whitespace-only text nodes, except next to an interpolation where the gap
// is rendered output ({a} {b} keeps its separating space).
func normalizeText(nodes []ir.Node) []ir.Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]ir.Node, 0, len(nodes))
	for i, n := range nodes {
		t, ok := n.(*ir.Text)
		if !ok {
			out = append(out, n)
			continue
		}
		collapsed := collapseSpace(t.Value)
		if strings.TrimSpace(collapsed) == "" {
			prevExpr := i > 0 && isExprNode(nodes[i-1])
			nextExpr := i+1 < len(nodes) && isExprNode(nodes[i+1])
			if !prevExpr && !nextExpr {
				continue
			}
		}
		out = append(out, &ir.Text{Value: collapsed, Loc: t.Loc})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isExprNode(n ir.Node) bool {
	_, ok := n.(*ir.Expr)
	return ok
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
		b.WriteByte(c)
	}
	if inSpace {
		b.WriteByte(' ')
	}
	return b.String()
}
