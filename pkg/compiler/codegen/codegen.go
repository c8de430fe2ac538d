// Package codegen emits the render-function program for an analyzed
// template. The output is a JS module calling a small fixed runtime API:
//
//	h  api_element           element creation
//	t  api_text              text node creation
//	d  api_dynamic_text      stringified dynamic text value
//	co api_comment           comment node creation
//	c  api_custom_element    custom element creation
//	s  api_slot              slot projection
//	i  api_iterator          iteration over a collection
//	k  api_key               per-item key derivation
//	f  api_flatten           variable-arity child flattening
//	st api_static_fragment   hoisted static fragment instantiation
//	so api_set_owner         provenance marking for slotted static content
//
// The runtime combines api_key(position, identity) into
// position + ":" + String(identity), so equal author identities at
// different structural positions never collide. parseFragment(html) returns
// a factory the runtime parses once and caches; api_static_fragment
// receives the factory, never a parsed instance. Identical source and
// compiler version always produce byte-identical output.
package codegen

import (
	"strconv"
	"strings"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/analyze"
	"github.com/loomkit/loom/pkg/compiler/ir"
)

// Version stamps generated programs. Golden tests normalize this line, so
// bumping it never invalidates recorded output.
const Version = "0.4.1"

// runtimeModule is the specifier the generated program imports the runtime
// API from.
const runtimeModule = "loom"

// Options configures generation for one template.
type Options struct {
	// Stylesheets lists module specifiers of companion stylesheets to
	// import and attach to the template's stylesheet list.
	Stylesheets []string
}

// Program is one generated render-function module plus the metadata the
// build step records in its manifest.
type Program struct {
	Code       string
	Slots      []string
	Components []string // imported custom-element specifiers, first-use order
	Token      string
}

// apiEntries is the canonical destructure order. The generated program
// destructures only the entries it calls.
var apiEntries = []struct{ short, long string }{
	{"h", "api_element"},
	{"t", "api_text"},
	{"d", "api_dynamic_text"},
	{"co", "api_comment"},
	{"c", "api_custom_element"},
	{"s", "api_slot"},
	{"i", "api_iterator"},
	{"k", "api_key"},
	{"f", "api_flatten"},
	{"st", "api_static_fragment"},
	{"so", "api_set_owner"},
}

// Generate emits the program for an analyzed, validated template. The only
// error it can return is an internal one: user-facing problems were already
// reported by earlier stages.
func Generate(t *analyze.Template, opts Options) (*Program, error) {
	g := &generator{t: t, used: map[string]bool{}}
	if !t.NativeShadow {
		g.token = t.Token
	}
	body, err := g.children(t.Root.Children, scope{}, nil, "tmpl")
	if err != nil {
		return nil, err
	}
	if body == "" {
		body = "[]"
	}

	var b strings.Builder
	for _, tag := range g.componentTags {
		b.WriteString("import ")
		b.WriteString(ctorIdent(tag))
		b.WriteString(" from ")
		b.WriteString(quoteJS(moduleSpecifier(tag)))
		b.WriteString(";\n")
	}
	for i, spec := range opts.Stylesheets {
		b.WriteString("import _stylesheet")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" from ")
		b.WriteString(quoteJS(spec))
		b.WriteString(";\n")
	}
	runtimeNames := "registerTemplate"
	if len(g.fragments) > 0 {
		runtimeNames = "parseFragment, registerTemplate"
	}
	b.WriteString("import { " + runtimeNames + " } from " + quoteJS(runtimeModule) + ";\n\n")

	for i, html := range g.fragments {
		b.WriteString("const $fragment")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" = parseFragment(")
		b.WriteString(quoteJS(html))
		b.WriteString(");\n")
	}
	for i, init := range g.statics {
		b.WriteString("const stc")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" = ")
		b.WriteString(init)
		b.WriteString(";\n")
	}
	if len(g.fragments) > 0 || len(g.statics) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("function tmpl($api, $cmp, $slotset, $ctx) {\n")
	if destructure := g.destructure(); destructure != "" {
		b.WriteString("  " + destructure + "\n")
	}
	b.WriteString("  return " + body + ";\n")
	b.WriteString("}\n")
	b.WriteString("export default registerTemplate(tmpl);\n")

	if len(t.Slots) > 0 {
		names := make([]string, len(t.Slots))
		for i, s := range t.Slots {
			names[i] = quoteJS(s)
		}
		b.WriteString("tmpl.slots = [" + strings.Join(names, ", ") + "];\n")
	}
	sheets := make([]string, len(opts.Stylesheets))
	for i := range opts.Stylesheets {
		sheets[i] = "_stylesheet" + strconv.Itoa(i)
	}
	b.WriteString("tmpl.stylesheets = [" + strings.Join(sheets, ", ") + "];\n")
	b.WriteString("tmpl.stylesheetToken = " + quoteJS(t.Token) + ";\n")
	b.WriteString("tmpl.stylesheetTokenHost = " + quoteJS(t.HostToken) + ";\n")
	mode := "synthetic"
	if t.NativeShadow {
		mode = "native"
	}
	b.WriteString("tmpl.renderMode = " + quoteJS(mode) + ";\n")
	b.WriteString("/* loomc v" + Version + " */\n")

	specs := make([]string, len(g.componentTags))
	for i, tag := range g.componentTags {
		specs[i] = moduleSpecifier(tag)
	}
	return &Program{
		Code:       b.String(),
		Slots:      append([]string(nil), t.Slots...),
		Components: specs,
		Token:      t.Token,
	}, nil
}

type generator struct {
	t             *analyze.Template
	token         string // woven scoping token, empty under native shadow
	fragments     []string
	statics       []string
	componentTags []string
	used          map[string]bool
}

// scope tracks generation context: iteration aliases in force and the
// for:each whose per-item key the current creation site must carry.
type scope struct {
	aliases  map[string]bool
	keyOwner *ir.ForEach
}

func (s scope) withAliases(names ...string) scope {
	next := scope{aliases: map[string]bool{}}
	for a := range s.aliases {
		next.aliases[a] = true
	}
	for _, n := range names {
		next.aliases[n] = true
	}
	return next
}

func (g *generator) use(short string) string {
	g.used[short] = true
	for _, e := range apiEntries {
		if e.short == short {
			return e.long
		}
	}
	return "api_" + short
}

func (g *generator) destructure() string {
	var parts []string
	for _, e := range apiEntries {
		if g.used[e.short] {
			parts = append(parts, e.short+": "+e.long)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "const {" + strings.Join(parts, ", ") + "} = $api;"
}

// stc interns one static initializer into the hoisted constant pool. Every
// site gets its own constant: sharing structure across unrelated positions
// would let one render site observe another's identity.
func (g *generator) stc(init string) string {
	g.statics = append(g.statics, init)
	return "stc" + strconv.Itoa(len(g.statics)-1)
}

// node emits the expression for one tree node. isArray reports that the
// expression evaluates to an array of nodes rather than a single one, which
// forces flattening of the surrounding child list.
func (g *generator) node(n ir.Node, sc scope, path string) (expr string, isArray bool, err error) {
	switch node := n.(type) {
	case *ir.Directive:
		return g.directive(node, sc, path)
	case *ir.Element:
		s, err := g.element(node, sc, path)
		return s, false, err
	case *ir.Component:
		s, err := g.component(node, sc, path)
		return s, false, err
	case *ir.Slot:
		s, err := g.slot(node, sc, path)
		return s, false, err
	case *ir.Text:
		return g.use("t") + "(" + quoteJS(node.Value) + ")", false, nil
	case *ir.Expr:
		d := g.use("d") + "(" + memberExpr(node.Value, sc.aliases) + ")"
		return g.use("t") + "(" + d + ")", false, nil
	case *ir.Comment:
		return g.use("co") + "(" + quoteJS(node.Value) + ")", false, nil
	}
	return "", false, internal(path, "unknown node kind")
}

func (g *generator) directive(d *ir.Directive, sc scope, path string) (string, bool, error) {
	inner := sc
	if fe := d.ForEach; fe != nil {
		inner = sc.withAliases(fe.Item, fe.Index)
		inner.keyOwner = fe
	}
	body, _, err := g.node(d.Node, inner, path)
	if err != nil {
		return "", false, err
	}
	if ic := d.If; ic != nil {
		cond := memberExpr(ic.Cond, inner.aliases)
		if ic.Negate {
			cond = "!" + cond
		}
		body = cond + " ? " + body + " : null"
	}
	if fe := d.ForEach; fe != nil {
		list := memberExpr(fe.List, sc.aliases)
		callback := "function (" + fe.Item + ", " + fe.Index + ") { return " + body + "; }"
		return g.use("i") + "(" + list + ", " + callback + ")", true, nil
	}
	return body, false, nil
}

func (g *generator) element(el *ir.Element, sc scope, path string) (string, error) {
	path += "/" + el.Tag
	key, ok := g.t.Key(el)
	if !ok {
		return "", internal(path, "creation site without a key")
	}
	keyExpr, keyStatic := g.keyExpr(key, el.Key, sc)

	if g.t.FragmentRoot(el) {
		html, err := serializeFragment(el, g.token, path)
		if err != nil {
			return "", err
		}
		g.fragments = append(g.fragments, html)
		ref := "$fragment" + strconv.Itoa(len(g.fragments))
		return g.use("st") + "(" + ref + ", " + keyExpr + ")", nil
	}

	data, dataStatic := g.elementData(el, sc, keyExpr)
	if dataStatic && keyStatic {
		data = g.stc(data)
	}
	children, err := g.children(el.Children, scope{aliases: sc.aliases}, nil, path)
	if err != nil {
		return "", err
	}
	call := g.use("h") + "(" + quoteJS(el.Tag) + ", " + data
	if children != "" {
		call += ", " + children
	}
	return call + ")", nil
}

func (g *generator) component(c *ir.Component, sc scope, path string) (string, error) {
	path += "/" + c.Tag
	key, ok := g.t.Key(c)
	if !ok {
		return "", internal(path, "creation site without a key")
	}
	keyExpr, keyStatic := g.keyExpr(key, c.Key, sc)

	if !g.imported(c.Tag) {
		g.componentTags = append(g.componentTags, c.Tag)
	}
	data, dataStatic := g.componentData(c, sc, keyExpr)
	if dataStatic && keyStatic {
		data = g.stc(data)
	}
	children, err := g.children(c.Children, scope{aliases: sc.aliases}, c, path)
	if err != nil {
		return "", err
	}
	call := g.use("c") + "(" + quoteJS(c.Tag) + ", " + ctorIdent(c.Tag) + ", " + data
	if children != "" {
		call += ", " + children
	}
	return call + ")", nil
}

func (g *generator) slot(s *ir.Slot, sc scope, path string) (string, error) {
	path += "/slot"
	key, ok := g.t.Key(s)
	if !ok {
		return "", internal(path, "creation site without a key")
	}
	keyExpr, keyStatic := g.keyExpr(key, nil, sc)

	data, dataStatic := g.buildData(s.Attrs, sc, keyExpr, false, false)
	if dataStatic && keyStatic {
		data = g.stc(data)
	}
	defaults, err := g.children(s.Children, scope{aliases: sc.aliases}, nil, path)
	if err != nil {
		return "", err
	}
	if defaults == "" {
		defaults = g.stc("[]")
	}
	return g.use("s") + "(" + quoteJS(s.Name) + ", " + data + ", " + defaults + ", $slotset)", nil
}

// children emits a child list expression. Adjacent text and interpolation
// nodes merge into one text call; iterators force flattening of the whole
// list unless the iterator is the only entry. owner is set when the list
// belongs to a custom element, which wraps slotted comments and hoisted
// fragments so the runtime can attribute them to this template.
func (g *generator) children(nodes []ir.Node, sc scope, owner *ir.Component, path string) (string, error) {
	var (
		items   []string
		flatten bool
	)
	for i := 0; i < len(nodes); i++ {
		if isTextual(nodes[i]) {
			j := i
			for j < len(nodes) && isTextual(nodes[j]) {
				j++
			}
			items = append(items, g.textRun(nodes[i:j], sc))
			i = j - 1
			continue
		}
		expr, isArray, err := g.node(nodes[i], sc, path)
		if err != nil {
			return "", err
		}
		if isArray {
			flatten = true
		}
		if owner != nil && wantsOwner(g.t, nodes[i]) {
			expr = g.use("so") + "(" + expr + ")"
		}
		items = append(items, expr)
	}
	switch {
	case len(items) == 0:
		return "", nil
	case flatten && len(items) == 1:
		return items[0], nil
	case flatten:
		return g.use("f") + "([" + strings.Join(items, ", ") + "])", nil
	default:
		return "[" + strings.Join(items, ", ") + "]", nil
	}
}

// textRun merges a run of adjacent text and interpolation nodes into one
// text creation call.
func (g *generator) textRun(nodes []ir.Node, sc scope) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		switch node := n.(type) {
		case *ir.Text:
			parts[i] = quoteJS(node.Value)
		case *ir.Expr:
			parts[i] = g.use("d") + "(" + memberExpr(node.Value, sc.aliases) + ")"
		}
	}
	return g.use("t") + "(" + strings.Join(parts, " + ") + ")"
}

func isTextual(n ir.Node) bool {
	switch n.(type) {
	case *ir.Text, *ir.Expr:
		return true
	}
	return false
}

// wantsOwner reports whether a slotted child is static shared content:
// comments and hoisted fragments are created outside the render cycle, so
// their owning template must be recorded explicitly.
func wantsOwner(t *analyze.Template, n ir.Node) bool {
	switch inner := ir.Unwrap(n).(type) {
	case *ir.Comment:
		return true
	case *ir.Element:
		return t.FragmentRoot(inner)
	}
	return false
}

// keyExpr renders the key for a creation site. Outside iteration it is the
// structural position; inside, the position combines with the author key
// or the iteration index so sibling instances stay distinct.
func (g *generator) keyExpr(pos int, authorKey *ir.Expression, sc scope) (string, bool) {
	if sc.keyOwner == nil {
		return strconv.Itoa(pos), true
	}
	identity := sc.keyOwner.Index
	if authorKey != nil {
		identity = memberExpr(*authorKey, sc.aliases)
	}
	return g.use("k") + "(" + strconv.Itoa(pos) + ", " + identity + ")", false
}

func internal(path, msg string) error {
	return diag.Internalf("codegen", path, "%s", msg)
}
