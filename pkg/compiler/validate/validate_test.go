package validate

import (
	"strings"
	"testing"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

func mustParse(t *testing.T, markup string) *ir.Root {
	t.Helper()
	root, diags := parse.Parse(parse.Source{Name: "test.html", Content: markup})
	if len(diags) > 0 {
		t.Fatalf("parse diagnostics = %v, want none", diags)
	}
	return root
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		props  []string
		want   string
	}{
		{
			name:   "for:each and if on one element",
			source: `<p for:each={items} if:true={show}></p>`,
			want:   "cannot both target the same element",
		},
		{
			name:   "directive on slot",
			source: `<slot for:each={items}></slot>`,
			want:   "not allowed on <slot>",
		},
		{
			name:   "item and index collide",
			source: `<li for:each={items} for:item="x" for:index="x"></li>`,
			want:   "must use different names",
		},
		{
			name:   "item collides with implicit index",
			source: `<li for:each={items} for:item="index"></li>`,
			want:   "must use different names",
		},
		{
			name:   "reserved word alias",
			source: `<li for:each={items} for:item="class"></li>`,
			want:   "must not be a reserved word",
		},
		{
			name:   "dollar-prefixed alias",
			source: `<li for:each={items} for:item="$row"></li>`,
			want:   "must not start with $",
		},
		{
			name:   "alias is not an identifier",
			source: `<li for:each={items} for:item="a b"></li>`,
			want:   "must be a plain identifier",
		},
		{
			name:   "key outside iteration",
			source: `<div key={item.id}></div>`,
			want:   "only allowed on an element with for:each",
		},
		{
			name:   "key below the iterated element",
			source: `<ul for:each={items}><li key={item.id}></li></ul>`,
			want:   "only allowed on an element with for:each",
		},
		{
			name:   "key not derived from the iteration",
			source: `<li for:each={items} key={other.id}></li>`,
			want:   "key must derive from the iteration variable",
		},
		{
			name:   "slot inside iteration",
			source: `<ul for:each={items}><slot></slot></ul>`,
			want:   "cannot appear inside for:each",
		},
		{
			name:   "duplicate named slot",
			source: `<slot name="a"></slot><slot name="a"></slot>`,
			want:   `duplicate slot name "a"`,
		},
		{
			name:   "duplicate default slot",
			source: `<slot></slot><div><slot></slot></div>`,
			want:   `duplicate slot name ""`,
		},
		{
			name:   "bound slot name",
			source: `<slot name={dynamic}></slot>`,
			want:   "slot name must be a literal string",
		},
		{
			name:   "double hyphen component tag",
			source: `<x--card></x--card>`,
			want:   "invalid custom element tag",
		},
		{
			name:   "trailing hyphen component tag",
			source: `<x-card-></x-card->`,
			want:   "invalid custom element tag",
		},
		{
			name:   "literal for:each",
			source: `<div for:each="items"></div>`,
			want:   "must be an expression binding",
		},
		{
			name:   "orphan for:item",
			source: `<li for:item="row"></li>`,
			want:   "requires for:each on the same element",
		},
		{
			name:   "bound for:item",
			source: `<li for:each={items} for:item={x}></li>`,
			want:   "must be a literal identifier",
		},
		{
			name:   "unknown directive",
			source: `<div for:sort={x}></div>`,
			want:   `unknown directive "for:sort"`,
		},
		{
			name:   "literal key",
			source: `<div key="1"></div>`,
			want:   "key is a reserved attribute",
		},
		{
			name:   "key binding on slot",
			source: `<slot key={x}></slot>`,
			want:   "key is a reserved attribute",
		},
		{
			name:   "is attribute",
			source: `<div is="x-card"></div>`,
			want:   "the is attribute is not supported",
		},
		{
			name:   "bound slot attribute",
			source: `<x-card><p slot={name}></p></x-card>`,
			want:   "slot attribute must be a literal string",
		},
		{
			name:   "slot attribute outside a component",
			source: `<div><p slot="a"></p></div>`,
			want:   "only allowed on direct children of a custom element",
		},
		{
			name:   "slot attribute on an indirect child",
			source: `<x-card><div><p slot="a"></p></div></x-card>`,
			want:   "only allowed on direct children of a custom element",
		},
		{
			name:   "unknown public property",
			source: `<p>{missing.label}</p>`,
			props:  []string{"title"},
			want:   `unknown public property "missing"`,
		},
		{
			name:   "unknown property in attribute binding",
			source: `<div class={missing}></div>`,
			props:  []string{"title"},
			want:   `unknown public property "missing"`,
		},
		{
			name:   "unknown property in for:each list",
			source: `<li for:each={missing}></li>`,
			props:  []string{"title"},
			want:   `unknown public property "missing"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.source)
			diags := Validate(root, Options{PublicProperties: tt.props})
			if len(diags) == 0 {
				t.Fatalf("Validate(%q) produced no diagnostics, want %q", tt.source, tt.want)
			}
			found := false
			for _, d := range diags {
				if strings.Contains(d.Message, tt.want) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("diagnostics = %v, want one containing %q", diags, tt.want)
			}
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name   string
		source string
		props  []string
	}{
		{
			name:   "plain markup",
			source: `<div class="a"><p>text</p></div>`,
		},
		{
			name:   "iteration with key from item",
			source: `<li for:each={items} key={item.id}>{item.label}</li>`,
		},
		{
			name:   "iteration with key from index",
			source: `<li for:each={items} key={index}></li>`,
		},
		{
			name:   "nested iterations with distinct aliases",
			source: `<ul for:each={rows} for:item="row"><li for:each={row.cells} for:item="cell">{cell.value}</li></ul>`,
		},
		{
			name:   "alias shadowing is lexical",
			source: `<div for:each={groups} for:item="g"><p>{g.name}</p></div><p if:true={visible}></p>`,
			props:  []string{"groups", "visible"},
		},
		{
			name:   "slotted children of a component",
			source: `<x-card><h1 slot="header">t</h1><p>body</p></x-card>`,
		},
		{
			name:   "named and default slots",
			source: `<slot name="header"></slot><slot><p>fallback</p></slot>`,
		},
		{
			name:   "contract covers all roots",
			source: `<p class={tone}>{greeting.text}</p>`,
			props:  []string{"tone", "greeting"},
		},
		{
			name:   "no contract defers resolution",
			source: `<p>{anything.goes}</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.source)
			if diags := Validate(root, Options{PublicProperties: tt.props}); len(diags) > 0 {
				t.Errorf("Validate(%q) = %v, want no diagnostics", tt.source, diags)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	// One pass collects independent problems instead of stopping at the first.
	root := mustParse(t, `<div key="1" is="x"></div><slot name="a"></slot><slot name="a"></slot>`)
	diags := Validate(root, Options{})
	if len(diags) != 3 {
		t.Fatalf("diagnostics = %d (%v), want 3", len(diags), diags)
	}
}

func TestValidate_DiagnosticKind(t *testing.T) {
	root := mustParse(t, `<div key="1"></div>`)
	diags := Validate(root, Options{})
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one", diags)
	}
	if got := diags[0].Kind.String(); got != "semantic error" {
		t.Errorf("kind = %q, want %q", got, "semantic error")
	}
	if diags[0].Loc.Line != 1 || diags[0].Loc.File != "test.html" {
		t.Errorf("loc = %+v, want test.html line 1", diags[0].Loc)
	}
}
