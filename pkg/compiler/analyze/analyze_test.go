package analyze

import (
	"reflect"
	"strings"
	"testing"

	"github.com/loomkit/loom/pkg/compiler/ir"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

func analyzeMarkup(t *testing.T, markup string) *Template {
	t.Helper()
	root, diags := parse.Parse(parse.Source{Name: "test.html", Content: markup})
	if len(diags) > 0 {
		t.Fatalf("parse diagnostics = %v, want none", diags)
	}
	return Analyze(root, Options{Identity: "x/test"})
}

func TestAnalyze_Tokens(t *testing.T) {
	a := analyzeMarkup(t, `<div></div>`)
	b := Analyze(a.Root, Options{Identity: "x/test"})
	c := Analyze(a.Root, Options{Identity: "x/other"})

	if a.Token == "" || !strings.HasPrefix(a.Token, "loom-") {
		t.Errorf("token = %q, want loom- prefixed", a.Token)
	}
	if a.Token != b.Token {
		t.Errorf("same identity produced different tokens: %q != %q", a.Token, b.Token)
	}
	if a.Token == c.Token {
		t.Errorf("different identities share token %q", a.Token)
	}
	if a.HostToken != a.Token+"-host" {
		t.Errorf("host token = %q, want %q", a.HostToken, a.Token+"-host")
	}
}

func TestAnalyze_StaticClassification(t *testing.T) {
	tests := []struct {
		name   string
		source string
		static bool
		reason StaticReason
	}{
		{
			name:   "literal subtree",
			source: `<div class="a"><p>text</p><!-- note --></div>`,
			static: true,
			reason: StaticOK,
		},
		{
			name:   "bound attribute",
			source: `<div class={tone}></div>`,
			static: false,
			reason: DynAttr,
		},
		{
			name:   "expression child",
			source: `<div><p>{msg}</p></div>`,
			static: false,
			reason: DynChild,
		},
		{
			name:   "directive wrapper",
			source: `<div if:true={show}></div>`,
			static: false,
			reason: DynDirective,
		},
		{
			name:   "slot",
			source: `<slot></slot>`,
			static: false,
			reason: DynSlot,
		},
		{
			name:   "custom element",
			source: `<x-card></x-card>`,
			static: false,
			reason: DynComponent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := analyzeMarkup(t, tt.source)
			n := tmpl.Root.Children[0]
			if got := tmpl.Static(n); got != tt.static {
				t.Errorf("Static() = %v, want %v", got, tt.static)
			}
			if got := tmpl.Reason(n); got != tt.reason {
				t.Errorf("Reason() = %v, want %v", got, tt.reason)
			}
		})
	}
}

func TestAnalyze_AuthorKeyDoesNotPoisonStatic(t *testing.T) {
	// The key binding drives instance identity, not content; fully literal
	// content under a keyed element still hoists.
	tmpl := analyzeMarkup(t, `<li for:each={items} key={item.id}><b>fixed</b></li>`)
	d := tmpl.Root.Children[0].(*ir.Directive)
	li := d.Node.(*ir.Element)
	if !tmpl.Static(li) {
		t.Fatalf("keyed literal element classified dynamic: %v", tmpl.Reason(li))
	}
	if !tmpl.FragmentRoot(li) {
		t.Error("keyed static element is not a fragment root")
	}
}

func TestAnalyze_FragmentRoots(t *testing.T) {
	// header is fully static; main is dynamic but contains a static aside.
	tmpl := analyzeMarkup(t, `<header><h1>Title</h1></header><main><p>{msg}</p><aside><em>tip</em></aside></main>`)

	header := tmpl.Root.Children[0].(*ir.Element)
	if !tmpl.FragmentRoot(header) {
		t.Error("header should be a fragment root")
	}
	h1 := header.Children[0].(*ir.Element)
	if tmpl.FragmentRoot(h1) {
		t.Error("h1 is inside a hoisted fragment, not a root itself")
	}
	if _, ok := tmpl.Key(h1); ok {
		t.Error("nodes inside a fragment consume no creation keys")
	}

	main := tmpl.Root.Children[1].(*ir.Element)
	if tmpl.FragmentRoot(main) {
		t.Error("main contains dynamic text and cannot hoist")
	}
	aside := main.Children[1].(*ir.Element)
	if !tmpl.FragmentRoot(aside) {
		t.Error("static aside under a dynamic parent should hoist")
	}
}

func TestAnalyze_KeysNumberCreationCalls(t *testing.T) {
	// header hoists (one key for the fragment instantiation), p and x-card
	// and the slot each create one node. h1 inside the fragment gets none.
	tmpl := analyzeMarkup(t, `<header><h1>t</h1></header><p>{msg}</p><x-card></x-card><slot></slot>`)

	wantKeys := []int{0, 1, 2, 3}
	var got []int
	for _, n := range tmpl.Root.Children {
		k, ok := tmpl.Key(n)
		if !ok {
			t.Fatalf("top-level node %T has no key", n)
		}
		got = append(got, k)
	}
	if !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("keys = %v, want %v", got, wantKeys)
	}
}

func TestAnalyze_KeysSkipFragmentInternals(t *testing.T) {
	tmpl := analyzeMarkup(t, `<div><span>a</span><span>b</span></div><p>{x}</p>`)

	div := tmpl.Root.Children[0].(*ir.Element)
	if k, ok := tmpl.Key(div); !ok || k != 0 {
		t.Errorf("div key = %d/%v, want 0", k, ok)
	}
	p := tmpl.Root.Children[1].(*ir.Element)
	if k, ok := tmpl.Key(p); !ok || k != 1 {
		t.Errorf("p key = %d/%v, want 1 (fragment internals consume none)", k, ok)
	}
}

func TestAnalyze_DirectiveChildrenKeyed(t *testing.T) {
	tmpl := analyzeMarkup(t, `<ul><li for:each={items}>{item.label}</li></ul>`)

	ul := tmpl.Root.Children[0].(*ir.Element)
	d := ul.Children[0].(*ir.Directive)
	li := d.Node.(*ir.Element)

	if k, ok := tmpl.Key(ul); !ok || k != 0 {
		t.Errorf("ul key = %d/%v, want 0", k, ok)
	}
	if k, ok := tmpl.Key(li); !ok || k != 1 {
		t.Errorf("li key = %d/%v, want 1", k, ok)
	}
	if _, ok := tmpl.Key(d); ok {
		t.Error("the directive wrapper itself is not a creation site")
	}
}

func TestAnalyze_SlotsAndComponents(t *testing.T) {
	tmpl := analyzeMarkup(t, `<slot name="header"></slot><x-card></x-card><slot></slot><x-card></x-card><y-list></y-list>`)

	if want := []string{"header", ""}; !reflect.DeepEqual(tmpl.Slots, want) {
		t.Errorf("Slots = %v, want %v (source order)", tmpl.Slots, want)
	}
	if want := []string{"x-card", "y-list"}; !reflect.DeepEqual(tmpl.Components, want) {
		t.Errorf("Components = %v, want %v (first-use order)", tmpl.Components, want)
	}
}

func TestAnalyze_SlotTargets(t *testing.T) {
	tmpl := analyzeMarkup(t, `<x-card><h1 slot="header">t</h1><p>body</p><!-- note --></x-card><div></div>`)

	card := tmpl.Root.Children[0].(*ir.Component)
	h1, p, comment := card.Children[0], card.Children[1], card.Children[2]

	if name, ok := tmpl.SlotTarget(h1); !ok || name != "header" {
		t.Errorf("h1 slot = %q/%v, want header", name, ok)
	}
	if name, ok := tmpl.SlotTarget(p); !ok || name != "" {
		t.Errorf("p slot = %q/%v, want default", name, ok)
	}
	if name, ok := tmpl.SlotTarget(comment); !ok || name != "" {
		t.Errorf("comment slot = %q/%v, want default", name, ok)
	}

	if _, ok := tmpl.SlotTarget(tmpl.Root.Children[1]); ok {
		t.Error("non-slotted top-level node reports a slot target")
	}

	if want := []string{"header", ""}; !reflect.DeepEqual(tmpl.CallerSlots(card), want) {
		t.Errorf("CallerSlots = %v, want %v", tmpl.CallerSlots(card), want)
	}
}

func TestAnalyze_NativeShadowCarried(t *testing.T) {
	root, _ := parse.Parse(parse.Source{Name: "t.html", Content: `<div></div>`})
	tmpl := Analyze(root, Options{Identity: "x/t", NativeShadow: true})
	if !tmpl.NativeShadow {
		t.Error("NativeShadow not carried through analysis")
	}
	if tmpl.Token == "" {
		t.Error("tokens must derive even in native shadow mode")
	}
}
