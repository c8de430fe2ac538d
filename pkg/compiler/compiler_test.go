package compiler

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/parse"
	"github.com/loomkit/loom/pkg/style"
)

var update = flag.Bool("update", false, "rewrite golden outputs under testdata")

// stampLine matches the trailing version stamp so recorded outputs survive
// compiler version bumps.
var stampLine = regexp.MustCompile(`(?m)^/\* loomc v[0-9]+\.[0-9]+\.[0-9]+ \*/$`)

func normalizeStamp(code string) string {
	return stampLine.ReplaceAllString(code, "/* loomc vX.X.X */")
}

// TestCompile_Golden compiles every fixture under testdata and compares the
// result against the recorded output. Fixtures are txtar archives holding
// input.html, an optional options file, and either expected.js or
// expected.diagnostics. Run with -update to re-record.
func TestCompile_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txt"))
	if err != nil {
		t.Fatalf("glob testdata: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no golden fixtures under testdata")
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".txt")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatalf("parse fixture: %v", err)
			}
			fx := parseFixture(t, ar)

			res := Compile(parse.Source{Name: "input.html", Content: fx.input}, fx.opts)
			var got string
			if fx.wantDiags {
				if len(res.Diagnostics) == 0 {
					t.Fatal("expected diagnostics, compilation succeeded")
				}
				var b strings.Builder
				for _, d := range res.Diagnostics {
					b.WriteString(d.String())
					b.WriteByte('\n')
				}
				got = b.String()
			} else {
				if res.Err != nil {
					t.Fatalf("Compile() error = %v", res.Err)
				}
				if len(res.Diagnostics) > 0 {
					t.Fatalf("Compile() diagnostics = %v, want none", res.Diagnostics)
				}
				got = normalizeStamp(res.Program.Code)
			}

			if *update {
				updateFixture(t, file, ar, got)
				return
			}
			if diff := cmp.Diff(fx.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type fixture struct {
	input     string
	opts      Options
	want      string
	wantDiags bool
}

func parseFixture(t *testing.T, ar *txtar.Archive) fixture {
	t.Helper()
	var fx fixture
	hasInput, hasWant := false, false
	for _, f := range ar.Files {
		switch f.Name {
		case "input.html":
			fx.input = string(f.Data)
			hasInput = true
		case "options":
			fx.opts = parseFixtureOptions(t, string(f.Data))
		case "expected.js":
			fx.want = string(f.Data)
			hasWant = true
		case "expected.diagnostics":
			fx.want = string(f.Data)
			fx.wantDiags = true
			hasWant = true
		default:
			t.Fatalf("unexpected fixture file %q", f.Name)
		}
	}
	if !hasInput || !hasWant {
		t.Fatal("fixture needs input.html and expected.js or expected.diagnostics")
	}
	return fx
}

func parseFixtureOptions(t *testing.T, text string) Options {
	t.Helper()
	var opts Options
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			t.Fatalf("malformed options line %q", line)
		}
		value = strings.TrimSpace(value)
		switch key {
		case "identity":
			opts.Identity = value
		case "props":
			opts.PublicProperties = append([]string{}, strings.Fields(value)...)
		case "shadow":
			opts.NativeShadow = value == "native"
		case "stylesheets":
			opts.Stylesheets = strings.Fields(value)
		default:
			t.Fatalf("unknown option %q", key)
		}
	}
	return opts
}

func updateFixture(t *testing.T, file string, ar *txtar.Archive, got string) {
	t.Helper()
	for i := range ar.Files {
		switch ar.Files[i].Name {
		case "expected.js", "expected.diagnostics":
			ar.Files[i].Data = []byte(got)
		}
	}
	if err := os.WriteFile(file, txtar.Format(ar), 0644); err != nil {
		t.Fatalf("update fixture: %v", err)
	}
}

func TestCompile_DefaultIdentity(t *testing.T) {
	res := Compile(parse.Source{Name: "src/x/card/card.html", Content: "<p>hi</p>"}, Options{})
	if !res.OK() {
		t.Fatalf("Compile() = %+v, want ok", res)
	}
	if want := style.Token("card"); res.Program.Token != want {
		t.Errorf("Token = %q, want %q (derived from the file name)", res.Program.Token, want)
	}
}

func TestTemplateIdentity(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"card.html", "card"},
		{"src/x/card/card.html", "card"},
		{"nav.bar.html", "nav.bar"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := TemplateIdentity(tt.name); got != tt.want {
			t.Errorf("TemplateIdentity(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCompile_DiagnosticKinds(t *testing.T) {
	syntax := Compile(parse.Source{Name: "bad.html", Content: "<div>"}, Options{})
	if syntax.OK() || len(syntax.Diagnostics) == 0 {
		t.Fatalf("Compile(unclosed div) = %+v, want syntax diagnostics", syntax)
	}
	if syntax.Diagnostics[0].Kind != diag.Syntax {
		t.Errorf("Kind = %v, want %v", syntax.Diagnostics[0].Kind, diag.Syntax)
	}
	if syntax.Program != nil {
		t.Error("Program must be nil when diagnostics are present")
	}

	semantic := Compile(parse.Source{Name: "bad.html", Content: "<div key={x}>y</div>"}, Options{})
	if semantic.OK() || len(semantic.Diagnostics) == 0 {
		t.Fatalf("Compile(stray key) = %+v, want semantic diagnostics", semantic)
	}
	if semantic.Diagnostics[0].Kind != diag.Semantic {
		t.Errorf("Kind = %v, want %v", semantic.Diagnostics[0].Kind, diag.Semantic)
	}
}

func TestCompileAll_InputOrder(t *testing.T) {
	var batch []Job
	for i := 0; i < 12; i++ {
		batch = append(batch, Job{
			Source:  parse.Source{Name: fmt.Sprintf("t%d.html", i), Content: fmt.Sprintf("<p>%d</p>", i)},
			Options: Options{Identity: fmt.Sprintf("x/t%d", i)},
		})
	}

	results := CompileAll(context.Background(), batch, 3)
	if len(results) != len(batch) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(batch))
	}
	for i, res := range results {
		if res.Source.Name != batch[i].Source.Name {
			t.Errorf("results[%d] is for %q, want %q", i, res.Source.Name, batch[i].Source.Name)
		}
		if !res.OK() {
			t.Errorf("results[%d] not ok: %+v", i, res)
			continue
		}
		if want := style.Token(batch[i].Options.Identity); res.Program.Token != want {
			t.Errorf("results[%d].Token = %q, want %q", i, res.Program.Token, want)
		}
	}

	// Worker count never changes results, only scheduling.
	for _, workers := range []int{0, 1, 64} {
		again := CompileAll(context.Background(), batch, workers)
		for i := range again {
			if !again[i].OK() || again[i].Program.Code != results[i].Program.Code {
				t.Fatalf("workers=%d: results[%d] diverged", workers, i)
			}
		}
	}
}

func TestCompileAll_PerJobOptions(t *testing.T) {
	src := parse.Source{Name: "card.html", Content: `<div id="a">{x}</div>`}
	batch := []Job{
		{Source: src, Options: Options{Identity: "x/a"}},
		{Source: src, Options: Options{Identity: "x/b", NativeShadow: true}},
	}

	results := CompileAll(context.Background(), batch, 2)
	a, b := results[0], results[1]
	if !a.OK() || !b.OK() {
		t.Fatalf("CompileAll() = %+v, %+v, want both ok", a, b)
	}
	if a.Program.Token == b.Program.Token {
		t.Error("per-job identities must derive distinct tokens")
	}
	if !strings.Contains(a.Program.Code, `tmpl.renderMode = "synthetic";`) {
		t.Error("first job lost its synthetic render mode")
	}
	if !strings.Contains(b.Program.Code, `tmpl.renderMode = "native";`) {
		t.Error("second job lost its native render mode")
	}
}

func TestCompileAll_Empty(t *testing.T) {
	if results := CompileAll(context.Background(), nil, 4); len(results) != 0 {
		t.Errorf("CompileAll(nil) returned %d results", len(results))
	}
}

func TestCompileAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := make([]Job, 32)
	for i := range batch {
		batch[i] = Job{Source: parse.Source{Name: "t.html", Content: "<p>x</p>"}}
	}

	results := CompileAll(ctx, batch, 2)
	var canceled int
	for i, res := range results {
		switch {
		case res.Err != nil:
			if res.Err != context.Canceled {
				t.Errorf("results[%d].Err = %v, want context.Canceled", i, res.Err)
			}
			if res.Program != nil {
				t.Errorf("results[%d] carries both a program and an error", i)
			}
			canceled++
		case !res.OK():
			t.Errorf("results[%d] = %+v, want ok or canceled", i, res)
		}
	}
	if canceled == 0 {
		t.Error("canceled context dispatched the whole batch")
	}
}

// benchSource exercises every creation path: static hoisting, iteration,
// component construction, and slots.
const benchSource = `<article class="card">
  <header class={headerClass}>
    <h1>{title}</h1>
  </header>
  <ul>
    <li for:each={items} key={item.id} class="row">
      <span>{item.label}</span>
      <x-badge count={item.count}></x-badge>
    </li>
  </ul>
  <slot name="footer"></slot>
</article>
`

func BenchmarkCompile(b *testing.B) {
	src := parse.Source{Name: "bench.html", Content: benchSource}
	opts := Options{Identity: "x/bench"}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if res := Compile(src, opts); !res.OK() {
			b.Fatalf("compile failed: %v", res.Diagnostics)
		}
	}
}

func BenchmarkCompileAll(b *testing.B) {
	jobs := make([]Job, 64)
	for i := range jobs {
		jobs[i] = Job{
			Source:  parse.Source{Name: "bench.html", Content: benchSource},
			Options: Options{Identity: fmt.Sprintf("x/bench%d", i)},
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, res := range CompileAll(context.Background(), jobs, 0) {
			if !res.OK() {
				b.Fatalf("compile failed: %v", res.Diagnostics)
			}
		}
	}
}
