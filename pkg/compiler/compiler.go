// Package compiler drives the template pipeline: parse, validate, analyze,
// generate. Each compilation is pure and independent, so batches fan out
// across workers and join back in input order.
package compiler

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/loomkit/loom/pkg/diag"

	"github.com/loomkit/loom/pkg/compiler/analyze"
	"github.com/loomkit/loom/pkg/compiler/codegen"
	"github.com/loomkit/loom/pkg/compiler/parse"
	"github.com/loomkit/loom/pkg/compiler/validate"
)

// Version identifies the compiler in generated output and cache keys.
const Version = codegen.Version

// Options configures one compilation. The zero value compiles a standalone
// template with synthetic style scoping and no property contract.
type Options struct {
	// Identity names the template for scope-token derivation. When empty it
	// derives from the source filename.
	Identity string

	// PublicProperties, when non-nil, is the closed set of component
	// properties templates may reference.
	PublicProperties []string

	// NativeShadow disables synthetic scope-token weaving.
	NativeShadow bool

	// Stylesheets lists companion stylesheet module specifiers to attach to
	// the generated template.
	Stylesheets []string
}

// Result is the outcome of compiling one template. Program is nil whenever
// Diagnostics is non-empty or Err is set. Err reports internal compiler
// errors only; user-level problems always arrive as Diagnostics.
type Result struct {
	Source      parse.Source
	Program     *codegen.Program
	Diagnostics []diag.Diagnostic
	Err         error
}

// OK reports whether the compilation produced a usable program.
func (r Result) OK() bool {
	return r.Err == nil && len(r.Diagnostics) == 0 && r.Program != nil
}

// Compile runs the full pipeline on one template source.
func Compile(src parse.Source, opts Options) Result {
	res := Result{Source: src}

	root, diags := parse.Parse(src)
	if len(diags) > 0 {
		res.Diagnostics = diags
		return res
	}

	if diags := validate.Validate(root, validate.Options{PublicProperties: opts.PublicProperties}); len(diags) > 0 {
		res.Diagnostics = diags
		return res
	}

	identity := opts.Identity
	if identity == "" {
		identity = TemplateIdentity(src.Name)
	}
	tmpl := analyze.Analyze(root, analyze.Options{
		Identity:     identity,
		NativeShadow: opts.NativeShadow,
	})

	prog, err := codegen.Generate(tmpl, codegen.Options{Stylesheets: opts.Stylesheets})
	if err != nil {
		res.Err = err
		return res
	}
	res.Program = prog
	return res
}

// Job pairs one template source with its compile options. Batch entries
// carry their own options because identity, property contracts and companion
// stylesheets are all per-template.
type Job struct {
	Source  parse.Source
	Options Options
}

// CompileAll compiles a batch across workers. Results come back in input
// order regardless of completion order, so build manifests stay
// deterministic. workers <= 0 means one per CPU. Compilations already
// dispatched finish even when ctx is canceled; the rest carry the context
// error.
func CompileAll(ctx context.Context, batch []Job, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(batch) {
		workers = len(batch)
	}
	results := make([]Result, len(batch))
	if len(batch) == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = Compile(batch[idx].Source, batch[idx].Options)
			}
		}()
	}

dispatch:
	for i := range batch {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(batch); j++ {
				results[j] = Result{Source: batch[j].Source, Err: ctx.Err()}
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// TemplateIdentity derives the default scope-token identity from a source
// path: the file name without directory or extension.
func TemplateIdentity(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
