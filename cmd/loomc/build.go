package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/buildcache"
	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/pkg/compiler"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

func newBuildCommand() *cobra.Command {
	var output string
	var workers int
	var noCache bool
	var cwd string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every template in the project",
		Long: `Discovers templates under the configured templates directory, compiles
them across a worker pool, and writes the generated modules plus a
build manifest to the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("failed to change directory to %s: %w", cwd, err)
				}
			}
			return runBuild(output, workers, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: loom.yaml out)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Compile parallelism (0 = one per CPU)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the build cache")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory of the project (defaults to current)")

	return cmd
}

// templateUnit is one discovered template plus everything the build derives
// from its location: identity, companion stylesheet, cache key.
type templateUnit struct {
	Path        string
	Identity    string
	Source      []byte
	Stylesheets []string
	Key         string
}

type manifestEntry struct {
	Identity   string   `json:"identity"`
	Source     string   `json:"source"`
	Artifact   string   `json:"artifact"`
	Token      string   `json:"token"`
	Slots      []string `json:"slots,omitempty"`
	Components []string `json:"components,omitempty"`
	Hash       string   `json:"hash"`
}

// buildManifest records one build's outputs in template input order. It
// carries no timestamps so identical inputs produce identical manifests.
type buildManifest struct {
	Compiler  string          `json:"compiler"`
	Shadow    string          `json:"shadow"`
	Templates []manifestEntry `json:"templates"`
}

func runBuild(output string, workers int, noCache bool) error {
	start := time.Now()
	log.Println("🧵 Building Loom templates...")

	cfg := loadConfig(".")

	// CLI flags take precedence over loom.yaml.
	if output != "" {
		cfg.OutDir = output
	}
	if workers != 0 {
		cfg.Build.Workers = workers
	}
	if noCache {
		cfg.Build.NoCache = true
	}

	units, err := discoverTemplates(cfg)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		log.Printf("⚠️  No templates found under %s", cfg.TemplatesDir)
		return nil
	}
	log.Printf("  Found %d template(s) under %s", len(units), cfg.TemplatesDir)

	var cache *buildcache.Cache
	if !cfg.Build.NoCache {
		cache, err = buildcache.New(buildcache.Config{Dir: cfg.Build.CacheDir})
		if err != nil {
			log.Printf("⚠️  Build cache unavailable: %v", err)
		} else {
			defer cache.Close()
		}
	}

	// Probe the cache, then fan the misses out across the worker pool.
	artifacts := make([]*buildcache.Artifact, len(units))
	var jobs []compiler.Job
	var jobUnit []int
	for i := range units {
		u := &units[i]
		u.Key = buildcache.Key(compiler.Version, u.Identity, cfg.Shadow, cfg.PropsFor(u.Identity), u.Source)
		if cache != nil {
			if art, ok := cache.Get(u.Key); ok {
				artifacts[i] = art
				continue
			}
		}
		jobs = append(jobs, compiler.Job{
			Source: parse.Source{Name: u.Path, Content: string(u.Source)},
			Options: compiler.Options{
				Identity:         u.Identity,
				PublicProperties: cfg.PropsFor(u.Identity),
				NativeShadow:     cfg.NativeShadow(),
				Stylesheets:      u.Stylesheets,
			},
		})
		jobUnit = append(jobUnit, i)
	}

	results := compiler.CompileAll(context.Background(), jobs, cfg.Build.Workers)

	failed := 0
	for j, res := range results {
		i := jobUnit[j]
		if len(res.Diagnostics) > 0 {
			failed++
			printDiagnostics(res.Diagnostics)
			continue
		}
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", units[i].Path, res.Err)
			continue
		}
		art := &buildcache.Artifact{
			Code:       res.Program.Code,
			Slots:      res.Program.Slots,
			Components: res.Program.Components,
			Token:      res.Program.Token,
		}
		artifacts[i] = art
		if cache != nil {
			if err := cache.Put(units[i].Key, art); err != nil {
				log.Printf("⚠️  Failed to cache %s: %v", units[i].Identity, err)
			}
		}
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := buildManifest{Compiler: compiler.Version, Shadow: cfg.Shadow}
	var written int64
	for i, art := range artifacts {
		if art == nil {
			continue
		}
		if err := writeArtifact(cfg, units[i].Identity, art.Code); err != nil {
			return err
		}
		written += int64(len(art.Code))

		sum := sha256.Sum256([]byte(art.Code))
		manifest.Templates = append(manifest.Templates, manifestEntry{
			Identity:   units[i].Identity,
			Source:     filepath.ToSlash(units[i].Path),
			Artifact:   units[i].Identity + ".js",
			Token:      art.Token,
			Slots:      art.Slots,
			Components: art.Components,
			Hash:       hex.EncodeToString(sum[:]),
		})
	}

	manifestPath := filepath.Join(cfg.OutDir, cfg.Build.Manifest)
	if err := writeManifest(manifestPath, manifest); err != nil {
		log.Printf("⚠️  Failed to save manifest: %v", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d template(s) failed to compile", failed, len(units))
	}

	log.Println("📊 Build complete!")
	if cache != nil {
		stats := cache.GetStats()
		log.Printf("  Cache:       %d hit(s), %d miss(es)", stats.Hits, stats.Misses)
	}
	log.Printf("  Output:      %s", formatSize(written))
	log.Printf("  Elapsed:     %s", time.Since(start).Round(time.Millisecond))
	log.Printf("\n✨ Build output: %s", cfg.OutDir)

	return nil
}

// discoverTemplates collects every .html file under the templates directory.
// WalkDir visits paths in lexical order, which fixes manifest order across
// runs.
func discoverTemplates(cfg *config.Config) ([]templateUnit, error) {
	var units []templateUnit
	err := filepath.WalkDir(cfg.TemplatesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != cfg.TemplatesDir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		u := templateUnit{Path: p, Identity: identityFor(cfg, p), Source: src}
		css := strings.TrimSuffix(p, filepath.Ext(p)) + ".css"
		if _, err := os.Stat(css); err == nil {
			u.Stylesheets = []string{"./" + strings.TrimSuffix(filepath.Base(css), ".css") + ".css"}
		}
		units = append(units, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", cfg.TemplatesDir, err)
	}
	return units, nil
}

// identityFor derives a template's identity from its location under the
// templates directory. Component directories repeat the component name
// (x/card/card.html collapses to x/card); files outside the namespace/name
// layout get the project namespace prepended.
func identityFor(cfg *config.Config, p string) string {
	rel, err := filepath.Rel(cfg.TemplatesDir, p)
	if err != nil {
		rel = filepath.Base(p)
	}
	id := path.Clean(filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))))
	if dir := path.Dir(id); path.Base(dir) == path.Base(id) {
		id = dir
	}
	if !strings.Contains(id, "/") {
		id = cfg.Namespace + "/" + id
	}
	return id
}

// writeArtifact places a generated module at <out>/<identity>.js, creating
// namespace directories as needed.
func writeArtifact(cfg *config.Config, identity, code string) error {
	dst := filepath.Join(cfg.OutDir, filepath.FromSlash(identity+".js"))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func writeManifest(path string, m buildManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
