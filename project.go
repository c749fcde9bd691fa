package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/cppmeta/internal/config"
	"github.com/phobologic/cppmeta/internal/cxx"
	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/discover"
	"github.com/phobologic/cppmeta/internal/meta"
	"github.com/phobologic/cppmeta/internal/walk"
)

// projectFlags override config file values for commands that extract
// metadata.
type projectFlags struct {
	root        string
	includes    []string
	defines     []string
	jobs        int
	maxFileSize int64
	functions   string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.root, "root", "", "emit only declarations from files under this directory")
	fs.StringArrayVarP(&f.includes, "include", "I", nil, "add an include search directory")
	fs.StringArrayVarP(&f.defines, "define", "D", nil, "predefine a macro as NAME or NAME=VALUE")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "translation units parsed in parallel (0 means one per CPU)")
	fs.Int64Var(&f.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "skip translation units larger than this many bytes")
	fs.StringVar(&f.functions, "functions", "all", `free functions to emit: "all" or "annotated"`)
}

// loadProject reads the config file, resolves its paths against the file's
// directory and applies the flags the user set.
func loadProject(cmd *cobra.Command, g *globalFlags, f *projectFlags) (*config.Config, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Resolve(filepath.Dir(g.config)); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		if cfg.Root, err = filepath.Abs(f.root); err != nil {
			return nil, errors.Errorf("resolving root: %w", err)
		}
	}
	for _, dir := range f.includes {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.Errorf("resolving include dir %q: %w", dir, err)
		}
		cfg.IncludeDirs = append(cfg.IncludeDirs, abs)
	}
	for _, def := range f.defines {
		name, value, _ := strings.Cut(def, "=")
		if name == "" {
			return nil, errors.WithDetails(errors.Errorf("%w: empty macro name in -D", config.ErrInvalid), "define", def)
		}
		if cfg.Defines == nil {
			cfg.Defines = make(map[string]string)
		}
		cfg.Defines[name] = value
	}
	if flags.Changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = f.maxFileSize
	}
	if flags.Changed("functions") {
		cfg.Functions = f.functions
	}

	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, errors.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s: not a directory", cfg.Root)
	}
	return cfg, cfg.Validate()
}

// unit is one translation unit to parse.
type unit struct {
	path string // absolute
	rel  string // relative to root when under it, for messages
	size int64
}

// collectUnits returns the given sources, or the files discovered under the
// root when there are none.
func collectUnits(cfg *config.Config, sources []string) ([]unit, error) {
	var units []unit
	if len(sources) == 0 {
		files, err := discover.Files(cfg.Root, discover.Options{Extensions: cfg.Extensions, Exclude: cfg.Exclude})
		if err != nil {
			return nil, errors.Errorf("discovering files: %w", err)
		}
		for _, f := range files {
			units = append(units, unit{
				path: filepath.Join(cfg.Root, filepath.FromSlash(f.Path)),
				rel:  f.Path,
				size: f.Size,
			})
		}
	}
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", src, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.Errorf("source: %w", err)
		}
		rel := src
		if r, err := filepath.Rel(cfg.Root, abs); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
		units = append(units, unit{path: abs, rel: rel, size: info.Size()})
	}
	if len(units) == 0 {
		return nil, errors.New("no translation units found")
	}
	return units, nil
}

// unitStat records how one translation unit went.
type unitStat struct {
	Path      string  `json:"path"`
	Decls     int     `json:"decls"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// extract parses and walks units in parallel, then merges the per-unit
// results in input order so the output does not depend on scheduling.
func extract(ctx context.Context, cfg *config.Config, units []unit) (*meta.DataMap, []unitStat, error) {
	fe := cxx.NewFrontend(cxx.Options{
		IncludeDirs: cfg.IncludeDirs,
		Defines:     cfg.Defines,
		Macros:      cfg.Macros,
	})
	root := filepath.ToSlash(cfg.Root)
	policy := walk.FunctionPolicy(cfg.Functions)

	results := make([]*meta.DataMap, len(units))
	stats := make([]unitStat, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs(cfg.Jobs))
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			start := time.Now()
			uctx := slogctx.With(gctx, "unit", u.rel)

			tu, err := fe.Parse(uctx, u.path)
			if err != nil {
				return errors.Errorf("parsing %s: %w", u.rel, err)
			}
			w := walk.New(root, walk.WithFunctionPolicy(policy))
			if err := w.Walk(uctx, tu); err != nil {
				return errors.Errorf("walking %s: %w", u.rel, err)
			}

			decls := 0
			tu.Walk(func(*decl.Decl) bool {
				decls++
				return true
			})
			results[i] = w.Data()
			stats[i] = unitStat{
				Path:      u.rel,
				Decls:     decls,
				ElapsedMS: float64(time.Since(start).Microseconds()) / 1000,
			}
			slogctx.Debug(uctx, "Extracted unit", "decls", decls, "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	data := meta.NewDataMap()
	for i, r := range results {
		if err := data.Merge(r); err != nil {
			slogctx.Warn(ctx, "Dropped colliding declarations", "unit", units[i].rel, "error", err)
		}
	}
	return data, stats, nil
}

func jobs(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
