package main

import (
	"time"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		pf        projectFlags
		output    string
		cachePath string
	)

	cmd := &cobra.Command{
		Use:   "generate [flags] [sources...]",
		Short: "Write .h.meta files for reflected declarations",
		Long: `Parse translation units and write one <rel>.h.meta JSON file per source
file under the root that declares reflected entities.

With no sources, every header under the root is a translation unit. Files
that did not change are left untouched, so build systems see stable
timestamps.

Examples:
  cppmeta generate                              # headers under ., output to ./meta
  cppmeta generate -I include -D NDEBUG src/a.h
  cppmeta generate --cache build/meta.stamp     # no-op when nothing changed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ctx := cmd.Context()

			cfg, err := loadProject(cmd, g, &pf)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output = output
				if err := cfg.Resolve("."); err != nil {
					return err
				}
			}

			units, err := collectUnits(cfg, args)
			if err != nil {
				return err
			}

			if cachePath != "" && cacheIsFresh(cachePath, units) {
				slogctx.Info(ctx, "Metadata is up to date", "cache", cachePath)
				return nil
			}

			units = filterBySize(ctx, units, cfg.MaxFileSize)
			if len(units) == 0 {
				return errors.New("no translation units left (all exceeded size limit)")
			}

			data, stats, err := extract(ctx, cfg, units)
			if err != nil {
				return err
			}

			res, err := writeOutputs(ctx, cfg.Output, data)
			if err != nil {
				return err
			}
			if err := writeStats(cfg.Output, runStats{
				Version:   version,
				Units:     stats,
				Output:    res,
				ElapsedMS: float64(time.Since(start).Microseconds()) / 1000,
			}); err != nil {
				return err
			}

			if cachePath != "" {
				if err := touchCache(cachePath); err != nil {
					return err
				}
			}

			slogctx.Info(ctx, "Generated metadata",
				"units", len(units),
				"files", res.Files,
				"written", res.Written,
				"output", cfg.Output)
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory receiving .h.meta files (default from config, else ./meta)")
	cmd.Flags().StringVar(&cachePath, "cache", "", "stamp file; skip the run when it is newer than every unit")

	return cmd
}
