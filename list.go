package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/cppmeta/internal/toon"
)

func newListCmd(g *globalFlags) *cobra.Command {
	var pf projectFlags

	cmd := &cobra.Command{
		Use:   "list [flags] [sources...]",
		Short: "Print a TOON summary of the reflected entities",
		Long: `Extract metadata like generate, but print a summary table of the
reflected records, enums and functions instead of writing files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadProject(cmd, g, &pf)
			if err != nil {
				return err
			}
			units, err := collectUnits(cfg, args)
			if err != nil {
				return err
			}
			units = filterBySize(ctx, units, cfg.MaxFileSize)

			data, _, err := extract(ctx, cfg, units)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), toon.Encode(filepath.Base(cfg.Root), data))
			return nil
		},
	}

	pf.register(cmd)

	return cmd
}
