package main

import (
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/phobologic/cppmeta/internal/cxx"
	"github.com/phobologic/cppmeta/internal/decl"
)

func newDumpCmd(g *globalFlags) *cobra.Command {
	var (
		pf    projectFlags
		named string
	)

	cmd := &cobra.Command{
		Use:   "dump [flags] <source>",
		Short: "Pretty-print the declaration tree of a translation unit",
		Long: `Parse one translation unit and print its declaration tree, with
annotations, comments and types, before any reflection policy applies.
Useful to see why a declaration is or is not reflected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(cmd, g, &pf)
			if err != nil {
				return err
			}

			fe := cxx.NewFrontend(cxx.Options{
				IncludeDirs: cfg.IncludeDirs,
				Defines:     cfg.Defines,
				Macros:      cfg.Macros,
			})
			tu, err := fe.Parse(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var v any = tu
			if named != "" {
				var found []*decl.Decl
				tu.Walk(func(d *decl.Decl) bool {
					if d.QualifiedName == named {
						found = append(found, d)
					}
					return true
				})
				v = found
			}

			p := pp.New()
			p.SetExportedOnly(true)
			p.SetColoringEnabled(!g.noColor)
			p.SetOutput(cmd.OutOrStdout())
			_, err = p.Println(v)
			return err
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&named, "name", "", "print only declarations with this qualified name")

	return cmd
}
