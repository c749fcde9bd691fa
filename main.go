// cppmeta extracts reflection metadata from annotated C++ headers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/cppmeta/internal/config"
	"github.com/phobologic/cppmeta/internal/logging"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config  string
	verbose bool
	quiet   bool
	noColor bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "cppmeta",
		Short: "Extract reflection metadata from annotated C++ headers",
		Long: `cppmeta parses C++ translation units and writes one JSON metadata file
per source file that declares reflected records, enums or functions.

Reflection is opt-in: annotate a struct, class, enum or namespace with
__attribute__((annotate("__reflect__"))) or a macro that expands to it.
Run "cppmeta init" to write the standard macros into a header.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := logging.Level(g.verbose, g.quiet)
			cmd.SetContext(logging.Setup(cmd.Context(), stderr, level, !g.noColor))
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.config, "config", config.FileName, "project config file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log skipped declarations and parse diagnostics")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "log warnings and errors only")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored log output")

	cmd.AddCommand(newGenerateCmd(g))
	cmd.AddCommand(newListCmd(g))
	cmd.AddCommand(newDumpCmd(g))
	cmd.AddCommand(newInitCmd())

	return cmd
}
