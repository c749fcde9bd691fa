package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

const (
	sentinelStart = "// cppmeta:start"
	sentinelEnd   = "// cppmeta:end"

	defaultMacroHeader = "meta.h"
)

func newInitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [flags] [path-to-header]",
		Short: "Write the reflection annotation macros into a header",
		Long: `Write the cppmeta annotation macros (REFLECT, FULL_REFLECT, NO_REFLECT,
META_POP) to a header. The block is wrapped in sentinel comments so it can be
updated in place on subsequent runs without touching surrounding content.
Creates the file if it does not exist.

path-to-header defaults to ./meta.h.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	return cmd
}

// runInit writes (or updates) the macro block in the header at path.
func runInit(path string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && path == "" {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	if path == "" {
		path = defaultMacroHeader
	}

	existing, _ := os.ReadFile(path)
	content := string(existing)
	if strings.TrimSpace(content) == "" {
		content = "#pragma once\n"
	}
	updated := applySection(content, section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote cppmeta macros to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped macro block.
func generateSection() string {
	body := `// Reflection annotations read by cppmeta. Regenerate with ` + "`cppmeta init`" + `;
// see ` + "`cppmeta --help`" + ` for the generator itself.
//
//   struct REFLECT Player { ... };   reflect a record or enum
//   namespace REFLECT game { ... }   reflect everything declared inside
//   int cache NO_REFLECT;            leave a declaration out
//
// FULL_REFLECT is a synonym of REFLECT. Any other annotate("name") string is
// copied to the "attrs" of its declaration. annotate("__push__name") adds
// "name" to the declaration, its members and its later siblings until a
// META_POP:
//
//   #define GUI __attribute__((annotate("__push__gui")))
#ifdef __meta__
#define REFLECT __attribute__((annotate("__reflect__")))
#define FULL_REFLECT __attribute__((annotate("__full_reflect__")))
#define NO_REFLECT __attribute__((annotate("__noreflect__")))
#define META_POP __attribute__((annotate("__pop__")))
#else
#define REFLECT
#define FULL_REFLECT
#define NO_REFLECT
#define META_POP
#endif`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
