package cmd

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/hitshell/packages/core/compiler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Check scripts for errors without running them",
	Long: `Parse and compile hitshell scripts without sending any request.

Syntax errors, unknown functions and argument type mismatches are
reported with their line and column.

Examples:
  hitshell validate smoke.hsh
  hitshell validate ./scripts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &exitError{code: ExitUsageError, err: err}
	}

	if len(files) == 0 {
		return &exitError{code: ExitUsageError, err: fmt.Errorf("no %s files found", ScriptExtension)}
	}

	sh, err := newShell(false)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	defer sh.Close()

	hasErrors := false
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}

		_, diags := compiler.CompileSource(sh.registry, string(src))
		if len(diags) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
			continue
		}
		hasErrors = true
		fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s:\n", file)
		for _, d := range diags {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", d.Show(string(src), "  "))
		}
	}

	if hasErrors {
		return &exitError{code: ExitParseError, err: fmt.Errorf("validation failed")}
	}

	return nil
}
