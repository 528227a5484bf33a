package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var plainFunctions bool

var functionsCmd = &cobra.Command{
	Use:   "functions [provider]",
	Short: "List the functions available in the shell",
	Long: `List built-ins and provider functions with their parameters.

Examples:
  hitshell functions
  hitshell functions http
  hitshell functions --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: functionsCommand,
}

func init() {
	functionsCmd.Flags().BoolVar(&plainFunctions, "plain", false, "Print one signature per line without colors")
}

func functionsCommand(cmd *cobra.Command, args []string) error {
	sh, err := newShell(false)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	defer sh.Close()

	if plainFunctions {
		return printSignatures(cmd, sh, args)
	}

	sh.console.SetWriter(cmd.OutOrStdout())
	src := "help"
	if len(args) == 1 {
		src += " " + strconv.Quote(args[0])
	}
	return sh.loop.Execute(cmd.Context(), src)
}

func printSignatures(cmd *cobra.Command, sh *shell, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, c := range sh.registry.Builtins() {
			fmt.Fprintln(out, c.Signature())
		}
	}
	for _, name := range sh.registry.ProviderNames() {
		if len(args) == 1 && args[0] != name {
			continue
		}
		ns, _ := sh.registry.Provider(name)
		for _, c := range ns.Funcs() {
			fmt.Fprintf(out, "%s.%s\n", name, c.Signature())
		}
	}
	if len(args) == 1 {
		if _, ok := sh.registry.Provider(args[0]); !ok {
			return &exitError{code: ExitUsageError, err: fmt.Errorf("unknown provider %q", args[0])}
		}
	}
	return nil
}
