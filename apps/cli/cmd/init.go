package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitshell/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitshell project",
	Long: `Initialize a new hitshell project in the current directory.

This creates:
  - hitshell.yaml  - Configuration file with servers and default headers
  - example.hsh    - Example script for hitshell run

Examples:
  hitshell init
  hitshell init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleScript = `# Run with: hitshell run example.hsh
servers.use local

http.get /health
response.expect status == 200

http.post /users "{\"name\": \"ada\"}" application/json
response.get id
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "example"+ScriptExtension)

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return &exitError{
					code: ExitUsageError,
					err:  fmt.Errorf("file already exists: %s (use --force to overwrite)", f),
				}
			}
		}
	}

	if err := os.WriteFile(configFile, []byte(config.Starter), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleScript), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nStart the shell with: hitshell\n")
	return nil
}
