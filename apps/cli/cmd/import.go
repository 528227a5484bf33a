package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/import/curl"
	"github.com/abdul-hamid-achik/hitshell/packages/import/insomnia"
	"github.com/abdul-hamid-achik/hitshell/packages/import/openapi"
	"github.com/abdul-hamid-achik/hitshell/packages/import/postman"
	"github.com/spf13/cobra"
)

var (
	importOutputFlag  string
	importBaseURLFlag string
	importTagsFlag    string
	importNoTestsFlag bool
	importExpandFlag  bool
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Convert requests from other tools into a script",
	Long: `Convert requests from other tools into a hitshell script that
hitshell run can execute.

Supported formats:
  curl     - curl command lines (a file, or a single command with --command)
  insomnia - Insomnia v4 export (JSON)
  openapi  - OpenAPI 3.0/3.1 (YAML or JSON, file or URL)
  postman  - Postman Collection v2.1

Examples:
  hitshell import curl commands.txt -o smoke.hsh
  hitshell import curl --command "curl -X POST https://api.example.com/users -d '{}'"
  hitshell import insomnia export.json --expand
  hitshell import openapi spec.yaml --tags users,auth --base-url http://localhost:3000
  hitshell import postman collection.json -o scripts/users.hsh`,
}

var importCurlCommand string

var importCurlCmd = &cobra.Command{
	Use:   "curl [file]",
	Short: "Import curl command lines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		converter := curl.NewConverter(curl.WithAssertions(!importNoTestsFlag))
		switch {
		case importCurlCommand != "":
			return convertAndWrite(cmd, func() (string, error) {
				return converter.ConvertCommand(importCurlCommand)
			})
		case len(args) == 1:
			return convertAndWrite(cmd, func() (string, error) {
				return converter.ConvertFile(args[0])
			})
		default:
			return &exitError{code: ExitUsageError, err: fmt.Errorf("a file or --command is required")}
		}
	},
}

var importInsomniaCmd = &cobra.Command{
	Use:   "insomnia <export-file>",
	Short: "Import an Insomnia export",
	Long: `Import requests from an Insomnia v4 export.

Variables from the export's base environment are inlined. Others become
${name} references; with --expand they are resolved from the environment
and the .env file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []insomnia.Option{insomnia.WithAssertions(!importNoTestsFlag)}
		if importExpandFlag {
			resolver, err := newResolver()
			if err != nil {
				return &exitError{code: ExitConfigError, err: err}
			}
			opts = append(opts, insomnia.WithExpander(resolver))
		}
		return convertAndWrite(cmd, func() (string, error) {
			return insomnia.NewConverter(opts...).ConvertFile(args[0])
		})
	},
}

var importOpenAPICmd = &cobra.Command{
	Use:   "openapi <spec-file-or-url>",
	Short: "Import from OpenAPI/Swagger specification",
	Long: `Generate one request per operation of an OpenAPI 3.0/3.1 document.

The script bookmarks the document's first server and checks the first
documented 2xx status of each operation.

Examples:
  hitshell import openapi spec.yaml
  hitshell import openapi spec.yaml -o tests/api.hsh
  hitshell import openapi https://api.example.com/openapi.json
  hitshell import openapi spec.yaml --tags users,auth
  hitshell import openapi spec.yaml --base-url http://localhost:3000
  hitshell import openapi spec.yaml --no-tests`,
	Args: cobra.ExactArgs(1),
	RunE: importOpenAPICommand,
}

var importPostmanCmd = &cobra.Command{
	Use:   "postman <collection-file>",
	Short: "Import from Postman collection",
	Long: `Import requests from a Postman Collection v2.1 file.

Collection variables are inlined. Others become ${name} references; with
--expand they are resolved from the environment and the .env file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []postman.Option{postman.WithAssertions(!importNoTestsFlag)}
		if importExpandFlag {
			resolver, err := newResolver()
			if err != nil {
				return &exitError{code: ExitConfigError, err: err}
			}
			opts = append(opts, postman.WithExpander(resolver))
		}
		return convertAndWrite(cmd, func() (string, error) {
			return postman.NewConverter(opts...).ConvertFile(args[0])
		})
	},
}

func init() {
	importCmd.PersistentFlags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importCmd.PersistentFlags().BoolVar(&importNoTestsFlag, "no-tests", false, "Don't generate status checks")

	importCurlCmd.Flags().StringVarP(&importCurlCommand, "command", "c", "", "Convert a single curl command")

	importInsomniaCmd.Flags().BoolVar(&importExpandFlag, "expand", false, "Resolve ${VAR} references from the environment")
	importPostmanCmd.Flags().BoolVar(&importExpandFlag, "expand", false, "Resolve ${VAR} references from the environment")

	importOpenAPICmd.Flags().StringVar(&importBaseURLFlag, "base-url", "", "Override base URL from spec")
	importOpenAPICmd.Flags().StringVar(&importTagsFlag, "tags", "", "Filter operations by tags (comma-separated)")

	importCmd.AddCommand(importCurlCmd)
	importCmd.AddCommand(importInsomniaCmd)
	importCmd.AddCommand(importOpenAPICmd)
	importCmd.AddCommand(importPostmanCmd)
}

func importOpenAPICommand(cmd *cobra.Command, args []string) error {
	specPath := args[0]

	var opts []openapi.Option

	if importBaseURLFlag != "" {
		opts = append(opts, openapi.WithBaseURL(importBaseURLFlag))
	}

	if importTagsFlag != "" {
		tags := strings.Split(importTagsFlag, ",")
		for i := range tags {
			tags[i] = strings.TrimSpace(tags[i])
		}
		opts = append(opts, openapi.WithTags(tags))
	}

	if importNoTestsFlag {
		opts = append(opts, openapi.WithTests(false))
	}

	opts = append(opts, openapi.WithWarnings(cmd.ErrOrStderr()))
	converter := openapi.NewConverter(opts...)
	return convertAndWrite(cmd, func() (string, error) {
		return converter.ConvertFile(specPath)
	})
}

// convertAndWrite runs convert and writes the script to --output or stdout.
func convertAndWrite(cmd *cobra.Command, convert func() (string, error)) error {
	content, err := convert()
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", cmd.Name(), err)
	}

	if importOutputFlag == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}

	// Create directory if needed
	if dir := filepath.Dir(importOutputFlag); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(importOutputFlag, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Successfully imported to %s\n", importOutputFlag)
	return nil
}
