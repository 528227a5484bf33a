package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/repl"
	"github.com/abdul-hamid-achik/hitshell/packages/export/metrics"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// ShutdownGrace bounds how long the shell waits for in-flight requests
// to unwind after they are cancelled on exit.
const ShutdownGrace = 2 * time.Second

var rootCmd = &cobra.Command{
	Use:   "hitshell",
	Short: "An interactive shell for HTTP APIs.",
	Long: `hitshell is an interactive shell for composing and firing HTTP
requests against your servers using a small command language.

Examples:
  > servers.add local http://localhost:8080
  > headers.set Accept application/json
  > http.get /users page=2
  > http.post /users "{\"name\": \"ada\"}" application/json
  > response.get data.items[0].name

Type help for the list of functions. Ctrl+C cancels the running request,
clears the current input, or exits when pressed twice.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          rootCommand,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var metricsAddrFlag string

func init() {
	addShellFlags(rootCmd)
	rootCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", getEnvString("HITSHELL_METRICS_ADDR", ""), "Serve Prometheus metrics for this session on addr, e.g. :9090 (env: HITSHELL_METRICS_ADDR)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(importCmd)
}

func rootCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	sh, err := newShell(true)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	defer sh.Close()

	reader, err := repl.NewReader(sh.registry, sh.console, sh.history)
	if err != nil {
		return err
	}
	defer reader.Close()
	sh.loop.SetReader(reader)

	if metricsAddrFlag != "" {
		server := metrics.NewPrometheusExporter().Server(metricsAddrFlag, sh.engine.Stats())
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sh.console.Error(fmt.Errorf("metrics server: %w", err))
			}
		}()
		defer server.Close()
	}

	if err := sh.loop.Run(ctx); err != nil {
		return err
	}

	// Requests still in flight are cancelled rather than awaited.
	for sh.engine.Interrupt() {
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	_ = sh.Wait(waitCtx)
	return nil
}
