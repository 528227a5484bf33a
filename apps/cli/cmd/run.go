package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run script files of shell commands",
	Long: `Run scripts made of hitshell commands, one statement per line.

Scripts share a single shell: servers, headers and auth set by one script
stay in effect for the next. Each script waits for the requests it sent
before the next one starts.

Examples:
  hitshell run smoke.hsh
  hitshell run ./scripts/
  hitshell run smoke.hsh --watch
  hitshell run ./scripts/ --output json --output-file report.json
  hitshell run ./scripts/ --metrics-file metrics.prom`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// ScriptExtension marks hitshell script files
	ScriptExtension = ".hsh"
)

var (
	watchFlag      bool
	outputFlag     string
	outputFileFlag string
	metricsFlag    string
)

func init() {
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run scripts")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITSHELL_OUTPUT", "console"), "Output format: console, json (env: HITSHELL_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITSHELL_OUTPUT_FILE", ""), "Write the JSON report to file (default: stdout) (env: HITSHELL_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&metricsFlag, "metrics-file", getEnvString("HITSHELL_METRICS_FILE", ""), "Write request metrics to file, JSON for .json and Prometheus text otherwise (env: HITSHELL_METRICS_FILE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// scriptRun executes a set of scripts against a fresh shell.
type scriptRun struct {
	files   []string
	json    bool
	report  io.Writer
	metrics string
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := collectFiles(args)
	if err != nil {
		return &exitError{code: ExitUsageError, err: err}
	}
	if len(files) == 0 {
		return &exitError{code: ExitUsageError, err: fmt.Errorf("no %s files found", ScriptExtension)}
	}

	run := &scriptRun{files: files, report: cmd.OutOrStdout(), metrics: metricsFlag}
	switch strings.ToLower(outputFlag) {
	case "json":
		run.json = true
	case "console", "":
	default:
		return &exitError{code: ExitUsageError, err: fmt.Errorf("unknown output format %q", outputFlag)}
	}

	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		run.report = f
	}

	runErr := run.execute(ctx)

	// If watch mode is not enabled, exit normally
	if !watchFlag {
		return runErr
	}
	if runErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", runErr)
	}

	return watchScripts(ctx, cmd, args, files, run)
}

// execute runs every script in order and returns the first failure.
func (r *scriptRun) execute(ctx context.Context) error {
	sh, err := newShell(false)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	defer sh.Close()

	var report *output.JSONFormatter
	if r.json {
		report = output.NewJSONFormatter(output.JSONWithWriter(r.report))
		if r.report == os.Stdout {
			sh.console.SetWriter(os.Stderr)
		}
	}

	start := time.Now()
	var firstErr error
	for _, file := range r.files {
		if sh.loop.Exited() || ctx.Err() != nil {
			break
		}

		scriptStart := time.Now()
		err := runScript(ctx, sh, file)
		if report != nil {
			report.AddScript(file, time.Since(scriptStart), err)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", file, err)
		}
	}

	if report != nil {
		if err := report.Flush(time.Since(start), sh.engine.Stats().Summary()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if r.metrics != "" {
		if err := metrics.WriteFile(r.metrics, sh.engine.Stats().Summary()); err != nil {
			return err
		}
	}
	return firstErr
}

func runScript(ctx context.Context, sh *shell, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	err = sh.loop.Execute(ctx, string(src))
	if waitErr := sh.Wait(ctx); err == nil {
		err = waitErr
	}
	return err
}

func watchScripts(ctx context.Context, cmd *cobra.Command, args, files []string, run *scriptRun) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Add files and directories to watch
	watchedDirs := make(map[string]bool)
	named := make(map[string]bool)
	for _, file := range files {
		named[filepath.Clean(file)] = true
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes
	var (
		debounceTimer *time.Timer
		running       sync.Mutex
	)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Only react to writes of script files
			if event.Has(fsnotify.Write) && (isScriptFile(event.Name) || named[filepath.Clean(event.Name)]) {
				// Debounce: reset timer on each event
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					running.Lock()
					defer running.Unlock()

					fmt.Fprintf(cmd.ErrOrStderr(), "\n\nFile changed: %s\nRe-running scripts...\n\n", event.Name)

					// New scripts in watched directories are picked up
					if rescanned, err := collectFiles(args); err == nil && len(rescanned) > 0 {
						run.files = rescanned
					}
					if err := run.execute(ctx); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					}

					fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watcher error: %v\n", err)
		}
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isScriptFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			// Explicitly named files run whatever their extension
			files = append(files, arg)
		}
	}

	return files, nil
}

func isScriptFile(path string) bool {
	return filepath.Ext(path) == ScriptExtension
}
