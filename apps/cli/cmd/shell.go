package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/builtin"
	"github.com/abdul-hamid-achik/hitshell/packages/controllers"
	"github.com/abdul-hamid-achik/hitshell/packages/core/config"
	"github.com/abdul-hamid-achik/hitshell/packages/core/env"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/repl"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/logutil"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/snapshot"
	"github.com/abdul-hamid-achik/hitshell/packages/stats"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
	"github.com/spf13/cobra"
)

// Flags shared by every command that starts a shell
var (
	configFlag    string
	envFileFlag   string
	noColorFlag   bool
	logFlag       string
	serversDBFlag string
	historyFlag   string
	proxyFlag     string
	insecureFlag  bool
	timeoutFlag   string
	rateLimitFlag float64
	snapshotsFlag string
	updateSnaps   bool
	schemaDirFlag string
)

func addShellFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("HITSHELL_CONFIG", ""), "Path to config file (env: HITSHELL_CONFIG)")
	flags.StringVar(&envFileFlag, "env-file", getEnvString("HITSHELL_ENV_FILE", ""), "Path to .env file for variable interpolation (env: HITSHELL_ENV_FILE)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HITSHELL_NO_COLOR", false), "Disable colored output (env: HITSHELL_NO_COLOR)")
	flags.StringVar(&logFlag, "log", getEnvString("HITSHELL_LOG", ""), "Write debug logs to file (env: HITSHELL_LOG)")
	flags.StringVar(&serversDBFlag, "servers-db", getEnvString("HITSHELL_SERVERS_DB", ""), "SQLite database for server bookmarks (env: HITSHELL_SERVERS_DB)")
	flags.StringVar(&historyFlag, "history", getEnvString("HITSHELL_HISTORY", ""), "Command history file (env: HITSHELL_HISTORY)")
	flags.StringVar(&proxyFlag, "proxy", getEnvString("HITSHELL_PROXY", ""), "Proxy URL for HTTP requests (env: HITSHELL_PROXY)")
	flags.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITSHELL_INSECURE", false), "Disable SSL certificate validation (env: HITSHELL_INSECURE)")
	flags.StringVar(&timeoutFlag, "timeout", getEnvString("HITSHELL_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m), empty waits forever (env: HITSHELL_TIMEOUT)")
	flags.Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("HITSHELL_RATE_LIMIT", 0), "Maximum requests per second, 0 is unlimited (env: HITSHELL_RATE_LIMIT)")
	flags.StringVar(&snapshotsFlag, "snapshots", getEnvString("HITSHELL_SNAPSHOTS", snapshot.DefaultPath), "File holding response snapshots (env: HITSHELL_SNAPSHOTS)")
	flags.StringVar(&schemaDirFlag, "schema-dir", getEnvString("HITSHELL_SCHEMA_DIR", ""), "Directory that response.validate schema files must live in (env: HITSHELL_SCHEMA_DIR)")
	flags.BoolVar(&updateSnaps, "update-snapshots", getEnvBool("HITSHELL_UPDATE_SNAPSHOTS", false), "Overwrite snapshots that no longer match (env: HITSHELL_UPDATE_SNAPSHOTS)")
}

// shell is a fully wired interpreter: registry, controllers, engine and
// the stores behind them.
type shell struct {
	cfg      *config.Config
	resolver *env.Resolver
	console  *output.Console
	engine   *engine.Engine
	registry *registry.Registry
	history  store.History
	servers  store.Servers
	loop     *repl.Loop
}

// newResolver expands ${VAR} references from the process environment and
// the --env-file, or ./.env when that flag is unset.
func newResolver() (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
	})

	envFile := envFileFlag
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if err := resolver.LoadFile(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	return resolver, nil
}

// loadConfig reads the config file, expanding ${VAR} references through
// the environment and the optional .env file, and applies flag overrides.
func loadConfig() (*config.Config, *env.Resolver, error) {
	resolver, err := newResolver()
	if err != nil {
		return nil, nil, err
	}

	fileConfig, err := config.LoadConfig(configFlag, resolver)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := &config.Config{
		Proxy:       proxyFlag,
		RateLimit:   rateLimitFlag,
		HistoryFile: historyFlag,
		ServersDB:   serversDBFlag,
		LogFile:     logFlag,
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		overrides.NoColor = config.BoolPtr(true)
	}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timeout %q: %w", timeoutFlag, err)
		}
		overrides.Timeout = int(d.Milliseconds())
	}

	return config.DefaultConfig().Merge(fileConfig).Merge(overrides), resolver, nil
}

// newShell builds a shell from the config. persistHistory opens the
// history file; scripts run without one.
func newShell(persistHistory bool) (*shell, error) {
	cfg, resolver, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := logutil.SetOutputFile(cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	s := &shell{
		cfg:      cfg,
		resolver: resolver,
		console:  output.NewConsole(output.WithNoColor(cfg.GetNoColor())),
		registry: registry.New(),
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithTimeout(time.Duration(cfg.Timeout) * time.Millisecond),
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}

	engineOpts := []engine.Option{
		engine.WithConsole(s.console),
		engine.WithStats(stats.NewRecorder()),
	}
	if cfg.RateLimit > 0 {
		engineOpts = append(engineOpts, engine.WithRateLimit(cfg.RateLimit))
	}
	s.engine = engine.New(http.NewClient(clientOpts...), engineOpts...)

	if cfg.Auth != nil && cfg.Auth.PublicKey != "" {
		s.engine.Configure(func(c *http.Config) {
			c.Authenticator = http.NewSigningAuthenticator(cfg.Auth.PublicKey, cfg.Auth.PrivateKey)
		})
	}

	if cfg.ServersDB != "" {
		s.servers, err = store.OpenServers(cfg.ServersDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open servers database: %w", err)
		}
	} else {
		s.servers = store.NewMemoryServers()
	}

	if persistHistory && cfg.HistoryFile != "" {
		h, err := store.OpenHistory(cfg.HistoryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
			s.history = store.NewMemoryHistory()
		} else {
			s.history = h
		}
	} else {
		s.history = store.NewMemoryHistory()
	}

	s.loop = repl.New(s.registry, s.console, s.engine, repl.WithHistory(s.history))

	session := &builtin.Session{
		Registry: s.registry,
		Console:  s.console,
		History:  s.history,
		Stats:    s.engine.Stats(),
		Env:      resolver,
		Exit:     s.loop.Exit,
	}
	session.Register()

	ctrls := controllers.Defaults(s.engine, s.servers, cfg.Headers)
	if err := controllers.RegisterAll(s.registry, ctrls...); err != nil {
		s.Close()
		return nil, err
	}

	bookmarks := make([]store.Server, len(cfg.Servers))
	for i, srv := range cfg.Servers {
		bookmarks[i] = store.Server{Name: srv.Name, Address: srv.Address}
	}
	for _, c := range ctrls {
		switch c := c.(type) {
		case *controllers.Servers:
			if err := c.Seed(bookmarks, cfg.DefaultServer); err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to load servers: %w", err)
			}
		case *controllers.Response:
			c.WithSnapshots(snapshot.NewStore(snapshotsFlag, snapshot.WithUpdate(updateSnaps)))
			if schemaDirFlag != "" {
				c.WithBaseDir(schemaDirFlag)
			}
		}
	}

	return s, nil
}

// Wait blocks until in-flight requests complete or ctx is done.
func (s *shell) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.engine.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.engine.Interrupt()
		return ctx.Err()
	}
}

func (s *shell) Close() {
	var errs []error
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	if s.servers != nil {
		errs = append(errs, s.servers.Close())
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	_ = logutil.SetOutputFile("")
}
