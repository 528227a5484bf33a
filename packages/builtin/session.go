package builtin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitshell/packages/core/env"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/stats"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
	"github.com/fatih/color"
)

var (
	ErrUnknownProvider = errors.New("provider not found")
	ErrUnknownTarget   = errors.New("unknown function")
	ErrNotAlias        = errors.New("not an alias")
	ErrReserved        = errors.New("name is already a built-in")
)

// Session binds the stateful built-ins to the running shell.
type Session struct {
	Registry *registry.Registry
	Console  *output.Console
	History  store.History
	Stats    *stats.Recorder
	Env      *env.Resolver
	// Exit is called by quit and exit.
	Exit func()

	mu      sync.Mutex
	aliases map[string]string
}

// Register adds every built-in to the session's registry.
func (s *Session) Register() {
	for _, c := range Functions() {
		s.Registry.SetBuiltin(c)
	}
	for _, c := range s.callables() {
		s.Registry.SetBuiltin(c)
	}
}

func (s *Session) callables() []*registry.Callable {
	return []*registry.Callable{
		registry.MustCallable("quit", s.quit, registry.Describe("leave the shell")),
		registry.MustCallable("exit", s.quit, registry.Describe("leave the shell")),
		registry.MustCallable("clear", s.clear, registry.Describe("clear the screen")),
		registry.MustCallable("help", s.help, registry.Params("provider"), registry.Default("provider", ""),
			registry.Describe("list providers and functions")),
		registry.MustCallable("alias", s.alias, registry.Params("name", "target"),
			registry.Describe("call target by another name")),
		registry.MustCallable("unalias", s.unalias, registry.Params("name"),
			registry.Describe("remove an alias")),
		registry.MustCallable("history", s.history, registry.Params("count"), registry.Default("count", float64(20)),
			registry.Describe("recent command lines")),
		registry.MustCallable("stats", s.stats, registry.Params("action"), registry.Default("action", ""),
			registry.Describe("request statistics; stats reset clears them")),
		registry.MustCallable("env", s.env, registry.Params("name"),
			registry.Describe("environment or .env variable")),
	}
}

func (s *Session) quit() {
	if s.Exit != nil {
		s.Exit()
	}
}

func (s *Session) clear() {
	s.Console.Printf("\033[H\033[2J")
}

func (s *Session) help(provider string) error {
	if provider == "" {
		s.Console.Session(func(out *output.Session) {
			defer out.Foreground(color.FgWhite)()
			out.Println("builtins")
			for _, c := range s.Registry.Builtins() {
				s.printSummary(out, c)
			}
			for _, name := range s.Registry.ProviderNames() {
				ns, _ := s.Registry.Provider(name)
				out.Println(name)
				for _, c := range ns.Funcs() {
					s.printSummary(out, c)
				}
			}
		})
		return nil
	}

	ns, ok := s.Registry.Provider(provider)
	if !ok {
		return fmt.Errorf("'%s': %w", provider, ErrUnknownProvider)
	}
	s.Console.Session(func(out *output.Session) {
		defer out.Foreground(color.FgWhite)()
		for _, c := range ns.Funcs() {
			out.Println(c.Name())
			restore := out.Foreground(color.FgHiBlack)
			if d := c.Description(); d != "" {
				out.Printf("    %s\n", d)
			}
			for _, p := range c.Params() {
				out.Printf("    %s\n", paramLabel(p))
			}
			restore()
			out.Println()
		}
	})
	return nil
}

func (s *Session) printSummary(out *output.Session, c *registry.Callable) {
	out.Printf("   %s", c.Name())
	if params := c.Params(); len(params) > 0 {
		labels := make([]string, len(params))
		for i, p := range params {
			labels[i] = paramLabel(p)
		}
		restore := out.Foreground(color.FgHiBlack)
		out.Printf(" (%s)", strings.Join(labels, ", "))
		restore()
	}
	out.Println()
}

func paramLabel(p registry.Param) string {
	switch {
	case p.Variadic:
		return p.Name + "..."
	case p.HasDefault:
		return fmt.Sprintf("%s = %v", p.Name, p.Default)
	default:
		return p.Name
	}
}

func (s *Session) resolve(target string) (*registry.Callable, bool) {
	if provider, fn, ok := strings.Cut(target, "."); ok {
		return s.Registry.Lookup(provider, fn)
	}
	return s.Registry.Builtin(target)
}

func (s *Session) alias(name, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliases == nil {
		s.aliases = make(map[string]string)
	}
	if _, isAlias := s.aliases[name]; !isAlias {
		if _, exists := s.Registry.Builtin(name); exists {
			return fmt.Errorf("'%s': %w", name, ErrReserved)
		}
	}

	c, ok := s.resolve(target)
	if !ok {
		return fmt.Errorf("'%s': %w", target, ErrUnknownTarget)
	}
	s.Registry.SetBuiltin(c.Alias(name))
	s.aliases[name] = target
	return nil
}

func (s *Session) unalias(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[name]; !ok {
		return fmt.Errorf("'%s': %w", name, ErrNotAlias)
	}
	delete(s.aliases, name)
	s.Registry.RemoveBuiltin(name)
	return nil
}

// Aliases returns a copy of the alias table.
func (s *Session) Aliases() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

func (s *Session) history(count float64) (string, error) {
	if s.History == nil {
		return "", nil
	}
	cmds, err := s.History.LastCmds(int(count))
	if err != nil {
		return "", err
	}
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = fmt.Sprintf("%5d  %s", c.Seq, c.Text)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Session) stats(action string) (any, error) {
	switch action {
	case "":
		return s.Stats.Summary(), nil
	case "reset":
		s.Stats.Reset()
		return value.NoOutput, nil
	default:
		return nil, fmt.Errorf("unknown action %q, want reset", action)
	}
}

func (s *Session) env(name string) any {
	if s.Env == nil {
		return nil
	}
	if v, ok := s.Env.Lookup(name); ok {
		return v
	}
	return nil
}
