// Package repl implements the interactive read-eval-print loop: it buffers
// incomplete statements across lines, compiles and runs complete ones,
// renders their results and turns interrupts into cancellation, input
// clearing or exit.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/hitshell/packages/core/compiler"
	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
	"github.com/abdul-hamid-achik/hitshell/packages/core/parser"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/abdul-hamid-achik/hitshell/packages/logutil"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
	"github.com/fatih/color"
)

var logger = logutil.GetLogger("[repl] ")

const (
	Prompt             = "> "
	ContinuationPrompt = ">> "

	exitHint = "Exit type 'exit' or 'quit' (or press Ctrl+C again)"
)

// ErrCompile is returned by Execute when a script has diagnostics.
var ErrCompile = errors.New("script does not compile")

// State is the buffering state of the loop.
type State int

const (
	Idle State = iota
	Accumulating
)

// InterruptResult is what an interrupt did.
type InterruptResult int

const (
	// Cancelled means the top of the cancel stack was run.
	Cancelled InterruptResult = iota
	// Cleared means pending input was discarded.
	Cleared
	// Armed means nothing was pending; another interrupt exits.
	Armed
	// Exit means the loop should end.
	Exit
)

// Interrupter runs the most recent cancellation action, reporting false
// when there is none.
type Interrupter interface {
	Interrupt() bool
}

type Loop struct {
	registry *registry.Registry
	console  *output.Console
	cancels  Interrupter
	history  store.History
	reader   LineReader

	mu     sync.Mutex
	buffer string
	armed  bool
	stop   context.CancelFunc

	exited  atomic.Bool
	waiting atomic.Bool
}

type Option func(*Loop)

func WithHistory(h store.History) Option {
	return func(l *Loop) {
		l.history = h
	}
}

func WithReader(r LineReader) Option {
	return func(l *Loop) {
		l.reader = r
	}
}

func New(reg *registry.Registry, console *output.Console, cancels Interrupter, opts ...Option) *Loop {
	l := &Loop{
		registry: reg,
		console:  console,
		cancels:  cancels,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetReader replaces the line reader used by Run.
func (l *Loop) SetReader(r LineReader) {
	l.reader = r
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buffer != "" {
		return Accumulating
	}
	return Idle
}

func (l *Loop) Prompt() string {
	if l.State() == Accumulating {
		return ContinuationPrompt
	}
	return Prompt
}

// Exit ends the loop after the current line. quit and exit call it.
func (l *Loop) Exit() {
	l.exited.Store(true)
	l.mu.Lock()
	stop := l.stop
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (l *Loop) Exited() bool {
	return l.exited.Load()
}

// Feed processes one line of input and renders whatever it produces. It
// returns the value of the program the line completed, value.NoInput for a
// blank line with nothing buffered, and nil when the line only extended the
// buffer or failed.
func (l *Loop) Feed(ctx context.Context, line string) any {
	l.mu.Lock()
	l.armed = false
	if l.buffer == "" && strings.TrimSpace(line) == "" {
		l.mu.Unlock()
		return value.NoInput
	}

	src := line
	if l.buffer != "" {
		src = l.buffer + "\n" + line
	}
	tree, diags := parser.Parse(src, l.registry.BuiltinNames())
	if diags.Incomplete() {
		l.buffer = src
		l.mu.Unlock()
		return nil
	}
	l.buffer = ""
	l.mu.Unlock()

	l.record(src)

	if diags.HasSyntax() {
		l.showSyntaxErrors(src, diags)
		return nil
	}

	prog, semantic := compiler.New(l.registry).Compile(tree)
	if len(semantic) > 0 {
		l.showDiagnostics(src, semantic)
	}

	result, err := l.run(ctx, prog)
	if err != nil {
		return nil
	}
	return result
}

// Execute compiles and runs a whole script. Unlike Feed it refuses to run
// anything when the script has diagnostics, and it reports failures as
// errors so callers can pick an exit status. quit stops the script after
// the current statement.
func (l *Loop) Execute(ctx context.Context, src string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.stop = cancel
	l.mu.Unlock()

	tree, diags := parser.Parse(src, l.registry.BuiltinNames())
	if len(diags) > 0 {
		l.showSyntaxErrors(src, diags)
		return fmt.Errorf("%w: %v", ErrCompile, diags)
	}
	prog, semantic := compiler.New(l.registry).Compile(tree)
	if len(semantic) > 0 {
		l.showDiagnostics(src, semantic)
		return fmt.Errorf("%w: %v", ErrCompile, semantic)
	}
	_, err := l.run(ctx, prog)
	return err
}

func (l *Loop) run(ctx context.Context, prog *compiler.Program) (any, error) {
	result, err := prog.Run(ctx)
	if err != nil {
		if l.Exited() && errors.Is(err, context.Canceled) {
			return nil, nil
		}
		logger.Printf("run failed: %v", err)
		l.console.Error(err)
		return nil, err
	}

	l.render(result)
	return result, nil
}

func (l *Loop) record(src string) {
	if l.history == nil {
		return
	}
	if _, err := l.history.AddCmd(src); err != nil {
		logger.Printf("recording history: %v", err)
	}
}

func (l *Loop) showSyntaxErrors(src string, diags diag.List) {
	l.console.Session(func(s *output.Session) {
		defer s.Foreground(color.FgRed)()
		s.Println("Compiler Error Please check your command and try again")
		for _, d := range diags {
			s.Println(d.Show(src, "  "))
		}
	})
}

func (l *Loop) showDiagnostics(src string, diags diag.List) {
	l.console.Session(func(s *output.Session) {
		defer s.Foreground(color.FgRed)()
		for _, d := range diags {
			s.Println(d.Show(src, ""))
		}
	})
}

func (l *Loop) render(v any) {
	switch v {
	case value.NoOutput, value.NoInput:
		return
	case value.MissingMember:
		l.console.Colorf(color.FgYellow, "Command Not Found\n")
		return
	}

	text := output.Format(v)
	if output.IsSingleLine(text) {
		l.console.Printf(" => %s\n", text)
		return
	}
	l.console.Printf("%s\n", text)
}

// Interrupt handles an interrupt key press. input is whatever was typed on
// the current line. The most recent cancellation action wins over pending
// input, and an exit needs two interrupts in a row with nothing pending.
func (l *Loop) Interrupt(input string) InterruptResult {
	if l.cancels != nil && l.cancels.Interrupt() {
		l.mu.Lock()
		l.armed = false
		l.mu.Unlock()
		return Cancelled
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buffer != "" || strings.TrimSpace(input) != "" {
		l.buffer = ""
		l.armed = false
		return Cleared
	}
	if l.armed {
		return Exit
	}
	l.armed = true
	return Armed
}

func (l *Loop) handleInterrupt(input string) {
	switch l.Interrupt(input) {
	case Armed:
		l.console.Colorf(color.FgYellow, "%s\n", exitHint)
	case Exit:
		l.Exit()
	}
}

type readResult struct {
	line string
	err  error
}

// Run reads and evaluates lines until EOF, an exit, or ctx is done.
// Interrupts are taken from the reader and from SIGINT.
func (l *Loop) Run(ctx context.Context) error {
	if l.reader == nil {
		return errors.New("repl: no line reader")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.stop = cancel
	l.mu.Unlock()

	l.console.SetReprompt(func(w io.Writer) {
		if l.waiting.Load() {
			l.reader.Reprompt(w, l.Prompt())
		}
	})
	defer l.console.SetReprompt(nil)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case <-sigs:
				l.handleInterrupt("")
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make(chan readResult)
	for !l.Exited() {
		l.reader.SetPrompt(l.Prompt())
		l.waiting.Store(true)
		go func() {
			line, err := l.reader.ReadLine()
			select {
			case results <- readResult{line, err}:
			case <-ctx.Done():
			}
		}()

		var r readResult
		select {
		case <-ctx.Done():
			l.waiting.Store(false)
			return nil
		case r = <-results:
		}
		l.waiting.Store(false)

		switch {
		case errors.Is(r.err, ErrInterrupt):
			l.handleInterrupt(r.line)
		case errors.Is(r.err, io.EOF):
			return nil
		case r.err != nil:
			return r.err
		default:
			l.Feed(ctx, r.line)
		}
	}
	return nil
}
