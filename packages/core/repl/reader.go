package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
)

// ErrInterrupt is returned by ReadLine when the user presses Ctrl+C. The
// returned line holds what had been typed.
var ErrInterrupt = errors.New("interrupt")

// historyPreload is how many stored command lines a line editor starts with.
const historyPreload = 500

// LineReader reads one line of input at a time.
type LineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
	// Reprompt redraws the prompt on w after asynchronous output.
	Reprompt(w io.Writer, prompt string)
	Close() error
}

// NewReader returns a line editor when stdin and stdout are terminals and
// a plain reader otherwise. Output from the console is routed through the
// line editor so that it never corrupts the line being typed.
func NewReader(reg *registry.Registry, console *output.Console, history store.History) (LineReader, error) {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return NewPlainReader(os.Stdin, console), nil
	}
	r, err := NewReadlineReader(reg, history)
	if err != nil {
		return nil, err
	}
	console.SetWriter(r.Stdout())
	return r, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PlainReader reads lines from a non-interactive stream and writes prompts
// through the console.
type PlainReader struct {
	in      *bufio.Reader
	console *output.Console
	prompt  string
}

func NewPlainReader(in io.Reader, console *output.Console) *PlainReader {
	return &PlainReader{in: bufio.NewReader(in), console: console, prompt: Prompt}
}

func (r *PlainReader) ReadLine() (string, error) {
	r.console.Printf("%s", r.prompt)
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *PlainReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

func (r *PlainReader) Reprompt(w io.Writer, prompt string) {
	fmt.Fprint(w, prompt)
}

func (r *PlainReader) Close() error {
	return nil
}

// ReadlineReader is a line editor with history and completion of function
// names.
type ReadlineReader struct {
	rl *readline.Instance
}

func NewReadlineReader(reg *registry.Registry, history store.History) (*ReadlineReader, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItemDynamic(func(string) []string {
			return reg.Keywords()
		}),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 Prompt,
		AutoComplete:           completer,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		DisableAutoSaveHistory: true,
		HistoryLimit:           historyPreload,
	})
	if err != nil {
		return nil, fmt.Errorf("starting line editor: %w", err)
	}

	if history != nil {
		cmds, err := history.LastCmds(historyPreload)
		if err != nil {
			logger.Printf("loading history: %v", err)
		}
		for _, c := range cmds {
			_ = rl.SaveHistory(c.Text)
		}
	}

	return &ReadlineReader{rl: rl}, nil
}

// Stdout returns a writer that redraws the prompt and the line being
// edited after each write.
func (r *ReadlineReader) Stdout() io.Writer {
	return r.rl.Stdout()
}

func (r *ReadlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return line, ErrInterrupt
	case err != nil:
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		_ = r.rl.SaveHistory(line)
	}
	return line, nil
}

func (r *ReadlineReader) SetPrompt(prompt string) {
	r.rl.SetPrompt(prompt)
}

// Reprompt is a no-op: writes through Stdout already redraw the prompt.
func (r *ReadlineReader) Reprompt(io.Writer, string) {}

func (r *ReadlineReader) Close() error {
	return r.rl.Close()
}
