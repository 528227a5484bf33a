package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Console owns interactive output. All writes go through a single mutex so
// that the prompt and asynchronous request completions never interleave.
type Console struct {
	mu       sync.Mutex
	writer   io.Writer
	noColor  bool
	reprompt func(w io.Writer)
}

type ConsoleOption func(*Console)

func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.writer = w
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = nc
	}
}

// SetWriter replaces the output writer, e.g. with a line editor's stdout.
func (c *Console) SetWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer = w
}

// SetReprompt installs the hook that redraws the prompt after output
// produced outside the read loop.
func (c *Console) SetReprompt(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reprompt = fn
}

// Reprompt redraws the prompt if a hook is installed.
func (c *Console) Reprompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reprompt != nil {
		c.reprompt(c.writer)
	}
}

// Session runs fn with exclusive ownership of the console.
func (c *Console) Session(fn func(s *Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Session{console: c})
}

// Printf writes a formatted message in the default color.
func (c *Console) Printf(format string, args ...any) {
	c.Session(func(s *Session) {
		s.Printf(format, args...)
	})
}

// Colorf writes a formatted message in the given color.
func (c *Console) Colorf(attr color.Attribute, format string, args ...any) {
	c.Session(func(s *Session) {
		defer s.Foreground(attr)()
		s.Printf(format, args...)
	})
}

// Error prints err in red followed by each distinct cause in its chain.
func (c *Console) Error(err error) {
	c.Session(func(s *Session) {
		defer s.Foreground(color.FgRed)()
		s.Printf("%s\n", err)
		prev := err.Error()
		for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
			if msg := cause.Error(); msg != prev {
				s.Printf("  caused by: %s\n", msg)
				prev = msg
			}
		}
	})
}

// Session is exclusive access to the console for the duration of a
// Console.Session callback.
type Session struct {
	console *Console
	colors  []*color.Color
}

// Foreground switches the output color and returns a func restoring the
// previous one, intended for defer.
func (s *Session) Foreground(attrs ...color.Attribute) func() {
	col := color.New(attrs...)
	if s.console.noColor {
		col.DisableColor()
	}
	s.colors = append(s.colors, col)
	depth := len(s.colors)
	return func() {
		if len(s.colors) >= depth {
			s.colors = s.colors[:depth-1]
		}
	}
}

func (s *Session) Printf(format string, args ...any) {
	if n := len(s.colors); n > 0 {
		s.colors[n-1].Fprintf(s.console.writer, format, args...)
		return
	}
	fmt.Fprintf(s.console.writer, format, args...)
}

func (s *Session) Println(args ...any) {
	s.Printf("%s\n", fmt.Sprint(args...))
}

// Writer returns the underlying writer for bulk output.
func (s *Session) Writer() io.Writer {
	return s.console.writer
}
