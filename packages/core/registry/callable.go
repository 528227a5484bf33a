package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Param describes one declared parameter of a Callable.
type Param struct {
	Name       string
	Type       reflect.Type
	HasDefault bool
	Default    any
	// Variadic marks the trailing parameter of a variadic function. Its Type
	// is the slice type.
	Variadic bool
}

// Optional reports whether a call may omit the parameter.
func (p Param) Optional() bool {
	return p.HasDefault || p.Variadic
}

// Callable is a native Go function exposed to the command language. Its
// parameter list is fixed when it is constructed.
type Callable struct {
	name        string
	description string
	fn          reflect.Value
	params      []Param
	returnsErr  bool
	hasValue    bool
}

// Option configures a Callable at construction time.
type Option func(*callableConfig)

type callableConfig struct {
	names       []string
	defaults    map[string]any
	description string
}

// Params names the function's parameters in declaration order. Unnamed
// parameters are called arg0, arg1 and so on.
func Params(names ...string) Option {
	return func(c *callableConfig) {
		c.names = names
	}
}

// Default declares a default value for the named parameter.
func Default(name string, v any) Option {
	return func(c *callableConfig) {
		c.defaults[name] = v
	}
}

// Describe attaches a one-line description shown by help.
func Describe(s string) Option {
	return func(c *callableConfig) {
		c.description = s
	}
}

// NewCallable wraps fn, which must be a func returning nothing, a value, an
// error, or a value and an error.
func NewCallable(name string, fn any, opts ...Option) (*Callable, error) {
	cfg := &callableConfig{defaults: make(map[string]any)}
	for _, opt := range opts {
		opt(cfg)
	}

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s: expected a function, got %T", name, fn)
	}
	ft := fv.Type()

	c := &Callable{
		name:        name,
		description: cfg.description,
		fn:          fv,
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			c.returnsErr = true
		} else {
			c.hasValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%s: second return value must be error", name)
		}
		c.hasValue = true
		c.returnsErr = true
	default:
		return nil, fmt.Errorf("%s: too many return values", name)
	}

	if len(cfg.names) > ft.NumIn() {
		return nil, fmt.Errorf("%s: %d parameter names for %d parameters", name, len(cfg.names), ft.NumIn())
	}

	c.params = make([]Param, ft.NumIn())
	for i := range c.params {
		p := Param{Type: ft.In(i)}
		if i < len(cfg.names) {
			p.Name = cfg.names[i]
		} else {
			p.Name = fmt.Sprintf("arg%d", i)
		}
		p.Variadic = ft.IsVariadic() && i == ft.NumIn()-1
		if def, ok := cfg.defaults[p.Name]; ok {
			if !assignable(def, p.Type) {
				return nil, fmt.Errorf("%s: default for %s has type %T, want %s", name, p.Name, def, p.Type)
			}
			p.HasDefault = true
			p.Default = def
			delete(cfg.defaults, p.Name)
		}
		c.params[i] = p
	}
	for unknown := range cfg.defaults {
		return nil, fmt.Errorf("%s: default for unknown parameter %s", name, unknown)
	}

	return c, nil
}

// MustCallable is like NewCallable but panics on error. It is meant for
// registrations performed at startup.
func MustCallable(name string, fn any, opts ...Option) *Callable {
	c, err := NewCallable(name, fn, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func assignable(v any, t reflect.Type) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

func (c *Callable) Name() string        { return c.name }
func (c *Callable) Description() string { return c.description }

// Params returns a copy of the declared parameter list.
func (c *Callable) Params() []Param {
	out := make([]Param, len(c.params))
	copy(out, c.params)
	return out
}

// Alias returns a copy of c registered under another name.
func (c *Callable) Alias(name string) *Callable {
	alias := *c
	alias.name = name
	alias.params = c.Params()
	return &alias
}

// Variadic reports whether the last parameter is a variadic tail.
func (c *Callable) Variadic() bool {
	return len(c.params) > 0 && c.params[len(c.params)-1].Variadic
}

// Signature renders the call shape, marking optional parameters with
// brackets and variadic tails with a trailing [].
func (c *Callable) Signature() string {
	parts := make([]string, len(c.params))
	for i, p := range c.params {
		switch {
		case p.Variadic:
			parts[i] = p.Name + "[]"
		case p.HasDefault:
			parts[i] = "[" + p.Name + "]"
		default:
			parts[i] = p.Name
		}
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

// FaultError is returned when a native function panics.
type FaultError struct {
	Func  string
	Value any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %v", e.Func, e.Value)
}

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Call invokes the function with fully bound arguments. For a variadic
// function the last argument must already be the slice.
//
// A function without a value result yields value.NoOutput. A non-nil
// trailing error is returned wrapped with the function name.
func (c *Callable) Call(args []reflect.Value) (result any, err error) {
	if len(args) != len(c.params) {
		return nil, fmt.Errorf("%s: called with %d arguments, want %d", c.name, len(args), len(c.params))
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &FaultError{Func: c.name, Value: r}
		}
	}()

	var out []reflect.Value
	if c.Variadic() {
		out = c.fn.CallSlice(args)
	} else {
		out = c.fn.Call(args)
	}

	if c.returnsErr {
		if e, _ := out[len(out)-1].Interface().(error); e != nil {
			return nil, fmt.Errorf("%s: %w", c.name, e)
		}
	}
	if !c.hasValue {
		return value.NoOutput, nil
	}
	return out[0].Interface(), nil
}

// ErrDuplicateProvider is returned when a provider name is registered twice.
var ErrDuplicateProvider = errors.New("provider already registered")
