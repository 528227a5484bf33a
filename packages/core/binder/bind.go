package binder

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
)

// TypeMismatchError is returned at bind time when an argument cannot be
// converted to its parameter's declared type.
type TypeMismatchError struct {
	Func     string
	Param    string
	Position int
	Got      reflect.Type
	Want     reflect.Type
}

func (e *TypeMismatchError) Error() string {
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	return fmt.Sprintf("%s: cannot use argument %d of type %s as parameter '%s' of type %s",
		e.Func, e.Position+1, got, e.Param, e.Want)
}

// ArgumentCountError is raised when an invocation missing required
// arguments is evaluated.
type ArgumentCountError struct {
	Func string
	Got  int
	Want int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("%s: not enough arguments provided to call the function (got %d, want %d)", e.Func, e.Got, e.Want)
}

type callInfo struct {
	argCount int
}

// Strategy binds calls made with a fixed number of arguments. Strategies are
// memoized per argument count and safe for concurrent use.
type Strategy struct {
	info callInfo
}

var (
	strategiesMu sync.Mutex
	strategies   = map[callInfo]*Strategy{}
)

// For returns the shared strategy for calls with argCount arguments.
func For(argCount int) *Strategy {
	key := callInfo{argCount: argCount}

	strategiesMu.Lock()
	defer strategiesMu.Unlock()

	if s, ok := strategies[key]; ok {
		return s
	}
	s := &Strategy{info: key}
	strategies[key] = s
	return s
}

// ArgCount returns the number of arguments the strategy binds.
func (s *Strategy) ArgCount() int {
	return s.info.argCount
}

// Bind binds args to c's parameters using the strategy for len(args).
func Bind(c *registry.Callable, args []Expr) (*Invocation, error) {
	return For(len(args)).Bind(c, args)
}

// Bind produces an invocation of c with args.
//
// Missing trailing arguments take their parameter's default. A variadic tail
// packs every suffix argument assignable to its element type. Arguments
// beyond the declared parameters are kept only for their side effects and
// do not take part in the call. Parameters still unfilled receive their
// type's zero value. Argument types are checked here; missing arguments are
// reported when the invocation is evaluated.
func (s *Strategy) Bind(c *registry.Callable, args []Expr) (*Invocation, error) {
	if len(args) != s.info.argCount {
		return nil, fmt.Errorf("%s: strategy for %d arguments used with %d", c.Name(), s.info.argCount, len(args))
	}

	params := c.Params()
	n := len(params)
	supplied := len(args)
	bound := make([]Expr, len(args), len(args)+n)
	copy(bound, args)

	for i := len(bound); i < n && params[i].HasDefault; i++ {
		bound = append(bound, NewTypedConstant(params[i].Default, params[i].Type))
	}

	if n > 0 && params[n-1].Variadic && len(bound) > n-1 {
		tail := bound[n-1:]
		sliceType := params[n-1].Type
		passThrough := len(tail) == 1 && tail[0].Type() == sliceType
		if !passThrough && allAssignable(tail, sliceType.Elem()) {
			elems := make([]Expr, len(tail))
			copy(elems, tail)
			bound = append(bound[:n-1], &Pack{Elems: elems, Slice: sliceType})
		}
	}

	var effects []Expr
	if len(bound) > n {
		effects = make([]Expr, len(bound)-n)
		copy(effects, bound[n:])
		bound = bound[:n]
	}

	missing := 0
	for i := len(bound); i < n; i++ {
		p := params[i]
		switch {
		case p.HasDefault:
			bound = append(bound, NewTypedConstant(p.Default, p.Type))
		default:
			bound = append(bound, NewTypedConstant(reflect.Zero(p.Type).Interface(), p.Type))
			if !p.Variadic {
				missing++
			}
		}
	}

	for i, a := range bound {
		want := params[i].Type
		if a.Type() == want {
			continue
		}
		if !assignableType(a.Type(), want) {
			return nil, &TypeMismatchError{
				Func:     c.Name(),
				Param:    params[i].Name,
				Position: i,
				Got:      a.Type(),
				Want:     want,
			}
		}
		bound[i] = &Convert{Inner: a, To: want}
	}

	inv := &Invocation{
		callable: c,
		params:   params,
		args:     bound,
		effects:  effects,
	}
	if missing > 0 {
		inv.fault = &ArgumentCountError{Func: c.Name(), Got: supplied, Want: n}
	}
	return inv, nil
}

func allAssignable(exprs []Expr, t reflect.Type) bool {
	for _, e := range exprs {
		if !assignableType(e.Type(), t) {
			return false
		}
	}
	return true
}

func assignableType(from, to reflect.Type) bool {
	if from == nil {
		switch to.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return from.AssignableTo(to)
}
