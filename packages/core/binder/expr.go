// Package binder binds argument expressions to native function signatures and
// evaluates the resulting invocations.
package binder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Expr is a compiled expression. Type is the static type used for binding; a
// nil Type denotes the untyped nil constant.
type Expr interface {
	Type() reflect.Type
	Eval(ctx context.Context) (any, error)
}

// Constant is an expression with a fixed value.
type Constant struct {
	val any
	typ reflect.Type
}

// NewConstant returns a constant whose static type is the dynamic type of v.
func NewConstant(v any) *Constant {
	return &Constant{val: v, typ: reflect.TypeOf(v)}
}

// NewTypedConstant returns a constant with an explicit static type. It is
// used for defaults, whose value may be nil for a nilable parameter type.
func NewTypedConstant(v any, t reflect.Type) *Constant {
	return &Constant{val: v, typ: t}
}

func (c *Constant) Type() reflect.Type               { return c.typ }
func (c *Constant) Eval(context.Context) (any, error) { return c.val, nil }
func (c *Constant) Value() any                        { return c.val }

// Convert widens the result of an expression to a parameter type.
type Convert struct {
	Inner Expr
	To    reflect.Type
}

func (c *Convert) Type() reflect.Type { return c.To }

func (c *Convert) Eval(ctx context.Context) (any, error) {
	v, err := c.Inner.Eval(ctx)
	if err != nil {
		return nil, err
	}
	rv, err := toValue(v, c.To)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

// Pack collects a variadic suffix into one slice argument.
type Pack struct {
	Elems []Expr
	Slice reflect.Type
}

func (p *Pack) Type() reflect.Type { return p.Slice }

func (p *Pack) Eval(ctx context.Context) (any, error) {
	out := reflect.MakeSlice(p.Slice, 0, len(p.Elems))
	for _, e := range p.Elems {
		v, err := e.Eval(ctx)
		if err != nil {
			return nil, err
		}
		rv, err := toValue(v, p.Slice.Elem())
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, rv)
	}
	return out.Interface(), nil
}

// KeyValuePair constructs a value.KeyValue from a key and a value expression.
type KeyValuePair struct {
	Key   string
	Value Expr
}

var keyValueType = reflect.TypeOf(value.KeyValue{})

func (kv *KeyValuePair) Type() reflect.Type { return keyValueType }

func (kv *KeyValuePair) Eval(ctx context.Context) (any, error) {
	v, err := kv.Value.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return value.KeyValue{Key: kv.Key, Value: v}, nil
}

// Invocation is a bound call. Evaluating it evaluates the bound arguments
// left to right, then the overflow arguments kept for their side effects,
// then raises the missing-argument fault if one was deferred, and finally
// calls the function.
type Invocation struct {
	callable *registry.Callable
	params   []registry.Param
	args     []Expr
	effects  []Expr
	fault    error
}

func (inv *Invocation) Type() reflect.Type          { return anyType }
func (inv *Invocation) Callable() *registry.Callable { return inv.callable }

// Args returns the bound argument expressions, one per declared parameter.
func (inv *Invocation) Args() []Expr { return inv.args }

// Effects returns the overflow expressions evaluated only for side effects.
func (inv *Invocation) Effects() []Expr { return inv.effects }

// Fault returns the missing-argument fault raised on evaluation, if any.
func (inv *Invocation) Fault() error { return inv.fault }

func (inv *Invocation) Eval(ctx context.Context) (any, error) {
	vals := make([]reflect.Value, len(inv.args))
	for i, a := range inv.args {
		v, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		rv, err := toValue(v, inv.params[i].Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inv.callable.Name(), err)
		}
		vals[i] = rv
	}

	for _, e := range inv.effects {
		if _, err := e.Eval(ctx); err != nil {
			return nil, err
		}
	}

	if inv.fault != nil {
		return nil, inv.fault
	}

	return inv.callable.Call(vals)
}

func toValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}
