// Package compiler turns parse trees into executable programs, resolving
// functions against a registry and binding their arguments.
package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitshell/packages/core/binder"
	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
	"github.com/abdul-hamid-achik/hitshell/packages/core/parser"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

// Statement is one compiled call together with the parse node it came from.
type Statement struct {
	Node *parser.Statement
	Expr binder.Expr
}

// Program is an ordered sequence of compiled statements.
type Program struct {
	Statements []Statement
}

// Run evaluates each statement in order and returns the value of the last
// one. An empty program returns value.NoOutput.
func (p *Program) Run(ctx context.Context) (any, error) {
	var result any = value.NoOutput
	for _, stmt := range p.Statements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := stmt.Expr.Eval(ctx)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

type Compiler struct {
	registry *registry.Registry
}

func New(reg *registry.Registry) *Compiler {
	return &Compiler{registry: reg}
}

// Compile compiles every statement it can. Statements calling unknown
// functions or binding mistyped arguments are reported as diagnostics and
// left out; the rest of the program still compiles.
func (c *Compiler) Compile(tree *parser.Program) (*Program, diag.List) {
	var diags diag.List
	prog := &Program{}

	for _, node := range tree.Statements {
		expr, d := c.compileStatement(node)
		if d != nil {
			diags = append(diags, d)
			continue
		}
		prog.Statements = append(prog.Statements, Statement{Node: node, Expr: expr})
	}

	if len(tree.Statements) > 0 && len(prog.Statements) == 0 {
		first := tree.Statements[0].Span.From
		diags = append(diags, &diag.Diagnostic{
			Code:    diag.CodeNoCode,
			Message: "no code compiled in run, review other errors for more information",
			Span:    diag.Span{From: first, To: first},
		})
	}

	return prog, diags
}

func (c *Compiler) compileStatement(node *parser.Statement) (binder.Expr, *diag.Diagnostic) {
	callable, d := c.resolve(node.Function)
	if d != nil {
		return nil, d
	}

	args := c.compileParams(node.Params)
	inv, err := binder.Bind(callable, args)
	if err != nil {
		span := node.Function.Span
		var mismatch *binder.TypeMismatchError
		if errors.As(err, &mismatch) && mismatch.Position < len(node.Params) {
			span = node.Params[mismatch.Position].Span
		}
		return nil, &diag.Diagnostic{Code: diag.CodeTypeMismatch, Message: err.Error(), Span: span}
	}
	return inv, nil
}

func (c *Compiler) resolve(fn *parser.Function) (*registry.Callable, *diag.Diagnostic) {
	if fn.Builtin {
		if callable, ok := c.registry.Builtin(fn.Name); ok {
			return callable, nil
		}
		return nil, &diag.Diagnostic{
			Code:    diag.CodeUnknownBuiltin,
			Message: fmt.Sprintf("call to unknown function '%s'", fn.Name),
			Span:    fn.Span,
		}
	}

	ns, ok := c.registry.Provider(fn.Provider)
	if !ok {
		return nil, &diag.Diagnostic{
			Code:    diag.CodeUnknownProvider,
			Message: fmt.Sprintf("call to unknown function provider '%s'", fn.Provider),
			Span:    fn.Span,
		}
	}
	callable, ok := ns.Func(fn.Name)
	if !ok {
		return nil, &diag.Diagnostic{
			Code:    diag.CodeUnknownProviderFunction,
			Message: fmt.Sprintf("call to unknown function '%s' on provider '%s'", fn.Name, fn.Provider),
			Span:    fn.Span,
		}
	}
	return callable, nil
}

func (c *Compiler) compileParams(params []*parser.Param) []binder.Expr {
	args := make([]binder.Expr, len(params))
	for i, p := range params {
		args[i] = compileParam(p)
	}
	return args
}

func compileParam(p *parser.Param) binder.Expr {
	if p.Kind == parser.ParamKeyValue {
		return &binder.KeyValuePair{Key: p.Key, Value: compileParam(p.Inner)}
	}
	return binder.NewConstant(p.Value)
}

// CompileSource parses and compiles src against reg's current built-ins.
// Compilation is skipped when parsing reports syntax errors.
func CompileSource(reg *registry.Registry, src string) (*Program, diag.List) {
	tree, diags := parser.Parse(src, reg.BuiltinNames())
	if diags.HasSyntax() {
		return nil, diags
	}
	return New(reg).Compile(tree)
}
