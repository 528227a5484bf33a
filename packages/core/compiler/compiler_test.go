package compiler

import (
	"context"
	"testing"

	"github.com/abdul-hamid-achik/hitshell/packages/core/binder"
	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func newTestRegistry(t *testing.T, rec *recorder) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.SetBuiltin(registry.MustCallable("echo", func(v any) any { return v }, registry.Params("value")))
	reg.SetBuiltin(registry.MustCallable("mark", func(name string) { rec.calls = append(rec.calls, name) },
		registry.Params("name")))

	require.NoError(t, reg.Register("known", registry.NewNamespace(
		registry.MustCallable("get", func(path string, params ...any) string {
			rec.calls = append(rec.calls, "get "+path)
			return path
		}, registry.Params("path", "params")),
	)))
	return reg
}

func TestCompile_EchoIdentity(t *testing.T) {
	reg := newTestRegistry(t, &recorder{})

	prog, diags := CompileSource(reg, `echo "hi"`)
	require.Empty(t, diags)

	out, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestCompile_ExtraArgumentsIgnoredByCall(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)

	tests := []struct {
		src   string
		want  any
		calls []string
	}{
		{src: `echo "a" "b"`, want: "a"},
		{src: `echo 1 2 3`, want: float64(1)},
		{src: `mark first second`, want: value.NoOutput, calls: []string{"first"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			rec.calls = nil
			prog, diags := CompileSource(reg, tt.src)
			require.Empty(t, diags)

			out, err := prog.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.calls, rec.calls)
		})
	}
}

func TestCompile_ReturnsLastValue(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)

	prog, diags := CompileSource(reg, "mark first\nknown.get /a\necho 3")
	require.Empty(t, diags)
	require.Len(t, prog.Statements, 3)

	out, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(3), out)
	assert.Equal(t, []string{"first", "get /a"}, rec.calls)
}

func TestCompile_UnknownFunctionsLeaveRestRunnable(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)

	prog, diags := CompileSource(reg, "foo.bar\nmark one\nknown.bar\nmark two")
	require.Len(t, diags, 2)
	assert.Equal(t, diag.CodeUnknownProvider, diags[0].Code)
	assert.Equal(t, "call to unknown function provider 'foo'", diags[0].Message)
	assert.Equal(t, diag.CodeUnknownProviderFunction, diags[1].Code)
	assert.Equal(t, "call to unknown function 'bar' on provider 'known'", diags[1].Message)
	assert.Equal(t, 3, diags[1].Span.From.Line)

	require.Len(t, prog.Statements, 2)
	_, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, rec.calls)
}

func TestCompile_UnknownBuiltinAfterRemoval(t *testing.T) {
	reg := newTestRegistry(t, &recorder{})
	tree := mustParseWith(t, reg, "echo 1")
	reg.RemoveBuiltin("echo")

	_, diags := New(reg).Compile(tree)
	require.Len(t, diags, 2)
	assert.Equal(t, diag.CodeUnknownBuiltin, diags[0].Code)
	assert.Equal(t, diag.CodeNoCode, diags[1].Code)
}

func TestCompile_NoCodeCompiled(t *testing.T) {
	reg := newTestRegistry(t, &recorder{})

	prog, diags := CompileSource(reg, "nope.one\nnope.two")
	require.Len(t, diags, 3)
	assert.Equal(t, diag.CodeNoCode, diags[2].Code)
	assert.Contains(t, diags[2].Message, "no code compiled")

	out, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, value.NoOutput, out)
}

func TestCompile_TypeMismatchDropsStatement(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)

	prog, diags := CompileSource(reg, "mark 42\nmark ok")
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeTypeMismatch, diags[0].Code)
	assert.Equal(t, 6, diags[0].Span.From.Column)

	_, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, rec.calls)
}

func TestCompile_SyntaxErrorsSkipCompilation(t *testing.T) {
	reg := newTestRegistry(t, &recorder{})

	prog, diags := CompileSource(reg, "known get")
	assert.Nil(t, prog)
	assert.True(t, diags.HasSyntax())
}

func TestCompile_KeyValueArguments(t *testing.T) {
	reg := registry.New()
	var got []any
	require.NoError(t, reg.Register("http", registry.NewNamespace(
		registry.MustCallable("get", func(path string, params ...any) { got = params },
			registry.Params("path", "params")),
	)))

	prog, diags := CompileSource(reg, `http.get /x page=2 q="a b"`)
	require.Empty(t, diags)
	_, isInvocation := prog.Statements[0].Expr.(*binder.Invocation)
	require.True(t, isInvocation)

	out, err := prog.Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, value.NoOutput, out)
	assert.Equal(t, []any{
		value.KeyValue{Key: "page", Value: float64(2)},
		value.KeyValue{Key: "q", Value: "a b"},
	}, got)
}

func TestCompile_ArgumentCountFaultAtRunTime(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)

	prog, diags := CompileSource(reg, "mark a\nmark")
	require.Empty(t, diags)

	_, err := prog.Run(context.Background())
	var countErr *binder.ArgumentCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, []string{"a"}, rec.calls)
}

func TestProgram_RunStopsOnCancelledContext(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)
	prog, _ := CompileSource(reg, "mark a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := prog.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}
