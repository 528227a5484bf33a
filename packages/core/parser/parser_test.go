package parser

import (
	"testing"

	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBuiltins = []string{"echo", "quit", "help"}

var ignoreSpans = cmpopts.IgnoreFields(Statement{}, "Span")

func ignoreAll() cmp.Options {
	return cmp.Options{
		ignoreSpans,
		cmpopts.IgnoreFields(Function{}, "Span"),
		cmpopts.IgnoreFields(Param{}, "Span", "Raw"),
	}
}

func mustParse(t *testing.T, input string) *Program {
	t.Helper()
	prog, diags := Parse(input, testBuiltins)
	require.Empty(t, diags, "unexpected diagnostics: %v", diags)
	return prog
}

func TestParser_BuiltinCall(t *testing.T) {
	prog := mustParse(t, `echo "hi"`)

	want := []*Statement{{
		Function: &Function{Builtin: true, Name: "echo"},
		Params:   []*Param{{Kind: ParamString, Value: "hi"}},
	}}
	if diff := cmp.Diff(want, prog.Statements, ignoreAll()); diff != "" {
		t.Errorf("statements (-want +got):\n%s", diff)
	}
}

func TestParser_ProviderCallWithParameters(t *testing.T) {
	prog := mustParse(t, `http.get /users?active=true page=2 q="a b" n=-1.5 tag=x=y name`)

	want := []*Statement{{
		Function: &Function{Provider: "http", Name: "get"},
		Params: []*Param{
			{Kind: ParamBare, Value: "/users?active=true"},
			{Kind: ParamKeyValue, Key: "page", Inner: &Param{Kind: ParamNumber, Value: float64(2)}},
			{Kind: ParamKeyValue, Key: "q", Inner: &Param{Kind: ParamString, Value: "a b"}},
			{Kind: ParamKeyValue, Key: "n", Inner: &Param{Kind: ParamNumber, Value: -1.5}},
			{Kind: ParamKeyValue, Key: "tag", Inner: &Param{Kind: ParamBare, Value: "x=y"}},
			{Kind: ParamBare, Value: "name"},
		},
	}}
	if diff := cmp.Diff(want, prog.Statements, ignoreAll()); diff != "" {
		t.Errorf("statements (-want +got):\n%s", diff)
	}
}

func TestParser_Literals(t *testing.T) {
	tests := []struct {
		input string
		kind  ParamKind
		want  any
	}{
		{`echo 42`, ParamNumber, float64(42)},
		{`echo .5`, ParamNumber, 0.5},
		{`echo 5.`, ParamNumber, float64(5)},
		{`echo +3`, ParamNumber, float64(3)},
		{`echo 1.2.3`, ParamBare, "1.2.3"},
		{`echo -`, ParamBare, "-"},
		{`echo 'single'`, ParamString, "single"},
		{`echo "say \"hi\""`, ParamString, `say "hi"`},
		{`echo 'it''s'`, ParamString, "it's"},
		{`echo "a""b"`, ParamString, `a"b`},
		{`echo ""`, ParamString, ""},
		{`echo "tab\there"`, ParamString, "tab\there"},
		{`echo "back\\slash"`, ParamString, `back\slash`},
		{`echo "two` + "\n" + `lines"`, ParamString, "two\nlines"},
		{`echo http://example.com/a#frag`, ParamBare, "http://example.com/a#frag"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog := mustParse(t, tt.input)
			require.Len(t, prog.Statements, 1)
			require.Len(t, prog.Statements[0].Params, 1)
			p := prog.Statements[0].Params[0]
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.want, p.Value)
		})
	}
}

func TestParser_MultipleStatements(t *testing.T) {
	input := "\n# set up\nservers.add local http://localhost\n\n\nhttp.get /status\n"
	prog := mustParse(t, input)

	require.Len(t, prog.Statements, 2)
	assert.Equal(t, "servers.add", prog.Statements[0].Function.FullName())
	assert.Equal(t, "http.get", prog.Statements[1].Function.FullName())
	assert.Equal(t, 3, prog.Statements[0].Span.From.Line)
	assert.Equal(t, 6, prog.Statements[1].Span.From.Line)
}

func TestParser_BuiltinsAreSnapshot(t *testing.T) {
	_, diags := Parse("greet 1", testBuiltins)
	require.Len(t, diags, 1)
	assert.False(t, diags[0].Partial)

	prog, diags := Parse("greet 1", append(testBuiltins, "greet"))
	require.Empty(t, diags)
	assert.True(t, prog.Statements[0].Function.Builtin)
}

func TestParser_BuiltinNameWithProvider(t *testing.T) {
	prog := mustParse(t, "echo.run")
	fn := prog.Statements[0].Function
	assert.False(t, fn.Builtin)
	assert.Equal(t, "echo", fn.Provider)
	assert.Equal(t, "run", fn.Name)
}

func TestParser_IncompleteInput(t *testing.T) {
	inputs := []string{
		"http",
		"http.",
		"http.  ",
		`echo "abc`,
		"echo 'multi\nline",
		"http.get /x q=",
		"echo \"trailing\\",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, diags := Parse(input, testBuiltins)
			require.NotEmpty(t, diags)
			assert.True(t, diags.Incomplete(), "expected partial diagnostics, got %v", diags)
		})
	}
}

func TestParser_SyntaxErrors(t *testing.T) {
	inputs := []string{
		"http get",
		"123",
		`"quoted"`,
		"http./x",
		"1http.get",
		"a.b.c",
		"http. x",
		`echo "a"b`,
		"http.get /x q= 1",
		"x=1",
		"http\n.get /x",
		"http.\nget /x",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, diags := Parse(input, testBuiltins)
			require.NotEmpty(t, diags)
			assert.False(t, diags.Incomplete(), "expected hard errors, got %v", diags)
			assert.True(t, diags.HasSyntax())
		})
	}
}

func TestParser_ErrorRecoveryContinues(t *testing.T) {
	prog, diags := Parse("bogus thing\necho 1\n", testBuiltins)

	require.Len(t, diags, 1)
	assert.Equal(t, 1, diags[0].Span.From.Line)
	require.Len(t, prog.Statements, 1)
	assert.Equal(t, "echo", prog.Statements[0].Function.Name)
}

func TestParser_DiagnosticPosition(t *testing.T) {
	_, diags := Parse("echo 1\n  http get", testBuiltins)

	require.Len(t, diags, 1)
	assert.Equal(t, diag.Pos{Offset: 9, Line: 2, Column: 3}, diags[0].Span.From)
}

func TestLexer_Tokens(t *testing.T) {
	l := NewLexer(`a.b k="v" 1`)

	var types []TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == TokenEOF {
			break
		}
	}

	assert.Equal(t, []TokenType{TokenBare, TokenIdentifier, TokenEquals, TokenString, TokenNumber, TokenEOF}, types)
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("X-Api-Key"))
	assert.True(t, IsIdentifier("_private"))
	assert.False(t, IsIdentifier("-flag"))
	assert.False(t, IsIdentifier("9lives"))
	assert.False(t, IsIdentifier(""))
}
