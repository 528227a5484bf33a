package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnostic_Show(t *testing.T) {
	source := "echo 1\nfoo.bar 2\n"
	d := &Diagnostic{
		Code:    CodeUnknownProvider,
		Message: "call to unknown function provider 'foo'",
		Span: Span{
			From: Pos{Offset: 7, Line: 2, Column: 1},
			To:   Pos{Offset: 10, Line: 2, Column: 4},
		},
	}

	assert.Equal(t, "2:1: call to unknown function provider 'foo'\n  foo.bar 2\n  ^^^", d.Show(source, ""))
	assert.Equal(t, "2:1: call to unknown function provider 'foo'", d.Error())
	assert.True(t, d.Semantic())
}

func TestDiagnostic_ShowAtEndOfInput(t *testing.T) {
	source := "http."
	d := &Diagnostic{
		Code:    CodeSyntax,
		Message: "expected function name",
		Span:    Span{From: Pos{Offset: 5, Line: 1, Column: 6}, To: Pos{Offset: 5, Line: 1, Column: 6}},
		Partial: true,
	}

	assert.Equal(t, "1:6: expected function name\n  http.\n       ^", d.Show(source, ""))
}

func TestList_Incomplete(t *testing.T) {
	partial := &Diagnostic{Code: CodeSyntax, Partial: true}
	hard := &Diagnostic{Code: CodeSyntax}
	semantic := &Diagnostic{Code: CodeUnknownBuiltin}

	assert.False(t, List{}.Incomplete())
	assert.True(t, List{partial}.Incomplete())
	assert.False(t, List{partial, hard}.Incomplete())
	assert.True(t, List{hard}.HasSyntax())
	assert.False(t, List{semantic}.HasSyntax())
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "unknown provider", CodeUnknownProvider.String())
	assert.Equal(t, "code(42)", Code(42).String())
}
