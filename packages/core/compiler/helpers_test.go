package compiler

import (
	"testing"

	"github.com/abdul-hamid-achik/hitshell/packages/core/parser"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/stretchr/testify/require"
)

func mustParseWith(t *testing.T, reg *registry.Registry, src string) *parser.Program {
	t.Helper()
	tree, diags := parser.Parse(src, reg.BuiltinNames())
	require.Empty(t, diags)
	return tree
}
