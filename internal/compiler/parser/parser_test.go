package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/piped/internal/ast"
	"github.com/titpetric/piped/internal/compiler/parser"
)

func TestParseHelloScenario(t *testing.T) {
	prog, err := parser.Parse(`@print "hello", "world";`)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	print, ok := prog[0].(ast.Print)
	require.True(t, ok)
	require.Len(t, print.Exprs, 2)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralString, Str: "hello"}, print.Exprs[0])
	assert.Equal(t, ast.Literal{Kind: ast.LiteralString, Str: "world"}, print.Exprs[1])
}

func TestParseSetAndVariable(t *testing.T) {
	prog, err := parser.Parse(`@set x = 42; @print x;`)
	require.NoError(t, err)
	require.Len(t, prog, 2)

	set, ok := prog[0].(ast.Set)
	require.True(t, ok)
	assert.Equal(t, "x", set.Name)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralInteger, Int: 42}, set.Expr)

	print := prog[1].(ast.Print)
	assert.Equal(t, ast.Variable{Name: "x"}, print.Exprs[0])
}

func TestParseIfElse(t *testing.T) {
	prog, err := parser.Parse(`
		@if true {
			@print "yes";
		} else {
			@print "no";
		}
	`)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	ifStmt, ok := prog[0].(ast.If)
	require.True(t, ok)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralBool, Bool: true}, ifStmt.Criterion)
	require.Len(t, ifStmt.Then, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestParseNonBlockAndAwait(t *testing.T) {
	prog, err := parser.Parse(`
		@nonblock "group" exec cmd="echo" params=["hi"];
		@await "group";
		@awaitAll;
	`)
	require.NoError(t, err)
	require.Len(t, prog, 3)

	nb, ok := prog[0].(ast.NonBlock)
	require.True(t, ok)
	require.NotNil(t, nb.Name)
	assert.Equal(t, "group", *nb.Name)
	assert.Equal(t, "exec", nb.Pipeline.Name)
	require.Len(t, nb.Pipeline.Args, 2)
	assert.Equal(t, "cmd", nb.Pipeline.Args[0].Name)
	assert.Equal(t, "params", nb.Pipeline.Args[1].Name)

	await, ok := prog[1].(ast.Await)
	require.True(t, ok)
	require.NotNil(t, await.Name)
	assert.Equal(t, "group", *await.Name)

	_, ok = prog[2].(ast.AwaitAll)
	assert.True(t, ok)
}

func TestParseImport(t *testing.T) {
	prog, err := parser.Parse(`@import "./lib.pipe" as lib;`)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	imp, ok := prog[0].(ast.Import)
	require.True(t, ok)
	assert.Equal(t, "lib", imp.LocalName)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralString, Str: "./lib.pipe"}, imp.Path)
}

func TestParseResultBindingAndCall(t *testing.T) {
	prog, err := parser.Parse(`
		@result out = exec cmd="ls";
		len(out);
	`)
	require.NoError(t, err)
	require.Len(t, prog, 2)

	pipeline, ok := prog[0].(ast.Pipeline)
	require.True(t, ok)
	require.NotNil(t, pipeline.ResultBinding)
	assert.Equal(t, "out", *pipeline.ResultBinding)
	assert.Equal(t, "exec", pipeline.Name)

	call, ok := prog[1].(ast.Call)
	require.True(t, ok)
	assert.Equal(t, "len", call.Name)
	require.Len(t, call.Args, 1)
	assert.Equal(t, ast.Variable{Name: "out"}, call.Args[0])
}

func TestParseArrayAndDictExpr(t *testing.T) {
	prog, err := parser.Parse(`@set x = [1, 2, {a: "b"}];`)
	require.NoError(t, err)

	set := prog[0].(ast.Set)
	arr, ok := set.Expr.(ast.ArrayExpr)
	require.True(t, ok)
	require.Len(t, arr.Elements, 3)

	dict, ok := arr.Elements[2].(ast.DictExpr)
	require.True(t, ok)
	require.Len(t, dict.Entries, 1)
	assert.Equal(t, "a", dict.Entries[0].Key)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralString, Str: "b"}, dict.Entries[0].Value)
}

func TestParseReturnBareAndWithValue(t *testing.T) {
	prog, err := parser.Parse(`@return;`)
	require.NoError(t, err)
	ret := prog[0].(ast.Return)
	assert.Nil(t, ret.Expr)

	prog, err = parser.Parse(`@return 1;`)
	require.NoError(t, err)
	ret = prog[0].(ast.Return)
	assert.Equal(t, ast.Literal{Kind: ast.LiteralInteger, Int: 1}, ret.Expr)
}

func TestParseUnterminatedIfIsError(t *testing.T) {
	_, err := parser.Parse(`@if true { @print "x"; `)
	assert.Error(t, err)
}
