// Package parser turns a token stream from internal/compiler/lexer into an
// internal/ast.Program: a recursive-descent parser with one token of
// lookahead, kept intentionally separate from the interpreter so the
// runtime core is testable end to end against real script text.
package parser

import (
	"fmt"

	"github.com/titpetric/piped/internal/ast"
	"github.com/titpetric/piped/internal/compiler/lexer"
)

// Parser consumes a one-token lookahead over a Lexer.
type Parser struct {
	lex  *lexer.Lexer
	tok  lexer.Token
	peek *lexer.Token
}

// Parse lexes and parses src into a Program.
func Parse(src string) (ast.Program, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) next() error {
	if p.peek != nil {
		p.tok = *p.peek
		p.peek = nil
		return nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) lookahead() (lexer.Token, error) {
	if p.peek == nil {
		tok, err := p.lex.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		p.peek = &tok
	}
	return *p.peek, nil
}

func (p *Parser) errf(format string, args ...any) error {
	return fmt.Errorf("parser: %s (at %d:%d)", fmt.Sprintf(format, args...), p.tok.Line, p.tok.Column)
}

func (p *Parser) expect(kind lexer.TokenKind, what string) error {
	if p.tok.Kind != kind {
		return p.errf("expected %s", what)
	}
	return p.next()
}

func (p *Parser) parseProgram() (ast.Program, error) {
	var stmts ast.Program
	for p.tok.Kind != lexer.TokenEOF && p.tok.Kind != lexer.TokenRBrace {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	if p.tok.Kind == lexer.TokenAt {
		return p.parseKeywordStatement()
	}
	if p.tok.Kind == lexer.TokenIdent {
		return p.parseIdentStatement()
	}
	return nil, p.errf("expected a statement")
}

func (p *Parser) parseKeywordStatement() (ast.Statement, error) {
	if err := p.next(); err != nil { // consume '@'
		return nil, err
	}
	if p.tok.Kind != lexer.TokenIdent {
		return nil, p.errf("expected a keyword after '@'")
	}
	keyword := p.tok.Text
	if err := p.next(); err != nil {
		return nil, err
	}

	switch keyword {
	case "import":
		return p.parseImport()
	case "set":
		return p.parseSet()
	case "print":
		return p.parsePrintLike(false)
	case "printErr":
		return p.parsePrintLike(true)
	case "return":
		return p.parseReturn()
	case "await":
		return p.parseAwait()
	case "awaitAll":
		if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
		return ast.AwaitAll{}, nil
	case "nonblock":
		return p.parseNonBlock()
	case "if":
		return p.parseIf()
	case "result":
		return p.parseResult()
	default:
		return nil, p.errf("unknown statement keyword '%s'", keyword)
	}
}

func (p *Parser) parseImport() (ast.Statement, error) {
	pathExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.TokenIdent || p.tok.Text != "as" {
		return nil, p.errf("expected 'as' in import statement")
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.TokenIdent {
		return nil, p.errf("expected local name in import statement")
	}
	localName := p.tok.Text
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ast.Import{LocalName: localName, Path: pathExpr}, nil
}

func (p *Parser) parseSet() (ast.Statement, error) {
	if p.tok.Kind != lexer.TokenIdent {
		return nil, p.errf("expected variable name")
	}
	name := p.tok.Text
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenAssign, "'='"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ast.Set{Name: name, Expr: expr}, nil
}

func (p *Parser) parsePrintLike(isErr bool) (ast.Statement, error) {
	var exprs []ast.Expression
	if p.tok.Kind != lexer.TokenSemicolon {
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
			if p.tok.Kind != lexer.TokenComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	if isErr {
		return ast.PrintErr{Exprs: exprs}, nil
	}
	return ast.Print{Exprs: exprs}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	if p.tok.Kind == lexer.TokenSemicolon {
		if err := p.next(); err != nil {
			return nil, err
		}
		return ast.Return{}, nil
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ast.Return{Expr: expr}, nil
}

func (p *Parser) parseAwait() (ast.Statement, error) {
	if p.tok.Kind == lexer.TokenString {
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
		return ast.Await{Name: &name}, nil
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ast.Await{}, nil
}

func (p *Parser) parseNonBlock() (ast.Statement, error) {
	var groupName *string
	if p.tok.Kind == lexer.TokenString {
		name := p.tok.Text
		groupName = &name
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	pipeline, err := p.parsePipelineCall(nil)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ast.NonBlock{Name: groupName, Pipeline: pipeline}, nil
}

func (p *Parser) parseResult() (ast.Statement, error) {
	if p.tok.Kind != lexer.TokenIdent {
		return nil, p.errf("expected a binding name after '@result'")
	}
	binding := p.tok.Text
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenAssign, "'='"); err != nil {
		return nil, err
	}
	pipeline, err := p.parsePipelineCall(&binding)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return pipeline, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	criterion, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenLBrace, "'{'"); err != nil {
		return nil, err
	}
	thenStmts, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenRBrace, "'}'"); err != nil {
		return nil, err
	}

	var elseStmts ast.Program
	if p.tok.Kind == lexer.TokenIdent && p.tok.Text == "else" {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenLBrace, "'{'"); err != nil {
			return nil, err
		}
		elseStmts, err = p.parseProgram()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenRBrace, "'}'"); err != nil {
			return nil, err
		}
	}

	return ast.If{Criterion: criterion, Then: thenStmts, Else: elseStmts}, nil
}

// parseIdentStatement handles the bare-identifier forms: `name(args);` (Call)
// and `name arg=val ...;` (Pipeline, no result binding).
func (p *Parser) parseIdentStatement() (ast.Statement, error) {
	name := p.tok.Text
	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Kind == lexer.TokenLParen {
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
		return ast.Call{Name: name, Args: args}, nil
	}

	pipeline, err := p.parsePipelineArgs(name, nil)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// parsePipelineCall parses `name arg=val ...` without consuming a trailing
// semicolon (the caller owns that, since @nonblock/@result share it with
// their own keyword).
func (p *Parser) parsePipelineCall(resultBinding *string) (ast.Pipeline, error) {
	if p.tok.Kind != lexer.TokenIdent {
		return ast.Pipeline{}, p.errf("expected a pipeline name")
	}
	name := p.tok.Text
	if err := p.next(); err != nil {
		return ast.Pipeline{}, err
	}
	return p.parsePipelineArgs(name, resultBinding)
}

func (p *Parser) parsePipelineArgs(name string, resultBinding *string) (ast.Pipeline, error) {
	var args []ast.Argument
	for p.tok.Kind == lexer.TokenIdent {
		argName := p.tok.Text
		if err := p.next(); err != nil {
			return ast.Pipeline{}, err
		}
		if err := p.expect(lexer.TokenAssign, "'='"); err != nil {
			return ast.Pipeline{}, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return ast.Pipeline{}, err
		}
		args = append(args, ast.Argument{Name: argName, Value: val})
	}
	return ast.Pipeline{ResultBinding: resultBinding, Name: name, Args: args}, nil
}

func (p *Parser) parseCallArgs() ([]ast.Expression, error) {
	if err := p.next(); err != nil { // consume '('
		return nil, err
	}
	var args []ast.Expression
	if p.tok.Kind != lexer.TokenRParen {
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, expr)
			if p.tok.Kind != lexer.TokenComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(lexer.TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	switch p.tok.Kind {
	case lexer.TokenTrue:
		if err := p.next(); err != nil {
			return nil, err
		}
		return ast.Literal{Kind: ast.LiteralBool, Bool: true}, nil
	case lexer.TokenFalse:
		if err := p.next(); err != nil {
			return nil, err
		}
		return ast.Literal{Kind: ast.LiteralBool, Bool: false}, nil
	case lexer.TokenInteger:
		n := p.tok.Int
		if err := p.next(); err != nil {
			return nil, err
		}
		return ast.Literal{Kind: ast.LiteralInteger, Int: n}, nil
	case lexer.TokenString:
		s := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return ast.Literal{Kind: ast.LiteralString, Str: s}, nil
	case lexer.TokenLBracket:
		return p.parseArrayExpr()
	case lexer.TokenLBrace:
		return p.parseDictExpr()
	case lexer.TokenIdent:
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.TokenLParen {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return ast.CallExpr{Name: name, Args: args}, nil
		}
		return ast.Variable{Name: name}, nil
	default:
		return nil, p.errf("expected an expression")
	}
}

func (p *Parser) parseArrayExpr() (ast.Expression, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	var elems []ast.Expression
	if p.tok.Kind != lexer.TokenRBracket {
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, expr)
			if p.tok.Kind != lexer.TokenComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(lexer.TokenRBracket, "']'"); err != nil {
		return nil, err
	}
	return ast.ArrayExpr{Elements: elems}, nil
}

func (p *Parser) parseDictExpr() (ast.Expression, error) {
	if err := p.next(); err != nil { // consume '{'
		return nil, err
	}
	var entries []ast.DictEntry
	if p.tok.Kind != lexer.TokenRBrace {
		for {
			var key string
			switch p.tok.Kind {
			case lexer.TokenIdent:
				key = p.tok.Text
			case lexer.TokenString:
				key = p.tok.Text
			default:
				return nil, p.errf("expected a dictionary key")
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.expect(lexer.TokenColon, "':'"); err != nil {
				return nil, err
			}
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.DictEntry{Key: key, Value: val})
			if p.tok.Kind != lexer.TokenComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(lexer.TokenRBrace, "'}'"); err != nil {
		return nil, err
	}
	return ast.DictExpr{Entries: entries}, nil
}
