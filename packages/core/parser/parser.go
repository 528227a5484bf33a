package parser

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
)

type Parser struct {
	lexer     *Lexer
	input     string
	curToken  Token
	peekToken Token
	builtins  map[string]bool
	diags     diag.List
}

// NewParser creates a parser for input. builtins is the snapshot of built-in
// names that may be called without a provider prefix.
func NewParser(input string, builtins []string) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		input:    input,
		builtins: make(map[string]bool, len(builtins)),
	}
	for _, name := range builtins {
		p.builtins[name] = true
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses input into a program. Diagnostics are returned rather than an
// error so that callers can tell incomplete input from malformed input.
func Parse(input string, builtins []string) (*Program, diag.List) {
	return NewParser(input, builtins).ParseProgram()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.peekToken.Type == TokenComment {
		p.peekToken = p.lexer.NextToken()
	}
}

func (p *Parser) skipNewlines() {
	for p.curToken.Type == TokenNewline {
		p.nextToken()
	}
}

func (p *Parser) skipStatement() {
	for p.curToken.Type != TokenNewline && p.curToken.Type != TokenEOF {
		p.nextToken()
	}
}

func (p *Parser) ParseProgram() (*Program, diag.List) {
	prog := &Program{Source: p.input}

	p.skipNewlines()
	for p.curToken.Type != TokenEOF {
		if stmt := p.parseStatement(); stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		} else {
			p.skipStatement()
		}
		p.skipNewlines()
	}

	return prog, p.diags
}

func (p *Parser) parseStatement() *Statement {
	first := p.curToken
	fn := p.parseFunction()
	if fn == nil {
		return nil
	}
	stmt := &Statement{Function: fn, Span: diag.Span{From: first.Pos, To: first.End}}
	p.nextToken()

	for p.curToken.Type != TokenNewline && p.curToken.Type != TokenEOF {
		param := p.parseParam()
		if param == nil {
			return nil
		}
		stmt.Params = append(stmt.Params, param)
		stmt.Span.To = param.Span.To
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseFunction() *Function {
	tok := p.curToken
	span := diag.Span{From: tok.Pos, To: tok.End}

	switch tok.Type {
	case TokenIllegal:
		p.illegal(tok)
		return nil
	case TokenIdentifier, TokenBare:
	default:
		p.errorf(tok, false, "expected a function name, got %s", tok.Type)
		return nil
	}

	name := tok.Value
	if tok.Type == TokenIdentifier && p.builtins[name] {
		return &Function{Builtin: true, Name: name, Span: span}
	}

	provider, function, found := strings.Cut(name, ".")
	if !IsIdentifier(provider) {
		p.errorf(tok, false, "invalid provider name '%s'", provider)
		return nil
	}
	if !found {
		if p.restIsBlank(tok) {
			p.errorf(tok, true, "expected '.' and a function name after '%s'", provider)
		} else {
			p.errorf(tok, false, "'%s' is not a built-in function; expected provider.function", provider)
		}
		return nil
	}
	if function == "" {
		if p.restIsBlank(tok) {
			p.errorAt(tok.End, tok.End, true, "expected a function name after '%s.'", provider)
		} else {
			p.errorAt(tok.End, tok.End, false, "expected a function name after '%s.'", provider)
		}
		return nil
	}
	if !IsIdentifier(function) {
		p.errorf(tok, false, "invalid function name '%s'", function)
		return nil
	}

	return &Function{Provider: provider, Name: function, Span: span}
}

func (p *Parser) parseParam() *Param {
	tok := p.curToken
	if !tok.SpaceBefore {
		p.errorf(tok, false, "expected whitespace before %s", tok.Type)
		return nil
	}

	if tok.Type == TokenIdentifier && p.peekToken.Type == TokenEquals && !p.peekToken.SpaceBefore {
		return p.parseKeyValue()
	}
	return p.parseValue(tok)
}

func (p *Parser) parseKeyValue() *Param {
	key := p.curToken
	p.nextToken()
	equals := p.curToken

	val := p.peekToken
	if val.SpaceBefore || val.Type == TokenNewline || val.Type == TokenEOF {
		p.errorAt(equals.End, equals.End, p.restIsBlank(equals), "expected a value after '%s='", key.Value)
		return nil
	}
	p.nextToken()

	inner := p.parseValue(val)
	if inner == nil {
		return nil
	}
	return &Param{
		Kind:  ParamKeyValue,
		Raw:   p.input[key.Pos.Offset:inner.Span.To.Offset],
		Key:   key.Value,
		Inner: inner,
		Span:  diag.Span{From: key.Pos, To: inner.Span.To},
	}
}

func (p *Parser) parseValue(tok Token) *Param {
	param := &Param{Raw: tok.Value, Value: tok.Literal, Span: diag.Span{From: tok.Pos, To: tok.End}}
	switch tok.Type {
	case TokenString:
		param.Kind = ParamString
	case TokenNumber:
		param.Kind = ParamNumber
	case TokenIdentifier, TokenBare:
		param.Kind = ParamBare
		param.Value = tok.Value
	case TokenIllegal:
		p.illegal(tok)
		return nil
	default:
		p.errorf(tok, false, "unexpected %s", tok.Type)
		return nil
	}
	return param
}

// restIsBlank reports whether only whitespace follows tok.
func (p *Parser) restIsBlank(tok Token) bool {
	if tok.End.Offset >= len(p.input) {
		return true
	}
	return strings.TrimSpace(p.input[tok.End.Offset:]) == ""
}

func (p *Parser) illegal(tok Token) {
	p.errorf(tok, tok.Partial, "%s", tok.Err)
}

func (p *Parser) errorf(tok Token, partial bool, format string, args ...any) {
	p.errorAt(tok.Pos, tok.End, partial, format, args...)
}

func (p *Parser) errorAt(from, to diag.Pos, partial bool, format string, args ...any) {
	p.diags = append(p.diags, &diag.Diagnostic{
		Code:    diag.CodeSyntax,
		Message: fmt.Sprintf(format, args...),
		Span:    diag.Span{From: from, To: to},
		Partial: partial,
	})
}
