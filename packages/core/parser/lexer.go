package parser

import (
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenComment
	TokenIdentifier
	TokenEquals
	TokenString
	TokenNumber
	TokenBare
	TokenIllegal
)

var tokenNames = [...]string{
	TokenEOF:        "end of input",
	TokenNewline:    "newline",
	TokenComment:    "comment",
	TokenIdentifier: "identifier",
	TokenEquals:     "'='",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenBare:       "bare word",
	TokenIllegal:    "illegal token",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

type Token struct {
	Type    TokenType
	Value   string
	Literal any
	Pos     diag.Pos
	End     diag.Pos
	// SpaceBefore is set when blanks separate the token from the previous
	// one on the same line.
	SpaceBefore bool
	// Err and Partial describe a TokenIllegal. Partial is set when the token
	// ran into the end of input.
	Err     string
	Partial bool
}

type Lexer struct {
	input     string
	pos       int
	readPos   int
	ch        byte
	line      int
	column    int
	lineStart bool
	pending   []Token
}

func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:     input,
		line:      1,
		lineStart: true,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		if l.readPos == len(l.input) {
			l.readPos++
			l.column++
		}
		return
	}
	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) position() diag.Pos {
	return diag.Pos{Offset: l.pos, Line: l.line, Column: l.column}
}

func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r'
}

func isQuote(ch byte) bool {
	return ch == '"' || ch == '\''
}

func (l *Lexer) skipBlanks() bool {
	skipped := false
	for isBlank(l.ch) {
		skipped = true
		l.readChar()
	}
	return skipped
}

func (l *Lexer) NextToken() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	space := l.skipBlanks()
	start := l.position()

	var tok Token
	switch {
	case l.ch == 0:
		tok = Token{Type: TokenEOF, Pos: start, End: start}
	case l.ch == '\n':
		l.readChar()
		tok = Token{Type: TokenNewline, Value: "\n", Pos: start, End: l.position()}
		l.lineStart = true
		return tok
	case l.ch == '#' && l.lineStart:
		tok = l.readLineComment(start)
	case isQuote(l.ch):
		tok = l.readString(start)
	default:
		tok = l.readWord(start)
	}

	l.lineStart = false
	tok.SpaceBefore = space
	return tok
}

func (l *Lexer) readLineComment(start diag.Pos) Token {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return Token{
		Type:  TokenComment,
		Value: l.input[start.Offset:l.pos],
		Pos:   start,
		End:   l.position(),
	}
}

func (l *Lexer) readString(start diag.Pos) Token {
	quote := l.ch
	l.readChar()

	var sb strings.Builder
	for {
		switch l.ch {
		case 0:
			return Token{
				Type:    TokenIllegal,
				Value:   l.input[start.Offset:],
				Pos:     start,
				End:     l.position(),
				Err:     "unterminated string",
				Partial: true,
			}
		case '\\':
			l.readChar()
			switch l.ch {
			case 0:
				continue
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\'', '\\':
				sb.WriteByte(l.ch)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(l.ch)
			}
			l.readChar()
		case quote:
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return Token{
				Type:    TokenString,
				Value:   l.input[start.Offset:l.pos],
				Literal: sb.String(),
				Pos:     start,
				End:     l.position(),
			}
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readWord reads a run of non-blank, non-quote characters and classifies it.
// A run whose text up to the first '=' is an identifier is split into an
// identifier, '=' and, if anything follows, the value token.
func (l *Lexer) readWord(start diag.Pos) Token {
	for l.ch != 0 && l.ch != '\n' && !isBlank(l.ch) && !isQuote(l.ch) {
		l.readChar()
	}
	word := l.input[start.Offset:l.pos]
	end := l.position()

	if eq := strings.IndexByte(word, '='); eq > 0 && IsIdentifier(word[:eq]) {
		key := Token{Type: TokenIdentifier, Value: word[:eq], Pos: start, End: offsetPos(start, eq)}
		equals := Token{Type: TokenEquals, Value: "=", Pos: offsetPos(start, eq), End: offsetPos(start, eq+1)}
		if rest := word[eq+1:]; rest != "" {
			val := classify(rest, offsetPos(start, eq+1), end)
			if val.Type == TokenIdentifier {
				val.Type = TokenBare
				val.Literal = rest
			}
			l.pending = append(l.pending, equals, val)
		} else {
			l.pending = append(l.pending, equals)
		}
		return key
	}

	return classify(word, start, end)
}

func offsetPos(p diag.Pos, n int) diag.Pos {
	return diag.Pos{Offset: p.Offset + n, Line: p.Line, Column: p.Column + n}
}

func classify(word string, start, end diag.Pos) Token {
	tok := Token{Value: word, Pos: start, End: end}
	switch {
	case IsIdentifier(word):
		tok.Type = TokenIdentifier
		tok.Literal = word
	case isNumber(word):
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			tok.Type = TokenBare
			tok.Literal = word
			break
		}
		tok.Type = TokenNumber
		tok.Literal = f
	default:
		tok.Type = TokenBare
		tok.Literal = word
	}
	return tok
}

// IsIdentifier reports whether s is a letter or underscore followed by
// letters, digits, underscores or hyphens.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '_' || isLetter(ch):
		case i > 0 && (isDigit(ch) || ch == '-'):
		default:
			return false
		}
	}
	return true
}

// isNumber accepts an optional sign followed by digits with an optional
// decimal point, which may lead or trail: 1, -2.5, .5, 5.
func isNumber(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
