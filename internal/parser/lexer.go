package parser

import (
	"strings"
	"unicode"
)

// Lexer tokenizes source-dialect query text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.pos
	tok := l.scan()
	tok.Pos = start
	return tok
}

func (l *Lexer) scan() Token {
	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF}
	case '+':
		tok = Token{Type: TOKEN_PLUS, Literal: "+"}
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TOKEN_ARROW, Literal: "->"}
		} else {
			tok = Token{Type: TOKEN_MINUS, Literal: "-"}
		}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*"}
	case '/':
		tok = Token{Type: TOKEN_SLASH, Literal: "/"}
	case '%':
		tok = Token{Type: TOKEN_MOD, Literal: "%"}
	case '=':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_EQ, Literal: "=="}
		case '~':
			l.readChar()
			tok = Token{Type: TOKEN_REGEX, Literal: "=~"}
		default:
			tok = Token{Type: TOKEN_EQ, Literal: "="}
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<="}
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>"}
		default:
			tok = Token{Type: TOKEN_LT, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">="}
		} else {
			tok = Token{Type: TOKEN_GT, Literal: ">"}
		}
	case '!':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!="}
		case '~':
			l.readChar()
			tok = Token{Type: TOKEN_NOT_REGEX, Literal: "!~"}
		default:
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch)}
		}
	case '.':
		tok = Token{Type: TOKEN_DOT, Literal: "."}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ","}
	case ';':
		tok = Token{Type: TOKEN_SEMICOLON, Literal: ";"}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")"}
	case '[':
		tok = Token{Type: TOKEN_LBRACKET, Literal: "["}
	case ']':
		tok = Token{Type: TOKEN_RBRACKET, Literal: "]"}
	case '{':
		tok = Token{Type: TOKEN_LBRACE, Literal: "{"}
	case '}':
		tok = Token{Type: TOKEN_RBRACE, Literal: "}"}
	case '\'':
		lit, ok := l.readQuoted('\'')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string"}
		}
		return Token{Type: TOKEN_STRING, Literal: lit}
	case '"', '`':
		lit, ok := l.readQuoted(l.ch)
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated identifier"}
		}
		return Token{Type: TOKEN_IDENT, Literal: lit, Quoted: true}
	default:
		switch {
		case isIdentStart(l.ch):
			literal := l.readIdentifier()
			return Token{Type: lookupKeyword(strings.ToLower(literal)), Literal: literal}
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber()}
		default:
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch)}
		}
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and SQL comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}
		break
	}
}

var unescapes = map[byte]byte{
	'b':  '\b',
	'f':  '\f',
	'r':  '\r',
	'n':  '\n',
	't':  '\t',
	'0':  0,
	'a':  '\a',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'`':  '`',
}

// readQuoted reads a string or identifier delimited by quote. A doubled
// quote and backslash escapes are both accepted.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	l.readChar() // skip opening quote
	var result strings.Builder
	for l.ch != 0 {
		switch {
		case l.ch == quote && l.peekChar() == quote:
			result.WriteByte(quote)
			l.readChar()
			l.readChar()
		case l.ch == quote:
			l.readChar() // skip closing quote
			return result.String(), true
		case l.ch == '\\' && l.peekChar() != 0:
			l.readChar()
			if c, ok := unescapes[l.ch]; ok {
				result.WriteByte(c)
			} else {
				result.WriteByte('\\')
				result.WriteByte(l.ch)
			}
			l.readChar()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return "", false
}

// readIdentifier reads an unquoted identifier. Identifiers may contain $,
// as in $browser.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
