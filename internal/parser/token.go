// Package parser turns source-dialect query text into an untyped AST.
package parser

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT  // identifier, `quoted` or "quoted" identifier
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'

	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_MOD       // %
	TOKEN_EQ        // = or ==
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_REGEX     // =~
	TOKEN_NOT_REGEX // !~
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACKET  // [
	TOKEN_RBRACKET  // ]
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_ARROW     // -> (lambda)

	// TOKEN_ALL and below are keywords (alphabetical).
	TOKEN_ALL
	TOKEN_AND
	TOKEN_AS
	TOKEN_ASC
	TOKEN_BY
	TOKEN_CROSS
	TOKEN_DESC
	TOKEN_DISTINCT
	TOKEN_FALSE
	TOKEN_FINAL
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_ILIKE
	TOKEN_IN
	TOKEN_INNER
	TOKEN_IS
	TOKEN_JOIN
	TOKEN_LEFT
	TOKEN_LIKE
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_PREWHERE
	TOKEN_RIGHT
	TOKEN_SAMPLE
	TOKEN_SELECT
	TOKEN_TIES
	TOKEN_TRUE
	TOKEN_UNION
	TOKEN_WHERE
	TOKEN_WITH
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_IDENT:     "IDENT",
	TOKEN_NUMBER:    "NUMBER",
	TOKEN_STRING:    "STRING",
	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_MOD:       "%",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "!=",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_REGEX:     "=~",
	TOKEN_NOT_REGEX: "!~",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_LBRACKET:  "[",
	TOKEN_RBRACKET:  "]",
	TOKEN_LBRACE:    "{",
	TOKEN_RBRACE:    "}",
	TOKEN_ARROW:     "->",
}

var keywords = map[string]TokenType{
	"all":      TOKEN_ALL,
	"and":      TOKEN_AND,
	"as":       TOKEN_AS,
	"asc":      TOKEN_ASC,
	"by":       TOKEN_BY,
	"cross":    TOKEN_CROSS,
	"desc":     TOKEN_DESC,
	"distinct": TOKEN_DISTINCT,
	"false":    TOKEN_FALSE,
	"final":    TOKEN_FINAL,
	"from":     TOKEN_FROM,
	"full":     TOKEN_FULL,
	"group":    TOKEN_GROUP,
	"having":   TOKEN_HAVING,
	"ilike":    TOKEN_ILIKE,
	"in":       TOKEN_IN,
	"inner":    TOKEN_INNER,
	"is":       TOKEN_IS,
	"join":     TOKEN_JOIN,
	"left":     TOKEN_LEFT,
	"like":     TOKEN_LIKE,
	"limit":    TOKEN_LIMIT,
	"not":      TOKEN_NOT,
	"null":     TOKEN_NULL,
	"offset":   TOKEN_OFFSET,
	"on":       TOKEN_ON,
	"or":       TOKEN_OR,
	"order":    TOKEN_ORDER,
	"outer":    TOKEN_OUTER,
	"prewhere": TOKEN_PREWHERE,
	"right":    TOKEN_RIGHT,
	"sample":   TOKEN_SAMPLE,
	"select":   TOKEN_SELECT,
	"ties":     TOKEN_TIES,
	"true":     TOKEN_TRUE,
	"union":    TOKEN_UNION,
	"where":    TOKEN_WHERE,
	"with":     TOKEN_WITH,
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for kw, tt := range keywords {
		if tt == t {
			return fmt.Sprintf("%q", kw)
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token represents a lexical token with its literal value.
type Token struct {
	Type    TokenType
	Literal string
	Quoted  bool // identifier was written in quotes and is never a keyword
	Pos     int
}

// Precedence levels for the Pratt parser.
const (
	PrecedenceNone       = 0
	PrecedenceOr         = 1
	PrecedenceAnd        = 2
	PrecedenceNot        = 3
	PrecedenceComparison = 4
	PrecedenceAddition   = 5
	PrecedenceMultiply   = 6
	PrecedenceUnary      = 7
	PrecedencePostfix    = 8
)
