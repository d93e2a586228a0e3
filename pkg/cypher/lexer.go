// Package cypher implements the query language front end and execution
// engine: a lexer and recursive-descent parser producing an AST (§4.3), a
// single-pass planner that lowers the AST to a tree of Volcano-model pull
// operators with index-scan substitution and predicate pushdown (§4.4),
// and the operator implementations themselves (§4.5).
package cypher

import (
	"strings"
	"unicode/utf8"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

// TokenKind tags a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokInt
	TokFloat
	TokString
	TokParam // $name

	// Punctuation and operators.
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokLBracket
	TokRBracket
	TokComma
	TokDot
	TokDotDot
	TokColon
	TokPipe
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokEq
	TokNeq
	TokLt
	TokLe
	TokGt
	TokGe
	TokAssign // = (used identically to TokEq; disambiguated by parser context)
	TokPlusEq // +=
	TokArrowLeft  // <-
	TokArrowRight // ->
	TokDash       // - used in patterns, same token as TokMinus
)

// keywords is the reserved-word table. Matching is atomic: the lexer reads
// a maximal run of identifier characters, then checks this table — the
// idiomatic way to get the negative-lookahead disambiguation of §4.3
// automatically, without per-keyword lookahead logic in the grammar.
var keywords = map[string]bool{
	"MATCH": true, "OPTIONAL": true, "WHERE": true, "CREATE": true,
	"DELETE": true, "DETACH": true, "SET": true, "REMOVE": true,
	"MERGE": true, "ON": true, "WITH": true, "UNWIND": true,
	"UNION": true, "ALL": true, "RETURN": true, "EXPLAIN": true,
	"PROFILE": true, "EXISTS": true, "CALL": true, "YIELD": true,
	"DISTINCT": true, "ORDER": true, "BY": true, "SKIP": true,
	"LIMIT": true, "ASC": true, "DESC": true, "AND": true, "OR": true,
	"NOT": true, "XOR": true, "IN": true, "IS": true, "NULL": true,
	"TRUE": true, "FALSE": true, "STARTS": true, "ENDS": true,
	"CONTAINS": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "AS": true,
}

// Token is one lexical unit.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
	Line   int
	Column int
}

// Lexer tokenizes Cypher source text.
type Lexer struct {
	src    string
	pos    int
	line   int
	column int
}

// NewLexer returns a lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return b
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		if c == '/' && l.peekByteAt(1) == '/' {
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// Next returns the next token, or a TokEOF token at end of input.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespaceAndComments()
	startOff, startLine, startCol := l.pos, l.line, l.column
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Offset: startOff, Line: startLine, Column: startCol}, nil
	}

	c := l.peekByte()
	mk := func(kind TokenKind, text string) Token {
		return Token{Kind: kind, Text: text, Offset: startOff, Line: startLine, Column: startCol}
	}

	switch {
	case c == '$':
		l.advance()
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(rune(l.peekByte())) {
			l.advance()
		}
		return mk(TokParam, l.src[start:l.pos]), nil

	case isIdentStart(rune(c)):
		start := l.pos
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentPart(r) {
				break
			}
			l.pos += size
			l.column++
		}
		text := l.src[start:l.pos]
		upper := strings.ToUpper(text)
		switch upper {
		case "TRUE", "FALSE", "NULL":
			return mk(TokKeyword, upper), nil
		}
		if keywords[upper] {
			return mk(TokKeyword, upper), nil
		}
		return mk(TokIdent, text), nil

	case c >= '0' && c <= '9':
		start := l.pos
		isFloat := false
		for l.pos < len(l.src) && l.peekByte() >= '0' && l.peekByte() <= '9' {
			l.advance()
		}
		if l.peekByte() == '.' && l.peekByteAt(1) >= '0' && l.peekByteAt(1) <= '9' {
			isFloat = true
			l.advance()
			for l.pos < len(l.src) && l.peekByte() >= '0' && l.peekByte() <= '9' {
				l.advance()
			}
		}
		if l.peekByte() == 'e' || l.peekByte() == 'E' {
			isFloat = true
			l.advance()
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.advance()
			}
			for l.pos < len(l.src) && l.peekByte() >= '0' && l.peekByte() <= '9' {
				l.advance()
			}
		}
		if isFloat {
			return mk(TokFloat, l.src[start:l.pos]), nil
		}
		return mk(TokInt, l.src[start:l.pos]), nil

	case c == '\'' || c == '"':
		quote := c
		l.advance()
		var sb strings.Builder
		for {
			if l.pos >= len(l.src) {
				return Token{}, samyamaerr.AtPosition("unterminated string literal", startOff, startLine, startCol)
			}
			b := l.peekByte()
			if b == quote {
				l.advance()
				break
			}
			if b == '\\' {
				l.advance()
				esc := l.peekByte()
				switch esc {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case '\\', '\'', '"':
					sb.WriteByte(esc)
				default:
					sb.WriteByte(esc)
				}
				l.advance()
				continue
			}
			sb.WriteByte(b)
			l.advance()
		}
		return mk(TokString, sb.String()), nil

	case c == '(':
		l.advance()
		return mk(TokLParen, "("), nil
	case c == ')':
		l.advance()
		return mk(TokRParen, ")"), nil
	case c == '{':
		l.advance()
		return mk(TokLBrace, "{"), nil
	case c == '}':
		l.advance()
		return mk(TokRBrace, "}"), nil
	case c == '[':
		l.advance()
		return mk(TokLBracket, "["), nil
	case c == ']':
		l.advance()
		return mk(TokRBracket, "]"), nil
	case c == ',':
		l.advance()
		return mk(TokComma, ","), nil
	case c == ':':
		l.advance()
		return mk(TokColon, ":"), nil
	case c == '|':
		l.advance()
		return mk(TokPipe, "|"), nil
	case c == '.':
		l.advance()
		if l.peekByte() == '.' {
			l.advance()
			return mk(TokDotDot, ".."), nil
		}
		return mk(TokDot, "."), nil
	case c == '+':
		l.advance()
		if l.peekByte() == '=' {
			l.advance()
			return mk(TokPlusEq, "+="), nil
		}
		return mk(TokPlus, "+"), nil
	case c == '-':
		l.advance()
		if l.peekByte() == '>' {
			l.advance()
			return mk(TokArrowRight, "->"), nil
		}
		return mk(TokDash, "-"), nil
	case c == '*':
		l.advance()
		return mk(TokStar, "*"), nil
	case c == '/':
		l.advance()
		return mk(TokSlash, "/"), nil
	case c == '%':
		l.advance()
		return mk(TokPercent, "%"), nil
	case c == '<':
		l.advance()
		switch l.peekByte() {
		case '=':
			l.advance()
			return mk(TokLe, "<="), nil
		case '>':
			l.advance()
			return mk(TokNeq, "<>"), nil
		case '-':
			l.advance()
			return mk(TokArrowLeft, "<-"), nil
		}
		return mk(TokLt, "<"), nil
	case c == '>':
		l.advance()
		if l.peekByte() == '=' {
			l.advance()
			return mk(TokGe, ">="), nil
		}
		return mk(TokGt, ">"), nil
	case c == '=':
		l.advance()
		return mk(TokEq, "="), nil
	}

	return Token{}, samyamaerr.AtPosition("unexpected character '"+string(c)+"'", startOff, startLine, startCol)
}
