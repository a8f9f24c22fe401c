package parser

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tuannm99/kvsql/internal/errs"
)

type TokenKind uint8

const (
	TokKeyword TokenKind = iota + 1
	TokIdent
	TokNumber
	TokString
	TokOpenParen
	TokCloseParen
	TokComma
	TokSemicolon
	TokAsterisk
)

// Keywords, by their upper-case spelling.
var keywords = map[string]struct{}{
	"CREATE": {}, "TABLE": {}, "SELECT": {}, "FROM": {}, "INSERT": {}, "INTO": {}, "VALUES": {},
	"INT": {}, "INTEGER": {}, "BOOL": {}, "BOOLEAN": {}, "FLOAT": {}, "DOUBLE": {},
	"STRING": {}, "TEXT": {}, "VARCHAR": {},
	"NULL": {}, "NOT": {}, "DEFAULT": {}, "TRUE": {}, "FALSE": {},
}

// Token is one lexical unit. Value holds the upper-cased keyword, the
// identifier name, the number text or the unquoted string contents.
type Token struct {
	Kind  TokenKind
	Value string
}

func (t Token) String() string {
	switch t.Kind {
	case TokKeyword, TokIdent, TokNumber:
		return t.Value
	case TokString:
		return "'" + strings.ReplaceAll(t.Value, "'", "''") + "'"
	case TokOpenParen:
		return "("
	case TokCloseParen:
		return ")"
	case TokComma:
		return ","
	case TokSemicolon:
		return ";"
	case TokAsterisk:
		return "*"
	default:
		return "?"
	}
}

func keyword(k string) Token { return Token{Kind: TokKeyword, Value: k} }

// Lexer produces tokens from a SQL string on demand.
type Lexer struct {
	src string
	pos int
}

func NewLexer(src string) *Lexer { return &Lexer{src: src} }

// Reset restarts tokenising from the beginning of the input.
func (l *Lexer) Reset() { l.pos = 0 }

// Next returns the next token, or io.EOF once the input is exhausted.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return Token{}, io.EOF
	}

	c := l.src[l.pos]
	switch {
	case c == '\'':
		return l.scanString()
	case c == '"':
		return l.scanQuotedIdent()
	case isDigit(c) || (c == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.scanNumber(), nil
	case c == '_' || c < utf8.RuneSelf && unicode.IsLetter(rune(c)):
		return l.scanWord(), nil
	case c >= utf8.RuneSelf:
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if unicode.IsLetter(r) {
			return l.scanWord(), nil
		}
		return Token{}, errs.Parsef("unexpected character %q", r)
	}

	l.pos++
	switch c {
	case '(':
		return Token{Kind: TokOpenParen}, nil
	case ')':
		return Token{Kind: TokCloseParen}, nil
	case ',':
		return Token{Kind: TokComma}, nil
	case ';':
		return Token{Kind: TokSemicolon}, nil
	case '*':
		return Token{Kind: TokAsterisk}, nil
	}
	return Token{}, errs.Parsef("unexpected character %q", c)
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, n := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += n
	}
}

// scanWord reads a keyword or a bare identifier, which is folded to lower
// case.
func (l *Lexer) scanWord() Token {
	start := l.pos
	for l.pos < len(l.src) {
		r, n := utf8.DecodeRuneInString(l.src[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += n
	}
	word := l.src[start:l.pos]
	if up := strings.ToUpper(word); isKeyword(up) {
		return keyword(up)
	}
	return Token{Kind: TokIdent, Value: strings.ToLower(word)}
}

func isKeyword(up string) bool {
	_, ok := keywords[up]
	return ok
}

// scanNumber reads [-]digits[.digits][e[+-]digits].
func (l *Lexer) scanNumber() Token {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	l.digits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		l.digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.digits()
		} else {
			l.pos = save
		}
	}
	return Token{Kind: TokNumber, Value: l.src[start:l.pos]}
}

func (l *Lexer) digits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

// scanString reads a single-quoted string; '' inside it is a literal quote.
func (l *Lexer) scanString() (Token, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if l.pos < len(l.src) && l.src[l.pos] == '\'' {
			b.WriteByte('\'')
			l.pos++
			continue
		}
		return Token{Kind: TokString, Value: b.String()}, nil
	}
	return Token{}, errs.Parsef("unterminated string")
}

// scanQuotedIdent reads a double-quoted identifier, keeping its case.
func (l *Lexer) scanQuotedIdent() (Token, error) {
	l.pos++
	end := strings.IndexByte(l.src[l.pos:], '"')
	if end < 0 {
		return Token{}, errs.Parsef("unterminated quoted identifier")
	}
	name := l.src[l.pos : l.pos+end]
	l.pos += end + 1
	if name == "" {
		return Token{}, errs.Parsef("empty quoted identifier")
	}
	return Token{Kind: TokIdent, Value: name}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
