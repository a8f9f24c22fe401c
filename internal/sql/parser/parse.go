package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
)

// Parse parses a single SQL statement into an AST.
// Policy: statement MUST end with exactly one ';' and nothing after it.
func Parse(sql string) (Statement, error) {
	p := &parser{lx: NewLexer(sql)}

	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	if err := p.expect(Token{Kind: TokSemicolon}); err != nil {
		return nil, err
	}
	tok, ok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, unexpected(tok)
	}
	return stmt, nil
}

// parser is a recursive-descent parser with one token of lookahead.
type parser struct {
	lx     *Lexer
	tok    Token
	peeked bool
	eof    bool
}

func unexpected(t Token) error { return errs.Parsef("unexpected token %s", t) }

func unexpectedEnd() error { return errs.Parsef("unexpected end of input") }

func unsupportedExpr(e Expression) error { return errs.Internalf("unsupported expression %T", e) }

// peek returns the next token without consuming it; ok is false at the end
// of input.
func (p *parser) peek() (Token, bool, error) {
	if !p.peeked {
		tok, err := p.lx.Next()
		switch {
		case err == io.EOF:
			p.eof = true
		case err != nil:
			return Token{}, false, err
		}
		p.tok, p.peeked = tok, true
	}
	return p.tok, !p.eof, nil
}

func (p *parser) next() (Token, error) {
	tok, ok, err := p.peek()
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, unexpectedEnd()
	}
	p.peeked = false
	return tok, nil
}

// nextIf consumes the next token when it equals want.
func (p *parser) nextIf(want Token) (bool, error) {
	tok, ok, err := p.peek()
	if err != nil || !ok || tok != want {
		return false, err
	}
	p.peeked = false
	return true, nil
}

func (p *parser) expect(want Token) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok != want {
		return errs.Parsef("expected token %s, got %s", want, tok)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokIdent {
		return "", errs.Parsef("expected identifier, got %s", tok)
	}
	return tok.Value, nil
}

func (p *parser) statement() (Statement, error) {
	tok, ok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unexpectedEnd()
	}
	switch tok {
	case keyword("CREATE"):
		return p.createTable()
	case keyword("SELECT"):
		return p.selectStmt()
	case keyword("INSERT"):
		return p.insert()
	default:
		return nil, unexpected(tok)
	}
}

// CREATE TABLE ident '(' column (',' column)* ')'
func (p *parser) createTable() (Statement, error) {
	if err := p.expect(keyword("CREATE")); err != nil {
		return nil, err
	}
	if err := p.expect(keyword("TABLE")); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect(Token{Kind: TokOpenParen}); err != nil {
		return nil, err
	}

	var cols []ColumnDef
	for {
		col, err := p.column()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		more, err := p.nextIf(Token{Kind: TokComma})
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	if err := p.expect(Token{Kind: TokCloseParen}); err != nil {
		return nil, err
	}
	return &CreateTableStmt{TableName: name, Columns: cols}, nil
}

// column := ident datatype (NULL | NOT NULL | DEFAULT expr)*
func (p *parser) column() (ColumnDef, error) {
	name, err := p.ident()
	if err != nil {
		return ColumnDef{}, err
	}
	col := ColumnDef{Name: name}

	tok, err := p.next()
	if err != nil {
		return ColumnDef{}, err
	}
	switch tok {
	case keyword("INT"), keyword("INTEGER"):
		col.Type = record.TypeInteger
	case keyword("BOOL"), keyword("BOOLEAN"):
		col.Type = record.TypeBoolean
	case keyword("FLOAT"), keyword("DOUBLE"):
		col.Type = record.TypeFloat
	case keyword("STRING"), keyword("TEXT"), keyword("VARCHAR"):
		col.Type = record.TypeString
	default:
		return ColumnDef{}, unexpected(tok)
	}

	for {
		tok, ok, err := p.peek()
		if err != nil {
			return ColumnDef{}, err
		}
		if !ok || tok.Kind != TokKeyword {
			return col, nil
		}
		p.peeked = false

		switch tok.Value {
		case "NULL":
			col.Nullable = boolPtr(true)
		case "NOT":
			if err := p.expect(keyword("NULL")); err != nil {
				return ColumnDef{}, err
			}
			col.Nullable = boolPtr(false)
		case "DEFAULT":
			expr, err := p.expression()
			if err != nil {
				return ColumnDef{}, err
			}
			col.Default = expr
		default:
			return ColumnDef{}, errs.Parsef("unexpected keyword %s", tok)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

// SELECT '*' FROM ident
func (p *parser) selectStmt() (Statement, error) {
	for _, want := range []Token{keyword("SELECT"), {Kind: TokAsterisk}, keyword("FROM")} {
		if err := p.expect(want); err != nil {
			return nil, err
		}
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	return &SelectStmt{TableName: name}, nil
}

// INSERT INTO ident ['(' ident (',' ident)* ')'] VALUES tuple (',' tuple)*
func (p *parser) insert() (Statement, error) {
	if err := p.expect(keyword("INSERT")); err != nil {
		return nil, err
	}
	if err := p.expect(keyword("INTO")); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{TableName: name}

	open, err := p.nextIf(Token{Kind: TokOpenParen})
	if err != nil {
		return nil, err
	}
	if open {
		stmt.Columns = []string{}
		for {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			done, err := p.listSep()
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
		}
	}

	if err := p.expect(keyword("VALUES")); err != nil {
		return nil, err
	}
	for {
		if err := p.expect(Token{Kind: TokOpenParen}); err != nil {
			return nil, err
		}
		var tuple []Expression
		for {
			expr, err := p.expression()
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, expr)
			done, err := p.listSep()
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
		}
		stmt.Values = append(stmt.Values, tuple)

		more, err := p.nextIf(Token{Kind: TokComma})
		if err != nil {
			return nil, err
		}
		if !more {
			return stmt, nil
		}
	}
}

// listSep consumes ',' or ')' inside a parenthesised list; done is true at ')'.
func (p *parser) listSep() (done bool, err error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	switch tok.Kind {
	case TokCloseParen:
		return true, nil
	case TokComma:
		return false, nil
	default:
		return false, unexpected(tok)
	}
}

// expr := NUMBER | STRING | TRUE | FALSE | NULL
func (p *parser) expression() (Expression, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == TokNumber:
		v, err := parseNumber(tok.Value)
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: v}, nil
	case tok.Kind == TokString:
		return &LiteralExpr{Value: record.String(tok.Value)}, nil
	case tok == keyword("TRUE"):
		return &LiteralExpr{Value: record.Bool(true)}, nil
	case tok == keyword("FALSE"):
		return &LiteralExpr{Value: record.Bool(false)}, nil
	case tok == keyword("NULL"):
		return &LiteralExpr{Value: record.Null()}, nil
	default:
		return nil, errs.Parsef("unexpected expression token %s", tok)
	}
}

// parseNumber reads an all-digit literal as INTEGER and anything else as FLOAT.
func parseNumber(s string) (record.Value, error) {
	if strings.Trim(strings.TrimPrefix(s, "-"), "0123456789") == "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return record.Value{}, errs.Parsef("invalid integer %s", s)
		}
		return record.Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return record.Value{}, errs.Parsef("invalid number %s", s)
	}
	return record.Float(f), nil
}
