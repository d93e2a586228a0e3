package cypher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

// Parser is a hand-written recursive-descent parser over the Lexer's
// token stream, producing the AST in ast.go. Errors are reported with
// position and an expected-alternatives hint (§4.3).
type Parser struct {
	lex  *Lexer
	tok  Token
	next Token
	err  error
}

// Parse parses src as a full Query (possibly EXPLAIN/PROFILE-wrapped,
// possibly UNION-combined).
func Parse(src string) (*Query, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.prime(); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.tok.Text)
	}
	return q, nil
}

func (p *Parser) prime() error {
	t0, err := p.lex.Next()
	if err != nil {
		return err
	}
	t1, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok, p.next = t0, t1
	return nil
}

func (p *Parser) advance() error {
	p.tok = p.next
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.next = t
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return samyamaerr.AtPosition(fmt.Sprintf(format, args...), p.tok.Offset, p.tok.Line, p.tok.Column)
}

func (p *Parser) isKeyword(kw string) bool {
	return p.tok.Kind == TokKeyword && p.tok.Text == kw
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf("expected %s, got %q", kw, p.tok.Text)
	}
	return p.advance()
}

func (p *Parser) expect(kind TokenKind, desc string) (Token, error) {
	if p.tok.Kind != kind {
		return Token{}, p.errorf("expected %s, got %q", desc, p.tok.Text)
	}
	t := p.tok
	return t, p.advance()
}

// ---------------------------------------------------------------------
// Query
// ---------------------------------------------------------------------

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	if p.isKeyword("EXPLAIN") {
		q.Explain = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.isKeyword("PROFILE") {
		q.Profile = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	part, err := p.parseSinglePartQuery()
	if err != nil {
		return nil, err
	}
	q.Parts = append(q.Parts, part)

	for p.isKeyword("UNION") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		all := false
		if p.isKeyword("ALL") {
			all = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		q.UnionAll = append(q.UnionAll, all)
		next, err := p.parseSinglePartQuery()
		if err != nil {
			return nil, err
		}
		q.Parts = append(q.Parts, next)
	}

	return q, nil
}

func (p *Parser) parseSinglePartQuery() (*SinglePartQuery, error) {
	sp := &SinglePartQuery{}
	for {
		switch {
		case p.isKeyword("MATCH") || p.isKeyword("OPTIONAL"):
			c, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("CREATE"):
			c, err := p.parseCreate()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("DELETE") || p.isKeyword("DETACH"):
			c, err := p.parseDelete()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("SET"):
			c, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("REMOVE"):
			c, err := p.parseRemove()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("MERGE"):
			c, err := p.parseMerge()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("WITH"):
			c, err := p.parseWith()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("UNWIND"):
			c, err := p.parseUnwind()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("CALL"):
			c, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			sp.Clauses = append(sp.Clauses, c)
		case p.isKeyword("RETURN"):
			r, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			sp.Return = r
			return sp, nil
		default:
			return sp, nil
		}
	}
}

// ---------------------------------------------------------------------
// MATCH / CREATE / MERGE patterns
// ---------------------------------------------------------------------

func (p *Parser) parseMatch() (*MatchClause, error) {
	m := &MatchClause{}
	if p.isKeyword("OPTIONAL") {
		m.Optional = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("MATCH"); err != nil {
			return nil, err
		}
	} else {
		if err := p.expectKeyword("MATCH"); err != nil {
			return nil, err
		}
	}

	path, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	m.Patterns = append(m.Patterns, path)
	for p.tok.Kind == TokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		path, err := p.parsePatternPath()
		if err != nil {
			return nil, err
		}
		m.Patterns = append(m.Patterns, path)
	}

	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Where = where
	}
	return m, nil
}

func (p *Parser) parseCreate() (*CreateClause, error) {
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	c := &CreateClause{}
	path, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	c.Patterns = append(c.Patterns, path)
	for p.tok.Kind == TokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		path, err := p.parsePatternPath()
		if err != nil {
			return nil, err
		}
		c.Patterns = append(c.Patterns, path)
	}
	return c, nil
}

func (p *Parser) parseMerge() (*MergeClause, error) {
	if err := p.expectKeyword("MERGE"); err != nil {
		return nil, err
	}
	path, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	mc := &MergeClause{Pattern: path}
	for p.isKeyword("ON") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isKeyword("CREATE") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("SET"); err != nil {
				return nil, err
			}
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			mc.OnCreate = items
		} else if p.isKeyword("MATCH") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("SET"); err != nil {
				return nil, err
			}
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			mc.OnMatch = items
		} else {
			return nil, p.errorf("expected CREATE or MATCH after ON")
		}
	}
	return mc, nil
}

func (p *Parser) parsePatternPath() (*PatternPath, error) {
	path := &PatternPath{}
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	path.Nodes = append(path.Nodes, node)

	for p.tok.Kind == TokDash || p.tok.Kind == TokArrowLeft {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		path.Rels = append(path.Rels, rel)
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		path.Nodes = append(path.Nodes, node)
	}
	return path, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	n := &NodePattern{Properties: map[string]Expr{}}
	if p.tok.Kind == TokIdent {
		n.Variable = p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for p.tok.Kind == TokColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		lbl, err := p.expect(TokIdent, "label")
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, lbl.Text)
	}
	if p.tok.Kind == TokLBrace {
		props, err := p.parsePropertyMap()
		if err != nil {
			return nil, err
		}
		n.Properties = props
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseRelPattern() (*RelPattern, error) {
	rel := &RelPattern{MinHops: -1, MaxHops: -1}
	leftArrow := false
	if p.tok.Kind == TokArrowLeft {
		leftArrow = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expect(TokDash, "-"); err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == TokLBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokIdent {
			rel.Variable = p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.Kind == TokColon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			t, err := p.expect(TokIdent, "relationship type")
			if err != nil {
				return nil, err
			}
			rel.Types = append(rel.Types, t.Text)
			for p.tok.Kind == TokPipe {
				if err := p.advance(); err != nil {
					return nil, err
				}
				if p.tok.Kind == TokColon {
					if err := p.advance(); err != nil {
						return nil, err
					}
				}
				t, err := p.expect(TokIdent, "relationship type")
				if err != nil {
					return nil, err
				}
				rel.Types = append(rel.Types, t.Text)
			}
		}
		if p.tok.Kind == TokStar {
			rel.VarLength = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == TokInt {
				n, _ := strconv.Atoi(p.tok.Text)
				rel.MinHops = n
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else {
				rel.MinHops = 1
			}
			if p.tok.Kind == TokDotDot {
				if err := p.advance(); err != nil {
					return nil, err
				}
				if p.tok.Kind == TokInt {
					n, _ := strconv.Atoi(p.tok.Text)
					rel.MaxHops = n
					if err := p.advance(); err != nil {
						return nil, err
					}
				}
			} else {
				rel.MaxHops = rel.MinHops
			}
		}
		if p.tok.Kind == TokLBrace {
			props, err := p.parsePropertyMap()
			if err != nil {
				return nil, err
			}
			rel.Properties = props
		}
		if _, err := p.expect(TokRBracket, "]"); err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == TokArrowRight {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rel.Direction = DirOut
	} else if leftArrow {
		rel.Direction = DirIn
	} else {
		if _, err := p.expect(TokDash, "-"); err != nil {
			return nil, err
		}
		rel.Direction = DirEither
	}
	return rel, nil
}

func (p *Parser) parsePropertyMap() (map[string]Expr, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	m := map[string]Expr{}
	if p.tok.Kind == TokRBrace {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return m, nil
	}
	for {
		key, err := p.expect(TokIdent, "property key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m[key.Text] = val
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return m, nil
}

// ---------------------------------------------------------------------
// DELETE / SET / REMOVE / UNWIND / CALL
// ---------------------------------------------------------------------

func (p *Parser) parseDelete() (*DeleteClause, error) {
	d := &DeleteClause{}
	if p.isKeyword("DETACH") {
		d.Detach = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	d.Expressions = append(d.Expressions, e)
	for p.tok.Kind == TokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Expressions = append(d.Expressions, e)
	}
	return d, nil
}

func (p *Parser) parseSet() (*SetClause, error) {
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	items, err := p.parseSetItems()
	if err != nil {
		return nil, err
	}
	return &SetClause{Items: items}, nil
}

func (p *Parser) parseSetItems() ([]SetItem, error) {
	var items []SetItem
	for {
		item, err := p.parseSetItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseSetItem() (SetItem, error) {
	name, err := p.expect(TokIdent, "variable")
	if err != nil {
		return SetItem{}, err
	}
	switch p.tok.Kind {
	case TokDot:
		if err := p.advance(); err != nil {
			return SetItem{}, err
		}
		prop, err := p.expect(TokIdent, "property name")
		if err != nil {
			return SetItem{}, err
		}
		if _, err := p.expect(TokEq, "="); err != nil {
			return SetItem{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetProperty, Variable: name.Text, Property: prop.Text, Value: val}, nil
	case TokColon:
		if err := p.advance(); err != nil {
			return SetItem{}, err
		}
		lbl, err := p.expect(TokIdent, "label")
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetLabel, Variable: name.Text, Label: lbl.Text}, nil
	case TokEq:
		if err := p.advance(); err != nil {
			return SetItem{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetMapReplace, Variable: name.Text, Value: val}, nil
	case TokPlusEq:
		if err := p.advance(); err != nil {
			return SetItem{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetMapMerge, Variable: name.Text, Value: val}, nil
	}
	return SetItem{}, p.errorf("expected '.', ':', '=', or '+=' after variable in SET")
}

func (p *Parser) parseRemove() (*RemoveClause, error) {
	if err := p.expectKeyword("REMOVE"); err != nil {
		return nil, err
	}
	rc := &RemoveClause{}
	for {
		name, err := p.expect(TokIdent, "variable")
		if err != nil {
			return nil, err
		}
		if p.tok.Kind == TokDot {
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.expect(TokIdent, "property name")
			if err != nil {
				return nil, err
			}
			rc.Items = append(rc.Items, RemoveItem{Variable: name.Text, Property: prop.Text})
		} else if p.tok.Kind == TokColon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			lbl, err := p.expect(TokIdent, "label")
			if err != nil {
				return nil, err
			}
			rc.Items = append(rc.Items, RemoveItem{IsLabel: true, Variable: name.Text, Label: lbl.Text})
		} else {
			return nil, p.errorf("expected '.' or ':' after variable in REMOVE")
		}
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return rc, nil
}

func (p *Parser) parseUnwind() (*UnwindClause, error) {
	if err := p.expectKeyword("UNWIND"); err != nil {
		return nil, err
	}
	list, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	v, err := p.expect(TokIdent, "variable")
	if err != nil {
		return nil, err
	}
	return &UnwindClause{List: list, As: v.Text}, nil
}

func (p *Parser) parseCall() (*CallClause, error) {
	if err := p.expectKeyword("CALL"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokIdent, "procedure name")
	if err != nil {
		return nil, err
	}
	full := name.Text
	for p.tok.Kind == TokDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		part, err := p.expect(TokIdent, "procedure name segment")
		if err != nil {
			return nil, err
		}
		full += "." + part.Text
	}
	cc := &CallClause{Procedure: full}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	if p.tok.Kind != TokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			cc.Args = append(cc.Args, arg)
			if p.tok.Kind == TokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	if p.isKeyword("YIELD") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			col, err := p.expect(TokIdent, "yield column")
			if err != nil {
				return nil, err
			}
			cc.Yield = append(cc.Yield, col.Text)
			if p.tok.Kind == TokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	return cc, nil
}

// ---------------------------------------------------------------------
// WITH / RETURN
// ---------------------------------------------------------------------

func (p *Parser) parseWith() (*WithClause, error) {
	if err := p.expectKeyword("WITH"); err != nil {
		return nil, err
	}
	w := &WithClause{}
	if p.isKeyword("DISTINCT") {
		w.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	w.Items = items

	if p.isKeyword("ORDER") {
		ob, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		w.OrderBy = ob
	}
	if p.isKeyword("SKIP") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Skip = e
	}
	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Limit = e
	}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Where = e
	}
	return w, nil
}

func (p *Parser) parseReturn() (*ReturnClause, error) {
	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	r := &ReturnClause{}
	if p.isKeyword("DISTINCT") {
		r.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	r.Items = items

	if p.isKeyword("ORDER") {
		ob, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		r.OrderBy = ob
	}
	if p.isKeyword("SKIP") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		r.Skip = e
	}
	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		r.Limit = e
	}
	return r, nil
}

func (p *Parser) parseReturnItems() ([]ReturnItem, error) {
	var items []ReturnItem
	for {
		if p.tok.Kind == TokStar {
			if err := p.advance(); err != nil {
				return nil, err
			}
			items = append(items, ReturnItem{Star: true})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ReturnItem{Expr: e}
			if p.isKeyword("AS") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				alias, err := p.expect(TokIdent, "alias")
				if err != nil {
					return nil, err
				}
				item.Alias = alias.Text
			}
			items = append(items, item)
		}
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseOrderBy() ([]OrderItem, error) {
	if err := p.expectKeyword("ORDER"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	var items []OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: e}
		if p.isKeyword("DESC") {
			item.Descending = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.isKeyword("ASC") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return items, nil
}

// ---------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("XOR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.isKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.tok.Kind == TokEq, p.tok.Kind == TokNeq, p.tok.Kind == TokLt,
			p.tok.Kind == TokLe, p.tok.Kind == TokGt, p.tok.Kind == TokGe:
			op := p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: op, Left: left, Right: right}
		case p.isKeyword("IN"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: "IN", Left: left, Right: right}
		case p.isKeyword("IS"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			negate := false
			if p.isKeyword("NOT") {
				negate = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			left = &IsNullCheck{Operand: left, Negate: negate}
		case p.isKeyword("STARTS"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: "STARTS WITH", Left: left, Right: right}
		case p.isKeyword("ENDS"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: "ENDS WITH", Left: left, Right: right}
		case p.isKeyword("CONTAINS"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: "CONTAINS", Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokPlus || p.tok.Kind == TokDash {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokStar || p.tok.Kind == TokSlash || p.tok.Kind == TokPercent {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.tok.Kind == TokDash {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case TokDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.expect(TokIdent, "property name")
			if err != nil {
				return nil, err
			}
			e = &PropAccess{Target: e, Prop: prop.Text}
			// A dotted chain immediately followed by "(" is a qualified
			// function name (apoc.coll.sum(...)), not property access on
			// a property access — property values are never themselves
			// callable, so this is unambiguous.
			if p.tok.Kind == TokLParen {
				if name, ok := flattenDottedName(e); ok {
					fc, err := p.parseFuncCallArgs(name)
					if err != nil {
						return nil, err
					}
					e = fc
				}
			}
		case TokLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			var from, to Expr
			isSlice := false
			if p.tok.Kind != TokDotDot {
				from, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if p.tok.Kind == TokDotDot {
				isSlice = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				if p.tok.Kind != TokRBracket {
					to, err = p.parseExpr()
					if err != nil {
						return nil, err
					}
				}
			}
			if _, err := p.expect(TokRBracket, "]"); err != nil {
				return nil, err
			}
			if isSlice {
				e = &ListSlice{Target: e, From: from, To: to}
			} else {
				e = &ListIndex{Target: e, Index: from}
			}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch {
	case p.tok.Kind == TokInt:
		n, err := strconv.ParseInt(p.tok.Text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", p.tok.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitInt{Value: n}, nil
	case p.tok.Kind == TokFloat:
		f, err := strconv.ParseFloat(p.tok.Text, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal %q", p.tok.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitFloat{Value: f}, nil
	case p.tok.Kind == TokString:
		s := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitString{Value: s}, nil
	case p.tok.Kind == TokParam:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Param{Name: name}, nil
	case p.isKeyword("TRUE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitBool{Value: true}, nil
	case p.isKeyword("FALSE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitBool{Value: false}, nil
	case p.isKeyword("NULL"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LitNull{}, nil
	case p.isKeyword("CASE"):
		return p.parseCase()
	case p.isKeyword("EXISTS"):
		return p.parseExists()
	case p.tok.Kind == TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.tok.Kind == TokLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		lst := &LitList{}
		if p.tok.Kind != TokRBracket {
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				lst.Items = append(lst.Items, e)
				if p.tok.Kind == TokComma {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if _, err := p.expect(TokRBracket, "]"); err != nil {
			return nil, err
		}
		return lst, nil
	case p.tok.Kind == TokLBrace:
		props, err := p.parsePropertyMap()
		if err != nil {
			return nil, err
		}
		return &LitMap{Entries: props}, nil
	case p.tok.Kind == TokIdent:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokLParen {
			return p.parseFuncCallArgs(name)
		}
		return &VarRef{Name: name}, nil
	case p.tok.Kind == TokStar:
		// bare '*' is only valid inside count(*); the caller (parseFuncCallArgs)
		// special-cases it before we get here.
		return nil, p.errorf("unexpected '*'")
	}
	return nil, p.errorf("unexpected token %q in expression", p.tok.Text)
}

// flattenDottedName reports whether e is a plain chain of PropAccess nodes
// rooted at a VarRef (a.b.c, never a.b[0].c), returning the dotted name
// joined with ".". Used to recognize a qualified function name like
// apoc.coll.sum that parsePostfix has so far built as property access.
func flattenDottedName(e Expr) (string, bool) {
	switch v := e.(type) {
	case *VarRef:
		return v.Name, true
	case *PropAccess:
		base, ok := flattenDottedName(v.Target)
		if !ok {
			return "", false
		}
		return base + "." + v.Prop, true
	default:
		return "", false
	}
}

func (p *Parser) parseFuncCallArgs(name string) (Expr, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	call := &FuncCall{Name: strings.ToLower(name)}
	if p.tok.Kind == TokStar {
		if err := p.advance(); err != nil {
			return nil, err
		}
		call.Args = []Expr{&VarRef{Name: "*"}}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
	if p.isKeyword("DISTINCT") {
		call.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind != TokRParen {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
			if p.tok.Kind == TokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseCase() (Expr, error) {
	if err := p.expectKeyword("CASE"); err != nil {
		return nil, err
	}
	ce := &CaseExpr{}
	if !p.isKeyword("WHEN") {
		test, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Test = test
	}
	for p.isKeyword("WHEN") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Then: then})
	}
	if p.isKeyword("ELSE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *Parser) parseExists() (Expr, error) {
	if err := p.expectKeyword("EXISTS"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("MATCH"); err != nil {
		// EXISTS { (pattern) } without a leading MATCH keyword is also valid Cypher;
		// fall back to parsing a bare pattern if MATCH is absent.
		path, perr := p.parsePatternPath()
		if perr != nil {
			return nil, err
		}
		ee := &ExistsExpr{Pattern: path}
		if p.isKeyword("WHERE") {
			if aerr := p.advance(); aerr != nil {
				return nil, aerr
			}
			w, werr := p.parseExpr()
			if werr != nil {
				return nil, werr
			}
			ee.Where = w
		}
		if _, err := p.expect(TokRBrace, "}"); err != nil {
			return nil, err
		}
		return ee, nil
	}
	path, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	ee := &ExistsExpr{Pattern: path}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ee.Where = w
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return ee, nil
}
