package grammar

import (
	"math"
	"strconv"
	"strings"

	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 运算符优先级
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precComparison
	precConcat
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

type expr interface {
	span() (start, end int)
}

type node struct {
	start int
	end   int
}

func (n node) span() (int, int) {
	return n.start, n.end
}

type columnExpr struct {
	node
	qualifier string
	name      string
}

type literalExpr struct {
	node
	value any
}

type placeholderExpr struct {
	node
	index int
}

type unaryExpr struct {
	node
	op      string
	operand expr
}

type binaryExpr struct {
	node
	op    string
	left  expr
	right expr
}

type inExpr struct {
	node
	left     expr
	list     []expr
	not      bool
	subquery bool
}

type betweenExpr struct {
	node
	left expr
	low  expr
	high expr
	not  bool
}

type funcExpr struct {
	node
	name     string
	args     []expr
	distinct bool
}

type parenExpr struct {
	node
	inner expr
}

// CASE, EXISTS, CAST, 子查询等不参与分片计算的表达式
type otherExpr struct {
	node
}

func unwrap(e expr) expr {
	for {
		paren, ok := e.(*parenExpr)
		if !ok {
			return e
		}
		e = paren.inner
	}
}

func (p *parser) parseExpr(prec int) (e expr, err error) {
	if e, err = p.parsePrefix(); err != nil {
		return
	}
	for {
		opPrec, ok := p.infixPrecedence()
		if !ok || opPrec <= prec {
			return
		}
		if e, err = p.parseInfix(e, opPrec); err != nil {
			return
		}
	}
}

func (p *parser) parseExprList() (exprs []expr, err error) {
	for {
		var e expr
		if e, err = p.parseExpr(precLowest); err != nil {
			return
		}
		exprs = append(exprs, e)
		if !p.accept(COMMA) {
			return
		}
	}
}

func (p *parser) infixPrecedence() (prec int, ok bool) {
	tok := p.peek()
	switch tok.Type {
	case IDENT:
		switch strings.ToUpper(tok.Literal) {
		case "OR":
			return precOr, true
		case "AND":
			return precAnd, true
		case "IN", "LIKE", "BETWEEN", "IS":
			return precComparison, true
		case "NOT":
			next := p.peekN(1)
			if isKeyword(next, "IN", "LIKE", "BETWEEN") {
				return precComparison, true
			}
		}
	case OPERATOR:
		switch tok.Literal {
		case "=", "<>", "!=", "<", ">", "<=", ">=":
			return precComparison, true
		case "||":
			return precConcat, p.dialect.ConcatOperator
		case "+", "-":
			return precAdditive, true
		case "*", "/", "%":
			return precMultiplicative, true
		}
	case LPAREN:
		if p.isOuterJoinMarker() {
			return precPostfix, true
		}
	}
	return
}

// Oracle外连接标记 (+)
func (p *parser) isOuterJoinMarker() bool {
	if !p.dialect.OuterJoinMarker || p.peek().Type != LPAREN {
		return false
	}
	plus := p.peekN(1)
	return plus.Type == OPERATOR && plus.Literal == "+" && p.peekN(2).Type == RPAREN
}

func (p *parser) parseInfix(left expr, prec int) (e expr, err error) {
	start, _ := left.span()
	tok := p.advance()

	if tok.Type == LPAREN {
		p.pos += 2
		e = left
		return
	}

	if tok.Type == OPERATOR {
		var right expr
		if right, err = p.parseExpr(prec); err != nil {
			return
		}
		_, end := right.span()
		e = &binaryExpr{node: node{start, end}, op: tok.Literal, left: left, right: right}
		return
	}

	keyword := strings.ToUpper(tok.Literal)
	switch keyword {
	case "AND", "OR":
		var right expr
		if right, err = p.parseExpr(prec); err != nil {
			return
		}
		_, end := right.span()
		e = &binaryExpr{node: node{start, end}, op: keyword, left: left, right: right}
		return
	case "IS":
		p.acceptKeyword("NOT")
		if p.acceptKeyword("DISTINCT") {
			if _, err = p.expectKeyword("FROM"); err != nil {
				return
			}
			if _, err = p.parseExpr(precComparison); err != nil {
				return
			}
		} else if !p.acceptKeyword("NULL", "TRUE", "FALSE", "UNKNOWN") {
			err = p.unexpected(p.peek(), "NULL")
			return
		}
		e = &otherExpr{node{start, p.lastEnd()}}
		return
	}

	not := false
	if keyword == "NOT" {
		not = true
		keyword = strings.ToUpper(p.advance().Literal)
	}
	switch keyword {
	case "IN":
		e, err = p.parseIn(left, not)
	case "BETWEEN":
		var low, high expr
		if low, err = p.parseExpr(precComparison); err != nil {
			return
		}
		if _, err = p.expectKeyword("AND"); err != nil {
			return
		}
		if high, err = p.parseExpr(precComparison); err != nil {
			return
		}
		_, end := high.span()
		e = &betweenExpr{node: node{start, end}, left: left, low: low, high: high, not: not}
	default:
		// LIKE
		var right expr
		if right, err = p.parseExpr(precComparison); err != nil {
			return
		}
		if p.acceptKeyword("ESCAPE") {
			if right, err = p.parsePrefix(); err != nil {
				return
			}
		}
		op := keyword
		if not {
			op = "NOT " + keyword
		}
		e = &binaryExpr{node: node{start, p.lastEnd()}, op: op, left: left, right: right}
	}
	return
}

func (p *parser) parseIn(left expr, not bool) (e expr, err error) {
	start, _ := left.span()
	if _, err = p.expect(LPAREN); err != nil {
		return
	}
	in := &inExpr{left: left, not: not}
	if p.peekKeyword("SELECT") {
		p.depth++
		err = p.parseSelect()
		p.depth--
		if err != nil {
			return
		}
		in.subquery = true
	} else if in.list, err = p.parseExprList(); err != nil {
		return
	}
	var end Token
	if end, err = p.expect(RPAREN); err != nil {
		return
	}
	in.node = node{start, end.End}
	e = in
	return
}

func (p *parser) parsePrefix() (e expr, err error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		e = &literalExpr{node: node{tok.Pos, tok.End}, value: parseNumber(tok.Literal)}
		return
	case STRING:
		p.advance()
		e = &literalExpr{node: node{tok.Pos, tok.End}, value: tok.Literal}
		return
	case PLACEHOLDER:
		p.advance()
		e = &placeholderExpr{node: node{tok.Pos, tok.End}, index: tok.ParamIndex}
		return
	case OPERATOR:
		if tok.Literal == "-" || tok.Literal == "+" {
			p.advance()
			return p.parseUnary(tok)
		}
	case LPAREN:
		return p.parseParen()
	case QUOTED_IDENT:
		return p.parseIdentifier()
	case IDENT:
		keyword := strings.ToUpper(tok.Literal)
		switch keyword {
		case "NULL", "TRUE", "FALSE":
			p.advance()
			var value any
			if keyword != "NULL" {
				value = keyword == "TRUE"
			}
			e = &literalExpr{node: node{tok.Pos, tok.End}, value: value}
			return
		case "NOT":
			p.advance()
			var operand expr
			if operand, err = p.parseExpr(precNot); err != nil {
				return
			}
			_, end := operand.span()
			e = &unaryExpr{node: node{tok.Pos, end}, op: keyword, operand: operand}
			return
		case "EXISTS":
			p.advance()
			return p.parseParen()
		case "CASE":
			return p.parseCase()
		case "CAST":
			if p.peekN(1).Type == LPAREN {
				return p.parseCast()
			}
		case "DATE", "TIME", "TIMESTAMP", "INTERVAL":
			if next := p.peekN(1); next.Type == STRING {
				p.pos += 2
				e = &literalExpr{node: node{tok.Pos, next.End}, value: next.Literal}
				return
			}
		}
		if !isReserved(tok.Literal) {
			return p.parseIdentifier()
		}
	}
	err = p.unexpected(tok, "expression")
	return
}

func (p *parser) parseUnary(op Token) (e expr, err error) {
	var operand expr
	if operand, err = p.parseExpr(precUnary); err != nil {
		return
	}
	_, end := operand.span()
	if lit, ok := operand.(*literalExpr); ok && op.Literal == "-" {
		switch v := lit.value.(type) {
		case int64:
			e = &literalExpr{node: node{op.Pos, end}, value: -v}
			return
		case float64:
			e = &literalExpr{node: node{op.Pos, end}, value: -v}
			return
		case uint64:
			if v == 1<<63 {
				e = &literalExpr{node: node{op.Pos, end}, value: int64(math.MinInt64)}
				return
			}
		}
	}
	if op.Literal == "+" {
		e = operand
		return
	}
	e = &unaryExpr{node: node{op.Pos, end}, op: op.Literal, operand: operand}
	return
}

func (p *parser) parseParen() (e expr, err error) {
	var open Token
	if open, err = p.expect(LPAREN); err != nil {
		return
	}
	if p.peekKeyword("SELECT") {
		p.depth++
		err = p.parseSelect()
		p.depth--
		if err != nil {
			return
		}
		var end Token
		if end, err = p.expect(RPAREN); err != nil {
			return
		}
		e = &otherExpr{node{open.Pos, end.End}}
		return
	}

	var exprs []expr
	if exprs, err = p.parseExprList(); err != nil {
		return
	}
	var end Token
	if end, err = p.expect(RPAREN); err != nil {
		return
	}
	if len(exprs) > 1 {
		e = &otherExpr{node{open.Pos, end.End}}
		return
	}
	e = &parenExpr{node: node{open.Pos, end.End}, inner: exprs[0]}
	return
}

func (p *parser) parseCase() (e expr, err error) {
	start := p.advance().Pos
	if !p.peekKeyword("WHEN") {
		if _, err = p.parseExpr(precLowest); err != nil {
			return
		}
	}
	if !p.peekKeyword("WHEN") {
		err = p.unexpected(p.peek(), "WHEN")
		return
	}
	for p.acceptKeyword("WHEN") {
		if _, err = p.parseExpr(precLowest); err != nil {
			return
		}
		if _, err = p.expectKeyword("THEN"); err != nil {
			return
		}
		if _, err = p.parseExpr(precLowest); err != nil {
			return
		}
	}
	if p.acceptKeyword("ELSE") {
		if _, err = p.parseExpr(precLowest); err != nil {
			return
		}
	}
	var end Token
	if end, err = p.expectKeyword("END"); err != nil {
		return
	}
	e = &otherExpr{node{start, end.End}}
	return
}

func (p *parser) parseCast() (e expr, err error) {
	start := p.advance().Pos
	p.advance()
	if _, err = p.parseExpr(precLowest); err != nil {
		return
	}
	if _, err = p.expectKeyword("AS"); err != nil {
		return
	}
	if _, err = p.parseTypeName(); err != nil {
		return
	}
	var end Token
	if end, err = p.expect(RPAREN); err != nil {
		return
	}
	e = &otherExpr{node{start, end.End}}
	return
}

func (p *parser) parseTypeName() (end int, err error) {
	tok := p.advance()
	if tok.Type != IDENT && tok.Type != QUOTED_IDENT {
		err = p.unexpected(tok, "type name")
		return
	}
	switch strings.ToUpper(tok.Literal) {
	case "DOUBLE":
		p.acceptKeyword("PRECISION")
	case "CHARACTER", "CHAR":
		p.acceptKeyword("VARYING")
	}
	end = p.lastEnd()
	if p.peek().Type == LPAREN {
		end, err = p.skipParens()
	}
	return
}

func (p *parser) parseIdentifier() (e expr, err error) {
	first := p.advance()
	parts := []string{first.Literal}
	end := first.End
	for p.peek().Type == DOT && isName(p.peekN(1)) {
		p.advance()
		tok := p.advance()
		parts = append(parts, tok.Literal)
		end = tok.End
	}

	last := p.tokens[p.pos-1]
	if last.Type == IDENT && p.peek().Type == LPAREN && !p.isOuterJoinMarker() {
		return p.parseFunction(first.Pos, last.Literal)
	}

	column := &columnExpr{node: node{first.Pos, end}, name: parts[len(parts)-1]}
	if len(parts) > 1 {
		column.qualifier = parts[len(parts)-2]
	}
	e = column
	return
}

func (p *parser) parseFunction(start int, name string) (e expr, err error) {
	p.advance()
	fn := &funcExpr{name: name}
	if p.peekOperator("*") {
		p.advance()
	} else if p.peek().Type != RPAREN {
		if p.acceptKeyword("DISTINCT") {
			fn.distinct = true
		} else {
			p.acceptKeyword("ALL")
		}
		for {
			var arg expr
			if arg, err = p.parseExpr(precLowest); err != nil {
				return
			}
			fn.args = append(fn.args, arg)
			// EXTRACT(YEAR FROM x), SUBSTRING(x FROM 1 FOR 2)
			if p.accept(COMMA) || p.acceptKeyword("FROM", "FOR") {
				continue
			}
			break
		}
		if p.acceptKeyword("ORDER") {
			if _, err = p.expectKeyword("BY"); err != nil {
				return
			}
			if err = p.parseOrderItems(func(sqlcontext.OrderItem) {}); err != nil {
				return
			}
		}
	}
	var end Token
	if end, err = p.expect(RPAREN); err != nil {
		return
	}
	fn.node = node{start, end.End}

	// 窗口函数和聚合过滤
	for {
		switch {
		case p.acceptKeyword("OVER"):
			if p.peek().Type == LPAREN {
				if fn.end, err = p.skipParens(); err != nil {
					return
				}
			} else {
				fn.end = p.advance().End
			}
		case p.acceptKeyword("FILTER"):
			if fn.end, err = p.skipParens(); err != nil {
				return
			}
		case p.acceptKeyword("WITHIN"):
			if _, err = p.expectKeyword("GROUP"); err != nil {
				return
			}
			if fn.end, err = p.skipParens(); err != nil {
				return
			}
		default:
			e = fn
			return
		}
	}
}

// 整数解析为int64, 超出int64的正整数为uint64, 其他数字解析为float64
func parseNumber(literal string) any {
	if v, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(literal, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(literal, 64); err == nil {
		return v
	}
	return literal
}
