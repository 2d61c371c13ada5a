package grammar

import (
	"fmt"
	"strings"

	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

func (p *parser) parseSelect() (err error) {
	if p.accept(LPAREN) {
		if err = p.parseSelect(); err != nil {
			return
		}
		if _, err = p.expect(RPAREN); err != nil {
			return
		}
		return p.parseSetOperation()
	}

	if _, err = p.expectKeyword("SELECT"); err != nil {
		return
	}
	if p.acceptKeyword("DISTINCT") {
		if p.top() {
			p.builder.SetDistinct(true)
		}
	} else {
		p.acceptKeyword("ALL")
	}
	if p.dialect.TopClause && p.peekKeyword("TOP") {
		if err = p.parseTop(); err != nil {
			return
		}
	}

	if err = p.parseSelectItems(); err != nil {
		return
	}
	if tok := p.peek(); isKeyword(tok, "INTO") {
		err = newSyntaxError(p.sql, tok.Pos, "SELECT INTO is not supported")
		return
	}

	if p.acceptKeyword("FROM") {
		if err = p.parseTableReferences(); err != nil {
			return
		}
	}
	if err = p.parseWhere(); err != nil {
		return
	}
	if p.acceptKeyword("GROUP") {
		if _, err = p.expectKeyword("BY"); err != nil {
			return
		}
		if err = p.parseOrderItems(p.builder.AddGroupBy); err != nil {
			return
		}
	}
	if p.acceptKeyword("HAVING") {
		if _, err = p.parseExpr(precLowest); err != nil {
			return
		}
	}
	if err = p.parseSetOperation(); err != nil {
		return
	}
	if p.acceptKeyword("ORDER") {
		if _, err = p.expectKeyword("BY"); err != nil {
			return
		}
		if err = p.parseOrderItems(p.builder.AddOrderBy); err != nil {
			return
		}
	}
	if err = p.parsePaging(); err != nil {
		return
	}
	if p.acceptKeyword("FOR") {
		if _, err = p.expectKeyword("UPDATE"); err != nil {
			return
		}
		if p.top() {
			p.builder.SetForUpdate(true)
		}
		if p.acceptKeyword("OF") {
			if _, err = p.parseExprList(); err != nil {
				return
			}
		}
		p.acceptKeyword("NOWAIT")
	}
	return
}

// 不支持集合运算, 需拆分后分别路由
func (p *parser) parseSetOperation() error {
	if tok := p.peek(); isKeyword(tok, "UNION", "INTERSECT", "EXCEPT", "MINUS") {
		return newSyntaxError(p.sql, tok.Pos, fmt.Sprintf("%v is not supported", strings.ToUpper(tok.Literal)))
	}
	return nil
}

func (p *parser) parseTop() (err error) {
	p.advance()
	var e expr
	if p.accept(LPAREN) {
		if e, err = p.parseExpr(precLowest); err != nil {
			return
		}
		if _, err = p.expect(RPAREN); err != nil {
			return
		}
	} else if e, err = p.parsePrefix(); err != nil {
		return
	}
	p.acceptKeyword("PERCENT")
	if p.top() {
		p.builder.SetRowCount(p.valueOf(e))
	}
	return
}

func (p *parser) parseSelectItems() (err error) {
	for {
		start := p.peek().Pos
		var item sqlcontext.SelectItem
		switch {
		case p.peekOperator("*"):
			p.advance()
			item.Expression = "*"
		case isName(p.peek()) && p.peekN(1).Type == DOT && p.peekN(2).Type == OPERATOR && p.peekN(2).Literal == "*":
			p.pos += 3
			item.Expression = p.text(start, p.lastEnd())
		default:
			var e expr
			if e, err = p.parseExpr(precLowest); err != nil {
				return
			}
			item.Expression = p.text(start, p.lastEnd())
			if fn, ok := e.(*funcExpr); ok {
				item.Aggregation = sqlcontext.AggregationOf(fn.name)
				item.Distinct = fn.distinct
			}
			if item.Alias, err = p.parseAlias(); err != nil {
				return
			}
		}
		if p.top() {
			p.builder.AddItem(item)
		}
		if !p.accept(COMMA) {
			return
		}
	}
}

func (p *parser) parseAlias() (alias string, err error) {
	if p.acceptKeyword("AS") {
		tok := p.advance()
		if tok.Type == IDENT || tok.Type == QUOTED_IDENT || tok.Type == STRING {
			alias = tok.Literal
			return
		}
		err = p.unexpected(tok, "alias")
		return
	}
	if tok := p.peek(); isName(tok) {
		p.advance()
		alias = tok.Literal
	}
	return
}

func isName(tok Token) bool {
	return tok.Type == QUOTED_IDENT || (tok.Type == IDENT && !isReserved(tok.Literal))
}

// 解析 a.b.c 形式的名称, 返回最后两段
func (p *parser) parseQualifiedName() (qualifier, name string, err error) {
	var parts []string
	for {
		tok := p.advance()
		if !isName(tok) {
			err = p.unexpected(tok, "identifier")
			return
		}
		parts = append(parts, tok.Literal)
		if p.peek().Type != DOT || !isName(p.peekN(1)) {
			break
		}
		p.advance()
	}
	name = parts[len(parts)-1]
	if len(parts) > 1 {
		qualifier = parts[len(parts)-2]
	}
	return
}

func (p *parser) parseTableReferences() (err error) {
	for {
		if err = p.parseTableReference(); err != nil {
			return
		}
		if !p.accept(COMMA) {
			return
		}
	}
}

func (p *parser) parseTableReference() (err error) {
	if err = p.parseTableFactor(); err != nil {
		return
	}
	for {
		natural := p.acceptKeyword("NATURAL")
		cross := false
		switch {
		case p.acceptKeyword("CROSS"):
			cross = true
		case p.acceptKeyword("INNER"):
		case p.acceptKeyword("LEFT", "RIGHT", "FULL"):
			p.acceptKeyword("OUTER")
		case p.peekKeyword("JOIN"):
		default:
			if natural {
				err = p.unexpected(p.peek(), "JOIN")
			}
			return
		}
		if _, err = p.expectKeyword("JOIN"); err != nil {
			return
		}
		if err = p.parseTableFactor(); err != nil {
			return
		}
		if natural || cross {
			continue
		}
		if p.acceptKeyword("ON") {
			if _, err = p.parseExpr(precLowest); err != nil {
				return
			}
		} else if p.acceptKeyword("USING") {
			if _, err = p.skipParens(); err != nil {
				return
			}
		}
	}
}

func (p *parser) parseTableFactor() (err error) {
	if p.accept(LPAREN) {
		if p.peekKeyword("SELECT") {
			p.depth++
			err = p.parseSelect()
			p.depth--
			if err != nil {
				return
			}
			if _, err = p.expect(RPAREN); err != nil {
				return
			}
			_, err = p.parseAlias()
			return
		}
		if err = p.parseTableReference(); err != nil {
			return
		}
		_, err = p.expect(RPAREN)
		return
	}

	var name, alias string
	if _, name, err = p.parseQualifiedName(); err != nil {
		return
	}
	if err = p.parseTableHints(); err != nil {
		return
	}
	if alias, err = p.parseAlias(); err != nil {
		return
	}
	if err = p.parseTableHints(); err != nil {
		return
	}
	// 子查询中的表不参与外层列的归属
	if p.top() {
		p.builder.AddTable(name, alias)
	} else {
		p.builder.AddNestedTable(name, alias)
	}
	return
}

// SQLServer表提示 WITH (NOLOCK)
func (p *parser) parseTableHints() (err error) {
	if p.dialect.TableHints && p.peekKeyword("WITH") && p.peekN(1).Type == LPAREN {
		p.advance()
		_, err = p.skipParens()
	}
	return
}

func (p *parser) parseWhere() (err error) {
	if !p.acceptKeyword("WHERE") {
		return
	}
	var where expr
	if where, err = p.parseExpr(precLowest); err != nil {
		return
	}
	if p.top() {
		p.collectConditions(where)
	}
	return
}

func (p *parser) parseOrderItems(add func(sqlcontext.OrderItem)) (err error) {
	for {
		start := p.peek().Pos
		var e expr
		if e, err = p.parseExpr(precLowest); err != nil {
			return
		}
		var item sqlcontext.OrderItem
		switch n := unwrap(e).(type) {
		case *columnExpr:
			item.Table = n.qualifier
			item.Name = n.name
		case *literalExpr:
			if idx, ok := n.value.(int64); ok {
				item.Index = int(idx)
			} else {
				item.Expression = p.text(start, p.lastEnd())
			}
		default:
			item.Expression = p.text(start, p.lastEnd())
		}
		if p.acceptKeyword("DESC") {
			item.Desc = true
		} else {
			p.acceptKeyword("ASC")
		}
		if p.acceptKeyword("NULLS") && !p.acceptKeyword("FIRST", "LAST") {
			err = p.unexpected(p.peek(), "FIRST or LAST")
			return
		}
		if p.top() {
			add(item)
		}
		if !p.accept(COMMA) {
			return
		}
	}
}

func (p *parser) parsePaging() (err error) {
	for {
		switch {
		case p.dialect.OffsetFetchClause && p.peekKeyword("OFFSET"):
			p.advance()
			var e expr
			if e, err = p.parseExpr(precLowest); err != nil {
				return
			}
			p.acceptKeyword("ROW", "ROWS")
			if p.top() {
				p.builder.SetOffset(p.valueOf(e))
			}
		case p.dialect.OffsetFetchClause && p.peekKeyword("FETCH"):
			p.advance()
			if !p.acceptKeyword("FIRST", "NEXT") {
				err = p.unexpected(p.peek(), "FIRST or NEXT")
				return
			}
			rowCount := p.builder.Literal(int64(1), "1")
			if !p.peekKeyword("ROW", "ROWS") {
				var e expr
				if e, err = p.parseExpr(precLowest); err != nil {
					return
				}
				rowCount = p.valueOf(e)
			}
			if !p.acceptKeyword("ROW", "ROWS") {
				err = p.unexpected(p.peek(), "ROWS")
				return
			}
			if _, err = p.expectKeyword("ONLY"); err != nil {
				return
			}
			if p.top() {
				p.builder.SetRowCount(rowCount)
			}
		default:
			return
		}
	}
}

func (p *parser) parseInsert() (err error) {
	p.advance()
	if !p.acceptKeyword("INTO") && !p.dialect.OptionalInsertInto {
		err = p.unexpected(p.peek(), "INTO")
		return
	}
	var name, alias string
	if _, name, err = p.parseQualifiedName(); err != nil {
		return
	}
	if p.acceptKeyword("AS") {
		if _, alias, err = p.parseQualifiedName(); err != nil {
			return
		}
	}
	p.builder.AddTable(name, alias)

	columnCount := 0
	if p.peek().Type == LPAREN && !isKeyword(p.peekN(1), "SELECT") {
		p.advance()
		for {
			var column string
			if _, column, err = p.parseQualifiedName(); err != nil {
				return
			}
			p.builder.AddColumn(column)
			columnCount++
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err = p.expect(RPAREN); err != nil {
			return
		}
	}

	switch {
	case p.acceptKeyword("VALUES"):
		if err = p.parseValueRows(columnCount); err != nil {
			return
		}
	case p.peekKeyword("SELECT") || p.peek().Type == LPAREN:
		p.depth++
		err = p.parseSelect()
		p.depth--
		if err != nil {
			return
		}
	case p.acceptKeyword("DEFAULT"):
		if _, err = p.expectKeyword("VALUES"); err != nil {
			return
		}
	default:
		err = p.unexpected(p.peek(), "VALUES or SELECT")
	}
	return
}

func (p *parser) parseValueRows(columnCount int) (err error) {
	for rowNum := 1; ; rowNum++ {
		var tok Token
		if tok, err = p.expect(LPAREN); err != nil {
			return
		}
		var exprs []expr
		if p.peek().Type != RPAREN {
			if exprs, err = p.parseExprList(); err != nil {
				return
			}
		}
		if _, err = p.expect(RPAREN); err != nil {
			return
		}
		if columnCount > 0 && len(exprs) != columnCount {
			err = newSyntaxError(p.sql, tok.Pos, fmt.Sprintf("column count %d doesn't match value count %d at row %d", columnCount, len(exprs), rowNum))
			return
		}
		row := make([]sqlcontext.Value, 0, len(exprs))
		for _, e := range exprs {
			row = append(row, p.valueOf(e))
		}
		p.builder.AddRow(row)
		if !p.accept(COMMA) {
			return
		}
	}
}

func (p *parser) parseUpdate() (err error) {
	p.advance()
	var name, alias string
	if _, name, err = p.parseQualifiedName(); err != nil {
		return
	}
	if err = p.parseTableHints(); err != nil {
		return
	}
	if alias, err = p.parseAlias(); err != nil {
		return
	}
	p.builder.AddTable(name, alias)

	if _, err = p.expectKeyword("SET"); err != nil {
		return
	}
	for {
		var qualifier, column string
		if qualifier, column, err = p.parseQualifiedName(); err != nil {
			return
		}
		if !p.peekOperator("=") {
			err = p.unexpected(p.peek(), "=")
			return
		}
		p.advance()
		var e expr
		if e, err = p.parseExpr(precLowest); err != nil {
			return
		}
		p.builder.AddAssignment(qualifier, column, p.valueOf(e))
		if !p.accept(COMMA) {
			break
		}
	}

	if p.acceptKeyword("FROM") {
		if err = p.parseTableReferences(); err != nil {
			return
		}
	}
	return p.parseWhere()
}

func (p *parser) parseDelete() (err error) {
	p.advance()
	p.acceptKeyword("FROM")
	var name, alias string
	if _, name, err = p.parseQualifiedName(); err != nil {
		return
	}
	if err = p.parseTableHints(); err != nil {
		return
	}
	if alias, err = p.parseAlias(); err != nil {
		return
	}
	p.builder.AddTable(name, alias)

	if p.acceptKeyword("FROM") {
		if err = p.parseTableReferences(); err != nil {
			return
		}
	}
	return p.parseWhere()
}
