package grammar

import (
	"strings"

	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

func (p *parser) valueOf(e expr) sqlcontext.Value {
	start, end := e.span()
	switch n := unwrap(e).(type) {
	case *literalExpr:
		return p.builder.Literal(n.value, p.text(start, end))
	case *placeholderExpr:
		v := p.builder.Placeholder(n.index)
		v.Text = p.text(start, end)
		return v
	}
	return p.builder.Expression(p.text(start, end))
}

func (p *parser) constantOf(e expr) (v sqlcontext.Value, ok bool) {
	v = p.valueOf(e)
	ok = v.IsConstant()
	return
}

// 只收集顶层AND链上的条件, OR及NOT分支不参与路由
func (p *parser) collectConditions(e expr) {
	switch n := unwrap(e).(type) {
	case *binaryExpr:
		switch n.op {
		case "AND":
			p.collectConditions(n.left)
			p.collectConditions(n.right)
		case "=":
			if column, ok := unwrap(n.left).(*columnExpr); ok {
				if v, ok := p.constantOf(n.right); ok {
					p.builder.AddCondition(column.qualifier, column.name, sqlcontext.Operator_Equal, v)
					return
				}
			}
			if column, ok := unwrap(n.right).(*columnExpr); ok {
				if v, ok := p.constantOf(n.left); ok {
					p.builder.AddCondition(column.qualifier, column.name, sqlcontext.Operator_Equal, v)
				}
			}
		case "<", "<=":
			p.collectRownum(n)
		}
	case *inExpr:
		column, ok := unwrap(n.left).(*columnExpr)
		if !ok || n.not || n.subquery {
			return
		}
		values := make([]sqlcontext.Value, 0, len(n.list))
		for _, item := range n.list {
			v, ok := p.constantOf(item)
			if !ok {
				return
			}
			values = append(values, v)
		}
		p.builder.AddCondition(column.qualifier, column.name, sqlcontext.Operator_In, values...)
	case *betweenExpr:
		column, ok := unwrap(n.left).(*columnExpr)
		if !ok || n.not {
			return
		}
		low, ok := p.constantOf(n.low)
		if !ok {
			return
		}
		high, ok := p.constantOf(n.high)
		if !ok {
			return
		}
		p.builder.AddCondition(column.qualifier, column.name, sqlcontext.Operator_Between, low, high)
	}
}

// Oracle分页: ROWNUM < n 或 ROWNUM <= n, 按原样记录为行数
func (p *parser) collectRownum(n *binaryExpr) {
	if !p.dialect.RownumPaging || p.builder.HasRowCount() {
		return
	}
	column, ok := unwrap(n.left).(*columnExpr)
	if !ok || column.qualifier != "" || !strings.EqualFold(column.name, "ROWNUM") {
		return
	}
	if v, ok := p.constantOf(n.right); ok {
		p.builder.SetRowCount(v)
	}
}
