package parser

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	tiParser "github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/opcode"
	"github.com/pingcap/tidb/types"
	parserDriver "github.com/pingcap/tidb/types/parser_driver"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// MySQL语法解析器, H2共用
type MySQLExprParser struct {
	databaseType dialect.DatabaseType
	sql          string
	parameters   []any
	shardingRule ShardingRule
	parser       *tiParser.Parser
	builder      *sqlcontext.Builder
}

func NewMySQLExprParser(databaseType dialect.DatabaseType, sql string, parameters []any, shardingRule ShardingRule) *MySQLExprParser {
	return &MySQLExprParser{
		databaseType: databaseType,
		sql:          sql,
		parameters:   parameters,
		shardingRule: shardingRule,
		parser:       tiParser.New(),
	}
}

func (p *MySQLExprParser) DatabaseType() dialect.DatabaseType {
	return dialect.MySQL
}

func (p *MySQLExprParser) SQL() string {
	return p.sql
}

func (p *MySQLExprParser) Parse() (ctx sqlcontext.SQLContext, placeholderCount int, err error) {
	var stmts []ast.StmtNode
	stmts, _, err = p.parser.Parse(p.sql, "", "")
	if err != nil {
		return
	}
	if len(stmts) == 0 {
		err = fmt.Errorf("empty statement")
		return
	}
	if len(stmts) > 1 {
		err = fmt.Errorf("multiple statements are not supported,count=[%v]", len(stmts))
		return
	}
	stmt := stmts[0]
	placeholderCount = orderParamMarkers(stmt)

	switch node := stmt.(type) {
	case *ast.SelectStmt:
		if node.With != nil {
			err = fmt.Errorf("WITH is not supported")
			return
		}
		p.newBuilder(sqlcontext.SQLType_Select, stmt, node.From)
		err = p.parseSelectStmt(node)
	case *ast.InsertStmt:
		p.newBuilder(sqlcontext.SQLType_Insert, stmt, node.Table)
		err = p.parseInsertStmt(node)
	case *ast.UpdateStmt:
		p.newBuilder(sqlcontext.SQLType_Update, stmt, node.TableRefs)
		err = p.parseUpdateStmt(node)
	case *ast.DeleteStmt:
		p.newBuilder(sqlcontext.SQLType_Delete, stmt, node.TableRefs)
		err = p.collectConditions(node.Where)
	default:
		err = fmt.Errorf("unsupported statement type %T", stmt)
	}
	if err != nil {
		return
	}

	ctx = p.builder.Build()
	return
}

// 按出现顺序记录语句中的所有表, refs为外层语句自身的表, 其余为子查询中的表
func (p *MySQLExprParser) newBuilder(sqlType sqlcontext.SQLType, stmt ast.StmtNode, refs *ast.TableRefsClause) {
	p.builder = sqlcontext.NewBuilder(sqlType, p.databaseType, p.sql, p.parameters, p.shardingRule)
	outer := map[*ast.TableSource]bool{}
	if refs != nil {
		outerSources(refs.TableRefs, outer)
	}
	collector := &tableCollector{}
	stmt.Accept(collector)
	for _, source := range collector.sources {
		name := source.Source.(*ast.TableName).Name.O
		if outer[source] {
			p.builder.AddTable(name, source.AsName.O)
		} else {
			p.builder.AddNestedTable(name, source.AsName.O)
		}
	}
}

// join树上的表, 不进入派生表
func outerSources(node ast.ResultSetNode, outer map[*ast.TableSource]bool) {
	switch n := node.(type) {
	case *ast.Join:
		outerSources(n.Left, outer)
		outerSources(n.Right, outer)
	case *ast.TableSource:
		switch source := n.Source.(type) {
		case *ast.TableName:
			outer[n] = true
		case *ast.Join:
			outerSources(source, outer)
		}
	}
}

type tableCollector struct {
	sources []*ast.TableSource
}

func (c *tableCollector) Enter(in ast.Node) (ast.Node, bool) {
	if source, ok := in.(*ast.TableSource); ok {
		if _, ok := source.Source.(*ast.TableName); ok {
			c.sources = append(c.sources, source)
		}
	}
	return in, false
}

func (c *tableCollector) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

type paramMarkerCollector struct {
	markers []*parserDriver.ParamMarkerExpr
}

func (c *paramMarkerCollector) Enter(in ast.Node) (ast.Node, bool) {
	if marker, ok := in.(*parserDriver.ParamMarkerExpr); ok {
		c.markers = append(c.markers, marker)
	}
	return in, false
}

func (c *paramMarkerCollector) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

// 按原文位置给占位符编号, 返回占位符数量
func orderParamMarkers(stmt ast.StmtNode) int {
	collector := &paramMarkerCollector{}
	stmt.Accept(collector)
	slices.SortFunc(collector.markers, func(a, b *parserDriver.ParamMarkerExpr) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	for idx, marker := range collector.markers {
		marker.Order = idx
	}
	return len(collector.markers)
}

func (p *MySQLExprParser) parseSelectStmt(stmt *ast.SelectStmt) (err error) {
	p.builder.SetDistinct(stmt.Distinct)
	if stmt.LockInfo != nil && strings.HasPrefix(stmt.LockInfo.LockType.String(), "for update") {
		p.builder.SetForUpdate(true)
	}

	if stmt.Fields != nil {
		for _, field := range stmt.Fields.Fields {
			var item sqlcontext.SelectItem
			item, err = parseSelectField(field)
			if err != nil {
				return
			}
			p.builder.AddItem(item)
		}
	}

	if err = p.collectConditions(stmt.Where); err != nil {
		return
	}

	if stmt.GroupBy != nil {
		for _, by := range stmt.GroupBy.Items {
			var item sqlcontext.OrderItem
			if item, err = parseByItem(by); err != nil {
				return
			}
			p.builder.AddGroupBy(item)
		}
	}
	if stmt.OrderBy != nil {
		for _, by := range stmt.OrderBy.Items {
			var item sqlcontext.OrderItem
			if item, err = parseByItem(by); err != nil {
				return
			}
			p.builder.AddOrderBy(item)
		}
	}

	if stmt.Limit != nil {
		var rowCount sqlcontext.Value
		if rowCount, err = p.valueOf(stmt.Limit.Count); err != nil {
			return
		}
		p.builder.SetRowCount(rowCount)
		if stmt.Limit.Offset != nil {
			var offset sqlcontext.Value
			if offset, err = p.valueOf(stmt.Limit.Offset); err != nil {
				return
			}
			p.builder.SetOffset(offset)
		}
	}
	return
}

func parseSelectField(field *ast.SelectField) (item sqlcontext.SelectItem, err error) {
	// 通配符查询
	if field.WildCard != nil {
		item.Expression = "*"
		if field.WildCard.Table.O != "" {
			item.Expression = field.WildCard.Table.O + ".*"
		}
		return
	}

	if item.Expression, err = restore(field.Expr); err != nil {
		return
	}
	item.Alias = field.AsName.O
	if agg, ok := field.Expr.(*ast.AggregateFuncExpr); ok {
		item.Aggregation = sqlcontext.AggregationOf(agg.F)
		item.Distinct = agg.Distinct
	}
	return
}

func parseByItem(by *ast.ByItem) (item sqlcontext.OrderItem, err error) {
	item.Desc = by.Desc
	switch expr := unwrapParentheses(by.Expr).(type) {
	case *ast.ColumnNameExpr:
		item.Table = expr.Name.Table.O
		item.Name = expr.Name.Name.O
	case *ast.PositionExpr:
		item.Index = expr.N
	default:
		item.Expression, err = restore(by.Expr)
	}
	return
}

func (p *MySQLExprParser) parseInsertStmt(stmt *ast.InsertStmt) (err error) {
	// INSERT ... SET a=1, b=2 视为单行插入
	if len(stmt.Setlist) > 0 {
		row := make([]sqlcontext.Value, 0, len(stmt.Setlist))
		for _, assignment := range stmt.Setlist {
			p.builder.AddColumn(assignment.Column.Name.O)
			var value sqlcontext.Value
			if value, err = p.valueOf(assignment.Expr); err != nil {
				return
			}
			row = append(row, value)
		}
		p.builder.AddRow(row)
		return
	}

	for _, column := range stmt.Columns {
		p.builder.AddColumn(column.Name.O)
	}
	for idx, list := range stmt.Lists {
		if len(stmt.Columns) > 0 && len(list) != len(stmt.Columns) {
			err = fmt.Errorf("column count %d doesn't match value count %d at row %d", len(stmt.Columns), len(list), idx+1)
			return
		}
		row := make([]sqlcontext.Value, 0, len(list))
		for _, expr := range list {
			var value sqlcontext.Value
			if value, err = p.valueOf(expr); err != nil {
				return
			}
			row = append(row, value)
		}
		p.builder.AddRow(row)
	}
	return
}

func (p *MySQLExprParser) parseUpdateStmt(stmt *ast.UpdateStmt) (err error) {
	for _, assignment := range stmt.List {
		var value sqlcontext.Value
		if value, err = p.valueOf(assignment.Expr); err != nil {
			return
		}
		p.builder.AddAssignment(assignment.Column.Table.O, assignment.Column.Name.O, value)
	}
	return p.collectConditions(stmt.Where)
}

// 只收集顶层AND链上的条件
func (p *MySQLExprParser) collectConditions(node ast.ExprNode) (err error) {
	switch expr := unwrapParentheses(node).(type) {
	case *ast.BinaryOperationExpr:
		switch expr.Op {
		case opcode.LogicAnd:
			if err = p.collectConditions(expr.L); err != nil {
				return
			}
			err = p.collectConditions(expr.R)
		case opcode.EQ:
			err = p.collectEqual(expr.L, expr.R)
			if err == nil {
				err = p.collectEqual(expr.R, expr.L)
			}
		}
	case *ast.PatternInExpr:
		column, ok := columnOf(expr.Expr)
		if !ok || expr.Not || expr.Sel != nil {
			return
		}
		values := make([]sqlcontext.Value, 0, len(expr.List))
		for _, item := range expr.List {
			var value sqlcontext.Value
			if value, err = p.valueOf(item); err != nil || !value.IsConstant() {
				return
			}
			values = append(values, value)
		}
		p.builder.AddCondition(column.Table.O, column.Name.O, sqlcontext.Operator_In, values...)
	case *ast.BetweenExpr:
		column, ok := columnOf(expr.Expr)
		if !ok || expr.Not {
			return
		}
		var low, high sqlcontext.Value
		if low, err = p.valueOf(expr.Left); err != nil || !low.IsConstant() {
			return
		}
		if high, err = p.valueOf(expr.Right); err != nil || !high.IsConstant() {
			return
		}
		p.builder.AddCondition(column.Table.O, column.Name.O, sqlcontext.Operator_Between, low, high)
	}
	return
}

// column = 常量
func (p *MySQLExprParser) collectEqual(left, right ast.ExprNode) (err error) {
	column, ok := columnOf(left)
	if !ok {
		return
	}
	if _, ok := columnOf(right); ok {
		return
	}
	var value sqlcontext.Value
	if value, err = p.valueOf(right); err != nil || !value.IsConstant() {
		return
	}
	p.builder.AddCondition(column.Table.O, column.Name.O, sqlcontext.Operator_Equal, value)
	return
}

func (p *MySQLExprParser) valueOf(node ast.ExprNode) (value sqlcontext.Value, err error) {
	switch expr := unwrapParentheses(node).(type) {
	case *parserDriver.ParamMarkerExpr:
		value = p.builder.Placeholder(expr.Order)
		return
	case *parserDriver.ValueExpr:
		var text string
		if text, err = restore(expr); err != nil {
			return
		}
		value = p.builder.Literal(datumValue(&expr.Datum), text)
		return
	case *ast.UnaryOperationExpr:
		// 负数字面量
		if literal, ok := expr.V.(*parserDriver.ValueExpr); ok && expr.Op == opcode.Minus {
			var negated any
			switch v := datumValue(&literal.Datum).(type) {
			case int64:
				negated = -v
			case float64:
				negated = -v
			case uint64:
				if v == 1<<63 {
					negated = int64(math.MinInt64)
				}
			}
			if negated != nil {
				var text string
				if text, err = restore(expr); err != nil {
					return
				}
				value = p.builder.Literal(negated, text)
				return
			}
		}
	}

	var text string
	if text, err = restore(node); err != nil {
		return
	}
	value = p.builder.Expression(text)
	return
}

func datumValue(datum *types.Datum) (value any) {
	switch datum.Kind() {
	case types.KindNull:
		value = nil
	case types.KindInt64:
		value = datum.GetInt64()
	case types.KindUint64:
		// 超出int64范围的保留为uint64
		if v := datum.GetUint64(); v <= math.MaxInt64 {
			value = int64(v)
		} else {
			value = v
		}
	case types.KindFloat32:
		value = float64(datum.GetFloat32())
	case types.KindFloat64:
		value = datum.GetFloat64()
	case types.KindMysqlDecimal:
		value, _ = datum.GetMysqlDecimal().ToFloat64()
	case types.KindString, types.KindBytes:
		value = datum.GetString()
	default:
		log.Debugf("value kind=%v", datum.Kind())
		value = datum.GetValue()
	}
	return
}

func columnOf(node ast.ExprNode) (*ast.ColumnName, bool) {
	if expr, ok := unwrapParentheses(node).(*ast.ColumnNameExpr); ok {
		return expr.Name, true
	}
	return nil, false
}

func unwrapParentheses(node ast.ExprNode) ast.ExprNode {
	for {
		paren, ok := node.(*ast.ParenthesesExpr)
		if !ok {
			return node
		}
		node = paren.Expr
	}
}

// 还原表达式原文
func restore(node ast.Node) (text string, err error) {
	var sb strings.Builder
	err = node.Restore(format.NewRestoreCtx(format.RestoreStringSingleQuotes|format.RestoreKeyWordUppercase, &sb))
	if err != nil {
		err = fmt.Errorf("restore expression failed,err=[%v]", err)
		return
	}
	text = sb.String()
	return
}
