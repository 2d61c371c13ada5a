package parser

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// PostgreSQL语法解析器, 基于libpg_query
type PGExprParser struct {
	sql          string
	parameters   []any
	shardingRule ShardingRule
	builder      *sqlcontext.Builder
}

func NewPGExprParser(sql string, parameters []any, shardingRule ShardingRule) *PGExprParser {
	return &PGExprParser{sql: sql, parameters: parameters, shardingRule: shardingRule}
}

func (p *PGExprParser) DatabaseType() dialect.DatabaseType {
	return dialect.PostgreSQL
}

func (p *PGExprParser) SQL() string {
	return p.sql
}

func (p *PGExprParser) Parse() (ctx sqlcontext.SQLContext, placeholderCount int, err error) {
	var tree *pg_query.ParseResult
	tree, err = pg_query.Parse(p.sql)
	if err != nil {
		return
	}
	if len(tree.Stmts) == 0 {
		err = fmt.Errorf("empty statement")
		return
	}
	if len(tree.Stmts) > 1 {
		err = fmt.Errorf("multiple statements are not supported,count=[%v]", len(tree.Stmts))
		return
	}
	if placeholderCount, err = p.countParams(); err != nil {
		return
	}

	stmt := tree.Stmts[0].Stmt
	switch node := stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		p.newBuilder(sqlcontext.SQLType_Select, stmt, node.SelectStmt.FromClause)
		err = p.parseSelectStmt(node.SelectStmt)
	case *pg_query.Node_InsertStmt:
		p.newBuilder(sqlcontext.SQLType_Insert, stmt, nil, node.InsertStmt.Relation)
		err = p.parseInsertStmt(node.InsertStmt)
	case *pg_query.Node_UpdateStmt:
		p.newBuilder(sqlcontext.SQLType_Update, stmt, node.UpdateStmt.FromClause, node.UpdateStmt.Relation)
		err = p.parseUpdateStmt(node.UpdateStmt)
	case *pg_query.Node_DeleteStmt:
		p.newBuilder(sqlcontext.SQLType_Delete, stmt, node.DeleteStmt.UsingClause, node.DeleteStmt.Relation)
		err = p.parseDeleteStmt(node.DeleteStmt)
	default:
		err = fmt.Errorf("unsupported statement type %T", stmt.Node)
	}
	if err != nil {
		return
	}

	ctx = p.builder.Build()
	return
}

// $n 可重复引用, 占位符数量取最大编号
func (p *PGExprParser) countParams() (count int, err error) {
	var scan *pg_query.ScanResult
	scan, err = pg_query.Scan(p.sql)
	if err != nil {
		return
	}
	for _, tok := range scan.Tokens {
		if tok.Token != pg_query.Token_PARAM {
			continue
		}
		var n int
		if n, err = strconv.Atoi(p.sql[tok.Start+1 : tok.End]); err != nil {
			err = fmt.Errorf("invalid placeholder [%v]", p.sql[tok.Start:tok.End])
			return
		}
		count = max(count, n)
	}
	return
}

// 按出现顺序记录语句中的所有表, 目标表和FROM中的表参与列归属, 其余为子查询中的表
func (p *PGExprParser) newBuilder(sqlType sqlcontext.SQLType, stmt *pg_query.Node, from []*pg_query.Node, targets ...*pg_query.RangeVar) {
	p.builder = sqlcontext.NewBuilder(sqlType, dialect.PostgreSQL, p.sql, p.parameters, p.shardingRule)

	outer := map[*pg_query.RangeVar]bool{}
	for _, target := range targets {
		outer[target] = true
	}
	for _, node := range from {
		outerRangeVars(node, outer)
	}

	var rangeVars []*pg_query.RangeVar
	collectRangeVars(stmt.ProtoReflect(), &rangeVars)
	slices.SortStableFunc(rangeVars, func(a, b *pg_query.RangeVar) int {
		return cmp.Compare(a.Location, b.Location)
	})
	for _, rangeVar := range rangeVars {
		var alias string
		if rangeVar.Alias != nil {
			alias = rangeVar.Alias.Aliasname
		}
		if outer[rangeVar] {
			p.builder.AddTable(rangeVar.Relname, alias)
		} else {
			p.builder.AddNestedTable(rangeVar.Relname, alias)
		}
	}
}

// join树上的表, 不进入子查询
func outerRangeVars(node *pg_query.Node, outer map[*pg_query.RangeVar]bool) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		outer[n.RangeVar] = true
	case *pg_query.Node_JoinExpr:
		outerRangeVars(n.JoinExpr.Larg, outer)
		outerRangeVars(n.JoinExpr.Rarg, outer)
	}
}

// 遍历语法树收集所有表引用
func collectRangeVars(m protoreflect.Message, out *[]*pg_query.RangeVar) {
	if rangeVar, ok := m.Interface().(*pg_query.RangeVar); ok {
		*out = append(*out, rangeVar)
		return
	}
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Message() == nil || fd.IsMap() || !m.Has(fd) {
			continue
		}
		if fd.IsList() {
			list := m.Get(fd).List()
			for j := 0; j < list.Len(); j++ {
				collectRangeVars(list.Get(j).Message(), out)
			}
			continue
		}
		collectRangeVars(m.Get(fd).Message(), out)
	}
}

func (p *PGExprParser) parseSelectStmt(stmt *pg_query.SelectStmt) (err error) {
	if stmt.WithClause != nil {
		return fmt.Errorf("WITH is not supported")
	}
	if stmt.Op != pg_query.SetOperation_SETOP_NONE {
		return fmt.Errorf("%v is not supported", strings.TrimPrefix(stmt.Op.String(), "SETOP_"))
	}
	if len(stmt.ValuesLists) > 0 {
		return fmt.Errorf("VALUES is not supported")
	}
	if stmt.IntoClause != nil {
		return fmt.Errorf("SELECT INTO is not supported")
	}

	p.builder.SetDistinct(len(stmt.DistinctClause) > 0)
	for _, node := range stmt.LockingClause {
		if locking := node.GetLockingClause(); locking != nil && locking.Strength == pg_query.LockClauseStrength_LCS_FORUPDATE {
			p.builder.SetForUpdate(true)
		}
	}

	for _, node := range stmt.TargetList {
		if target := node.GetResTarget(); target != nil {
			p.builder.AddItem(p.selectItemOf(target))
		}
	}

	p.collectConditions(stmt.WhereClause)

	for _, node := range stmt.GroupClause {
		p.builder.AddGroupBy(p.orderItemOf(node))
	}
	for _, node := range stmt.SortClause {
		sortBy := node.GetSortBy()
		if sortBy == nil {
			continue
		}
		item := p.orderItemOf(sortBy.Node)
		item.Desc = sortBy.SortbyDir == pg_query.SortByDir_SORTBY_DESC
		p.builder.AddOrderBy(item)
	}

	// LIMIT ALL 为 null 常量
	if stmt.LimitCount != nil && !isNullConst(stmt.LimitCount) {
		p.builder.SetRowCount(p.valueOf(stmt.LimitCount))
	}
	if stmt.LimitOffset != nil {
		p.builder.SetOffset(p.valueOf(stmt.LimitOffset))
	}
	return
}

func (p *PGExprParser) selectItemOf(target *pg_query.ResTarget) (item sqlcontext.SelectItem) {
	item.Alias = target.Name
	if columnRef := target.Val.GetColumnRef(); columnRef != nil {
		if qualifier, _, star := columnOfRef(columnRef); star {
			item.Expression = "*"
			if qualifier != "" {
				item.Expression = qualifier + ".*"
			}
			return
		}
	}
	item.Expression = deparse(target.Val)
	if fn := target.Val.GetFuncCall(); fn != nil && len(fn.Funcname) > 0 {
		item.Aggregation = sqlcontext.AggregationOf(strings.ToUpper(stringOf(fn.Funcname[len(fn.Funcname)-1])))
		item.Distinct = fn.AggDistinct
	}
	return
}

func (p *PGExprParser) orderItemOf(node *pg_query.Node) (item sqlcontext.OrderItem) {
	if columnRef := node.GetColumnRef(); columnRef != nil {
		if qualifier, name, star := columnOfRef(columnRef); !star {
			item.Table = qualifier
			item.Name = name
			return
		}
	}
	if constant := node.GetAConst(); constant != nil && constant.GetIval() != nil {
		item.Index = int(constant.GetIval().Ival)
		return
	}
	item.Expression = deparse(node)
	return
}

func (p *PGExprParser) parseInsertStmt(stmt *pg_query.InsertStmt) (err error) {
	if stmt.WithClause != nil {
		return fmt.Errorf("WITH is not supported")
	}
	for _, node := range stmt.Cols {
		if target := node.GetResTarget(); target != nil {
			p.builder.AddColumn(target.Name)
		}
	}

	// DEFAULT VALUES 没有子查询
	selectStmt := stmt.SelectStmt.GetSelectStmt()
	if selectStmt == nil || len(selectStmt.ValuesLists) == 0 {
		return
	}
	for idx, node := range selectStmt.ValuesLists {
		list := node.GetList()
		if list == nil {
			continue
		}
		if len(stmt.Cols) > 0 && len(list.Items) != len(stmt.Cols) {
			return fmt.Errorf("column count %d doesn't match value count %d at row %d", len(stmt.Cols), len(list.Items), idx+1)
		}
		row := make([]sqlcontext.Value, 0, len(list.Items))
		for _, item := range list.Items {
			row = append(row, p.valueOf(item))
		}
		p.builder.AddRow(row)
	}
	return
}

func (p *PGExprParser) parseUpdateStmt(stmt *pg_query.UpdateStmt) (err error) {
	if stmt.WithClause != nil {
		return fmt.Errorf("WITH is not supported")
	}
	for _, node := range stmt.TargetList {
		if target := node.GetResTarget(); target != nil {
			p.builder.AddAssignment("", target.Name, p.valueOf(target.Val))
		}
	}
	p.collectConditions(stmt.WhereClause)
	return
}

func (p *PGExprParser) parseDeleteStmt(stmt *pg_query.DeleteStmt) (err error) {
	if stmt.WithClause != nil {
		return fmt.Errorf("WITH is not supported")
	}
	p.collectConditions(stmt.WhereClause)
	return
}

// 只收集顶层AND链上的条件
func (p *PGExprParser) collectConditions(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_BoolExpr:
		if n.BoolExpr.Boolop != pg_query.BoolExprType_AND_EXPR {
			return
		}
		for _, arg := range n.BoolExpr.Args {
			p.collectConditions(arg)
		}
	case *pg_query.Node_AExpr:
		expr := n.AExpr
		switch expr.Kind {
		case pg_query.A_Expr_Kind_AEXPR_OP:
			if operatorOf(expr) != "=" {
				return
			}
			if !p.collectEqual(expr.Lexpr, expr.Rexpr) {
				p.collectEqual(expr.Rexpr, expr.Lexpr)
			}
		case pg_query.A_Expr_Kind_AEXPR_IN:
			// NOT IN 的运算符为 <>
			column := expr.Lexpr.GetColumnRef()
			list := expr.Rexpr.GetList()
			if column == nil || list == nil || operatorOf(expr) != "=" {
				return
			}
			qualifier, name, star := columnOfRef(column)
			if star {
				return
			}
			values := make([]sqlcontext.Value, 0, len(list.Items))
			for _, item := range list.Items {
				value := p.valueOf(item)
				if !value.IsConstant() {
					return
				}
				values = append(values, value)
			}
			p.builder.AddCondition(qualifier, name, sqlcontext.Operator_In, values...)
		case pg_query.A_Expr_Kind_AEXPR_BETWEEN:
			column := expr.Lexpr.GetColumnRef()
			list := expr.Rexpr.GetList()
			if column == nil || list == nil || len(list.Items) != 2 {
				return
			}
			qualifier, name, star := columnOfRef(column)
			if star {
				return
			}
			low, high := p.valueOf(list.Items[0]), p.valueOf(list.Items[1])
			if !low.IsConstant() || !high.IsConstant() {
				return
			}
			p.builder.AddCondition(qualifier, name, sqlcontext.Operator_Between, low, high)
		}
	}
}

// column = 常量
func (p *PGExprParser) collectEqual(left, right *pg_query.Node) bool {
	column := left.GetColumnRef()
	if column == nil || right.GetColumnRef() != nil {
		return false
	}
	qualifier, name, star := columnOfRef(column)
	if star {
		return false
	}
	value := p.valueOf(right)
	if !value.IsConstant() {
		return false
	}
	p.builder.AddCondition(qualifier, name, sqlcontext.Operator_Equal, value)
	return true
}

func (p *PGExprParser) valueOf(node *pg_query.Node) sqlcontext.Value {
	switch n := node.Node.(type) {
	case *pg_query.Node_ParamRef:
		value := p.builder.Placeholder(int(n.ParamRef.Number) - 1)
		value.Text = fmt.Sprintf("$%d", n.ParamRef.Number)
		return value
	case *pg_query.Node_AConst:
		constant := n.AConst
		if constant.Isnull {
			return p.builder.Literal(nil, "NULL")
		}
		switch {
		case constant.GetIval() != nil:
			v := int64(constant.GetIval().Ival)
			return p.builder.Literal(v, strconv.FormatInt(v, 10))
		case constant.GetFval() != nil:
			// 超出int32的整数也以Float返回
			text := constant.GetFval().Fval
			return p.builder.Literal(parseNumber(text), text)
		case constant.GetSval() != nil:
			return p.builder.Literal(constant.GetSval().Sval, deparse(node))
		case constant.GetBoolval() != nil:
			v := constant.GetBoolval().Boolval
			return p.builder.Literal(v, strings.ToUpper(strconv.FormatBool(v)))
		}
	}
	return p.builder.Expression(deparse(node))
}

// 整数解析为int64, 超出int64的正整数为uint64, 其他数字解析为float64
func parseNumber(text string) any {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(text, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	return text
}

func isNullConst(node *pg_query.Node) bool {
	constant := node.GetAConst()
	return constant != nil && constant.Isnull
}

func operatorOf(expr *pg_query.A_Expr) string {
	if len(expr.Name) == 0 {
		return ""
	}
	return stringOf(expr.Name[len(expr.Name)-1])
}

func stringOf(node *pg_query.Node) string {
	if s := node.GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

// 返回最后两段名称, star表示 t.* 形式
func columnOfRef(ref *pg_query.ColumnRef) (qualifier, name string, star bool) {
	var parts []string
	for _, field := range ref.Fields {
		if field.GetAStar() != nil {
			star = true
			continue
		}
		parts = append(parts, stringOf(field))
	}
	if len(parts) > 0 && !star {
		name = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 0 {
		qualifier = parts[len(parts)-1]
	}
	return
}

// 还原表达式原文, 借助 SELECT <expr> 反解析
func deparse(node *pg_query.Node) string {
	tree := &pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{Stmt: &pg_query.Node{
		Node: &pg_query.Node_SelectStmt{SelectStmt: &pg_query.SelectStmt{
			TargetList: []*pg_query.Node{{Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: node}}}},
			Op:          pg_query.SetOperation_SETOP_NONE,
			LimitOption: pg_query.LimitOption_LIMIT_OPTION_DEFAULT,
		}},
	}}}}
	text, err := pg_query.Deparse(tree)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(text, "SELECT ")
}
