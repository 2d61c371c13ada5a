package sqlcontext

import (
	"slices"
	"strings"

	"github.com/tsfans/sql-sharding-parser/dialect"
)

type pendingCondition struct {
	qualifier string
	column    string
	operator  ConditionOperator
	values    []Value
}

type pendingAssignment struct {
	qualifier string
	column    string
	value     Value
}

// SQL上下文构建器, 由各方言解析器在单次解析中使用, Build之后不应再修改
type Builder struct {
	sqlType      SQLType
	sql          string
	databaseType dialect.DatabaseType
	shardingRule any
	parameters   []any

	tables      []Table
	// 外层语句自身的表, 用于解析列归属
	scope       []Table
	conditions  []pendingCondition
	distinct    bool
	forUpdate   bool
	items       []SelectItem
	groupBy     []OrderItem
	orderBy     []OrderItem
	limit       *Limit
	columns     []Column
	rows        [][]Value
	assignments []pendingAssignment
}

func NewBuilder(sqlType SQLType, databaseType dialect.DatabaseType, sql string, parameters []any, shardingRule any) *Builder {
	return &Builder{
		sqlType:      sqlType,
		sql:          sql,
		databaseType: databaseType,
		shardingRule: shardingRule,
		parameters:   parameters,
	}
}

func (b *Builder) GetType() SQLType {
	return b.sqlType
}

// 绑定第index个占位符, 参数不足时值为nil, 由调用方校验占位符数量
func (b *Builder) Placeholder(index int) Value {
	v := Value{Kind: ValueKind_Placeholder, Index: index, Text: "?"}
	if index >= 0 && index < len(b.parameters) {
		v.Value = b.parameters[index]
	}
	return v
}

func (b *Builder) Literal(value any, text string) Value {
	return Value{Kind: ValueKind_Literal, Index: -1, Value: value, Text: text}
}

func (b *Builder) Expression(text string) Value {
	return Value{Kind: ValueKind_Expression, Index: -1, Text: text}
}

// 外层语句FROM或目标中的表, 同名同别名的表只记录一次
func (b *Builder) AddTable(name, alias string) {
	if name == "" {
		return
	}
	b.tables = appendTable(b.tables, Table{Name: name, Alias: alias})
	b.scope = appendTable(b.scope, Table{Name: name, Alias: alias})
}

// 子查询中的表, 只出现在表列表中
func (b *Builder) AddNestedTable(name, alias string) {
	if name == "" {
		return
	}
	b.tables = appendTable(b.tables, Table{Name: name, Alias: alias})
}

func appendTable(tables []Table, table Table) []Table {
	for _, t := range tables {
		if equalName(t.Name, table.Name) && equalName(t.Alias, table.Alias) {
			return tables
		}
	}
	return append(tables, table)
}

// qualifier为列前缀(表名或别名), 在Build时解析为表名
func (b *Builder) AddCondition(qualifier, column string, operator ConditionOperator, values ...Value) {
	b.conditions = append(b.conditions, pendingCondition{
		qualifier: qualifier,
		column:    column,
		operator:  operator,
		values:    slices.Clone(values),
	})
}

func (b *Builder) SetDistinct(distinct bool) {
	b.distinct = distinct
}

func (b *Builder) SetForUpdate(forUpdate bool) {
	b.forUpdate = forUpdate
}

func (b *Builder) AddItem(item SelectItem) {
	b.items = append(b.items, item)
}

func (b *Builder) AddGroupBy(item OrderItem) {
	b.groupBy = append(b.groupBy, item)
}

func (b *Builder) AddOrderBy(item OrderItem) {
	b.orderBy = append(b.orderBy, item)
}

func (b *Builder) SetOffset(offset Value) {
	if b.limit == nil {
		b.limit = &Limit{}
	}
	b.limit.Offset = &offset
}

func (b *Builder) SetRowCount(rowCount Value) {
	if b.limit == nil {
		b.limit = &Limit{}
	}
	b.limit.RowCount = &rowCount
}

func (b *Builder) HasRowCount() bool {
	return b.limit != nil && b.limit.RowCount != nil
}

func (b *Builder) AddColumn(name string) {
	b.columns = append(b.columns, Column{Name: name})
}

func (b *Builder) AddRow(row []Value) {
	b.rows = append(b.rows, slices.Clone(row))
}

func (b *Builder) AddAssignment(qualifier, column string, value Value) {
	b.assignments = append(b.assignments, pendingAssignment{qualifier: qualifier, column: column, value: value})
}

func (b *Builder) Build() SQLContext {
	base := baseContext{
		sql:          b.sql,
		sqlType:      b.sqlType,
		databaseType: b.databaseType,
		shardingRule: b.shardingRule,
		parameters:   slices.Clone(b.parameters),
		tables:       slices.Clone(b.tables),
	}
	for _, pending := range b.conditions {
		base.conditions = append(base.conditions, Condition{
			Column:   Column{Table: b.resolveTable(pending.qualifier), Name: pending.column},
			Operator: pending.operator,
			Values:   slices.Clone(pending.values),
		})
	}

	switch b.sqlType {
	case SQLType_Select:
		return &SelectSQLContext{
			baseContext: base,
			distinct:    b.distinct,
			forUpdate:   b.forUpdate,
			items:       slices.Clone(b.items),
			groupBy:     b.resolveOrderItems(b.groupBy),
			orderBy:     b.resolveOrderItems(b.orderBy),
			limit:       cloneLimit(b.limit),
		}
	case SQLType_Insert:
		// 插入列归属目标表
		var target string
		if len(b.scope) > 0 {
			target = b.scope[0].Name
		}
		columns := make([]Column, 0, len(b.columns))
		for _, column := range b.columns {
			columns = append(columns, Column{Table: target, Name: column.Name})
		}
		base.conditions = append(base.conditions, insertConditions(columns, b.rows)...)
		rows := make([][]Value, 0, len(b.rows))
		for _, row := range b.rows {
			rows = append(rows, slices.Clone(row))
		}
		return &InsertSQLContext{baseContext: base, columns: columns, rows: rows}
	case SQLType_Update:
		assignments := make([]Assignment, 0, len(b.assignments))
		for _, pending := range b.assignments {
			assignments = append(assignments, Assignment{
				Column: Column{Table: b.resolveTable(pending.qualifier), Name: pending.column},
				Value:  pending.value,
			})
		}
		return &UpdateSQLContext{baseContext: base, assignments: assignments}
	default:
		return &DeleteSQLContext{baseContext: base}
	}
}

// 插入语句每列生成一个分片条件, 单行为等值, 多行为IN
func insertConditions(columns []Column, rows [][]Value) (conditions []Condition) {
	if len(rows) == 0 {
		return
	}
	for idx, column := range columns {
		var values []Value
		for _, row := range rows {
			if idx >= len(row) || !row[idx].IsConstant() {
				values = nil
				break
			}
			values = append(values, row[idx])
		}
		if len(values) == 0 {
			continue
		}
		operator := Operator_Equal
		if len(values) > 1 {
			operator = Operator_In
		}
		conditions = append(conditions, Condition{Column: column, Operator: operator, Values: values})
	}
	return
}

func (b *Builder) resolveOrderItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	resolved := make([]OrderItem, 0, len(items))
	for _, item := range items {
		if item.Name != "" && item.Index == 0 {
			item.Table = b.resolveTable(item.Table)
		}
		resolved = append(resolved, item)
	}
	return resolved
}

// 别名解析为表名, 无前缀且外层只有一张表时归属该表
func (b *Builder) resolveTable(qualifier string) string {
	if qualifier == "" {
		var name string
		for _, table := range b.scope {
			if name != "" && !equalName(name, table.Name) {
				return ""
			}
			name = table.Name
		}
		return name
	}
	for _, tables := range [][]Table{b.scope, b.tables} {
		for _, table := range tables {
			if table.Alias != "" && equalName(table.Alias, qualifier) {
				return table.Name
			}
		}
		for _, table := range tables {
			if equalName(table.Name, qualifier) {
				return table.Name
			}
		}
	}
	return qualifier
}

func equalName(a, b string) bool {
	return strings.EqualFold(a, b)
}
