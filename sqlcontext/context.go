package sqlcontext

import (
	"slices"

	"github.com/tsfans/sql-sharding-parser/dialect"
)

// SQL解析上下文, 构建后只读
type SQLContext interface {
	// 获取原始SQL
	OriginalSQL() string
	GetType() SQLType
	GetDatabaseType() dialect.DatabaseType
	// 透传的分片规则
	GetShardingRule() any
	// 按原始顺序绑定的参数
	GetParameters() []any
	GetTables() []Table
	GetConditions() []Condition
}

type baseContext struct {
	sql          string
	sqlType      SQLType
	databaseType dialect.DatabaseType
	shardingRule any
	parameters   []any
	tables       []Table
	conditions   []Condition
}

func (c *baseContext) OriginalSQL() string {
	return c.sql
}

func (c *baseContext) GetType() SQLType {
	return c.sqlType
}

func (c *baseContext) GetDatabaseType() dialect.DatabaseType {
	return c.databaseType
}

func (c *baseContext) GetShardingRule() any {
	return c.shardingRule
}

func (c *baseContext) GetParameters() []any {
	return slices.Clone(c.parameters)
}

func (c *baseContext) GetTables() []Table {
	return slices.Clone(c.tables)
}

func (c *baseContext) GetConditions() []Condition {
	return cloneConditions(c.conditions)
}

// 按列查找分片条件
func (c *baseContext) FindCondition(table, column string) (Condition, bool) {
	for _, condition := range c.conditions {
		if equalName(condition.Column.Table, table) && equalName(condition.Column.Name, column) {
			return cloneCondition(condition), true
		}
	}
	return Condition{}, false
}

type SelectSQLContext struct {
	baseContext
	distinct  bool
	forUpdate bool
	items     []SelectItem
	groupBy   []OrderItem
	orderBy   []OrderItem
	limit     *Limit
}

func (c *SelectSQLContext) IsDistinct() bool {
	return c.distinct
}

func (c *SelectSQLContext) IsForUpdate() bool {
	return c.forUpdate
}

func (c *SelectSQLContext) GetItems() []SelectItem {
	return slices.Clone(c.items)
}

func (c *SelectSQLContext) GetGroupBy() []OrderItem {
	return slices.Clone(c.groupBy)
}

func (c *SelectSQLContext) GetOrderBy() []OrderItem {
	return slices.Clone(c.orderBy)
}

// 无分页时返回nil
func (c *SelectSQLContext) GetLimit() *Limit {
	return cloneLimit(c.limit)
}

// 是否包含聚合函数
func (c *SelectSQLContext) HasAggregation() bool {
	for _, item := range c.items {
		if item.Aggregation != Aggregation_None {
			return true
		}
	}
	return false
}

type InsertSQLContext struct {
	baseContext
	columns []Column
	rows    [][]Value
}

func (c *InsertSQLContext) GetColumns() []Column {
	return slices.Clone(c.columns)
}

func (c *InsertSQLContext) GetRows() [][]Value {
	rows := make([][]Value, 0, len(c.rows))
	for _, row := range c.rows {
		rows = append(rows, slices.Clone(row))
	}
	return rows
}

type UpdateSQLContext struct {
	baseContext
	assignments []Assignment
}

func (c *UpdateSQLContext) GetAssignments() []Assignment {
	return slices.Clone(c.assignments)
}

type DeleteSQLContext struct {
	baseContext
}

func cloneLimit(limit *Limit) *Limit {
	if limit == nil {
		return nil
	}
	cloned := &Limit{}
	if limit.Offset != nil {
		offset := *limit.Offset
		cloned.Offset = &offset
	}
	if limit.RowCount != nil {
		rowCount := *limit.RowCount
		cloned.RowCount = &rowCount
	}
	return cloned
}

func cloneCondition(condition Condition) Condition {
	condition.Values = slices.Clone(condition.Values)
	return condition
}

func cloneConditions(conditions []Condition) []Condition {
	if conditions == nil {
		return nil
	}
	cloned := make([]Condition, 0, len(conditions))
	for _, condition := range conditions {
		cloned = append(cloned, cloneCondition(condition))
	}
	return cloned
}
