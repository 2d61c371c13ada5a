package sqlcontext

import (
	"fmt"
	"strings"
)

// SQL语句类型
type SQLType int

const (
	SQLType_Select SQLType = 1
	SQLType_Insert SQLType = 2
	SQLType_Update SQLType = 3
	SQLType_Delete SQLType = 4
)

func (t SQLType) String() string {
	switch t {
	case SQLType_Select:
		return "SELECT"
	case SQLType_Insert:
		return "INSERT"
	case SQLType_Update:
		return "UPDATE"
	case SQLType_Delete:
		return "DELETE"
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// 值的来源
type ValueKind int

const (
	// 字面量
	ValueKind_Literal ValueKind = 1
	// 占位符
	ValueKind_Placeholder ValueKind = 2
	// 无法求值的表达式, 如函数调用
	ValueKind_Expression ValueKind = 3
)

type Value struct {
	Kind ValueKind
	// 占位符下标(从0开始), 非占位符为-1
	Index int
	// 字面量或绑定的参数值
	Value any
	// 原始文本
	Text string
}

// 是否为可用于分片计算的确定值
func (v Value) IsConstant() bool {
	return v.Kind == ValueKind_Literal || v.Kind == ValueKind_Placeholder
}

func (v Value) String() string {
	switch v.Kind {
	case ValueKind_Placeholder:
		return fmt.Sprintf("?%d=%v", v.Index, v.Value)
	case ValueKind_Literal:
		return fmt.Sprint(v.Value)
	}
	return v.Text
}

type Table struct {
	Name  string
	Alias string
}

type Column struct {
	Table string
	Name  string
}

func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// 分片条件运算符
type ConditionOperator int

const (
	Operator_Equal   ConditionOperator = 1
	Operator_In      ConditionOperator = 2
	Operator_Between ConditionOperator = 3
)

func (o ConditionOperator) String() string {
	switch o {
	case Operator_Equal:
		return "="
	case Operator_In:
		return "IN"
	case Operator_Between:
		return "BETWEEN"
	}
	return fmt.Sprintf("ConditionOperator(%d)", int(o))
}

// 分片条件
type Condition struct {
	Column   Column
	Operator ConditionOperator
	Values   []Value
}

func (c Condition) String() string {
	vals := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		vals = append(vals, v.String())
	}
	return fmt.Sprintf("%v %v (%v)", c.Column, c.Operator, strings.Join(vals, ","))
}

// 聚合函数类型
type AggregationType int

const (
	Aggregation_None  AggregationType = 0
	Aggregation_Count AggregationType = 1
	Aggregation_Sum   AggregationType = 2
	Aggregation_Max   AggregationType = 3
	Aggregation_Min   AggregationType = 4
	Aggregation_Avg   AggregationType = 5
)

var aggregationNames = map[string]AggregationType{
	"COUNT": Aggregation_Count,
	"SUM":   Aggregation_Sum,
	"MAX":   Aggregation_Max,
	"MIN":   Aggregation_Min,
	"AVG":   Aggregation_Avg,
}

// 按函数名获取聚合类型, 非聚合函数返回Aggregation_None
func AggregationOf(funcName string) AggregationType {
	return aggregationNames[strings.ToUpper(funcName)]
}

func (a AggregationType) String() string {
	for name, t := range aggregationNames {
		if t == a {
			return name
		}
	}
	return ""
}

// 查询字段
type SelectItem struct {
	Expression  string
	Alias       string
	Aggregation AggregationType
	Distinct    bool
}

// 排序或分组项: 列(Table/Name), 位置下标Index(从1开始), 或其他表达式Expression
type OrderItem struct {
	Table      string
	Name       string
	Index      int
	Expression string
	Desc       bool
}

type Limit struct {
	Offset   *Value
	RowCount *Value
}

type Assignment struct {
	Column Column
	Value  Value
}
