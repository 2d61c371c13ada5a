package converter

import "github.com/tsfans/sql-sharding-parser/sqlcontext"

type ConditionConverter interface {
	// 转化为目标查询语句
	Convert() (*MatchQuery, error)
}

type ConverterValidator interface {
	// 校验SQL上下文是否可转化
	Validate(sqlcontext.SQLContext) error
}

type Query interface {
	// 获取SQL上下文
	OriginalSQL() sqlcontext.SQLContext
}
