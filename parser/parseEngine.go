package parser

import (
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 解析结果, 创建后不可修改
type ParseEngine struct {
	ctx sqlcontext.SQLContext
}

func (e *ParseEngine) SQLContext() sqlcontext.SQLContext {
	return e.ctx
}

type options struct {
	sink Sink
}

type Option func(*options)

// 默认输出到logrus标准logger
func WithSink(sink Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// 选择方言解析器并解析一次SQL
func Create(databaseType dialect.DatabaseType, sql string, parameters []any, shardingRule ShardingRule, opts ...Option) (engine *ParseEngine, err error) {
	o := &options{sink: NewLogrusSink(log.StandardLogger())}
	for _, opt := range opts {
		opt(o)
	}

	o.sink.LogicSQL(sql, parameters)

	var exprParser ExprParser
	exprParser, err = NewExprParser(databaseType, sql, parameters, shardingRule)
	if err != nil {
		return
	}

	var ctx sqlcontext.SQLContext
	ctx, err = NewStatementParser(databaseType, shardingRule, parameters, exprParser).ParseStatement()
	if err != nil {
		return
	}
	o.sink.ParsedStatement(ctx)

	engine = &ParseEngine{ctx: ctx}
	return
}
