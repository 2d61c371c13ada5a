package parser

import (
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 解析过程的观测输出, 不影响解析结果
type Sink interface {
	// 解析前输出逻辑SQL
	LogicSQL(sql string, parameters []any)
	// 解析后输出语句类型
	ParsedStatement(ctx sqlcontext.SQLContext)
}

type logrusSink struct {
	logger log.Ext1FieldLogger
}

func NewLogrusSink(logger log.Ext1FieldLogger) Sink {
	return &logrusSink{logger: logger}
}

func (s *logrusSink) LogicSQL(sql string, parameters []any) {
	s.logger.Debugf("Logic SQL: %v, %v", sql, parameters)
}

func (s *logrusSink) ParsedStatement(ctx sqlcontext.SQLContext) {
	s.logger.Tracef("Get %T SQL Statement, type=%v", ctx, ctx.GetType())
}

type NopSink struct{}

func (NopSink) LogicSQL(string, []any) {}

func (NopSink) ParsedStatement(sqlcontext.SQLContext) {}
