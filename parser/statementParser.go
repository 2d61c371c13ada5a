package parser

import (
	"fmt"

	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 语句解析器, 构造时绑定全部输入
type StatementParser struct {
	databaseType dialect.DatabaseType
	shardingRule ShardingRule
	parameters   []any
	exprParser   ExprParser
}

func NewStatementParser(databaseType dialect.DatabaseType, shardingRule ShardingRule, parameters []any, exprParser ExprParser) *StatementParser {
	return &StatementParser{
		databaseType: databaseType,
		shardingRule: shardingRule,
		parameters:   parameters,
		exprParser:   exprParser,
	}
}

// 解析语句, 占位符数量必须与参数数量一致
func (p *StatementParser) ParseStatement() (ctx sqlcontext.SQLContext, err error) {
	var placeholderCount int
	ctx, placeholderCount, err = p.exprParser.Parse()
	if err != nil {
		ctx = nil
		err = newParseError(p.exprParser.SQL(), p.parameters, err)
		return
	}
	if placeholderCount != len(p.parameters) {
		ctx = nil
		err = newParseError(p.exprParser.SQL(), p.parameters,
			fmt.Errorf("placeholder count %d doesn't match parameter count %d", placeholderCount, len(p.parameters)))
		return
	}
	return
}
