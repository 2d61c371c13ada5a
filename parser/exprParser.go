package parser

import (
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/grammar"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 分片规则, 解析过程中只透传不读取
type ShardingRule = any

// 绑定方言的表达式解析器, 每次解析新建
type ExprParser interface {
	// 语法组, H2归入MySQL
	DatabaseType() dialect.DatabaseType
	SQL() string
	// 解析单条语句, 返回SQL上下文和占位符数量
	Parse() (ctx sqlcontext.SQLContext, placeholderCount int, err error)
}

// 根据数据库类型选择表达式解析器
func NewExprParser(databaseType dialect.DatabaseType, sql string, parameters []any, shardingRule ShardingRule) (exprParser ExprParser, err error) {
	switch databaseType {
	case dialect.H2, dialect.MySQL:
		exprParser = NewMySQLExprParser(databaseType, sql, parameters, shardingRule)
	case dialect.Oracle:
		exprParser = NewOracleExprParser(sql, parameters, shardingRule)
	case dialect.SQLServer:
		exprParser = NewSQLServerExprParser(sql, parameters, shardingRule)
	case dialect.PostgreSQL:
		exprParser = NewPGExprParser(sql, parameters, shardingRule)
	default:
		err = &dialect.UnsupportedDialectError{DatabaseType: databaseType}
	}
	return
}

// 基于grammar包的解析器
type grammarExprParser struct {
	grammarDialect grammar.Dialect
	databaseType   dialect.DatabaseType
	sql            string
	parameters     []any
	shardingRule   ShardingRule
}

func (p *grammarExprParser) DatabaseType() dialect.DatabaseType {
	return p.databaseType
}

func (p *grammarExprParser) SQL() string {
	return p.sql
}

func (p *grammarExprParser) Parse() (ctx sqlcontext.SQLContext, placeholderCount int, err error) {
	return grammar.Parse(p.grammarDialect, p.databaseType, p.sql, p.parameters, p.shardingRule)
}

type OracleExprParser struct {
	grammarExprParser
}

func NewOracleExprParser(sql string, parameters []any, shardingRule ShardingRule) *OracleExprParser {
	return &OracleExprParser{grammarExprParser{
		grammarDialect: grammar.Oracle,
		databaseType:   dialect.Oracle,
		sql:            sql,
		parameters:     parameters,
		shardingRule:   shardingRule,
	}}
}

type SQLServerExprParser struct {
	grammarExprParser
}

func NewSQLServerExprParser(sql string, parameters []any, shardingRule ShardingRule) *SQLServerExprParser {
	return &SQLServerExprParser{grammarExprParser{
		grammarDialect: grammar.SQLServer,
		databaseType:   dialect.SQLServer,
		sql:            sql,
		parameters:     parameters,
		shardingRule:   shardingRule,
	}}
}
