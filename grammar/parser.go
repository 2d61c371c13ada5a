package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
)

// 保留字不能作为未加引号的标识符或别名
var reservedWords = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true, "BY": true,
	"CASE": true, "CROSS": true, "DELETE": true, "DESC": true, "DISTINCT": true,
	"ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true, "FALSE": true,
	"FETCH": true, "FOR": true, "FROM": true, "FULL": true, "GROUP": true,
	"HAVING": true, "IN": true, "INNER": true, "INSERT": true,
	"INTERSECT": true, "INTO": true, "IS": true, "JOIN": true, "LEFT": true,
	"LIKE": true, "LIMIT": true, "MINUS": true, "NATURAL": true, "NOT": true,
	"NULL": true, "OFFSET": true, "ON": true, "OR": true, "ORDER": true,
	"OUTER": true, "RETURNING": true, "RIGHT": true, "SELECT": true, "SET": true,
	"THEN": true, "TOP": true, "TRUE": true, "UNION": true, "UPDATE": true,
	"USING": true, "VALUES": true, "WHEN": true, "WHERE": true, "WINDOW": true,
	"WITH": true,
}

func isReserved(word string) bool {
	return reservedWords[strings.ToUpper(word)]
}

type parser struct {
	dialect Dialect
	sql     string
	tokens  []Token
	pos     int
	builder *sqlcontext.Builder
	// 子查询深度, 只有最外层语句记录上下文
	depth int
}

// 解析单条DML语句, 返回SQL上下文和占位符数量
func Parse(d Dialect, databaseType dialect.DatabaseType, sql string, parameters []any, shardingRule any) (ctx sqlcontext.SQLContext, placeholderCount int, err error) {
	var tokens []Token
	tokens, placeholderCount, err = tokenize(d, sql)
	if err != nil {
		return
	}
	p := &parser{dialect: d, sql: sql, tokens: tokens}

	var sqlType sqlcontext.SQLType
	sqlType, err = p.statementType()
	if err != nil {
		return
	}
	p.builder = sqlcontext.NewBuilder(sqlType, databaseType, sql, parameters, shardingRule)

	switch sqlType {
	case sqlcontext.SQLType_Select:
		err = p.parseSelect()
	case sqlcontext.SQLType_Insert:
		err = p.parseInsert()
	case sqlcontext.SQLType_Update:
		err = p.parseUpdate()
	case sqlcontext.SQLType_Delete:
		err = p.parseDelete()
	}
	if err != nil {
		return
	}

	p.accept(SEMICOLON)
	if tok := p.peek(); tok.Type != EOF {
		err = p.unexpected(tok, "end of statement")
		return
	}

	ctx = p.builder.Build()
	return
}

func (p *parser) statementType() (sqlType sqlcontext.SQLType, err error) {
	idx := 0
	for p.tokens[idx].Type == LPAREN {
		idx++
	}
	tok := p.tokens[idx]
	if tok.Type == EOF {
		err = newSyntaxError(p.sql, tok.Pos, "empty statement")
		return
	}
	if tok.Type == IDENT {
		switch strings.ToUpper(tok.Literal) {
		case "SELECT":
			sqlType = sqlcontext.SQLType_Select
			return
		case "INSERT":
			sqlType = sqlcontext.SQLType_Insert
		case "UPDATE":
			sqlType = sqlcontext.SQLType_Update
		case "DELETE":
			sqlType = sqlcontext.SQLType_Delete
		}
		if sqlType != 0 && idx == 0 {
			return
		}
		sqlType = 0
	}
	err = newSyntaxError(p.sql, tok.Pos, fmt.Sprintf("unsupported statement %v", describe(tok)))
	return
}

func (p *parser) top() bool {
	return p.depth == 0
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekN(n int) Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// 上一个已消费token的结束位置
func (p *parser) lastEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].End
}

func isKeyword(tok Token, keywords ...string) bool {
	if tok.Type != IDENT {
		return false
	}
	for _, kw := range keywords {
		if strings.EqualFold(tok.Literal, kw) {
			return true
		}
	}
	return false
}

func (p *parser) peekKeyword(keywords ...string) bool {
	return isKeyword(p.peek(), keywords...)
}

func (p *parser) acceptKeyword(keywords ...string) bool {
	if p.peekKeyword(keywords...) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(keyword string) (tok Token, err error) {
	tok = p.peek()
	if !isKeyword(tok, keyword) {
		err = p.unexpected(tok, keyword)
		return
	}
	p.advance()
	return
}

func (p *parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType) (tok Token, err error) {
	tok = p.peek()
	if tok.Type != tt {
		err = p.unexpected(tok, tt.String())
		return
	}
	p.advance()
	return
}

func (p *parser) peekOperator(op string) bool {
	tok := p.peek()
	return tok.Type == OPERATOR && tok.Literal == op
}

// 跳过一对括号及其内容
func (p *parser) skipParens() (end int, err error) {
	if _, err = p.expect(LPAREN); err != nil {
		return
	}
	depth := 1
	for depth > 0 {
		tok := p.advance()
		switch tok.Type {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
		case EOF:
			err = p.unexpected(tok, ")")
			return
		}
		end = tok.End
	}
	return
}

func (p *parser) text(start, end int) string {
	return strings.TrimSpace(p.sql[start:end])
}

func (p *parser) unexpected(tok Token, expected string) error {
	return newSyntaxError(p.sql, tok.Pos, fmt.Sprintf("unexpected %v, expecting %v", describe(tok), expected))
}

func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of statement"
	case STRING:
		return strconv.Quote(tok.Literal)
	}
	return fmt.Sprintf("%q", tok.Literal)
}
