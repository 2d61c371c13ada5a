package grammar

import (
	"strconv"
	"strings"
)

type TokenType int

const (
	EOF TokenType = iota
	// 标识符或关键字
	IDENT
	// 引号包裹的标识符
	QUOTED_IDENT
	STRING
	NUMBER
	// ?
	PLACEHOLDER
	OPERATOR
	LPAREN
	RPAREN
	COMMA
	DOT
	SEMICOLON
)

var tokenTypeNames = map[TokenType]string{
	EOF:          "EOF",
	IDENT:        "identifier",
	QUOTED_IDENT: "quoted identifier",
	STRING:       "string",
	NUMBER:       "number",
	PLACEHOLDER:  "placeholder",
	OPERATOR:     "operator",
	LPAREN:       "(",
	RPAREN:       ")",
	COMMA:        ",",
	DOT:          ".",
	SEMICOLON:    ";",
}

func (t TokenType) String() string {
	return tokenTypeNames[t]
}

type Token struct {
	Type TokenType
	// 标识符去掉引号, 字符串已反转义
	Literal string
	// 原文中的起止偏移
	Pos int
	End int
	// 占位符下标(从0开始)
	ParamIndex int
}

// 多字符运算符, 按长度优先匹配
var operators = []string{"<>", "!=", "<=", ">=", "||", "=", "<", ">", "+", "-", "*", "/", "%"}

type lexer struct {
	dialect Dialect
	input   string
	pos     int
	tokens  []Token

	positional int
}

// 词法分析, 返回token序列和占位符数量
func tokenize(d Dialect, input string) (tokens []Token, placeholderCount int, err error) {
	l := &lexer{dialect: d, input: input}
	for {
		var tok Token
		tok, err = l.next()
		if err != nil {
			return
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	tokens = l.tokens
	placeholderCount = l.positional
	return
}

func (l *lexer) next() (tok Token, err error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.input) {
		tok = Token{Type: EOF, Pos: l.pos, End: l.pos}
		return
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case isIdentStart(ch):
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		tok = Token{Type: IDENT, Literal: l.input[start:l.pos]}
	case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
		tok = Token{Type: NUMBER, Literal: l.scanNumber()}
	case ch == '\'':
		var s string
		s, err = l.scanQuoted('\'', '\'')
		if err != nil {
			return
		}
		tok = Token{Type: STRING, Literal: s}
	case ch == '"':
		var s string
		s, err = l.scanQuoted('"', '"')
		if err != nil {
			return
		}
		tok = Token{Type: QUOTED_IDENT, Literal: s}
	case ch == '[' && l.dialect.BracketIdentifiers:
		var s string
		s, err = l.scanQuoted('[', ']')
		if err != nil {
			return
		}
		tok = Token{Type: QUOTED_IDENT, Literal: s}
	case ch == '?':
		l.pos++
		tok = Token{Type: PLACEHOLDER, Literal: "?", ParamIndex: l.positional}
		l.positional++
	case ch == '(':
		l.pos++
		tok = Token{Type: LPAREN, Literal: "("}
	case ch == ')':
		l.pos++
		tok = Token{Type: RPAREN, Literal: ")"}
	case ch == ',':
		l.pos++
		tok = Token{Type: COMMA, Literal: ","}
	case ch == '.':
		l.pos++
		tok = Token{Type: DOT, Literal: "."}
	case ch == ';':
		l.pos++
		tok = Token{Type: SEMICOLON, Literal: ";"}
	default:
		for _, op := range operators {
			if strings.HasPrefix(l.input[l.pos:], op) {
				l.pos += len(op)
				tok = Token{Type: OPERATOR, Literal: op}
				break
			}
		}
		if tok.Type != OPERATOR {
			err = newSyntaxError(l.input, start, "unexpected character "+strconv.QuoteRune(rune(ch)))
			return
		}
	}
	tok.Pos = start
	tok.End = l.pos
	return
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			l.pos++
		case strings.HasPrefix(l.input[l.pos:], "--"):
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.input)
				return
			}
			l.pos += end + 4
		default:
			return
		}
	}
}

func (l *lexer) scanNumber() string {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		next := l.pos + 1
		if next < len(l.input) && (l.input[next] == '+' || l.input[next] == '-') {
			next++
		}
		if next < len(l.input) && isDigit(l.input[next]) {
			l.pos = next
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
	}
	return l.input[start:l.pos]
}

// 引号内连续两个结束符表示转义
func (l *lexer) scanQuoted(open, closing byte) (s string, err error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == closing {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == closing {
				sb.WriteByte(closing)
				l.pos += 2
				continue
			}
			l.pos++
			s = sb.String()
			return
		}
		sb.WriteByte(ch)
		l.pos++
	}
	err = newSyntaxError(l.input, start, "unterminated "+string(open)+" quoted literal")
	return
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '@' || ch == '#' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
