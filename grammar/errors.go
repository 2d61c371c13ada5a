package grammar

import (
	"fmt"
	"strings"
)

// 语法错误, 携带出错位置
type SyntaxError struct {
	// 原文中的字节偏移
	Pos     int
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func newSyntaxError(input string, pos int, message string) *SyntaxError {
	if pos > len(input) {
		pos = len(input)
	}
	line := strings.Count(input[:pos], "\n") + 1
	column := pos - strings.LastIndex(input[:pos], "\n")
	return &SyntaxError{Pos: pos, Line: line, Column: column, Message: message}
}
