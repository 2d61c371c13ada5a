package parser

import (
	"errors"
	"fmt"
	"slices"
)

var ErrParse = errors.New("parse sql failed")

// 解析失败, 携带原始SQL和参数
type ParseError struct {
	SQL        string
	Parameters []any
	Err        error
}

func newParseError(sql string, parameters []any, err error) *ParseError {
	return &ParseError{SQL: sql, Parameters: slices.Clone(parameters), Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sql failed,err=[%v],sql=[%v],parameters=%v", e.Err, e.SQL, e.Parameters)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
