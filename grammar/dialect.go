package grammar

// 方言语法配置, 决定词法和少量方言专有语法
type Dialect struct {
	Name string
	// [name] 形式的标识符
	BracketIdentifiers bool
	// || 字符串拼接
	ConcatOperator bool
	// SELECT TOP n
	TopClause bool
	// OFFSET m ROWS FETCH NEXT n ROWS ONLY
	OffsetFetchClause bool
	// WHERE ROWNUM <= n
	RownumPaging bool
	// a.id = b.id(+)
	OuterJoinMarker bool
	// FROM t WITH (NOLOCK)
	TableHints bool
	// INSERT t VALUES (...) 可省略INTO
	OptionalInsertInto bool
}

var (
	Oracle = Dialect{
		Name:              "Oracle",
		ConcatOperator:    true,
		OffsetFetchClause: true,
		RownumPaging:      true,
		OuterJoinMarker:   true,
	}

	SQLServer = Dialect{
		Name:               "SQLServer",
		BracketIdentifiers: true,
		TopClause:          true,
		OffsetFetchClause:  true,
		TableHints:         true,
		OptionalInsertInto: true,
	}
)
