package parser

import (
	"errors"
	"fmt"
	"math"
	"testing"

	log "github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
	"golang.org/x/sync/errgroup"
)

var (
	MYSQL_SELECT = "SELECT u.name, COUNT(DISTINCT o.id) AS cnt FROM t_user u JOIN t_order o ON u.id = o.user_id " +
		"WHERE u.id IN (?, ?) AND o.created BETWEEN 1 AND 10 AND (o.status = 'PAID') " +
		"GROUP BY u.name ORDER BY cnt DESC LIMIT ?, ? FOR UPDATE"
	MYSQL_INSERT = "INSERT INTO t_order (order_id, user_id) VALUES (?, ?), (1002, 11)"
	MYSQL_UPDATE = "UPDATE t_user SET name = ? WHERE id = ?"
	MYSQL_DELETE = "DELETE FROM t_order WHERE order_id = 1 OR user_id = 2"

	PG_INSERT = "INSERT INTO t_order (order_id, user_id, status) VALUES ($1, $2, 'init'), ($3, $4, now()) RETURNING order_id"
	PG_UPDATE = "UPDATE t_user SET name = $1, age = age + 1 WHERE user_id = $2"
	PG_PAGING = "SELECT * FROM t_order WHERE order_id = $1 LIMIT $3 OFFSET $2"

	SIMPLE_SELECT    = "SELECT * FROM t WHERE id = ?"
	PG_SIMPLE_SELECT = "SELECT * FROM t WHERE id = $1"

	NESTED_SUBQUERY = "SELECT * FROM t_order WHERE user_id = 7 AND status IN (SELECT code FROM t_status)"
	BIG_INTEGERS    = "SELECT * FROM t WHERE a = 18446744073709551615 AND b = 9223372036854775808 AND c = -9223372036854775808"

	ALL_DATABASE_TYPES = []dialect.DatabaseType{dialect.MySQL, dialect.Oracle, dialect.SQLServer, dialect.PostgreSQL}
)

// 每个方言的单条件查询
func simpleSelect(databaseType dialect.DatabaseType) string {
	if databaseType == dialect.PostgreSQL {
		return PG_SIMPLE_SELECT
	}
	return SIMPLE_SELECT
}

type recordingSink struct {
	events []string
}

func (s *recordingSink) LogicSQL(sql string, parameters []any) {
	s.events = append(s.events, fmt.Sprintf("logic:%v:%v", sql, parameters))
}

func (s *recordingSink) ParsedStatement(ctx sqlcontext.SQLContext) {
	s.events = append(s.events, fmt.Sprintf("parsed:%v", ctx.GetType()))
}

func TestNewExprParser(t *testing.T) {
	tests := []struct {
		databaseType dialect.DatabaseType
		expected     ExprParser
		group        dialect.DatabaseType
	}{
		{dialect.H2, &MySQLExprParser{}, dialect.MySQL},
		{dialect.MySQL, &MySQLExprParser{}, dialect.MySQL},
		{dialect.Oracle, &OracleExprParser{}, dialect.Oracle},
		{dialect.SQLServer, &SQLServerExprParser{}, dialect.SQLServer},
		{dialect.PostgreSQL, &PGExprParser{}, dialect.PostgreSQL},
	}
	// 选择结果只取决于数据库类型
	inputs := []struct {
		sql        string
		parameters []any
	}{
		{SIMPLE_SELECT, []any{1}},
		{"not a sql at all", nil},
		{"", []any{"a", 2, nil}},
	}
	for _, test := range tests {
		for _, input := range inputs {
			exprParser, err := NewExprParser(test.databaseType, input.sql, input.parameters, nil)
			require.NoError(t, err)
			assert.IsType(t, test.expected, exprParser, "databaseType=%v", test.databaseType)
			assert.Equal(t, test.group, exprParser.DatabaseType())
			assert.Equal(t, input.sql, exprParser.SQL())
		}
	}
}

func TestNewExprParserUnsupported(t *testing.T) {
	for _, databaseType := range []dialect.DatabaseType{dialect.DB2, 0, 99} {
		exprParser, err := NewExprParser(databaseType, "SELECT 1", nil, nil)
		assert.Nil(t, exprParser)
		assert.ErrorIs(t, err, dialect.ErrUnsupportedDialect)
		var unsupported *dialect.UnsupportedDialectError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, databaseType, unsupported.DatabaseType)
	}
}

func TestCreateMySQLSimpleSelect(t *testing.T) {
	engine, err := Create(dialect.MySQL, SIMPLE_SELECT, []any{42}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx := engine.SQLContext()

	assert.Equal(t, sqlcontext.SQLType_Select, ctx.GetType())
	assert.Equal(t, SIMPLE_SELECT, ctx.OriginalSQL())
	assert.Equal(t, []sqlcontext.Table{{Name: "t"}}, ctx.GetTables())
	assert.Equal(t, []any{42}, ctx.GetParameters())
	assert.Equal(t, []sqlcontext.Condition{{
		Column:   sqlcontext.Column{Table: "t", Name: "id"},
		Operator: sqlcontext.Operator_Equal,
		Values:   []sqlcontext.Value{{Kind: sqlcontext.ValueKind_Placeholder, Index: 0, Value: 42, Text: "?"}},
	}}, ctx.GetConditions())
}

func TestCreateMySQLSelect(t *testing.T) {
	engine, err := Create(dialect.MySQL, MYSQL_SELECT, []any{1, 2, 0, 10}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx, ok := engine.SQLContext().(*sqlcontext.SelectSQLContext)
	require.True(t, ok)

	assert.Equal(t, []sqlcontext.Table{{Name: "t_user", Alias: "u"}, {Name: "t_order", Alias: "o"}}, ctx.GetTables())

	in, ok := ctx.FindCondition("t_user", "id")
	require.True(t, ok)
	assert.Equal(t, sqlcontext.Operator_In, in.Operator)
	require.Len(t, in.Values, 2)
	assert.Equal(t, 1, in.Values[0].Value)
	assert.Equal(t, 2, in.Values[1].Value)

	between, ok := ctx.FindCondition("t_order", "created")
	require.True(t, ok)
	assert.Equal(t, sqlcontext.Operator_Between, between.Operator)
	assert.Equal(t, int64(1), between.Values[0].Value)
	assert.Equal(t, int64(10), between.Values[1].Value)

	equal, ok := ctx.FindCondition("t_order", "status")
	require.True(t, ok)
	assert.Equal(t, "PAID", equal.Values[0].Value)
	assert.Len(t, ctx.GetConditions(), 3)

	items := ctx.GetItems()
	require.Len(t, items, 2)
	assert.Equal(t, sqlcontext.Aggregation_Count, items[1].Aggregation)
	assert.True(t, items[1].Distinct)
	assert.Equal(t, "cnt", items[1].Alias)

	assert.Equal(t, []sqlcontext.OrderItem{{Table: "t_user", Name: "name"}}, ctx.GetGroupBy())
	assert.Equal(t, []sqlcontext.OrderItem{{Name: "cnt", Desc: true}}, ctx.GetOrderBy())

	limit := ctx.GetLimit()
	require.NotNil(t, limit)
	assert.Equal(t, 2, limit.Offset.Index)
	assert.Equal(t, 0, limit.Offset.Value)
	assert.Equal(t, 3, limit.RowCount.Index)
	assert.Equal(t, 10, limit.RowCount.Value)
	assert.True(t, ctx.IsForUpdate())
}

func TestCreateH2(t *testing.T) {
	engine, err := Create(dialect.H2, SIMPLE_SELECT, []any{42}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	assert.Equal(t, dialect.H2, engine.SQLContext().GetDatabaseType())
}

func TestCreateMySQLInsert(t *testing.T) {
	engine, err := Create(dialect.MySQL, MYSQL_INSERT, []any{1001, 10}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx := engine.SQLContext().(*sqlcontext.InsertSQLContext)

	assert.Equal(t, []sqlcontext.Column{{Table: "t_order", Name: "order_id"}, {Table: "t_order", Name: "user_id"}}, ctx.GetColumns())
	condition, ok := ctx.FindCondition("t_order", "order_id")
	require.True(t, ok)
	assert.Equal(t, sqlcontext.Operator_In, condition.Operator)
	assert.Equal(t, []any{1001, int64(1002)}, []any{condition.Values[0].Value, condition.Values[1].Value})
}

func TestCreateMySQLUpdateAndDelete(t *testing.T) {
	engine, err := Create(dialect.MySQL, MYSQL_UPDATE, []any{"tom", 7}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	update := engine.SQLContext().(*sqlcontext.UpdateSQLContext)
	assignments := update.GetAssignments()
	require.Len(t, assignments, 1)
	assert.Equal(t, sqlcontext.Column{Table: "t_user", Name: "name"}, assignments[0].Column)
	assert.Equal(t, "tom", assignments[0].Value.Value)
	condition, ok := update.FindCondition("t_user", "id")
	require.True(t, ok)
	assert.Equal(t, 7, condition.Values[0].Value)

	engine, err = Create(dialect.MySQL, MYSQL_DELETE, nil, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	assert.Equal(t, sqlcontext.SQLType_Delete, engine.SQLContext().GetType())
	assert.Empty(t, engine.SQLContext().GetConditions())
}

func TestCreateOtherDialects(t *testing.T) {
	tests := []struct {
		databaseType dialect.DatabaseType
		sql          string
	}{
		{dialect.Oracle, "SELECT * FROM t WHERE id = ? AND ROWNUM <= 10"},
		{dialect.SQLServer, "SELECT TOP 10 * FROM [t] WHERE id = ?"},
		{dialect.PostgreSQL, "SELECT * FROM t WHERE id = $1 LIMIT 10"},
	}
	for _, test := range tests {
		engine, err := Create(test.databaseType, test.sql, []any{42}, nil, WithSink(NopSink{}))
		require.NoError(t, err, test.sql)
		ctx := engine.SQLContext().(*sqlcontext.SelectSQLContext)
		assert.Equal(t, test.databaseType, ctx.GetDatabaseType())
		condition, ok := ctx.FindCondition("t", "id")
		require.True(t, ok)
		assert.Equal(t, 42, condition.Values[0].Value)
		assert.Equal(t, int64(10), ctx.GetLimit().RowCount.Value)
	}
}

func TestCreatePostgreSQLSelect(t *testing.T) {
	sql := "SELECT DISTINCT o.user_id, count(*) AS cnt FROM t_order o JOIN t_user u ON u.id = o.user_id " +
		"WHERE o.order_id IN ($1, $2) AND 'PAID' = o.status AND u.age BETWEEN 18 AND 30 AND (o.a = 1 OR o.b = 2) " +
		"GROUP BY o.user_id ORDER BY cnt DESC, 1 LIMIT ALL FOR UPDATE"
	engine, err := Create(dialect.PostgreSQL, sql, []any{1, 2}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx := engine.SQLContext().(*sqlcontext.SelectSQLContext)

	assert.Equal(t, []sqlcontext.Table{{Name: "t_order", Alias: "o"}, {Name: "t_user", Alias: "u"}}, ctx.GetTables())
	assert.Equal(t, []sqlcontext.Condition{
		{
			Column:   sqlcontext.Column{Table: "t_order", Name: "order_id"},
			Operator: sqlcontext.Operator_In,
			Values: []sqlcontext.Value{
				{Kind: sqlcontext.ValueKind_Placeholder, Index: 0, Value: 1, Text: "$1"},
				{Kind: sqlcontext.ValueKind_Placeholder, Index: 1, Value: 2, Text: "$2"},
			},
		},
		{
			Column:   sqlcontext.Column{Table: "t_order", Name: "status"},
			Operator: sqlcontext.Operator_Equal,
			Values:   []sqlcontext.Value{{Kind: sqlcontext.ValueKind_Literal, Index: -1, Value: "PAID", Text: "'PAID'"}},
		},
		{
			Column:   sqlcontext.Column{Table: "t_user", Name: "age"},
			Operator: sqlcontext.Operator_Between,
			Values: []sqlcontext.Value{
				{Kind: sqlcontext.ValueKind_Literal, Index: -1, Value: int64(18), Text: "18"},
				{Kind: sqlcontext.ValueKind_Literal, Index: -1, Value: int64(30), Text: "30"},
			},
		},
	}, ctx.GetConditions())

	assert.True(t, ctx.IsDistinct())
	assert.True(t, ctx.IsForUpdate())
	items := ctx.GetItems()
	require.Len(t, items, 2)
	assert.Equal(t, "o.user_id", items[0].Expression)
	assert.Equal(t, sqlcontext.Aggregation_Count, items[1].Aggregation)
	assert.Equal(t, "cnt", items[1].Alias)
	assert.Equal(t, []sqlcontext.OrderItem{{Table: "t_order", Name: "user_id"}}, ctx.GetGroupBy())
	assert.Equal(t, []sqlcontext.OrderItem{{Name: "cnt", Desc: true}, {Index: 1}}, ctx.GetOrderBy())
	assert.Nil(t, ctx.GetLimit())
}

func TestCreatePostgreSQLInsert(t *testing.T) {
	params := []any{1001, 10, 1002, 11}
	engine, err := Create(dialect.PostgreSQL, PG_INSERT, params, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx := engine.SQLContext().(*sqlcontext.InsertSQLContext)

	assert.Equal(t, []sqlcontext.Column{
		{Table: "t_order", Name: "order_id"},
		{Table: "t_order", Name: "user_id"},
		{Table: "t_order", Name: "status"},
	}, ctx.GetColumns())

	rows := ctx.GetRows()
	require.Len(t, rows, 2)
	assert.Equal(t, sqlcontext.ValueKind_Expression, rows[1][2].Kind)
	assert.Equal(t, "now()", rows[1][2].Text)

	conditions := ctx.GetConditions()
	require.Len(t, conditions, 2)
	assert.Equal(t, sqlcontext.Operator_In, conditions[0].Operator)
	assert.Equal(t, "order_id", conditions[0].Column.Name)
	assert.Equal(t, []any{1001, 1002}, []any{conditions[0].Values[0].Value, conditions[0].Values[1].Value})
	assert.Equal(t, "$3", conditions[0].Values[1].Text)
	assert.Equal(t, 2, conditions[0].Values[1].Index)
	assert.Equal(t, "user_id", conditions[1].Column.Name)

	_, err = Create(dialect.PostgreSQL, "INSERT INTO t (a, b) VALUES (1)", nil, nil, WithSink(NopSink{}))
	assert.ErrorIs(t, err, ErrParse)
}

func TestCreatePostgreSQLUpdate(t *testing.T) {
	engine, err := Create(dialect.PostgreSQL, PG_UPDATE, []any{"tom", 9}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	ctx := engine.SQLContext().(*sqlcontext.UpdateSQLContext)

	assignments := ctx.GetAssignments()
	require.Len(t, assignments, 2)
	assert.Equal(t, sqlcontext.Column{Table: "t_user", Name: "name"}, assignments[0].Column)
	assert.Equal(t, "tom", assignments[0].Value.Value)
	assert.Equal(t, sqlcontext.ValueKind_Expression, assignments[1].Value.Kind)
	assert.Equal(t, "age + 1", assignments[1].Value.Text)

	condition, ok := ctx.FindCondition("t_user", "user_id")
	require.True(t, ok)
	assert.Equal(t, 9, condition.Values[0].Value)

	engine, err = Create(dialect.PostgreSQL, "DELETE FROM t_order o WHERE o.order_id = $1", []any{3}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	assert.Equal(t, sqlcontext.SQLType_Delete, engine.SQLContext().GetType())
	condition, ok = engine.SQLContext().(*sqlcontext.DeleteSQLContext).FindCondition("t_order", "order_id")
	require.True(t, ok)
	assert.Equal(t, 3, condition.Values[0].Value)
}

func TestCreatePostgreSQLPaging(t *testing.T) {
	engine, err := Create(dialect.PostgreSQL, PG_PAGING, []any{1, 20, 10}, nil, WithSink(NopSink{}))
	require.NoError(t, err)

	limit := engine.SQLContext().(*sqlcontext.SelectSQLContext).GetLimit()
	require.NotNil(t, limit)
	assert.Equal(t, 2, limit.RowCount.Index)
	assert.Equal(t, 10, limit.RowCount.Value)
	assert.Equal(t, 1, limit.Offset.Index)
	assert.Equal(t, 20, limit.Offset.Value)
}

func TestCreatePostgreSQLRepeatedPlaceholder(t *testing.T) {
	engine, err := Create(dialect.PostgreSQL, "SELECT * FROM t WHERE a = $1 AND b = $1", []any{5}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	conditions := engine.SQLContext().GetConditions()
	require.Len(t, conditions, 2)
	assert.Equal(t, 5, conditions[0].Values[0].Value)
	assert.Equal(t, 5, conditions[1].Values[0].Value)
}

func TestCreateBigIntegerLiterals(t *testing.T) {
	for _, databaseType := range ALL_DATABASE_TYPES {
		engine, err := Create(databaseType, BIG_INTEGERS, nil, nil, WithSink(NopSink{}))
		require.NoError(t, err, databaseType)

		conditions := engine.SQLContext().GetConditions()
		require.Len(t, conditions, 3, databaseType)
		assert.Equal(t, uint64(18446744073709551615), conditions[0].Values[0].Value, databaseType)
		assert.Equal(t, uint64(9223372036854775808), conditions[1].Values[0].Value, databaseType)
		assert.Equal(t, int64(math.MinInt64), conditions[2].Values[0].Value, databaseType)
	}
}

func TestCreateSubqueryTablesNotInScope(t *testing.T) {
	for _, databaseType := range ALL_DATABASE_TYPES {
		engine, err := Create(databaseType, NESTED_SUBQUERY, nil, nil, WithSink(NopSink{}))
		require.NoError(t, err, databaseType)
		ctx := engine.SQLContext()

		assert.Equal(t, []sqlcontext.Table{{Name: "t_order"}, {Name: "t_status"}}, ctx.GetTables(), databaseType)
		assert.Equal(t, []sqlcontext.Condition{{
			Column:   sqlcontext.Column{Table: "t_order", Name: "user_id"},
			Operator: sqlcontext.Operator_Equal,
			Values:   []sqlcontext.Value{{Kind: sqlcontext.ValueKind_Literal, Index: -1, Value: int64(7), Text: "7"}},
		}}, ctx.GetConditions(), databaseType)
	}
}

func TestCreatePostgreSQLRejected(t *testing.T) {
	for _, sql := range []string{
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"SELECT * FROM t1 UNION SELECT * FROM t2",
		"VALUES (1), (2)",
		"SELECT 1; SELECT 2",
		"SELECT * INTO t2 FROM t",
		"CREATE TABLE t (id int)",
	} {
		_, err := Create(dialect.PostgreSQL, sql, nil, nil, WithSink(NopSink{}))
		assert.ErrorIs(t, err, ErrParse, sql)
	}
}

func TestCreateParameterMismatch(t *testing.T) {
	tests := []struct {
		databaseType dialect.DatabaseType
		sql          string
		parameters   []any
	}{
		{dialect.MySQL, SIMPLE_SELECT, nil},
		{dialect.MySQL, SIMPLE_SELECT, []any{1, 2}},
		{dialect.Oracle, SIMPLE_SELECT, nil},
		{dialect.PostgreSQL, "SELECT * FROM t WHERE id = $2", []any{1}},
		{dialect.SQLServer, "SELECT * FROM t", []any{1}},
	}
	for _, test := range tests {
		engine, err := Create(test.databaseType, test.sql, test.parameters, nil, WithSink(NopSink{}))
		assert.Nil(t, engine)
		assert.ErrorIs(t, err, ErrParse)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, test.sql, parseErr.SQL)
		assert.Equal(t, test.parameters, parseErr.Parameters)
		assert.Contains(t, parseErr.Error(), "placeholder count")
	}
}

func TestCreateParseError(t *testing.T) {
	tests := []struct {
		databaseType dialect.DatabaseType
		sql          string
	}{
		{dialect.MySQL, "SELECT * FROM WHERE"},
		{dialect.MySQL, "SELECT 1; SELECT 2"},
		{dialect.MySQL, "CREATE TABLE t (id INT)"},
		{dialect.MySQL, "SELECT a FROM t1 UNION SELECT a FROM t2"},
		{dialect.H2, ""},
		{dialect.Oracle, "SELECT * FROM WHERE"},
		{dialect.SQLServer, "DROP TABLE t"},
		{dialect.PostgreSQL, "SELECT * FROM t WHERE"},
	}
	for _, test := range tests {
		_, err := Create(test.databaseType, test.sql, nil, nil, WithSink(NopSink{}))
		var parseErr *ParseError
		if assert.ErrorAs(t, err, &parseErr, "sql=%v", test.sql) {
			assert.Equal(t, test.sql, parseErr.SQL)
			assert.NotNil(t, errors.Unwrap(err))
		}
		assert.False(t, errors.Is(err, dialect.ErrUnsupportedDialect))
	}
}

func TestCreateUnsupported(t *testing.T) {
	sink := &recordingSink{}
	engine, err := Create(dialect.DB2, "SELECT 1", nil, nil, WithSink(sink))
	assert.Nil(t, engine)
	assert.ErrorIs(t, err, dialect.ErrUnsupportedDialect)
	assert.False(t, errors.Is(err, ErrParse))
	// 解析前已输出逻辑SQL, 但不会输出语句类型
	assert.Equal(t, []string{"logic:SELECT 1:[]"}, sink.events)

	_, err = Create(dialect.DatabaseType(99), "SELECT 1", nil, nil, WithSink(NopSink{}))
	assert.ErrorIs(t, err, dialect.ErrUnsupportedDialect)
}

func TestCreateSinkEvents(t *testing.T) {
	sink := &recordingSink{}
	_, err := Create(dialect.MySQL, SIMPLE_SELECT, []any{42}, nil, WithSink(sink))
	require.NoError(t, err)
	assert.Equal(t, []string{"logic:" + SIMPLE_SELECT + ":[42]", "parsed:SELECT"}, sink.events)
}

func TestLogrusSink(t *testing.T) {
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(log.TraceLevel)

	_, err := Create(dialect.MySQL, SIMPLE_SELECT, []any{42}, nil, WithSink(NewLogrusSink(logger)))
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "Logic SQL: "+SIMPLE_SELECT+", [42]", entries[0].Message)
	assert.Equal(t, log.TraceLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "SelectSQLContext")
}

func TestCreateShardingRulePassThrough(t *testing.T) {
	rule := &struct{ Tables []string }{Tables: []string{"t"}}
	for _, databaseType := range []dialect.DatabaseType{dialect.MySQL, dialect.Oracle} {
		engine, err := Create(databaseType, SIMPLE_SELECT, []any{1}, rule, WithSink(NopSink{}))
		require.NoError(t, err)
		assert.Same(t, rule, engine.SQLContext().GetShardingRule())
	}

	engine, err := Create(dialect.MySQL, SIMPLE_SELECT, []any{1}, nil, WithSink(NopSink{}))
	require.NoError(t, err)
	assert.Nil(t, engine.SQLContext().GetShardingRule())
}

func TestCreateIdempotent(t *testing.T) {
	for _, databaseType := range ALL_DATABASE_TYPES {
		first, err := Create(databaseType, simpleSelect(databaseType), []any{42}, nil, WithSink(NopSink{}))
		require.NoError(t, err)
		second, err := Create(databaseType, simpleSelect(databaseType), []any{42}, nil, WithSink(NopSink{}))
		require.NoError(t, err)
		assert.Equal(t, first.SQLContext(), second.SQLContext())
	}
}

func TestCreateConcurrent(t *testing.T) {
	databaseTypes := append([]dialect.DatabaseType{dialect.H2}, ALL_DATABASE_TYPES...)
	var g errgroup.Group
	for idx := 0; idx < 64; idx++ {
		idx := idx
		databaseType := databaseTypes[idx%len(databaseTypes)]
		g.Go(func() error {
			engine, err := Create(databaseType, simpleSelect(databaseType), []any{idx}, nil, WithSink(NopSink{}))
			if err != nil {
				return err
			}
			conditions := engine.SQLContext().GetConditions()
			if len(conditions) != 1 || conditions[0].Values[0].Value != idx {
				return fmt.Errorf("unexpected conditions %v for parameter %v", conditions, idx)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

func TestParseEngineImmutable(t *testing.T) {
	parameters := []any{42}
	engine, err := Create(dialect.MySQL, SIMPLE_SELECT, parameters, nil, WithSink(NopSink{}))
	require.NoError(t, err)

	parameters[0] = 0
	ctx := engine.SQLContext()
	assert.Equal(t, []any{42}, ctx.GetParameters())

	conditions := ctx.GetConditions()
	conditions[0].Values[0].Value = 0
	assert.Equal(t, 42, ctx.GetConditions()[0].Values[0].Value)
}
