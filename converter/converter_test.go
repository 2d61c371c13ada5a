package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/parser"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	SELECT = "SELECT * FROM t_order o WHERE o.user_id = ? AND o.status IN ('A', 'B') AND o.amount BETWEEN 10 AND 20 " +
		"ORDER BY o.created DESC, 2 LIMIT 5, 10"
	SELECT2 = "SELECT * FROM t_order WHERE user_id = ?"

	Source_View = map[string]string{
		"t_order": "orders",
	}
)

func parse(t *testing.T, databaseType dialect.DatabaseType, sql string, parameters ...any) sqlcontext.SQLContext {
	engine, err := parser.Create(databaseType, sql, parameters, nil, parser.WithSink(parser.NopSink{}))
	require.NoError(t, err)
	return engine.SQLContext()
}

func TestMatchConverter(t *testing.T) {
	ctx := parse(t, dialect.MySQL, SELECT, 7)
	query, err := NewMatchConverter(ctx, Source_View).Convert()
	require.NoError(t, err)

	assert.Equal(t, "orders", query.Collection)
	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "t_order.user_id", Value: bson.D{{Key: "$eq", Value: 7}}}},
		bson.D{{Key: "t_order.status", Value: bson.D{{Key: "$in", Value: bson.A{"A", "B"}}}}},
		bson.D{{Key: "t_order.amount", Value: bson.D{{Key: "$gte", Value: int64(10)}, {Key: "$lte", Value: int64(20)}}}},
	}}}, query.Filter)
	assert.Equal(t, bson.D{{Key: "t_order.created", Value: -1}}, query.Sort)
	require.NotNil(t, query.Skip)
	require.NotNil(t, query.Limit)
	assert.Equal(t, int64(5), *query.Skip)
	assert.Equal(t, int64(10), *query.Limit)
	assert.Len(t, query.Pipeline(), 4)

	var q Query = query
	assert.Equal(t, ctx, q.OriginalSQL())
}

func TestMatchConverterSingleCondition(t *testing.T) {
	query, err := NewMatchConverter(parse(t, dialect.Oracle, SELECT2, 7), nil).Convert()
	require.NoError(t, err)

	assert.Equal(t, "t_order", query.Collection)
	assert.Equal(t, bson.D{{Key: "t_order.user_id", Value: bson.D{{Key: "$eq", Value: 7}}}}, query.Filter)
	assert.Nil(t, query.Skip)
	assert.Nil(t, query.Limit)
	assert.Equal(t, bson.A{bson.D{{Key: "$match", Value: query.Filter}}}, query.Pipeline())
}

func TestMatchConverterInsert(t *testing.T) {
	query, err := NewMatchConverter(parse(t, dialect.PostgreSQL, "INSERT INTO t_order (order_id, user_id) VALUES (1, $1), (2, $2)", 10, 11), nil).Convert()
	require.NoError(t, err)

	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "t_order.order_id", Value: bson.D{{Key: "$in", Value: bson.A{int64(1), int64(2)}}}}},
		bson.D{{Key: "t_order.user_id", Value: bson.D{{Key: "$in", Value: bson.A{10, 11}}}}},
	}}}, query.Filter)
}

func TestMatchConverterNoCondition(t *testing.T) {
	query, err := NewMatchConverter(parse(t, dialect.SQLServer, "DELETE FROM t_order WHERE a = 1 OR b = 2"), nil).Convert()
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, query.Filter)
}

func TestMatchConverterExtJSON(t *testing.T) {
	query, err := NewMatchConverter(parse(t, dialect.MySQL, SELECT2, 7), Source_View).Convert()
	require.NoError(t, err)

	data, err := bson.MarshalExtJSON(query.Document(), false, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collection":"orders","pipeline":[{"$match":{"t_order.user_id":{"$eq":7}}}]}`, string(data))
}

func TestMatchConverterValidate(t *testing.T) {
	_, err := NewMatchConverter(nil, nil).Convert()
	assert.EqualError(t, err, "no sql to convert")

	builder := sqlcontext.NewBuilder(sqlcontext.SQLType_Select, dialect.MySQL, "SELECT * FROM t WHERE id = abs(1)", nil, nil)
	builder.AddTable("t", "")
	builder.AddCondition("", "id", sqlcontext.Operator_Equal, builder.Expression("abs(1)"))
	_, err = NewMatchConverter(builder.Build(), nil).Convert()
	assert.ErrorContains(t, err, "can't convert expression value [abs(1)]")

	builder = sqlcontext.NewBuilder(sqlcontext.SQLType_Select, dialect.MySQL, "SELECT * FROM t WHERE `$id` = 1", nil, nil)
	builder.AddTable("t", "")
	builder.AddCondition("", "$id", sqlcontext.Operator_Equal, builder.Literal(int64(1), "1"))
	_, err = NewMatchConverter(builder.Build(), nil).Convert()
	assert.ErrorContains(t, err, "invalid column name")
}

func TestMatchConverterPaging(t *testing.T) {
	_, err := NewMatchConverter(parse(t, dialect.PostgreSQL, "SELECT * FROM t LIMIT 1.5"), nil).Convert()
	assert.ErrorContains(t, err, "is not an integer")

	query, err := NewMatchConverter(parse(t, dialect.PostgreSQL, "SELECT * FROM t LIMIT $1 OFFSET $2", 10, 20), nil).Convert()
	require.NoError(t, err)
	assert.Equal(t, int64(20), *query.Skip)
	assert.Equal(t, int64(10), *query.Limit)
}
