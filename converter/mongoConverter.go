package converter

import (
	"fmt"
	"math"
	"regexp"

	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	Mongo_Stage_Macth = "$match"
	Mongo_Stage_Sort  = "$sort"
	Mongo_Stage_Skip  = "$skip"
	Mongo_Stage_Limit = "$limit"

	Mongo_Operator_Gte = "$gte"
	Mongo_Operator_Lte = "$lte"
	Mongo_Operator_Eq  = "$eq"
	Mongo_Operator_In  = "$in"
	Mongo_Operator_And = "$and"

	Mongo_Arg_Collection = "collection"
	Mongo_Arg_Pipeline   = "pipeline"
)

var (
	// mongo字段名不能以$开头, 不能包含.
	regex, _ = regexp.Compile(`^[^$.][^.]*$`)
)

// 分片条件转mongo查询转化器
type MatchConverter struct {
	ctx        sqlcontext.SQLContext
	sourceView map[string]string
	validator  ConverterValidator
}

// 分片条件转化校验器
type MatchConverterValidator struct{}

func (validator *MatchConverterValidator) Validate(ctx sqlcontext.SQLContext) (err error) {
	if ctx == nil {
		err = fmt.Errorf("no sql to convert")
		return
	}
	if len(ctx.GetTables()) == 0 {
		err = fmt.Errorf("no table in sql=[%v]", ctx.OriginalSQL())
		return
	}
	for _, condition := range ctx.GetConditions() {
		for _, name := range []string{condition.Column.Table, condition.Column.Name} {
			if name != "" && !regex.MatchString(name) {
				err = fmt.Errorf("invalid column name [%v]", condition.Column)
				return
			}
		}
		for _, value := range condition.Values {
			if !value.IsConstant() {
				err = fmt.Errorf("can't convert expression value [%v] of column [%v]", value.Text, condition.Column)
				return
			}
		}
	}
	return
}

type MatchQuery struct {
	SQL sqlcontext.SQLContext
	// 目标集合, 取第一张表
	Collection string
	Filter     bson.D
	Sort       bson.D
	Skip       *int64
	Limit      *int64
}

func (query MatchQuery) OriginalSQL() sqlcontext.SQLContext {
	return query.SQL
}

// 聚合管道: $match, $sort, $skip, $limit
func (query MatchQuery) Pipeline() (pipeline bson.A) {
	pipeline = bson.A{bson.D{{Key: Mongo_Stage_Macth, Value: query.Filter}}}
	if len(query.Sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Sort, Value: query.Sort}})
	}
	if query.Skip != nil {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Skip, Value: *query.Skip}})
	}
	if query.Limit != nil {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Limit, Value: *query.Limit}})
	}
	return
}

// 输出文档 {collection: ..., pipeline: [...]}
func (query MatchQuery) Document() bson.D {
	return bson.D{
		{Key: Mongo_Arg_Collection, Value: query.Collection},
		{Key: Mongo_Arg_Pipeline, Value: query.Pipeline()},
	}
}

// sourceView为表名到集合名的映射, 未配置时集合名即表名
func NewMatchConverter(ctx sqlcontext.SQLContext, sourceView map[string]string) ConditionConverter {
	return &MatchConverter{ctx: ctx, sourceView: sourceView, validator: &MatchConverterValidator{}}
}

func (conv *MatchConverter) Convert() (query *MatchQuery, err error) {
	err = conv.validator.Validate(conv.ctx)
	if err != nil {
		return
	}

	query = &MatchQuery{
		SQL:        conv.ctx,
		Collection: conv.collection(conv.ctx.GetTables()[0].Name),
		Filter:     buildFilter(conv.ctx.GetConditions()),
	}

	if selectCtx, ok := conv.ctx.(*sqlcontext.SelectSQLContext); ok {
		query.Sort = buildSort(selectCtx.GetOrderBy())
		if limit := selectCtx.GetLimit(); limit != nil {
			if query.Skip, err = toInt64(limit.Offset); err != nil {
				query = nil
				return
			}
			if query.Limit, err = toInt64(limit.RowCount); err != nil {
				query = nil
				return
			}
		}
	}

	log.Debugf("collection=%v,filter=%v", query.Collection, query.Filter)

	return
}

func (conv *MatchConverter) collection(table string) string {
	if view, ok := conv.sourceView[table]; ok {
		return view
	}
	return table
}

func buildFilter(conditions []sqlcontext.Condition) (filter bson.D) {
	filter = bson.D{}
	if len(conditions) == 1 {
		filter = append(filter, convertCondition(conditions[0]))
		return
	}
	if len(conditions) > 1 {
		and := bson.A{}
		for _, condition := range conditions {
			and = append(and, bson.D{convertCondition(condition)})
		}
		filter = append(filter, bson.E{Key: Mongo_Operator_And, Value: and})
	}
	return
}

func convertCondition(condition sqlcontext.Condition) (match bson.E) {
	match.Key = parseFieldKey(condition.Column)
	switch condition.Operator {
	case sqlcontext.Operator_Equal:
		match.Value = bson.D{{Key: Mongo_Operator_Eq, Value: condition.Values[0].Value}}
	case sqlcontext.Operator_In:
		values := bson.A{}
		for _, value := range condition.Values {
			values = append(values, value.Value)
		}
		match.Value = bson.D{{Key: Mongo_Operator_In, Value: values}}
	case sqlcontext.Operator_Between:
		match.Value = bson.D{
			{Key: Mongo_Operator_Gte, Value: condition.Values[0].Value},
			{Key: Mongo_Operator_Lte, Value: condition.Values[1].Value},
		}
	}
	return
}

// 只转化按列排序, 序号和表达式排序忽略
func buildSort(orderBy []sqlcontext.OrderItem) (sort bson.D) {
	for _, item := range orderBy {
		if item.Name == "" {
			log.Debugf("skip order item index=%v,expression=%v", item.Index, item.Expression)
			continue
		}
		direction := 1
		if item.Desc {
			direction = -1
		}
		sort = append(sort, bson.E{Key: parseFieldKey(sqlcontext.Column{Table: item.Table, Name: item.Name}), Value: direction})
	}
	return
}

func parseFieldKey(column sqlcontext.Column) string {
	if column.Table == "" {
		return column.Name
	}
	return fmt.Sprintf("%v.%v", column.Table, column.Name)
}

func toInt64(value *sqlcontext.Value) (n *int64, err error) {
	if value == nil {
		return
	}
	var v int64
	switch raw := value.Value.(type) {
	case int:
		v = int64(raw)
	case int32:
		v = int64(raw)
	case int64:
		v = raw
	case uint64:
		v = int64(raw)
	case float64:
		if raw != math.Trunc(raw) {
			err = fmt.Errorf("paging value [%v] is not an integer", value.Text)
			return
		}
		v = int64(raw)
	default:
		err = fmt.Errorf("can't convert paging value [%v] to integer", value)
		return
	}
	n = &v
	return
}
