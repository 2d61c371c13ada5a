package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tsfans/sql-sharding-parser/converter"
	"github.com/tsfans/sql-sharding-parser/sqlcontext"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	Output_Text  = "text"
	Output_JSON  = "json"
	Output_Mongo = "mongo"
)

var outputs = []string{Output_Text, Output_JSON, Output_Mongo}

// 命令行参数转换为带类型的值: 整数, 浮点数, 布尔, null, 其余为字符串
func ParseParameter(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	if strings.EqualFold(raw, "null") {
		return nil
	}
	return raw
}

func ParseParameters(raws []string) []any {
	parameters := make([]any, 0, len(raws))
	for _, raw := range raws {
		parameters = append(parameters, ParseParameter(raw))
	}
	return parameters
}

type renderer struct {
	out io.Writer
	cfg *Config
}

func (r *renderer) render(ctx sqlcontext.SQLContext) error {
	switch r.cfg.Output {
	case Output_JSON:
		return r.renderJSON(ctx)
	case Output_Mongo:
		return r.renderMongo(ctx)
	default:
		return r.renderText(ctx)
	}
}

func (r *renderer) renderText(ctx sqlcontext.SQLContext) (err error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "type: %v\n", ctx.GetType())
	fmt.Fprintf(&sb, "database: %v\n", ctx.GetDatabaseType())
	fmt.Fprintf(&sb, "parameters: %v\n", ctx.GetParameters())

	tables := make([]string, 0, len(ctx.GetTables()))
	for _, table := range ctx.GetTables() {
		if table.Alias != "" {
			tables = append(tables, fmt.Sprintf("%v(%v)", table.Name, table.Alias))
		} else {
			tables = append(tables, table.Name)
		}
	}
	fmt.Fprintf(&sb, "tables: %v\n", strings.Join(tables, ", "))

	sb.WriteString("conditions:\n")
	for _, condition := range ctx.GetConditions() {
		fmt.Fprintf(&sb, "  %v", condition)
		if r.cfg.ShardingRule.IsShardingColumn(condition.Column.Table, condition.Column.Name) {
			sb.WriteString(" [sharding]")
		}
		sb.WriteString("\n")
	}

	if selectCtx, ok := ctx.(*sqlcontext.SelectSQLContext); ok {
		if limit := selectCtx.GetLimit(); limit != nil {
			fmt.Fprintf(&sb, "limit: offset=%v,rowCount=%v\n", valueString(limit.Offset), valueString(limit.RowCount))
		}
	}
	if len(r.cfg.ShardingRule.Tables) > 0 {
		fmt.Fprintf(&sb, "sharding tables: %v\n", r.cfg.ShardingRule.TableNames())
	}

	_, err = io.WriteString(r.out, sb.String())
	return
}

func valueString(value *sqlcontext.Value) string {
	if value == nil {
		return "-"
	}
	return value.String()
}

type jsonCondition struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Values   []any  `json:"values"`
	Sharding bool   `json:"sharding"`
}

type jsonContext struct {
	SQL          string             `json:"sql"`
	Type         string             `json:"type"`
	DatabaseType string             `json:"databaseType"`
	Parameters   []any              `json:"parameters"`
	Tables       []sqlcontext.Table `json:"tables"`
	Conditions   []jsonCondition    `json:"conditions"`
	Limit        map[string]any     `json:"limit,omitempty"`
}

func (r *renderer) renderJSON(ctx sqlcontext.SQLContext) (err error) {
	out := jsonContext{
		SQL:          ctx.OriginalSQL(),
		Type:         ctx.GetType().String(),
		DatabaseType: ctx.GetDatabaseType().String(),
		Parameters:   ctx.GetParameters(),
		Tables:       ctx.GetTables(),
		Conditions:   []jsonCondition{},
	}
	for _, condition := range ctx.GetConditions() {
		values := make([]any, 0, len(condition.Values))
		for _, value := range condition.Values {
			values = append(values, value.Value)
		}
		out.Conditions = append(out.Conditions, jsonCondition{
			Table:    condition.Column.Table,
			Column:   condition.Column.Name,
			Operator: condition.Operator.String(),
			Values:   values,
			Sharding: r.cfg.ShardingRule.IsShardingColumn(condition.Column.Table, condition.Column.Name),
		})
	}
	if selectCtx, ok := ctx.(*sqlcontext.SelectSQLContext); ok {
		if limit := selectCtx.GetLimit(); limit != nil {
			out.Limit = map[string]any{}
			if limit.Offset != nil {
				out.Limit["offset"] = limit.Offset.Value
			}
			if limit.RowCount != nil {
				out.Limit["rowCount"] = limit.RowCount.Value
			}
		}
	}

	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (r *renderer) renderMongo(ctx sqlcontext.SQLContext) (err error) {
	var query *converter.MatchQuery
	query, err = converter.NewMatchConverter(ctx, r.cfg.SourceView).Convert()
	if err != nil {
		return
	}
	var data []byte
	data, err = bson.MarshalExtJSON(query.Document(), false, false)
	if err != nil {
		err = fmt.Errorf("marshal mongo query failed,err=[%v]", err)
		return
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return
}
