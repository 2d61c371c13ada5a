package dialect

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// 数据库类型
type DatabaseType int

const (
	H2 DatabaseType = iota + 1
	MySQL
	Oracle
	SQLServer
	DB2
	PostgreSQL
)

var (
	// 类型名称
	databaseTypeNames = map[DatabaseType]string{
		H2:         "H2",
		MySQL:      "MySQL",
		Oracle:     "Oracle",
		SQLServer:  "SQLServer",
		DB2:        "DB2",
		PostgreSQL: "PostgreSQL",
	}

	// 驱动上报的产品名称
	productNames = map[string]DatabaseType{
		"H2":                   H2,
		"MySQL":                MySQL,
		"Oracle":               Oracle,
		"Microsoft SQL Server": SQLServer,
		"DB2":                  DB2,
		"PostgreSQL":           PostgreSQL,
	}

	ErrUnsupportedDialect = errors.New("unsupported dialect")
)

func (t DatabaseType) String() string {
	if name, ok := databaseTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DatabaseType(%d)", int(t))
}

// 按名称(忽略大小写)获取数据库类型
func ValueOf(name string) (DatabaseType, error) {
	for t, typeName := range databaseTypeNames {
		if strings.EqualFold(typeName, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, &UnsupportedDialectError{Name: name}
}

// 按驱动产品名称获取数据库类型
func ValueFrom(productName string) (DatabaseType, error) {
	if t, ok := productNames[productName]; ok {
		return t, nil
	}
	return 0, &UnsupportedDialectError{Name: productName}
}

// 所有数据库类型名称, 按字母排序
func Names() []string {
	names := maps.Values(databaseTypeNames)
	slices.Sort(names)
	return names
}

// 不支持的数据库方言
type UnsupportedDialectError struct {
	DatabaseType DatabaseType
	Name         string
}

func (e *UnsupportedDialectError) Error() string {
	name := e.Name
	if name == "" {
		name = e.DatabaseType.String()
	}
	return fmt.Sprintf("can not support database type [%v],known types=%v", name, Names())
}

func (e *UnsupportedDialectError) Is(target error) bool {
	return target == ErrUnsupportedDialect
}
