package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
)

const (
	DefaultConfigFile   = "shardparse.yaml"
	DefaultDatabaseType = "MySQL"
	DefaultOutput       = Output_Text
	DefaultLogLevel     = "info"

	envPrefix = "SHARDPARSE_"
)

type Config struct {
	DatabaseType string            `koanf:"database_type"`
	Output       string            `koanf:"output"`
	LogLevel     string            `koanf:"log_level"`
	SourceView   map[string]string `koanf:"source_view"`
	ShardingRule ShardingRule      `koanf:"sharding_rule"`
}

// 分片规则配置, 作为不透明引用传给解析器, 只在输出时用于标记分片列
type ShardingRule struct {
	Tables map[string]TableRule `koanf:"tables"`
}

type TableRule struct {
	ShardingColumns []string `koanf:"sharding_columns"`
}

// 是否为分片列, 表名和列名忽略大小写
func (r *ShardingRule) IsShardingColumn(table, column string) bool {
	for name, rule := range r.Tables {
		if !strings.EqualFold(name, table) {
			continue
		}
		for _, col := range rule.ShardingColumns {
			if strings.EqualFold(col, column) {
				return true
			}
		}
	}
	return false
}

// 已配置分片规则的表, 按字母排序
func (r *ShardingRule) TableNames() []string {
	names := maps.Keys(r.Tables)
	slices.Sort(names)
	return names
}

// 优先级: 命令行 > 环境变量 > 配置文件 > 默认值
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (cfg *Config, err error) {
	k := koanf.New(".")

	if err = k.Load(confmap.Provider(map[string]any{
		"database_type": DefaultDatabaseType,
		"output":        DefaultOutput,
		"log_level":     DefaultLogLevel,
	}, "."), nil); err != nil {
		err = fmt.Errorf("load defaults failed,err=[%w]", err)
		return
	}

	if cfgFile == "" {
		if _, statErr := os.Stat(DefaultConfigFile); statErr == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err = k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			err = fmt.Errorf("read config file failed,err=[%w],file=[%v]", err, cfgFile)
			return
		}
	}

	// SHARDPARSE_DATABASE_TYPE -> database_type
	if err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		err = fmt.Errorf("load env failed,err=[%w]", err)
		return
	}

	if flags != nil {
		if err = k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// 只取显式设置的配置项
			if !f.Changed || f.Name == "config" || f.Name == "param" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			err = fmt.Errorf("load flags failed,err=[%w]", err)
			return
		}
	}

	cfg = &Config{}
	if err = k.Unmarshal("", cfg); err != nil {
		err = fmt.Errorf("decode config failed,err=[%w]", err)
		cfg = nil
		return
	}
	if err = cfg.Validate(); err != nil {
		cfg = nil
	}
	return
}

func (c *Config) Validate() error {
	if !slices.Contains(outputs, c.Output) {
		return fmt.Errorf("invalid output [%v],supported=%v", c.Output, outputs)
	}
	return nil
}
