package cli

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tsfans/sql-sharding-parser/dialect"
	"github.com/tsfans/sql-sharding-parser/parser"
)

var Version = "0.1.0"

func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "shardparse",
		Short:         "Parse SQL into sharding context",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./"+DefaultConfigFile+")")
	rootCmd.PersistentFlags().String("log-level", DefaultLogLevel, "log level: panic, fatal, error, warn, info, debug, trace")

	rootCmd.AddCommand(newParseCmd(&cfgFile), newDialectsCmd())
	return rootCmd
}

func newParseCmd(cfgFile *string) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "parse [flags] SQL",
		Short: "Parse one SQL statement and print its context",
		Example: `  shardparse parse -d mysql -p 42 "SELECT * FROM t_order WHERE user_id = ?"
  shardparse parse -d postgresql -o mongo -p 1 -p 2 "SELECT * FROM t WHERE id IN ($1, $2)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var cfg *Config
			cfg, err = LoadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return
			}
			if err = setLogLevel(cfg.LogLevel); err != nil {
				return
			}

			var databaseType dialect.DatabaseType
			databaseType, err = resolveDatabaseType(cfg.DatabaseType)
			if err != nil {
				return
			}

			var engine *parser.ParseEngine
			engine, err = parser.Create(databaseType, args[0], ParseParameters(params), &cfg.ShardingRule,
				parser.WithSink(parser.NewLogrusSink(log.StandardLogger())))
			if err != nil {
				return
			}

			r := &renderer{out: cmd.OutOrStdout(), cfg: cfg}
			return r.render(engine.SQLContext())
		},
	}
	cmd.Flags().StringP("database-type", "d", DefaultDatabaseType, "database type or driver product name: "+strings.Join(dialect.Names(), ", "))
	cmd.Flags().StringP("output", "o", DefaultOutput, "output format: "+strings.Join(outputs, ", "))
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "positional parameter, repeatable")
	return cmd
}

// 列出所有数据库类型及是否支持
func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List known database types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range dialect.Names() {
				databaseType, err := dialect.ValueOf(name)
				if err != nil {
					return err
				}
				status := "supported"
				if exprParser, err := parser.NewExprParser(databaseType, "", nil, nil); err != nil {
					status = "unsupported"
				} else if exprParser.DatabaseType() != databaseType {
					status = fmt.Sprintf("supported (%v grammar)", exprParser.DatabaseType())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12v %v\n", name, status)
			}
			return nil
		},
	}
}

// 类型名称或驱动产品名称, 如 mysql, Microsoft SQL Server
func resolveDatabaseType(name string) (databaseType dialect.DatabaseType, err error) {
	if databaseType, err = dialect.ValueOf(name); err == nil {
		return
	}
	return dialect.ValueFrom(name)
}

func setLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level [%v],err=[%v]", level, err)
	}
	log.SetLevel(lvl)
	return nil
}
