package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/donutnomad/dbenumgen/casestyle"
	"github.com/donutnomad/dbenumgen/dbenumgen"
	"github.com/donutnomad/dbenumgen/internal/config"
	"github.com/donutnomad/dbenumgen/plugin"
)

// cliFlags 全局命令行参数
type cliFlags struct {
	Verbose    bool
	Output     string
	NoOutput   bool
	Async      bool
	Backends   []string
	Gorm       bool
	ValueStyle string
	Config     string
}

var flags cliFlags

func registerFlags(fs *pflag.FlagSet, f *cliFlags) {
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "详细输出")
	fs.StringVar(&f.Output, "output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE）")
	fs.BoolVar(&f.NoOutput, "no-output", false, "忽略配置文件中的 output，每个源文件输出到独立文件")
	fs.BoolVar(&f.Async, "async", true, "异步执行生成器")
	fs.StringSliceVar(&f.Backends, "backends", nil, "启用的后端，逗号分隔: postgres,mysql,sqlite（默认全部）")
	fs.BoolVar(&f.Gorm, "gorm", true, "生成 GORM 的 GormDataType/GormDBDataType")
	fs.StringVar(&f.ValueStyle, "value-style", "", "默认取值风格: "+strings.Join(lo.Map(casestyle.All(), func(s casestyle.Style, _ int) string { return string(s) }), ", "))
	fs.StringVar(&f.Config, "config", "", "配置文件路径（默认从当前目录向上查找 "+config.FileName+"）")
}

var rootCmd = &cobra.Command{
	Use:   "dbenumgen [路径...]",
	Short: "为 @DbEnum 枚举生成数据库编解码代码",
	Long: `dbenumgen 扫描带 @DbEnum 注解的枚举类型，生成:
  - database/sql 的 Value/Scan（Postgres 原生枚举、MySQL enum、SQLite TEXT）
  - 映射类型（或绑定已有类型）、Null 包装、Postgres 数组
  - GORM 的列类型方法和建表 DDL 片段

路径支持 Go 包路径模式，如 ./...（默认）、./models/...`,
	Example: `  dbenumgen                               扫描当前目录（默认 ./...）
  dbenumgen -v ./models/...               详细模式扫描 models 目录
  dbenumgen --output '$PACKAGE_enums' ./...  所有枚举输出到同一个文件
  dbenumgen --backends postgres ./...     只生成 Postgres 相关代码
  dbenumgen dev ./...                     开发模式，监听文件变动
  dbenumgen check ./...                   检查生成文件是否最新`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGen,
}

var genCmd = &cobra.Command{
	Use:   "gen [路径...]",
	Short: "执行代码生成（默认）",
	RunE:  runGen,
}

func init() {
	registerFlags(rootCmd.PersistentFlags(), &flags)
	rootCmd.AddCommand(genCmd, devCmd, checkCmd)

	// 注解帮助信息
	rootCmd.Long += "\n\n支持的注解:\n" + plugin.HelpText(newRegistry(config.Default())) + `模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// session 一次命令执行的上下文
type session struct {
	logger   zerolog.Logger
	cfg      *config.Config
	registry *plugin.Registry
	patterns []string
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	logger := newLogger(flags.Verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getwd")
	}
	cfg, err := config.Load(flags.Config, cwd)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug().Str("config", cfg.Path).Msg("加载配置文件")
	}
	if err := applyFlags(cfg, cmd.Flags(), &flags); err != nil {
		return nil, err
	}

	registry := newRegistry(cfg)
	for _, gen := range registry.Generators() {
		logger.Debug().Str("generator", gen.Name()).Str("annotation", "@"+gen.Annotation()).Msg("已注册生成器")
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	return &session{logger: logger, cfg: cfg, registry: registry, patterns: patterns}, nil
}

func newRegistry(cfg *config.Config) *plugin.Registry {
	registry := plugin.NewRegistry()
	registry.MustRegister(dbenumgen.New(dbenumgen.Options{
		Backends:   cfg.Backends,
		Gorm:       cfg.Gorm,
		ValueStyle: cfg.ValueStyle,
	}))
	return registry
}

// applyFlags 显式设置的命令行参数覆盖配置文件
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *cliFlags) error {
	if fs.Changed("backends") {
		backends, err := config.NormalizeBackends(f.Backends)
		if err != nil {
			return errors.Wrap(err, "--backends")
		}
		cfg.Backends = backends
	}
	if fs.Changed("gorm") {
		cfg.Gorm = f.Gorm
	}
	if fs.Changed("value-style") {
		cfg.ValueStyle = f.ValueStyle
	}
	if fs.Changed("output") {
		cfg.Output = f.Output
	}
	if f.NoOutput {
		cfg.Output = ""
	}
	if fs.Changed("async") {
		cfg.Async = f.Async
	}

	// 全局风格写错时直接失败，不必等到逐个枚举报错
	if _, err := casestyle.Parse(cfg.ValueStyle); err != nil {
		return errors.Wrap(err, "value_style")
	}
	return nil
}

func (s *session) runOptions() *plugin.RunOptions {
	return &plugin.RunOptions{
		Registry: s.registry,
		Patterns: s.patterns,
		Verbose:  flags.Verbose,
		Output:   s.cfg.Output,
		Async:    s.cfg.Async,
		Logger:   &s.logger,
	}
}

func runGen(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	stats, err := plugin.Run(cmd.Context(), s.runOptions())
	if err != nil {
		return err
	}

	if stats.Files > 0 || flags.Verbose {
		s.logger.Info().
			Int("targets", stats.Targets).
			Int("files", stats.Files).
			Dur("scan", stats.Scan).
			Dur("generate", stats.Generate).
			Dur("total", stats.Total).
			Msg("生成完成")
	}
	return nil
}
