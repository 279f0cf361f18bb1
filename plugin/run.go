package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/donutnomad/dbenumgen/internal/utils"
)

// RunOptions 一次生成的参数
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Output   string // 命令行或配置文件给出的输出路径，优先级最低
	Async    bool   // 多个生成器并发执行
	DryRun   bool   // 不写文件，结果放在 Stats.Outputs
	Verbose  bool
	Logger   *zerolog.Logger
}

// Stats 运行统计
type Stats struct {
	Targets  int
	Files    int // 实际写入的文件数
	Scan     time.Duration
	Generate time.Duration
	Total    time.Duration

	// Outputs 格式化后的文件内容，key: 输出路径
	Outputs map[string][]byte
}

// RunError 汇总全部错误，errors.Is 可匹配其中任意一个
type RunError struct {
	Errors []error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("生成过程中出现 %d 个错误", len(e.Errors))
}

func (e *RunError) Unwrap() []error { return e.Errors }

// Run 扫描、生成并写出文件
// 单个目标或文件的错误不影响其他文件，最后以 *RunError 一并返回
func Run(ctx context.Context, opts *RunOptions) (*Stats, error) {
	begin := time.Now()
	stats := &Stats{Outputs: make(map[string][]byte)}
	logger := lo.FromPtrOr(opts.Logger, zerolog.Nop())

	if opts.Registry == nil || len(opts.Registry.Annotations()) == 0 {
		return nil, errors.New("没有已注册的生成器")
	}

	scan, err := NewScanner(logger, opts.Registry.Annotations()...).Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "扫描失败")
	}
	stats.Scan = time.Since(begin)
	stats.Targets = len(scan.Targets)
	if stats.Targets == 0 {
		logger.Debug().Msg("没有找到带注解的类型")
		stats.Total = time.Since(begin)
		return stats, nil
	}
	logger.Debug().Int("targets", stats.Targets).Dur("elapsed", stats.Scan).Msg("扫描完成")

	genStart := time.Now()
	var errs []error
	dispatch := opts.Registry.dispatch(scan.Targets)
	gens := opts.Registry.Generators()

	jobs := make(map[Generator]*Context)
	for _, gen := range gens {
		targets, ok := dispatch[gen]
		if !ok {
			continue
		}
		decoded, decodeErrs := decodeParams(gen, targets)
		errs = append(errs, decodeErrs...)
		jobs[gen] = &Context{
			Targets:  decoded,
			Packages: scan.Packages,
			Output:   opts.Output,
			Verbose:  opts.Verbose,
			Logger:   logger.With().Str("generator", gen.Name()).Logger(),
		}
	}

	results := make(map[Generator]*Result)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, gen := range gens {
		gctx, ok := jobs[gen]
		if !ok {
			continue
		}
		exec := func() {
			start := time.Now()
			res, err := gen.Generate(gctx)
			gctx.Logger.Debug().Int("targets", len(gctx.Targets)).Dur("elapsed", time.Since(start)).Msg("生成器完成")

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "生成器 %s", gen.Name()))
			}
			if res != nil {
				results[gen] = res
			}
		}
		if opts.Async {
			wg.Go(exec)
		} else {
			exec()
		}
	}
	wg.Wait()

	files := make(map[string][]byte)
	owner := make(map[string]string)
	for _, gen := range gens {
		res, ok := results[gen]
		if !ok {
			continue
		}
		errs = append(errs, res.Errors...)
		for path, src := range res.Files {
			if prev, ok := owner[path]; ok {
				errs = append(errs, errors.Errorf("%s 同时由 %s 和 %s 生成", path, prev, gen.Name()))
				continue
			}
			owner[path] = gen.Name()
			files[path] = src
		}
	}

	paths := lo.Keys(files)
	slices.Sort(paths)
	for _, path := range paths {
		out, err := render(files[path])
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "%s", path))
			continue
		}
		if opts.DryRun {
			if out, err = utils.Format(path, out); err != nil {
				errs = append(errs, err)
				continue
			}
			stats.Outputs[path] = out
			continue
		}
		if err := write(path, out); err != nil {
			errs = append(errs, errors.Wrapf(err, "写入 %s", path))
			continue
		}
		stats.Files++
		logger.Info().Str("file", path).Msg("已生成")
	}

	stats.Generate = time.Since(genStart)
	stats.Total = time.Since(begin)
	if len(errs) > 0 {
		for _, e := range errs {
			logger.Error().Err(e).Msg("生成错误")
		}
		return stats, &RunError{Errors: errs}
	}
	return stats, nil
}

func write(path string, src []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	return utils.WriteFormat(path, src)
}

// decodeParams 为每个目标复制一份 Target，Params 填入该生成器的参数
// 参数解析失败的目标不会交给生成器
func decodeParams(gen Generator, targets []*Target) ([]*Target, []error) {
	var (
		out  []*Target
		errs []error
	)
	for _, t := range targets {
		tc := *t
		if ptr := gen.NewParams(); ptr != nil {
			if err := Decode(Find(t.Annotations, gen.Annotation()), ptr); err != nil {
				errs = append(errs, errors.Wrapf(err, "%s:%d: @%s", t.FilePath, t.Line, gen.Annotation()))
				continue
			}
			tc.Params = reflect.ValueOf(ptr).Elem().Interface()
		}
		out = append(out, &tc)
	}
	return out, errs
}
