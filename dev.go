package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/tools/imports"

	"github.com/donutnomad/dbenumgen/plugin"
)

var devDebounce time.Duration

var devCmd = &cobra.Command{
	Use:   "dev [路径...]",
	Short: "开发模式，监听文件变动自动生成",
	RunE:  runDev,
}

func init() {
	devCmd.Flags().DurationVar(&devDebounce, "debounce", 2*time.Second, "同一个包连续变动时的防抖动时间")
}

// devRunner 处理文件变动的核心逻辑
type devRunner struct {
	session  *session
	debounce time.Duration
	watcher  *fsnotify.Watcher
	scanner  *plugin.Scanner
	logger   zerolog.Logger
	ctx      context.Context // 用于响应退出信号

	// generate 生成一个目录，返回该目录的目标数
	generate func(pkgDir string) (int, error)
	runMu    sync.Mutex // 同一时间只跑一次生成

	// 防抖动相关
	mu          sync.Mutex
	seq         uint64
	pendingDirs map[string]pendingRun // key: 包目录路径
	targetDirs  map[string]bool       // 含有注解目标的目录
}

type pendingRun struct {
	timer *time.Timer
	seq   uint64
}

func newDevRunner(ctx context.Context, s *session, debounce time.Duration) *devRunner {
	r := &devRunner{
		session:     s,
		debounce:    debounce,
		scanner:     plugin.NewScanner(s.logger, s.registry.Annotations()...),
		logger:      s.logger,
		ctx:         ctx,
		pendingDirs: make(map[string]pendingRun),
		targetDirs:  make(map[string]bool),
	}
	r.generate = r.runGenerate
	return r
}

// runDev 启动开发模式
func runDev(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "创建文件监听器失败")
	}
	defer watcher.Close()

	runner := newDevRunner(ctx, s, devDebounce)
	runner.watcher = watcher

	// 退出时停止所有待处理的定时器
	defer runner.stop()

	if err := runner.seedTargets(); err != nil {
		return err
	}

	dirs, err := collectWatchDirs(s.patterns)
	if err != nil {
		return errors.Wrap(err, "收集监听目录失败")
	}
	if len(dirs) == 0 {
		return errors.New("没有找到需要监听的目录")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "添加监听目录失败 %s", dir)
		}
		s.logger.Debug().Str("dir", dir).Msg("监听目录")
	}

	s.logger.Info().Int("dirs", len(dirs)).Msg("开发模式已启动，按 Ctrl+C 退出")

	return runner.watchLoop(ctx)
}

// seedTargets 启动时扫描一次，记录含有目标的目录
func (r *devRunner) seedTargets() error {
	res, err := r.scanner.Scan(r.ctx, r.session.patterns...)
	if err != nil {
		return errors.Wrap(err, "初始扫描失败")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range res.Targets {
		r.targetDirs[filepath.Dir(t.FilePath)] = true
	}
	return nil
}

func (r *devRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pendingDirs {
		p.timer.Stop()
	}
}

// watchLoop 事件处理循环
func (r *devRunner) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("正在退出...")
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Msg("监听错误")
		}
	}
}

// handleEvent 处理文件事件
// 已有目标的目录里任何源文件变化都会触发生成，其他目录只看文件本身是否带注解
func (r *devRunner) handleEvent(event fsnotify.Event) {
	filePath := event.Name
	if !strings.HasSuffix(filePath, ".go") || strings.HasSuffix(filePath, "_test.go") || plugin.IsGeneratedFile(filePath) {
		return
	}
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	pkgDir := filepath.Dir(filePath)
	log := r.logger.With().Str("file", filePath).Logger()
	log.Debug().Msg("检测到文件变化")

	r.mu.Lock()
	known := r.targetDirs[pkgDir]
	r.mu.Unlock()

	if removed {
		if known {
			r.scheduleGenerate(pkgDir)
		}
		return
	}

	if !known {
		matched, err := r.scanner.MatchFile(filePath)
		if err != nil {
			log.Debug().Err(err).Msg("检查注解失败")
			return
		}
		if !matched {
			log.Debug().Msg("跳过文件（无注解）")
			return
		}
	}

	if err := checkSyntax(filePath); err != nil {
		log.Warn().Err(err).Msg("语法错误")
		return
	}

	r.scheduleGenerate(pkgDir)
}

// scheduleGenerate 防抖动调度生成
func (r *devRunner) scheduleGenerate(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 取消之前的 timer
	if p, exists := r.pendingDirs[pkgDir]; exists {
		p.timer.Stop()
	}

	r.seq++
	seq := r.seq
	r.pendingDirs[pkgDir] = pendingRun{
		seq:   seq,
		timer: time.AfterFunc(r.debounce, func() { r.fire(pkgDir, seq) }),
	}
}

func (r *devRunner) fire(pkgDir string, seq uint64) {
	if r.ctx.Err() != nil {
		return
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	targets, err := r.generate(pkgDir)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case targets > 0:
		r.targetDirs[pkgDir] = true
	case err == nil:
		delete(r.targetDirs, pkgDir)
	}
	// 生成期间重新调度过的保留新的 timer
	if p, ok := r.pendingDirs[pkgDir]; ok && p.seq == seq {
		delete(r.pendingDirs, pkgDir)
	}
}

// runGenerate 只生成变动的包
func (r *devRunner) runGenerate(pkgDir string) (int, error) {
	log := r.logger.With().Str("dir", pkgDir).Logger()
	log.Debug().Msg("触发代码生成")

	opts := r.session.runOptions()
	opts.Patterns = []string{pkgDir}

	stats, err := plugin.Run(r.ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("生成失败")
		if stats == nil {
			return 0, err
		}
		return stats.Targets, err
	}

	if stats.Files > 0 {
		log.Info().Int("files", stats.Files).Dur("elapsed", stats.Total).Msg("生成完成")
	} else {
		log.Debug().Msg("生成完成: 无文件生成")
	}
	return stats.Targets, nil
}

// checkSyntax 检查文件语法
func checkSyntax(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	_, err = imports.Process(filePath, content, &imports.Options{
		Fragment:   true,
		AllErrors:  true,
		Comments:   true,
		FormatOnly: true, // 只检查语法，不修改 imports
	})
	return err
}

// collectWatchDirs 收集所有需要监听的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...") || pattern == "..."
		baseDir := strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		if baseDir == "" {
			baseDir = "."
		}

		absDir, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		if !recursive {
			if !seen[absDir] {
				seen[absDir] = true
				dirs = append(dirs, absDir)
			}
			continue
		}

		err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}

			if path != absDir && plugin.SkipDir(d.Name()) {
				return filepath.SkipDir
			}

			if !seen[path] {
				seen[path] = true
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return dirs, nil
}
