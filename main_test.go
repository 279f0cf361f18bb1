package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/dbenumgen/casestyle"
	"github.com/donutnomad/dbenumgen/internal/config"
)

func parseFlags(t *testing.T, args ...string) (*pflag.FlagSet, *cliFlags) {
	t.Helper()
	var f cliFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs, &f)
	require.NoError(t, fs.Parse(args))
	return fs, &f
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Gorm = false
	cfg.Output = "$PACKAGE_enums"

	fs, f := parseFlags(t, "--backends", "sqlite,PG", "--value-style", "kebab-case")
	require.NoError(t, applyFlags(cfg, fs, f))

	assert.Equal(t, []string{config.BackendPostgres, config.BackendSQLite}, cfg.Backends)
	assert.Equal(t, "kebab-case", cfg.ValueStyle)
	assert.False(t, cfg.Gorm, "未显式设置的参数不覆盖配置文件")
	assert.Equal(t, "$PACKAGE_enums", cfg.Output)

	fs, f = parseFlags(t, "--gorm", "--no-output")
	require.NoError(t, applyFlags(cfg, fs, f))
	assert.True(t, cfg.Gorm)
	assert.Empty(t, cfg.Output)
}

func TestApplyFlags_Errors(t *testing.T) {
	fs, f := parseFlags(t, "--backends", "oracle")
	err := applyFlags(config.Default(), fs, f)
	assert.True(t, errors.Is(err, config.ErrUnknownBackend))

	fs, f = parseFlags(t, "--value-style", "Title")
	err = applyFlags(config.Default(), fs, f)
	assert.True(t, errors.Is(err, casestyle.ErrUnsupportedStyle))

	// 配置文件里的错误风格同样报错
	cfg := config.Default()
	cfg.ValueStyle = "lower"
	fs, f = parseFlags(t)
	assert.Error(t, applyFlags(cfg, fs, f))
}

func TestDiffOutputs(t *testing.T) {
	dir := t.TempDir()
	same := filepath.Join(dir, "same_dbenum.go")
	changed := filepath.Join(dir, "changed_dbenum.go")
	missing := filepath.Join(dir, "missing_dbenum.go")

	require.NoError(t, os.WriteFile(same, []byte("package x\n"), 0o644))
	require.NoError(t, os.WriteFile(changed, []byte("package x\n\nconst A = 1\n"), 0o644))

	var buf bytes.Buffer
	stale, err := diffOutputs(map[string][]byte{
		same:    []byte("package x\n"),
		changed: []byte("package x\n\nconst A = 2\n"),
		missing: []byte("package x\n"),
	}, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{changed, missing}, stale)
	assert.Contains(t, buf.String(), "-const A = 1")
	assert.Contains(t, buf.String(), "+const A = 2")
	assert.Contains(t, buf.String(), missing+" (期望)")
	assert.NotContains(t, buf.String(), same)
}

func TestCollectWatchDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"a/b", "testdata/x", ".git", "_skip"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	dirs, err := collectWatchDirs([]string{root + "/..."})
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, dirs)

	dirs, err = collectWatchDirs([]string{filepath.Join(root, "a"), filepath.Join(root, "a")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a")}, dirs)

	_, err = collectWatchDirs([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestCheckSyntax(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.go")
	bad := filepath.Join(dir, "bad.go")
	require.NoError(t, os.WriteFile(good, []byte("package x\n\ntype Status int\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("package x\n\ntype Status in t{\n"), 0o644))

	assert.NoError(t, checkSyntax(good))
	assert.Error(t, checkSyntax(bad))
}

func testSession(patterns ...string) *session {
	cfg := config.Default()
	return &session{logger: zerolog.Nop(), cfg: cfg, registry: newRegistry(cfg), patterns: patterns}
}

// 仓库里提交的示例生成文件必须与工具输出一致
func TestCheckExamples(t *testing.T) {
	var buf bytes.Buffer
	stale, checked, err := testSession("./examples").check(t.Context(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Empty(t, stale, buf.String())
}

const devEnumSrc = `package models

// @DbEnum
type Color int

const (
	ColorRed Color = iota
	ColorBlue
)
`

func writeDevFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDevRunner_SiblingFileTriggers(t *testing.T) {
	root := t.TempDir()
	models := filepath.Join(root, "models")
	plain := filepath.Join(root, "plain")
	require.NoError(t, os.MkdirAll(models, 0o755))
	require.NoError(t, os.MkdirAll(plain, 0o755))
	writeDevFile(t, filepath.Join(models, "color.go"), devEnumSrc)
	writeDevFile(t, filepath.Join(models, "helper.go"), "package models\n\nfunc helper() {}\n")
	writeDevFile(t, filepath.Join(plain, "util.go"), "package plain\n\nfunc util() {}\n")

	r := newDevRunner(t.Context(), testSession(root+"/..."), 10*time.Millisecond)
	generated := make(chan string, 8)
	r.generate = func(dir string) (int, error) {
		generated <- dir
		return 1, nil
	}
	require.NoError(t, r.seedTargets())

	// 同目录下没有注解的文件也会触发
	r.handleEvent(fsnotify.Event{Name: filepath.Join(models, "helper.go"), Op: fsnotify.Write})
	select {
	case dir := <-generated:
		assert.Equal(t, models, dir)
	case <-time.After(2 * time.Second):
		t.Fatal("修改同目录文件没有触发生成")
	}

	// 删除文件同样触发
	r.handleEvent(fsnotify.Event{Name: filepath.Join(models, "helper.go"), Op: fsnotify.Remove})
	select {
	case dir := <-generated:
		assert.Equal(t, models, dir)
	case <-time.After(2 * time.Second):
		t.Fatal("删除文件没有触发生成")
	}

	// 没有目标的目录和生成文件不触发
	r.handleEvent(fsnotify.Event{Name: filepath.Join(plain, "util.go"), Op: fsnotify.Write})
	r.handleEvent(fsnotify.Event{Name: filepath.Join(models, "models_dbenum.go"), Op: fsnotify.Write})
	r.handleEvent(fsnotify.Event{Name: filepath.Join(models, "color_test.go"), Op: fsnotify.Write})
	assert.Never(t, func() bool { return len(generated) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	// 新目录中带注解的文件触发
	writeDevFile(t, filepath.Join(plain, "color.go"), devEnumSrc)
	r.handleEvent(fsnotify.Event{Name: filepath.Join(plain, "color.go"), Op: fsnotify.Create})
	select {
	case dir := <-generated:
		assert.Equal(t, plain, dir)
	case <-time.After(2 * time.Second):
		t.Fatal("新增注解文件没有触发生成")
	}
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.targetDirs[plain]
	}, time.Second, 10*time.Millisecond)
}

func TestDevRunner_RescheduleDuringRun(t *testing.T) {
	dir := t.TempDir()
	r := newDevRunner(t.Context(), testSession(dir), 10*time.Millisecond)
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	r.generate = func(string) (int, error) {
		started <- struct{}{}
		<-release
		return 1, nil
	}

	wait := func(msg string) {
		t.Helper()
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal(msg)
		}
	}

	r.scheduleGenerate(dir)
	wait("第一次生成没有开始")

	// 生成过程中又有变动
	r.scheduleGenerate(dir)
	release <- struct{}{}
	wait("重新调度的生成没有执行")

	r.mu.Lock()
	p, ok := r.pendingDirs[dir]
	r.mu.Unlock()
	require.True(t, ok, "第一次生成结束后不能删掉新的 timer")
	assert.Equal(t, uint64(2), p.seq)

	release <- struct{}{}
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.pendingDirs) == 0
	}, time.Second, 10*time.Millisecond)
}
