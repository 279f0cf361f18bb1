package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const enumsSrc = `package models

// Status 状态
// @DbEnum(pg_type=` + "`status`" + `)
type Status int

type (
	// @DbEnum
	Color uint8

	// 没有注解
	Size int
)

// @DbEnum
type Row struct{}

// @Other
type Skipped int
`

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "enums.go"), enumsSrc)
	writeFile(t, filepath.Join(dir, "enums_dbenum.go"), "package models\n// @DbEnum\ntype Gen int\n")
	writeFile(t, filepath.Join(dir, "plain.go"), "package models\n\ntype Plain int\n")

	res, err := NewScanner(zerolog.Nop(), "DbEnum").Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, res.Targets, 3)

	status, color, row := res.Targets[0], res.Targets[1], res.Targets[2]
	assert.Equal(t, "Status", status.Name)
	assert.Equal(t, TargetType, status.Kind)
	assert.Equal(t, "models", status.PackageName)
	assert.Equal(t, 5, status.Line)
	assert.Equal(t, "status", Find(status.Annotations, "DbEnum").Get("pg_type"))

	assert.Equal(t, "Color", color.Name)
	assert.Equal(t, "Row", row.Name)
	assert.Equal(t, TargetStruct, row.Kind)
	assert.Equal(t, "struct", row.Kind.String())
}

func TestScanRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "a.go"), "package a\n// @DbEnum\ntype A int\n")
	writeFile(t, filepath.Join(dir, "a", "b", "b.go"), "package b\n// @DbEnum\ntype B int\n")
	writeFile(t, filepath.Join(dir, "testdata", "t.go"), "package t\n// @DbEnum\ntype T int\n")
	writeFile(t, filepath.Join(dir, "_skip", "s.go"), "package s\n// @DbEnum\ntype S int\n")

	sc := NewScanner(zerolog.Nop(), "DbEnum")

	res, err := sc.Scan(context.Background(), filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "A", res.Targets[0].Name)

	res, err = sc.Scan(context.Background(), dir+"/...")
	require.NoError(t, err)
	var names []string
	for _, tg := range res.Targets {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names)

	res, err = sc.Scan(context.Background(), filepath.Join(dir, "a", "b", "b.go"))
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)

	_, err = sc.Scan(context.Background(), filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n// @DbEnum\ntype A int\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(zerolog.Nop()).Scan(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMatchFile(t *testing.T) {
	dir := t.TempDir()
	sc := NewScanner(zerolog.Nop(), "DbEnum")

	ok, err := sc.MatchFile(writeFile(t, filepath.Join(dir, "a.go"), "package a\n// @DbEnum\ntype A int\n"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sc.MatchFile(writeFile(t, filepath.Join(dir, "b.go"), "package a\n// @Other\ntype B int\nvar s = \"@DbEnum\"\n"))
	require.NoError(t, err)
	assert.False(t, ok, "只看注释行")

	ok, err = sc.MatchFile(writeFile(t, filepath.Join(dir, "c.go"), "//go:dbenumgen: -output `x`\npackage a\n"))
	require.NoError(t, err)
	assert.True(t, ok, "包级指令")

	_, err = sc.MatchFile(filepath.Join(dir, "missing.go"))
	require.Error(t, err)
}

func TestScanDirective(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.go"), "// go:dbenumgen: -output `$PACKAGE_enums` plugin:DbEnum -output \"zz enums\"\npackage a\n")
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n// @DbEnum\ntype A int\n")
	writeFile(t, filepath.Join(dir, "twice.go"), "//go:dbenumgen: -output `x`\n//go:dbenumgen: -output `y`\npackage a\n")

	res, err := NewScanner(zerolog.Nop(), "DbEnum").Scan(context.Background(), dir)
	require.NoError(t, err)

	cfg := res.Packages[dir]
	require.NotNil(t, cfg)
	assert.Equal(t, "$PACKAGE_enums", cfg.Output)
	assert.Equal(t, "zz enums", cfg.OutputFor("dbenum"))
	assert.Equal(t, "$PACKAGE_enums", cfg.OutputFor("other"))

	var none *PackageConfig
	assert.Empty(t, none.OutputFor("dbenum"))
}

func TestParseDirective(t *testing.T) {
	cfg := ParseDirective("-output `a b`", "/x")
	require.NotNil(t, cfg)
	assert.Equal(t, "a b", cfg.Output)
	assert.Equal(t, "/x", cfg.Dir)

	assert.Nil(t, ParseDirective("", "/x"))
	assert.Nil(t, ParseDirective("plugin:dbenum", "/x"))
	assert.Nil(t, ParseDirective("-output", "/x"))

	assert.Equal(t, []string{"-output", "", "x"}, directiveArgs("-output `` x"))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "a_test.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "a_dbenum.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "vendor", "v.go"), "package v\n")
	writeFile(t, filepath.Join(dir, "sub", "s.go"), "package s\n")

	files, err := CollectFiles([]string{dir + "/...", dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.go"), filepath.Join(dir, "sub", "s.go")}, files)

	assert.True(t, IsGeneratedFile("x_dbenum.go"))
	assert.True(t, IsGeneratedFile("x_test.go"))
	assert.False(t, IsGeneratedFile("x.go"))
	assert.True(t, SkipDir(".git"))
	assert.False(t, SkipDir("models"))
}
