package dbenumgen

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/dbenumgen/internal/config"
	"github.com/donutnomad/dbenumgen/plugin"
)

var defaultOpts = Options{Backends: config.AllBackends(), Gorm: true}

// scanTargets 扫描 testdata 目录，按类型名返回已解析参数的目标
func scanTargets(t *testing.T, dir string) map[string]*plugin.Target {
	t.Helper()
	res, err := plugin.NewScanner(zerolog.Nop(), annotationName).Scan(context.Background(), dir)
	require.NoError(t, err)

	out := make(map[string]*plugin.Target)
	for _, target := range res.Targets {
		var params Params
		require.NoError(t, plugin.Decode(plugin.Find(target.Annotations, annotationName), &params))
		target.Params = params
		out[target.Name] = target
	}
	return out
}

func loadTarget(t *testing.T, dir, name string) (*plugin.Target, *Package) {
	t.Helper()
	target, ok := scanTargets(t, dir)[name]
	require.True(t, ok, "没有找到 %s", name)
	pkg, err := LoadPackage(filepath.Dir(target.FilePath), target.PackageName)
	require.NoError(t, err)
	return target, pkg
}

func buildEnum(t *testing.T, dir, name string, opts Options) (*Enum, error) {
	t.Helper()
	at, pkg := loadTarget(t, dir, name)
	return BuildEnum(at, at.Params.(Params), opts, pkg)
}

// resolvedEnum 构建并解析映射类型，任何错误都让测试失败
func resolvedEnum(t *testing.T, dir, name string) *Enum {
	t.Helper()
	at, pkg := loadTarget(t, dir, name)
	params := at.Params.(Params)
	e, err := BuildEnum(at, params, defaultOpts, pkg)
	require.NoError(t, err)
	e.Mapping, err = ResolveMapping(e, params, pkg, fakeResolver{}, zerolog.Nop())
	require.NoError(t, err)
	return e
}

type fakeResolver struct {
	self  string
	names map[string]string
}

func (f fakeResolver) PackageName(importPath, _ string) string {
	return f.names[importPath]
}

func (f fakeResolver) ImportPath(string) (string, error) {
	return f.self, nil
}
