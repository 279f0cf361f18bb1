// Package dbenumgen 为带 @DbEnum 注解的枚举类型生成数据库编解码代码
//
// 使用方式:
//
//	// @DbEnum(pg_type=`my_enum`, value_style=`snake_case`)
//	type MyEnum int
//
//	const (
//		MyEnumFoo MyEnum = iota
//		// @DbRename(`baz quxx`)
//		MyEnumBazQuxx
//	)
package dbenumgen

import (
	"path/filepath"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-faster/errors"
	"github.com/samber/lo"

	"github.com/donutnomad/dbenumgen/internal/pkgresolver"
	"github.com/donutnomad/dbenumgen/plugin"
)

const (
	generatorName     = "dbenum"
	annotationName    = "DbEnum"
	defaultOutputFile = "$FILE_dbenum.go"
)

// Generator 枚举数据库代码生成器
type Generator struct {
	*plugin.Base
	opts     Options
	resolver PackageResolver
}

// New 创建生成器，opts 是注解未指定时的默认值
func New(opts Options) *Generator {
	return &Generator{
		Base:     plugin.NewBase(generatorName, annotationName, Params{}),
		opts:     opts,
		resolver: pkgresolver.New(),
	}
}

// Generate 执行代码生成
// 单个枚举出错时记录错误并继续处理其他枚举
func (g *Generator) Generate(ctx *plugin.Context) (*plugin.Result, error) {
	result := plugin.NewResult()
	logger := ctx.Logger
	cache := newPackageCache()

	byPath := make(map[string][]*Enum)
	pkgNames := make(map[string]string)

	for _, target := range ctx.Targets {
		params, ok := target.Params.(Params)
		if !ok {
			continue
		}

		pkg, err := cache.load(filepath.Dir(target.FilePath), target.PackageName)
		if err != nil {
			result.AddError(errors.Wrapf(err, "%s:%d", target.FilePath, target.Line))
			continue
		}

		e, err := BuildEnum(target, params, g.opts, pkg)
		if err != nil {
			result.AddError(err)
			continue
		}

		if e.Mapping, err = ResolveMapping(e, params, pkg, g.resolver, logger); err != nil {
			result.AddError(err)
			continue
		}

		output := plugin.OutputPath(target,
			plugin.Find(target.Annotations, annotationName),
			ctx.PackageConfig(filepath.Dir(target.FilePath)),
			generatorName, ctx.Output, defaultOutputFile)

		if other, ok := pkgNames[output]; ok && other != e.PackageName {
			result.AddError(errors.Errorf("%s: 输出文件 %s 已被包 %s 使用", e.Pos(), output, other))
			continue
		}
		pkgNames[output] = e.PackageName
		byPath[output] = append(byPath[output], e)

		logger.Debug().
			Str("enum", e.Name).
			Str("pg_type", e.PgType).
			Str("style", string(e.Style)).
			Strs("backends", e.Backends).
			Stringer("mapping", e.Mapping).
			Int("variants", len(e.Variants)).
			Str("output", output).
			Msg("解析枚举")
		if ctx.Verbose {
			logger.Debug().Msg(spew.Sdump(e))
		}
	}

	paths := lo.Keys(byPath)
	slices.Sort(paths)
	for _, path := range paths {
		src, err := Emit(pkgNames[path], byPath[path])
		if err != nil {
			result.AddError(errors.Wrapf(err, "生成 %s 失败", path))
			continue
		}
		result.AddFile(path, src)
	}

	return result, nil
}
