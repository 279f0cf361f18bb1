package dbenumgen

import (
	"go/token"
	"go/types"
	"strings"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"github.com/donutnomad/dbenumgen/internal/config"
)

// Mapping 与枚举配对的映射类型，描述 Postgres 原生枚举
type Mapping struct {
	Name        string
	ImportPath  string // 外部包的导入路径，本包为空
	PkgName     string // 外部包的真实包名
	Synthesized bool   // 由生成器生成
}

// IsExternal 映射类型是否在其他包中
func (m Mapping) IsExternal() bool {
	return m.ImportPath != ""
}

// String 用于日志
func (m Mapping) String() string {
	if m.IsExternal() {
		return m.ImportPath + "." + m.Name
	}
	return m.Name
}

// PackageResolver 解析外部包名和本包导入路径
type PackageResolver interface {
	PackageName(importPath, fromDir string) string
	ImportPath(dir string) (string, error)
}

// ResolveMapping 决定使用生成的映射类型还是绑定已有类型
//
// existing_type 只在启用 postgres 时有意义，未启用时忽略并给出警告
func ResolveMapping(e *Enum, params Params, pkg *Package, resolver PackageResolver, logger zerolog.Logger) (Mapping, error) {
	existing := strings.TrimSpace(params.ExistingType)

	if existing != "" && !e.Has(config.BackendPostgres) {
		logger.Warn().
			Str("enum", e.Name).
			Str("existing_type", existing).
			Msg("未启用 postgres 后端，忽略 existing_type")
		existing = ""
	}

	if existing == "" {
		name := params.Mapping
		if name == "" {
			name = e.Name + "Mapping"
		}
		if !token.IsIdentifier(name) {
			return Mapping{}, errors.Errorf("%s: mapping %q 不是合法的标识符", e.Pos(), name)
		}
		return Mapping{Name: name, Synthesized: true}, nil
	}

	importPath, name := "", existing
	if i := strings.LastIndex(existing, "."); i >= 0 {
		importPath, name = existing[:i], existing[i+1:]
	}
	if !token.IsIdentifier(name) {
		return Mapping{}, errors.Wrapf(ErrMissingExistingType, "%s: %q", e.Pos(), existing)
	}
	if importPath == "" {
		return checkLocalMapping(e, pkg, name)
	}

	if resolver != nil && pkg != nil {
		if self, err := resolver.ImportPath(pkg.Dir); err == nil && self == importPath {
			return checkLocalMapping(e, pkg, name)
		}
	}

	pkgName := ""
	if resolver != nil {
		pkgName = resolver.PackageName(importPath, dirOf(pkg))
	}
	if pkgName == "" {
		pkgName = importPath[strings.LastIndex(importPath, "/")+1:]
	}
	return Mapping{Name: name, ImportPath: importPath, PkgName: pkgName}, nil
}

// checkLocalMapping 本包内的类型必须存在且不是枚举自身
func checkLocalMapping(e *Enum, pkg *Package, name string) (Mapping, error) {
	if name == e.Name {
		return Mapping{}, errors.Errorf("%s: existing_type 不能是枚举自身", e.Pos())
	}
	var tn *types.TypeName
	if pkg != nil {
		tn = pkg.TypeOf(name)
	}
	if tn == nil {
		return Mapping{}, errors.Wrapf(ErrMissingExistingType, "%s: %s", e.Pos(), name)
	}
	return Mapping{Name: name}, nil
}

func dirOf(pkg *Package) string {
	if pkg == nil {
		return ""
	}
	return pkg.Dir
}
