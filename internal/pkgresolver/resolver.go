// Package pkgresolver 解析导入路径对应的真实包名和目录对应的导入路径
package pkgresolver

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Resolver 包名解析器（统一入口），结果按导入路径和目录缓存
type Resolver struct {
	mu      sync.RWMutex
	names   map[string]string // 导入路径 → 包名
	modules map[string]Module // go.mod 所在目录 → 模块
	reader  PackageFileReader
}

// Module 一个 go.mod 描述的模块
type Module struct {
	Path string // 模块路径
	Dir  string // go.mod 所在目录
}

// New 创建解析器
func New() *Resolver {
	return &Resolver{
		names:   make(map[string]string),
		modules: make(map[string]Module),
	}
}

// PackageName 获取导入路径对应的真实包名
// fromDir 是引用方所在目录，用于定位同一模块内的包
// 找不到源码时降级为路径最后一部分
//
// 示例：
//
//	"database/sql" → "sql"
//	"github.com/lib/pq" → "pq"
//	"example.com/x/gg" → "g2" (如果 package 声明是 g2)
func (r *Resolver) PackageName(importPath, fromDir string) string {
	if importPath == "" {
		return ""
	}
	r.mu.RLock()
	name, ok := r.names[importPath]
	r.mu.RUnlock()
	if ok {
		return name
	}

	name = fallbackName(importPath)
	if dir, err := r.resolveDir(importPath, fromDir); err == nil {
		if pkgName, err := r.reader.ReadPackageName(dir); err == nil {
			name = pkgName
		}
	}

	r.mu.Lock()
	r.names[importPath] = name
	r.mu.Unlock()
	return name
}

// ImportPath 计算目录对应的导入路径
func (r *Resolver) ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "abs %s", dir)
	}
	mod, err := r.FindModule(abs)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(mod.Dir, abs)
	if err != nil {
		return "", errors.Wrapf(err, "rel %s", abs)
	}
	if rel == "." {
		return mod.Path, nil
	}
	return mod.Path + "/" + filepath.ToSlash(rel), nil
}

// FindModule 从 dir 向上查找 go.mod
func (r *Resolver) FindModule(dir string) (Module, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, errors.Wrapf(err, "abs %s", dir)
	}
	for cur := dir; ; {
		r.mu.RLock()
		mod, ok := r.modules[cur]
		r.mu.RUnlock()
		if ok {
			return mod, nil
		}

		goMod := filepath.Join(cur, "go.mod")
		if data, err := os.ReadFile(goMod); err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return Module{}, errors.Errorf("未在 %s 中找到模块名称", goMod)
			}
			mod = Module{Path: path, Dir: cur}
			r.mu.Lock()
			r.modules[cur] = mod
			r.mu.Unlock()
			return mod, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return Module{}, errors.Errorf("%s 不在任何 Go 模块中", dir)
		}
		cur = parent
	}
}

// resolveDir 将导入路径解析为磁盘路径
func (r *Resolver) resolveDir(importPath, fromDir string) (string, error) {
	if IsStdLib(importPath) {
		return filepath.Join(build.Default.GOROOT, "src", filepath.FromSlash(importPath)), nil
	}

	// 项目内部包
	if fromDir != "" {
		if mod, err := r.FindModule(fromDir); err == nil {
			if importPath == mod.Path {
				return mod.Dir, nil
			}
			if rest, ok := strings.CutPrefix(importPath, mod.Path+"/"); ok {
				return filepath.Join(mod.Dir, filepath.FromSlash(rest)), nil
			}
		}
	}

	return findInModCache(importPath)
}

// IsStdLib 标准库的第一段路径不含点
func IsStdLib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != "" && !strings.Contains(first, ".")
}

// findInModCache 在 GOMODCACHE 中查找第三方包
func findInModCache(importPath string) (string, error) {
	modCache := os.Getenv("GOMODCACHE")
	if modCache == "" {
		goPath := os.Getenv("GOPATH")
		if goPath == "" {
			goPath = build.Default.GOPATH
		}
		modCache = filepath.Join(goPath, "pkg", "mod")
	}

	parts := strings.Split(importPath, "/")
	for i := len(parts); i >= 1; i-- {
		modPath := strings.Join(parts[:i], "/")
		escaped, err := module.EscapePath(modPath)
		if err != nil {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(modCache, filepath.FromSlash(escaped)+"@*"))
		if err != nil || len(matches) == 0 {
			continue
		}
		// 按字典序最后一个通常版本号较高
		dir := filepath.Join(append([]string{matches[len(matches)-1]}, parts[i:]...)...)
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}
	return "", errors.Errorf("未找到第三方包 %s", importPath)
}

// fallbackName 去掉 /vN 版本后缀后取最后一段
func fallbackName(importPath string) string {
	if prefix, _, ok := module.SplitPathVersion(importPath); ok && prefix != "" {
		importPath = prefix
	}
	name := importPath[strings.LastIndex(importPath, "/")+1:]
	return strings.ReplaceAll(name, "-", "_")
}
