package dbenumgen

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/donutnomad/dbenumgen/plugin"
)

// RenameAnnotation 变体级注解
const RenameAnnotation = "DbRename"

// Package 枚举所在包的源码信息
type Package struct {
	Dir    string
	Name   string
	Types  *types.Package
	Consts []*Const // 源码顺序：文件名排序，文件内按声明顺序
}

// Const 包内的一个具名常量
type Const struct {
	Name  string
	Type  string         // 本包内具名类型的名字，无类型常量或其他类型为空
	Value constant.Value // 无法求值时为 nil
	File  string
	Line  int

	// Rename 常量上的 @DbRename 注解
	Rename *plugin.Annotation
}

// TypeOf 返回包内声明的类型，不存在返回 nil
func (p *Package) TypeOf(name string) *types.TypeName {
	if p.Types == nil {
		return nil
	}
	tn, _ := p.Types.Scope().Lookup(name).(*types.TypeName)
	return tn
}

// ConstsOf 返回类型为 typeName 的常量
func (p *Package) ConstsOf(typeName string) []*Const {
	var out []*Const
	for _, c := range p.Consts {
		if c.Type == typeName {
			out = append(out, c)
		}
	}
	return out
}

// stubImporter 让类型检查不依赖其他包的导出数据
// 枚举常量只依赖本包声明，外部引用产生的错误被忽略
type stubImporter struct{}

func (stubImporter) Import(importPath string) (*types.Package, error) {
	pkg := types.NewPackage(importPath, path.Base(importPath))
	pkg.MarkComplete()
	return pkg, nil
}

// LoadPackage 解析 dir 下属于 pkgName 的全部非测试、非生成文件
func LoadPackage(dir, pkgName string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || plugin.IsGeneratedFile(name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	fset := token.NewFileSet()
	var files []*ast.File
	for _, name := range names {
		filePath := filepath.Join(dir, name)
		f, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", filePath)
		}
		if f.Name.Name != pkgName {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no files of package %s in %s", pkgName, dir)
	}

	info := &types.Info{Defs: make(map[*ast.Ident]types.Object)}
	conf := types.Config{
		Importer:    stubImporter{},
		FakeImportC: true,
		Error:       func(error) {},
	}
	tpkg, _ := conf.Check(pkgName, fset, files, info)

	pkg := &Package{Dir: dir, Name: pkgName, Types: tpkg}
	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.CONST {
				continue
			}
			for _, spec := range gd.Specs {
				vs := spec.(*ast.ValueSpec)
				docs := []*ast.CommentGroup{vs.Doc, vs.Comment}
				if !gd.Lparen.IsValid() {
					docs = append(docs, gd.Doc)
				}
				rename := plugin.Find(plugin.FromDoc(docs...), RenameAnnotation)

				for _, ident := range vs.Names {
					if ident.Name == "_" {
						continue
					}
					c := &Const{
						Name:   ident.Name,
						File:   fset.Position(ident.Pos()).Filename,
						Line:   fset.Position(ident.Pos()).Line,
						Rename: rename,
					}
					if obj, ok := info.Defs[ident].(*types.Const); ok {
						if named, ok := types.Unalias(obj.Type()).(*types.Named); ok && named.Obj().Pkg() == tpkg {
							c.Type = named.Obj().Name()
						}
						if obj.Val().Kind() != constant.Unknown {
							c.Value = obj.Val()
						}
					}
					pkg.Consts = append(pkg.Consts, c)
				}
			}
		}
	}

	return pkg, nil
}

// packageCache 同一次生成中按目录缓存解析结果
type packageCache struct {
	mu   sync.Mutex
	pkgs map[string]*Package
	errs map[string]error
}

func newPackageCache() *packageCache {
	return &packageCache{
		pkgs: make(map[string]*Package),
		errs: make(map[string]error),
	}
}

func (c *packageCache) load(dir, pkgName string) (*Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := dir + "\x00" + pkgName
	if pkg, ok := c.pkgs[key]; ok {
		return pkg, nil
	}
	if err, ok := c.errs[key]; ok {
		return nil, err
	}
	pkg, err := LoadPackage(dir, pkgName)
	if err != nil {
		c.errs[key] = err
		return nil, err
	}
	c.pkgs[key] = pkg
	return pkg, nil
}
