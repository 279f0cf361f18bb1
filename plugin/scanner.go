package plugin

import (
	"bufio"
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// generatedSuffixes 这些文件既不扫描也不参与类型检查
var generatedSuffixes = []string{"_test.go", "_dbenum.go", "_gen.go"}

// IsGeneratedFile 生成文件和测试文件
func IsGeneratedFile(path string) bool {
	return lo.SomeBy(generatedSuffixes, func(s string) bool { return strings.HasSuffix(path, s) })
}

// Scanner 先按行粗筛出提到已注册注解（或包级指令）的文件，再对这些文件做 AST 解析
type Scanner struct {
	annotations []string
	logger      zerolog.Logger
}

// NewScanner annotations 为空时接受任意注解
func NewScanner(logger zerolog.Logger, annotations ...string) *Scanner {
	return &Scanner{annotations: annotations, logger: logger}
}

// ScanResult 扫描结果，Targets 按文件和位置排序
type ScanResult struct {
	Targets  []*Target
	Packages map[string]*PackageConfig
}

// Scan 支持 ./...、dir/...、目录和单个 .go 文件
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	files, err := CollectFiles(patterns)
	if err != nil {
		return nil, err
	}

	matched := lo.Filter(forEachFile(ctx, files, func(path string) string {
		ok, err := s.MatchFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("读取文件失败，跳过")
		}
		return lo.Ternary(ok, path, "")
	}), func(p string, _ int) bool { return p != "" })
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug().Int("files", len(files)).Int("matched", len(matched)).Msg("粗筛完成")

	parsed := forEachFile(ctx, matched, s.parseFile)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &ScanResult{Packages: make(map[string]*PackageConfig)}
	for _, f := range parsed {
		if f.err != nil {
			s.logger.Warn().Err(f.err).Str("file", f.path).Msg("解析失败，跳过")
			continue
		}
		res.Targets = append(res.Targets, f.targets...)
		if f.config != nil {
			s.addConfig(res.Packages, f.config)
		}
	}
	return res, nil
}

// forEachFile 并发处理，结果顺序与 files 一致
func forEachFile[T any](ctx context.Context, files []string, fn func(string) T) []T {
	out := make([]T, len(files))
	idx := make(chan int)
	var wg sync.WaitGroup
	for range min(runtime.NumCPU(), max(len(files), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = fn(files[i])
			}
		}()
	}
feed:
	for i := range files {
		select {
		case <-ctx.Done():
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()
	return out
}

// MatchFile 文件的注释里是否出现已注册的注解或包级指令
func (s *Scanner) MatchFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "//") && !strings.HasPrefix(line, "/*") {
			continue
		}
		if strings.Contains(line, DirectivePrefix) {
			return true, nil
		}
		for _, a := range ParseComment(line) {
			if len(s.annotations) == 0 || slices.Contains(s.annotations, a.Name) {
				return true, nil
			}
		}
	}
	return false, sc.Err()
}

type parsedFile struct {
	path    string
	targets []*Target
	config  *PackageConfig
	err     error
}

func (s *Scanner) parseFile(path string) parsedFile {
	res := parsedFile{path: path}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		res.err = errors.Wrap(err, "parse")
		return res
	}

	res.config = s.fileDirective(file, path)

	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			// 分组声明 type ( ... ) 只看各自的注释
			doc := ts.Doc
			if doc == nil && !gd.Lparen.IsValid() {
				doc = gd.Doc
			}
			anns := lo.Filter(FromDoc(doc), func(a *Annotation, _ int) bool {
				return len(s.annotations) == 0 || slices.Contains(s.annotations, a.Name)
			})
			if len(anns) == 0 {
				continue
			}
			res.targets = append(res.targets, &Target{
				Kind:        kindOf(ts.Type),
				Name:        ts.Name.Name,
				PackageName: file.Name.Name,
				FilePath:    path,
				Pos:         ts.Pos(),
				Line:        fset.Position(ts.Pos()).Line,
				Annotations: anns,
			})
		}
	}
	return res
}

func kindOf(expr ast.Expr) TargetKind {
	switch expr.(type) {
	case *ast.StructType:
		return TargetStruct
	case *ast.InterfaceType:
		return TargetInterface
	}
	return TargetType
}

// CollectFiles 展开路径模式，跳过隐藏目录、_ 开头的目录、vendor、testdata 和生成文件
func CollectFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, pattern := range patterns {
		root, recursive := strings.CutSuffix(pattern, "...")
		root = strings.TrimSuffix(root, "/")
		if root == "" {
			root = "."
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(root, ".go") {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && (!recursive || SkipDir(d.Name())) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(p, ".go") && !IsGeneratedFile(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

// SkipDir 递归扫描和 dev 模式监听时都跳过的目录
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}
