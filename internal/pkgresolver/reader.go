package pkgresolver

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// PackageFileReader 从磁盘路径读取真实包名
type PackageFileReader struct{}

// ReadPackageName 读取指定目录的 package 声明
// 按文件名排序，取第一个非测试文件
func (PackageFileReader) ReadPackageName(pkgDir string) (string, error) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return "", errors.Wrapf(err, "读取目录失败 %s", pkgDir)
	}

	var goFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			goFiles = append(goFiles, name)
		}
	}
	if len(goFiles) == 0 {
		return "", errors.Errorf("目录 %s 中没有找到 Go 源文件", pkgDir)
	}
	slices.Sort(goFiles)

	filename := filepath.Join(pkgDir, goFiles[0])
	f, err := parser.ParseFile(token.NewFileSet(), filename, nil, parser.PackageClauseOnly)
	if err != nil {
		return "", errors.Wrapf(err, "解析文件 %s 失败", filename)
	}
	return f.Name.Name, nil
}
