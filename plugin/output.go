package plugin

import (
	"path/filepath"
	"strings"
)

// OutputPath 计算目标的输出文件
//
// 依次取注解的 output 参数、包级指令、命令行或配置文件，都没有时用 fallback。
// $FILE 替换为源文件名（不含 .go），$PACKAGE 替换为包名；
// 缺少 .go 后缀时补上，相对路径相对于源文件所在目录。
func OutputPath(t *Target, ann *Annotation, pkg *PackageConfig, generator, cli, fallback string) string {
	out := ann.Get("output")
	if out == "" {
		out = pkg.OutputFor(generator)
	}
	if out == "" {
		out = cli
	}
	if out == "" {
		out = fallback
	}

	base := strings.TrimSuffix(filepath.Base(t.FilePath), ".go")
	out = strings.NewReplacer("$FILE", base, "$PACKAGE", t.PackageName).Replace(out)
	if !strings.HasSuffix(out, ".go") {
		out += ".go"
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(filepath.Dir(t.FilePath), out)
}
