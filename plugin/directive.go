package plugin

import (
	"go/ast"
	"path/filepath"
	"strings"
)

// DirectivePrefix 包级指令，一个包写一次即可
//
//	//go:dbenumgen: -output `$PACKAGE_enums`
//	//go:dbenumgen: plugin:dbenum -output `zz_dbenum`
const DirectivePrefix = "go:dbenumgen:"

// PackageConfig 包级指令的内容
type PackageConfig struct {
	Dir     string
	Output  string            // 对全部生成器生效
	Outputs map[string]string // key: 生成器名（小写）
}

// OutputFor 生成器专属配置优先
func (c *PackageConfig) OutputFor(generator string) string {
	if c == nil {
		return ""
	}
	if out, ok := c.Outputs[strings.ToLower(generator)]; ok {
		return out
	}
	return c.Output
}

// fileDirective 一个文件最多一条指令，多于一条时全部忽略
func (s *Scanner) fileDirective(file *ast.File, path string) *PackageConfig {
	var found []string
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimSpace(strings.TrimSuffix(strings.TrimLeft(c.Text, "/*"), "*/"))
			if rest, ok := strings.CutPrefix(text, DirectivePrefix); ok {
				found = append(found, rest)
			}
		}
	}
	switch len(found) {
	case 0:
		return nil
	case 1:
		return ParseDirective(found[0], filepath.Dir(path))
	}
	s.logger.Warn().Str("file", path).Int("count", len(found)).Msg("文件中有多条 " + DirectivePrefix + " 指令，全部忽略")
	return nil
}

// ParseDirective 解析指令参数部分，例如
//
//	-output `x` plugin:dbenum -output `y`
func ParseDirective(line, dir string) *PackageConfig {
	cfg := &PackageConfig{Dir: dir, Outputs: make(map[string]string)}
	args := directiveArgs(line)
	gen := ""
	for i := 0; i < len(args); i++ {
		switch {
		case strings.HasPrefix(args[i], "plugin:"):
			gen = strings.ToLower(strings.TrimPrefix(args[i], "plugin:"))
		case args[i] == "-output" && i+1 < len(args):
			i++
			if gen == "" {
				cfg.Output = args[i]
			} else {
				cfg.Outputs[gen] = args[i]
			}
		}
	}
	if cfg.Output == "" && len(cfg.Outputs) == 0 {
		return nil
	}
	return cfg
}

// directiveArgs 按空白切分，引号内的空白保留，引号本身去掉
func directiveArgs(line string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		open  bool // cur 是否已开始（允许空的引号参数）
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '`' || r == '"' || r == '\'':
			quote = r
			open = true
		case r == ' ' || r == '\t':
			if open {
				args = append(args, cur.String())
				cur.Reset()
				open = false
			}
		default:
			cur.WriteRune(r)
			open = true
		}
	}
	if open {
		args = append(args, cur.String())
	}
	return args
}

// addConfig 同一目录的多个文件都有指令时，后解析的覆盖先解析的
func (s *Scanner) addConfig(configs map[string]*PackageConfig, cfg *PackageConfig) {
	prev, ok := configs[cfg.Dir]
	if !ok {
		configs[cfg.Dir] = cfg
		return
	}
	if cfg.Output != "" {
		if prev.Output != "" && prev.Output != cfg.Output {
			s.logger.Warn().Str("dir", cfg.Dir).Msg("包内存在多个默认输出配置，使用后面的")
		}
		prev.Output = cfg.Output
	}
	for k, v := range cfg.Outputs {
		if old, ok := prev.Outputs[k]; ok && old != v {
			s.logger.Warn().Str("dir", cfg.Dir).Str("plugin", k).Msg("包内存在多个输出配置，使用后面的")
		}
		prev.Outputs[k] = v
	}
}
