// Package config 读取项目级 dbenumgen.yaml
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// FileName 默认配置文件名，从当前目录向上查找
const FileName = "dbenumgen.yaml"

// 支持的后端
const (
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
)

// AllBackends 返回全部支持的后端，顺序即生成代码中的顺序
func AllBackends() []string {
	return []string{BackendPostgres, BackendMySQL, BackendSQLite}
}

// ErrUnknownBackend 后端名不在支持列表中
var ErrUnknownBackend = errors.New("unknown backend")

// Config 全局生成配置，注解参数可以逐项覆盖
type Config struct {
	Backends   []string `yaml:"backends"`
	Gorm       bool     `yaml:"gorm"`
	ValueStyle string   `yaml:"value_style"`
	Output     string   `yaml:"output"`
	Async      bool     `yaml:"async"`

	// Path 实际加载的配置文件，没有则为空
	Path string `yaml:"-"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Backends: AllBackends(),
		Gorm:     true,
		Async:    true,
	}
}

// Load 读取配置文件
// path 为空时从 dir 开始向上查找 dbenumgen.yaml，找不到返回默认配置
func Load(path, dir string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = find(dir)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.Path = path

	backends, err := NormalizeBackends(cfg.Backends)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	cfg.Backends = backends

	return cfg, nil
}

func find(dir string) string {
	if dir == "" {
		return ""
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NormalizeBackends 小写、去重并校验，结果按 AllBackends 的顺序排列
// 空列表表示全部后端
func NormalizeBackends(in []string) ([]string, error) {
	if len(in) == 0 {
		return AllBackends(), nil
	}
	set := make(map[string]bool, len(in))
	for _, b := range in {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if b == "postgresql" || b == "pg" {
			b = BackendPostgres
		}
		if !slices.Contains(AllBackends(), b) {
			return nil, errors.Wrapf(ErrUnknownBackend, "%q (supported: %s)", b, strings.Join(AllBackends(), ", "))
		}
		set[b] = true
	}
	var out []string
	for _, b := range AllBackends() {
		if set[b] {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return AllBackends(), nil
	}
	return out, nil
}
