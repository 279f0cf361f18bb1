package dbenumgen

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"regexp"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/donutnomad/dbenumgen/casestyle"
	"github.com/donutnomad/dbenumgen/internal/config"
	"github.com/donutnomad/dbenumgen/plugin"
)

var (
	ErrNotEnum             = errors.New("@DbEnum 只能用于枚举类型")
	ErrUnsupportedType     = errors.New("枚举的底层类型必须是整数或 string")
	ErrNoVariants          = errors.New("枚举没有任何变体常量")
	ErrDuplicateValue      = errors.New("多个变体映射到同一个数据库取值")
	ErrUnknownBackend      = config.ErrUnknownBackend
	ErrMissingExistingType = errors.New("existing_type 指定的类型不存在")
	ErrInvalidRename       = errors.New("@DbRename 缺少 value")
)

// Options 来自命令行和配置文件的全局默认值，注解参数可覆盖
type Options struct {
	Backends   []string
	Gorm       bool
	ValueStyle string
}

// Enum 一个待生成的枚举
type Enum struct {
	Name        string // Go 类型名
	PackageName string
	FilePath    string
	Line        int

	IsString   bool   // 底层类型是否为 string
	Underlying string // 底层类型名，如 int32

	PgType   string // Postgres 类型名，未加引号
	Style    casestyle.Style
	Backends []string
	Gorm     bool
	Nullable bool

	Mapping  Mapping
	Variants []*Variant
}

// Variant 枚举的一个取值
type Variant struct {
	ConstName string // Go 常量名
	Ident     string // 去掉前缀后的标识符，用于计算默认取值
	DbValue   string
	Renamed   bool
	Line      int
}

// Has 是否启用了某个后端
func (e *Enum) Has(backend string) bool {
	return slices.Contains(e.Backends, backend)
}

// DbValues 按变体顺序返回数据库取值
func (e *Enum) DbValues() []string {
	out := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		out[i] = v.DbValue
	}
	return out
}

// Pos 用于错误信息
func (e *Enum) Pos() string {
	return fmt.Sprintf("%s:%d", e.FilePath, e.Line)
}

var plainPgIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// QuotedPgType 返回可直接写进 DDL 的类型名
// 非纯小写标识符的部分加双引号，支持 schema.name
func (e *Enum) QuotedPgType() string {
	parts := strings.Split(e.PgType, ".")
	for i, p := range parts {
		if !plainPgIdent.MatchString(p) {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// BuildEnum 根据注解参数、全局选项和包源码构建枚举模型
func BuildEnum(target *plugin.Target, params Params, opts Options, pkg *Package) (*Enum, error) {
	e := &Enum{
		Name:        target.Name,
		PackageName: target.PackageName,
		FilePath:    target.FilePath,
		Line:        target.Line,
		Nullable:    params.Nullable,
	}

	if target.Kind != plugin.TargetType {
		return nil, errors.Wrapf(ErrNotEnum, "%s: %s 是 %s", e.Pos(), e.Name, target.Kind)
	}

	tn := pkg.TypeOf(e.Name)
	if tn == nil || tn.IsAlias() {
		return nil, errors.Wrapf(ErrNotEnum, "%s: %s 不是具名类型", e.Pos(), e.Name)
	}
	if named, ok := tn.Type().(*types.Named); ok && named.TypeParams().Len() > 0 {
		return nil, errors.Wrapf(ErrNotEnum, "%s: %s 是泛型类型", e.Pos(), e.Name)
	}
	basic, ok := tn.Type().Underlying().(*types.Basic)
	if !ok || basic.Info()&(types.IsInteger|types.IsString) == 0 || basic.Info()&types.IsUntyped != 0 {
		return nil, errors.Wrapf(ErrUnsupportedType, "%s: %s 的底层类型是 %s", e.Pos(), e.Name, tn.Type().Underlying())
	}
	e.IsString = basic.Info()&types.IsString != 0
	e.Underlying = basic.Name()

	style, err := casestyle.Parse(lo.CoalesceOrEmpty(params.ValueStyle, opts.ValueStyle))
	if err != nil {
		return nil, errors.Wrap(err, e.Pos())
	}
	e.Style = style

	backends := params.Backends
	if len(backends) == 0 {
		backends = opts.Backends
	}
	if e.Backends, err = config.NormalizeBackends(backends); err != nil {
		return nil, errors.Wrap(err, e.Pos())
	}

	e.Gorm = opts.Gorm
	if params.Gorm != "" {
		if e.Gorm, err = cast.ToBoolE(params.Gorm); err != nil {
			return nil, errors.Wrapf(err, "%s: gorm", e.Pos())
		}
	}

	e.PgType = lo.CoalesceOrEmpty(params.PgType, casestyle.Snake.Apply(e.Name))

	prefix := lo.CoalesceOrEmpty(params.Prefix, e.Name)
	var seen []constant.Value
	byValue := make(map[string]string)
	for _, c := range pkg.ConstsOf(e.Name) {
		// 与前面某个变体取值相同的常量视为别名
		if c.Value != nil && slices.ContainsFunc(seen, func(v constant.Value) bool {
			return constant.Compare(v, token.EQL, c.Value)
		}) {
			continue
		}
		if c.Value != nil {
			seen = append(seen, c.Value)
		}

		v := &Variant{
			ConstName: c.Name,
			Ident:     stripPrefix(c.Name, prefix),
			Line:      c.Line,
		}
		var override *string
		if c.Rename != nil {
			value, ok := c.Rename.Lookup("value")
			if !ok {
				return nil, errors.Wrapf(ErrInvalidRename, "%s:%d: %s", c.File, c.Line, c.Name)
			}
			override = &value
			v.Renamed = true
		}
		v.DbValue = casestyle.Resolve(v.Ident, e.Style, override)

		if other, ok := byValue[v.DbValue]; ok {
			return nil, errors.Wrapf(ErrDuplicateValue, "%s: %s 与 %s 都是 %q", e.Pos(), other, c.Name, v.DbValue)
		}
		byValue[v.DbValue] = c.Name
		e.Variants = append(e.Variants, v)
	}
	if len(e.Variants) == 0 {
		return nil, errors.Wrapf(ErrNoVariants, "%s: %s", e.Pos(), e.Name)
	}

	return e, nil
}

// stripPrefix 去掉常量名前缀，剩余部分为空时保留原名
func stripPrefix(name, prefix string) string {
	if prefix == "" || !strings.HasPrefix(name, prefix) {
		return name
	}
	rest := strings.TrimLeft(strings.TrimPrefix(name, prefix), "_")
	if rest == "" {
		return name
	}
	return rest
}
