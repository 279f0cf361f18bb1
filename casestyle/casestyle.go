// Package casestyle 把枚举变体的标识符转换为写入数据库的字符串。
//
// 支持的风格: snake_case, camelCase, kebab-case, PascalCase,
// SCREAMING_SNAKE_CASE, verbatim。单个变体上的显式重命名总是优先。
package casestyle

import (
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Style 大小写风格，取值即注解中书写的名字
type Style string

const (
	Snake          Style = "snake_case"
	Camel          Style = "camelCase"
	Kebab          Style = "kebab-case"
	Pascal         Style = "PascalCase"
	ScreamingSnake Style = "SCREAMING_SNAKE_CASE"
	Verbatim       Style = "verbatim"
)

// Default 未指定风格时使用
const Default = Snake

// ErrUnsupportedStyle 风格名不在支持列表中
var ErrUnsupportedStyle = errors.New("unsupported value style")

// All 返回全部支持的风格，顺序固定
func All() []Style {
	return []Style{Camel, Kebab, Pascal, ScreamingSnake, Snake, Verbatim}
}

// Parse 解析风格名，空字符串返回默认风格
func Parse(name string) (Style, error) {
	if name == "" {
		return Default, nil
	}
	for _, s := range All() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedStyle, "%q (supported: %s)", name, supportedList())
}

func supportedList() string {
	names := make([]string, 0, len(All()))
	for _, s := range All() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func (s Style) String() string {
	return string(s)
}

// Apply 按风格转换标识符
func (s Style) Apply(ident string) string {
	if s == Verbatim {
		return ident
	}
	words := Words(ident)
	if len(words) == 0 {
		return ""
	}

	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)
	title := cases.Title(language.Und)

	out := make([]string, len(words))
	for i, w := range words {
		switch s {
		case Snake, Kebab:
			out[i] = lower.String(w)
		case ScreamingSnake:
			out[i] = upper.String(w)
		case Pascal:
			out[i] = title.String(w)
		case Camel:
			if i == 0 {
				out[i] = lower.String(w)
			} else {
				out[i] = title.String(w)
			}
		default:
			return ident
		}
	}

	switch s {
	case Snake, ScreamingSnake:
		return strings.Join(out, "_")
	case Kebab:
		return strings.Join(out, "-")
	default:
		return strings.Join(out, "")
	}
}

// Resolve 计算变体的数据库取值，override 非 nil 时直接使用（空字符串也算）
func Resolve(ident string, style Style, override *string) string {
	if override != nil {
		return *override
	}
	return style.Apply(ident)
}

type wordMode int

const (
	modeBoundary wordMode = iota
	modeLower
	modeUpper
)

// Words 把标识符拆成单词
//
//	"BazQuxx"      -> [Baz Quxx]
//	"HTTPServer"   -> [HTTP Server]
//	"SHA256Hash"   -> [SHA256 Hash]
//	"FOURTH_VALUE" -> [FOURTH VALUE]
//
// 非字母数字字符只作分隔；数字沿用前一个字符的大小写状态。
func Words(ident string) []string {
	var words []string
	for _, chunk := range strings.FieldsFunc(ident, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words = append(words, splitChunk([]rune(chunk))...)
	}
	return words
}

func splitChunk(rs []rune) []string {
	var (
		words []string
		start int
		mode  = modeBoundary
	)
	for i, c := range rs {
		if i == len(rs)-1 {
			words = append(words, string(rs[start:]))
			break
		}
		next := rs[i+1]

		nextMode := mode
		if unicode.IsLower(c) {
			nextMode = modeLower
		} else if unicode.IsUpper(c) {
			nextMode = modeUpper
		}

		switch {
		case nextMode == modeLower && unicode.IsUpper(next):
			// fooBar: 在 o 之后断开
			words = append(words, string(rs[start:i+1]))
			start = i + 1
			mode = modeBoundary
		case mode == modeUpper && unicode.IsUpper(c) && unicode.IsLower(next):
			// HTTPServer: 在 S 之前断开
			if i > start {
				words = append(words, string(rs[start:i]))
				start = i
			}
			mode = modeBoundary
		default:
			mode = nextMode
		}
	}
	return words
}
