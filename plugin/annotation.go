package plugin

import (
	"go/ast"
	"regexp"
	"strings"
)

// Annotation 注释里的一个 @Name(...) 标记
type Annotation struct {
	Name   string
	Params map[string]string // 键统一小写；位置参数存为 value
	Raw    string
}

var (
	markRe = regexp.MustCompile(`@(\w+)(?:\(([^)]*)\))?`)

	// key=`v`、key="v" 或 key=v
	kvRe = regexp.MustCompile("(\\w+)\\s*=\\s*(?:`([^`]*)`|\"([^\"]*)\"|([^,\\s]+))")

	// @DbRename(`v`) 这种只有一个带引号取值的写法
	positionalRe = regexp.MustCompile("^\\s*(?:`([^`]*)`|\"([^\"]*)\")\\s*$")
)

// ParseComment 解析注释文本里的全部注解，按出现顺序返回
func ParseComment(text string) []*Annotation {
	var out []*Annotation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSuffix(strings.TrimPrefix(line, "/*"), "*/")

		for _, m := range markRe.FindAllStringSubmatch(line, -1) {
			out = append(out, &Annotation{
				Name:   m[1],
				Params: parseArgs(m[2]),
				Raw:    m[0],
			})
		}
	}
	return out
}

func parseArgs(args string) map[string]string {
	params := make(map[string]string)
	if strings.TrimSpace(args) == "" {
		return params
	}
	if m := positionalRe.FindStringSubmatch(args); m != nil {
		params["value"] = m[1] + m[2]
		return params
	}
	for _, m := range kvRe.FindAllStringSubmatch(args, -1) {
		params[strings.ToLower(m[1])] = m[2] + m[3] + m[4]
	}
	return params
}

// FromDoc 解析多个注释组，nil 会被跳过
func FromDoc(groups ...*ast.CommentGroup) []*Annotation {
	var out []*Annotation
	for _, g := range groups {
		if g != nil {
			out = append(out, ParseComment(g.Text())...)
		}
	}
	return out
}

// Find 返回第一个名为 name 的注解
func Find(anns []*Annotation, name string) *Annotation {
	for _, a := range anns {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Lookup 按参数名取值，参数名不区分大小写
func (a *Annotation) Lookup(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.Params[strings.ToLower(key)]
	return v, ok
}

// Get 参数不存在时返回空字符串
func (a *Annotation) Get(key string) string {
	v, _ := a.Lookup(key)
	return v
}
