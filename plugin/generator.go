// Package plugin 扫描源码里的注解，把目标交给对应的生成器，并写出生成的文件
package plugin

import (
	"go/token"
	"reflect"

	"github.com/rs/zerolog"
)

// TargetKind 被注解的类型声明的种类
type TargetKind int

const (
	TargetStruct TargetKind = iota + 1
	TargetInterface
	TargetType // type Status int 之类的具名类型
)

func (k TargetKind) String() string {
	switch k {
	case TargetStruct:
		return "struct"
	case TargetInterface:
		return "interface"
	case TargetType:
		return "type"
	}
	return "unknown"
}

// Target 一个带注解的类型声明
type Target struct {
	Kind        TargetKind
	Name        string
	PackageName string
	FilePath    string
	Pos         token.Pos
	Line        int

	Annotations []*Annotation
	Params      any // Decode 之后的参数结构体（值，不是指针）
}

// Generator 绑定一个注解的代码生成器
type Generator interface {
	Name() string
	Annotation() string
	ParamDefs() []ParamDef
	// NewParams 返回参数结构体的指针，nil 表示没有参数
	NewParams() any
	Generate(ctx *Context) (*Result, error)
}

// Base 实现 Generator 中除 Generate 之外的方法
type Base struct {
	name       string
	annotation string
	proto      reflect.Type
	defs       []ParamDef
}

// NewBase proto 是参数结构体的零值，例如 Params{}
func NewBase(name, annotation string, proto any) *Base {
	b := &Base{name: name, annotation: annotation}
	if proto != nil {
		b.proto = reflect.TypeOf(proto)
		if b.proto.Kind() == reflect.Pointer {
			b.proto = b.proto.Elem()
		}
		b.defs = ParamDefs(proto)
	}
	return b
}

func (b *Base) Name() string          { return b.name }
func (b *Base) Annotation() string    { return b.annotation }
func (b *Base) ParamDefs() []ParamDef { return b.defs }

func (b *Base) NewParams() any {
	if b.proto == nil {
		return nil
	}
	return reflect.New(b.proto).Interface()
}

// Context 一次生成调用的输入
type Context struct {
	Targets  []*Target
	Packages map[string]*PackageConfig // key: 包目录
	Output   string                    // 命令行或配置文件给出的输出路径
	Verbose  bool
	Logger   zerolog.Logger
}

// PackageConfig 返回目录对应的包级配置，可能为 nil
func (c *Context) PackageConfig(dir string) *PackageConfig {
	return c.Packages[dir]
}

// Result 生成器的输出
type Result struct {
	Files  map[string][]byte // key: 输出路径，value: 未加文件头的 Go 源码
	Errors []error
}

func NewResult() *Result {
	return &Result{Files: make(map[string][]byte)}
}

func (r *Result) AddFile(path string, src []byte) {
	r.Files[path] = src
}

func (r *Result) AddError(err error) {
	r.Errors = append(r.Errors, err)
}
