package plugin

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/donutnomad/gg"
	"github.com/go-faster/errors"
)

// GeneratedHeader 写在每个生成文件的第一行
const GeneratedHeader = "Code generated by dbenumgen. DO NOT EDIT."

// render 给生成器输出的源码加上文件头，由 gg 重新输出 package 和 import 部分
func render(src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.Wrap(err, "解析生成的源码")
	}

	out := gg.New()
	// 文件头后空一行，避免成为包注释
	out.SetHeader("%s\n", GeneratedHeader)
	out.SetPackage(file.Name.Name)

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "import %s", imp.Path.Value)
		}
		switch {
		case imp.Name == nil:
			out.P(path)
		case imp.Name.Name == "." || imp.Name.Name == "_":
			return nil, errors.Errorf("不支持的 import 形式: %s %s", imp.Name.Name, imp.Path.Value)
		default:
			out.PAlias(path, imp.Name.Name)
		}
	}

	// 正文从最后一个 import 声明之后开始，声明之间的注释原样保留
	start := file.Name.End()
	for _, d := range file.Decls {
		if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
			start = gd.End()
		}
	}
	if body := strings.TrimSpace(string(src[fset.Position(start).Offset:])); body != "" {
		out.Body().Append(gg.String("%s", body))
	}
	// Bytes 返回的是池化缓冲区
	return bytes.Clone(out.Bytes()), nil
}
