package dbenumgen

import (
	"bytes"
	"cmp"
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-faster/errors"

	"github.com/donutnomad/dbenumgen/internal/config"
)

const (
	driverPkg = "database/sql/driver"
	sqlPkg    = "database/sql"
	pqPkg     = "github.com/lib/pq"
	gormPkg   = "gorm.io/gorm"
	schemaPkg = "gorm.io/gorm/schema"

	// placeholder 渲染 DDL 时代替运行期才知道的部分
	placeholder = "\x00"
)

// Emit 生成一个输出文件的源码，文件内的枚举按源码位置排序
func Emit(pkgName string, enums []*Enum) ([]byte, error) {
	enums = slices.Clone(enums)
	slices.SortFunc(enums, func(a, b *Enum) int {
		return cmp.Or(cmp.Compare(a.FilePath, b.FilePath), cmp.Compare(a.Line, b.Line))
	})

	f := jen.NewFile(pkgName)
	for _, e := range enums {
		if e.Mapping.IsExternal() {
			f.ImportName(e.Mapping.ImportPath, e.Mapping.PkgName)
		}
		if err := (&emitter{f: f, e: e}).emit(); err != nil {
			return nil, errors.Wrapf(err, "%s: %s", e.Pos(), e.Name)
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, errors.Wrap(err, "render")
	}
	return buf.Bytes(), nil
}

type emitter struct {
	f *jen.File
	e *Enum
}

func (g *emitter) emit() error {
	if g.e.Mapping.Synthesized {
		if err := g.mappingType(); err != nil {
			return err
		}
	}
	if err := g.sqlType(); err != nil {
		return err
	}
	g.dbValue()
	g.parse()
	g.isValid()
	g.values()
	g.valuer()
	g.scanner()
	if g.e.Gorm {
		g.gormMethods("e", g.e.Name, jen.Id("e"))
	}
	if g.e.Nullable {
		g.nullType()
	}
	if g.e.Has(config.BackendPostgres) {
		g.arrayType()
		if err := g.createTypeSQL(); err != nil {
			return err
		}
	}
	if g.e.Has(config.BackendSQLite) {
		if err := g.sqliteCheck(); err != nil {
			return err
		}
	}
	return nil
}

// 生成代码中的名字
func (g *emitter) typ() *jen.Statement { return jen.Id(g.e.Name) }

func (g *emitter) parseName() string { return "Parse" + g.e.Name }

func (g *emitter) nullName() string { return "Null" + g.e.Name }

func (g *emitter) arrayName() string { return g.e.Name + "Array" }

func (g *emitter) variant(v *Variant) jen.Code { return jen.Id(v.ConstName) }

// nullField Null 包装里枚举字段的名字，不能与 Valid 冲突
func (g *emitter) nullField() string {
	if g.e.Name == "Valid" {
		return "Enum"
	}
	return g.e.Name
}

func (g *emitter) mappingRef() *jen.Statement {
	if g.e.Mapping.IsExternal() {
		return jen.Qual(g.e.Mapping.ImportPath, g.e.Mapping.Name)
	}
	return jen.Id(g.e.Mapping.Name)
}

// pgTypeName 返回表达式：Postgres 类型名
func (g *emitter) pgTypeName() *jen.Statement {
	if g.e.Mapping.Synthesized {
		return jen.Lit(g.e.QuotedPgType())
	}
	return jen.New(g.mappingRef()).Dot("PgTypeName").Call()
}

// dialectSwitch 按后端返回列类型
func (g *emitter) dialectSwitch(body *jen.Group, pg jen.Code) error {
	var cases []jen.Code
	for _, b := range g.e.Backends {
		var ret jen.Code
		switch b {
		case config.BackendPostgres:
			ret = pg
		case config.BackendMySQL:
			ddl, err := MySQLEnumType(g.e.DbValues())
			if err != nil {
				return err
			}
			ret = jen.Lit(ddl)
		case config.BackendSQLite:
			ret = jen.Lit("TEXT")
		}
		cases = append(cases, jen.Case(jen.Lit(b)).Block(jen.Return(ret)))
	}
	body.Switch(jen.Id("dialect")).Block(cases...)
	body.Return(jen.Lit(""))
	return nil
}

func (g *emitter) mappingType() error {
	name := g.e.Mapping.Name

	g.f.Commentf("%s is the database type marker of %s.", name, g.e.Name)
	g.f.Type().Id(name).Struct()

	if g.e.Has(config.BackendPostgres) {
		g.f.Comment("PgTypeName returns the Postgres enum type name.")
		g.f.Func().Params(jen.Id(name)).Id("PgTypeName").Params().String().Block(
			jen.Return(jen.Lit(g.e.QuotedPgType())),
		)
	}

	var err error
	g.f.Comment("SQLType returns the column type for the given dialect.")
	g.f.Func().Params(jen.Id(name)).Id("SQLType").Params(jen.Id("dialect").String()).String().BlockFunc(func(body *jen.Group) {
		err = g.dialectSwitch(body, jen.Id(name).Values().Dot("PgTypeName").Call())
	})
	return err
}

func (g *emitter) sqlType() error {
	name := g.e.Name

	g.f.Commentf("SQLType returns the column type of %s for the given dialect.", name)
	if g.e.Mapping.Synthesized {
		g.f.Func().Params(g.typ()).Id("SQLType").Params(jen.Id("dialect").String()).String().Block(
			jen.Return(jen.Id(g.e.Mapping.Name).Values().Dot("SQLType").Call(jen.Id("dialect"))),
		)
		return nil
	}

	var err error
	g.f.Func().Params(g.typ()).Id("SQLType").Params(jen.Id("dialect").String()).String().BlockFunc(func(body *jen.Group) {
		err = g.dialectSwitch(body, g.pgTypeName())
	})
	if err != nil {
		return err
	}
	g.f.Var().Id("_").Interface(jen.Id("PgTypeName").Params().String()).Op("=").New(g.mappingRef())
	return nil
}

func (g *emitter) dbValue() {
	g.f.Commentf("DbValue returns the database representation of %s.", g.e.Name)
	g.f.Func().Params(jen.Id("e").Add(g.typ())).Id("DbValue").Params().Params(jen.String(), jen.Error()).BlockFunc(func(body *jen.Group) {
		body.Switch(jen.Id("e")).BlockFunc(func(sw *jen.Group) {
			for _, v := range g.e.Variants {
				sw.Case(g.variant(v)).Block(jen.Return(jen.Lit(v.DbValue), jen.Nil()))
			}
		})
		verb := "%d"
		if g.e.IsString {
			verb = "%q"
		}
		// 按底层类型格式化，不经过用户的 String 方法
		body.Return(jen.Lit(""), jen.Qual("fmt", "Errorf").Call(jen.Lit("invalid "+g.e.Name+" value: "+verb), jen.Id(g.e.Underlying).Call(jen.Id("e"))))
	})
}

func (g *emitter) parse() {
	g.f.Commentf("%s parses the database representation of %s.", g.parseName(), g.e.Name)
	g.f.Func().Id(g.parseName()).Params(jen.Id("s").String()).Params(g.typ(), jen.Error()).BlockFunc(func(body *jen.Group) {
		body.Switch(jen.Id("s")).BlockFunc(func(sw *jen.Group) {
			for _, v := range g.e.Variants {
				sw.Case(jen.Lit(v.DbValue)).Block(jen.Return(g.variant(v), jen.Nil()))
			}
		})
		body.Var().Id("zero").Add(g.typ())
		body.Return(jen.Id("zero"), jen.Qual("fmt", "Errorf").Call(jen.Lit("unrecognized enum variant: '%s'"), jen.Id("s")))
	})
}

func (g *emitter) isValid() {
	g.f.Commentf("IsValid reports whether e is a declared %s.", g.e.Name)
	g.f.Func().Params(jen.Id("e").Add(g.typ())).Id("IsValid").Params().Bool().BlockFunc(func(body *jen.Group) {
		body.Switch(jen.Id("e")).BlockFunc(func(sw *jen.Group) {
			caseValues := make([]jen.Code, 0, len(g.e.Variants))
			for _, v := range g.e.Variants {
				caseValues = append(caseValues, g.variant(v))
			}
			sw.Case(caseValues...).Block(jen.Return(jen.True()))
		})
		body.Return(jen.False())
	})
}

func (g *emitter) values() {
	name := g.e.Name

	g.f.Commentf("%sValues returns all values of %s.", name, name)
	g.f.Func().Id(name + "Values").Params().Index().Add(g.typ()).Block(
		jen.Return(jen.Index().Add(g.typ()).ValuesFunc(func(vals *jen.Group) {
			for _, v := range g.e.Variants {
				vals.Add(g.variant(v))
			}
		})),
	)

	g.f.Commentf("%sDbValues returns the database representations of all values of %s.", name, name)
	g.f.Func().Id(name + "DbValues").Params().Index().String().Block(
		jen.Return(jen.Index().String().ValuesFunc(func(vals *jen.Group) {
			for _, v := range g.e.Variants {
				vals.Lit(v.DbValue)
			}
		})),
	)
}

func (g *emitter) valuer() {
	g.f.Comment("Value implements driver.Valuer.")
	g.f.Func().Params(jen.Id("e").Add(g.typ())).Id("Value").Params().Params(jen.Qual(driverPkg, "Value"), jen.Error()).Block(
		jen.List(jen.Id("v"), jen.Err()).Op(":=").Id("e").Dot("DbValue").Call(),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("v"), jen.Nil()),
	)
}

func (g *emitter) scanner() {
	g.f.Comment("Scan implements sql.Scanner.")
	g.f.Func().Params(jen.Id("e").Op("*").Add(g.typ())).Id("Scan").Params(jen.Id("src").Any()).Error().Block(
		jen.Var().Id("s").String(),
		jen.Switch(jen.Id("v").Op(":=").Id("src").Assert(jen.Type())).Block(
			jen.Case(jen.Nil()).Block(
				jen.Return(jen.Qual("errors", "New").Call(jen.Lit("unexpected null for non-null column"))),
			),
			jen.Case(jen.String()).Block(jen.Id("s").Op("=").Id("v")),
			jen.Case(jen.Index().Byte()).Block(jen.Id("s").Op("=").String().Call(jen.Id("v"))),
			jen.Default().Block(
				jen.Return(jen.Qual("fmt", "Errorf").Call(jen.Lit("cannot scan %T into "+g.e.Name), jen.Id("src"))),
			),
		),
		jen.List(jen.Id("parsed"), jen.Err()).Op(":=").Id(g.parseName()).Call(jen.Id("s")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.Op("*").Id("e").Op("=").Id("parsed"),
		jen.Return(jen.Nil()),
	)

	g.f.Var().Defs(
		jen.Id("_").Qual(driverPkg, "Valuer").Op("=").New(g.typ()),
		jen.Id("_").Qual(sqlPkg, "Scanner").Op("=").New(g.typ()),
	)
}

// gormMethods enum 是接收者上取到枚举值的表达式
func (g *emitter) gormMethods(recv, name string, enum *jen.Statement) {
	g.f.Comment("GormDataType implements schema.GormDataTypeInterface.")
	g.f.Func().Params(jen.Id(name)).Id("GormDataType").Params().String().Block(
		jen.Return(jen.Lit("string")),
	)

	g.f.Comment("GormDBDataType returns the column type for the current dialect.")
	g.f.Func().Params(jen.Id(recv).Id(name)).Id("GormDBDataType").Params(
		jen.Id("db").Op("*").Qual(gormPkg, "DB"),
		jen.Id("field").Op("*").Qual(schemaPkg, "Field"),
	).String().Block(
		jen.Return(enum.Dot("SQLType").Call(jen.Id("db").Dot("Dialector").Dot("Name").Call())),
	)
}

func (g *emitter) nullType() {
	name, field := g.nullName(), g.nullField()

	g.f.Commentf("%s represents a %s that may be null.", name, g.e.Name)
	g.f.Type().Id(name).Struct(
		jen.Id(field).Add(g.typ()),
		jen.Id("Valid").Bool(),
	)

	g.f.Comment("Scan implements sql.Scanner.")
	g.f.Func().Params(jen.Id("n").Op("*").Id(name)).Id("Scan").Params(jen.Id("src").Any()).Error().Block(
		jen.If(jen.Id("src").Op("==").Nil()).Block(
			jen.Op("*").Id("n").Op("=").Id(name).Values(),
			jen.Return(jen.Nil()),
		),
		jen.If(jen.Err().Op(":=").Id("n").Dot(field).Dot("Scan").Call(jen.Id("src")), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Err()),
		),
		jen.Id("n").Dot("Valid").Op("=").True(),
		jen.Return(jen.Nil()),
	)

	g.f.Comment("Value implements driver.Valuer.")
	g.f.Func().Params(jen.Id("n").Id(name)).Id("Value").Params().Params(jen.Qual(driverPkg, "Value"), jen.Error()).Block(
		jen.If(jen.Op("!").Id("n").Dot("Valid")).Block(jen.Return(jen.Nil(), jen.Nil())),
		jen.Return(jen.Id("n").Dot(field).Dot("Value").Call()),
	)

	if g.e.Gorm {
		g.gormMethods("n", name, jen.Id("n").Dot(field))
	}
}

func (g *emitter) arrayType() {
	name := g.arrayName()

	g.f.Commentf("%s maps to a Postgres array of %s.", name, g.e.Name)
	g.f.Type().Id(name).Index().Add(g.typ())

	g.f.Comment("Value implements driver.Valuer.")
	g.f.Func().Params(jen.Id("a").Id(name)).Id("Value").Params().Params(jen.Qual(driverPkg, "Value"), jen.Error()).Block(
		jen.If(jen.Id("a").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Nil())),
		jen.Id("out").Op(":=").Make(jen.Qual(pqPkg, "StringArray"), jen.Len(jen.Id("a"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("e")).Op(":=").Range().Id("a")).Block(
			jen.List(jen.Id("v"), jen.Err()).Op(":=").Id("e").Dot("DbValue").Call(),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Id("out").Index(jen.Id("i")).Op("=").Id("v"),
		),
		jen.Return(jen.Id("out").Dot("Value").Call()),
	)

	g.f.Comment("Scan implements sql.Scanner.")
	g.f.Func().Params(jen.Id("a").Op("*").Id(name)).Id("Scan").Params(jen.Id("src").Any()).Error().Block(
		jen.Var().Id("raw").Qual(pqPkg, "StringArray"),
		jen.If(jen.Err().Op(":=").Id("raw").Dot("Scan").Call(jen.Id("src")), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Err()),
		),
		jen.If(jen.Id("raw").Op("==").Nil()).Block(
			jen.Op("*").Id("a").Op("=").Nil(),
			jen.Return(jen.Nil()),
		),
		jen.Id("out").Op(":=").Make(jen.Id(name), jen.Len(jen.Id("raw"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("s")).Op(":=").Range().Id("raw")).Block(
			jen.List(jen.Id("e"), jen.Err()).Op(":=").Id(g.parseName()).Call(jen.Id("s")),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
			jen.Id("out").Index(jen.Id("i")).Op("=").Id("e"),
		),
		jen.Op("*").Id("a").Op("=").Id("out"),
		jen.Return(jen.Nil()),
	)
}

func (g *emitter) createTypeSQL() error {
	name := g.e.Name + "CreateTypeSQL"

	typeName := g.e.QuotedPgType()
	if !g.e.Mapping.Synthesized {
		typeName = placeholder
	}
	ddl, err := PgCreateType(typeName, g.e.DbValues())
	if err != nil {
		return err
	}

	g.f.Commentf("%s returns the DDL creating the Postgres enum type.", name)
	g.f.Func().Id(name).Params().String().Block(
		jen.Return(splice(ddl, g.pgTypeName())),
	)
	return nil
}

func (g *emitter) sqliteCheck() error {
	name := g.e.Name + "SQLiteCheck"

	ddl, err := SQLiteCheck(placeholder, g.e.DbValues())
	if err != nil {
		return err
	}

	g.f.Commentf("%s returns a SQLite CHECK constraint restricting column to %s values.", name, g.e.Name)
	g.f.Func().Id(name).Params(jen.Id("column").String()).String().Block(
		jen.Return(splice(ddl, jen.Id("column"))),
	)
	return nil
}

// splice 把渲染结果中的 placeholder 换成表达式
func splice(rendered string, expr jen.Code) *jen.Statement {
	before, after, ok := strings.Cut(rendered, placeholder)
	if !ok {
		return jen.Lit(rendered)
	}
	return jen.Lit(before).Op("+").Add(expr).Op("+").Lit(after)
}
