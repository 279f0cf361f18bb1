package dbenumgen

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-faster/errors"

	"github.com/donutnomad/dbenumgen/internal/config"
)

// DDL 片段模板
const (
	pgCreateTypeTmpl = `CREATE TYPE {{ .Name }} AS ENUM ({{ .Values | sqlQuote "postgres" | join ", " }});`
	mysqlEnumTmpl    = `enum({{ .Values | sqlQuote "mysql" | join ", " }})`
	sqliteCheckTmpl  = `CHECK({{ .Column }} IN ({{ .Values | sqlQuote "sqlite" | join ", " }}))`
)

var ddlTemplates = template.Must(
	template.New("ddl").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{"sqlQuote": quoteAll}).
		Parse(`{{ define "pg_create_type" }}` + pgCreateTypeTmpl + `{{ end }}` +
			`{{ define "mysql_enum" }}` + mysqlEnumTmpl + `{{ end }}` +
			`{{ define "sqlite_check" }}` + sqliteCheckTmpl + `{{ end }}`),
)

type ddlData struct {
	Name   string
	Column string
	Values []string
}

// SQLLiteral 单引号字符串字面量，单引号写两次
// MySQL 默认把反斜杠当转义符，需要再转义一次
func SQLLiteral(dialect, s string) string {
	s = strings.ReplaceAll(s, `'`, `''`)
	if dialect == config.BackendMySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + s + "'"
}

func quoteAll(dialect string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SQLLiteral(dialect, v)
	}
	return out
}

func renderDDL(name string, data ddlData) (string, error) {
	var sb strings.Builder
	if err := ddlTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", errors.Wrapf(err, "render %s", name)
	}
	return sb.String(), nil
}

// PgCreateType CREATE TYPE <name> AS ENUM ('a', 'b');
// typeName 原样写入，调用方负责加引号
func PgCreateType(typeName string, values []string) (string, error) {
	return renderDDL("pg_create_type", ddlData{Name: typeName, Values: values})
}

// MySQLEnumType enum('a', 'b')
func MySQLEnumType(values []string) (string, error) {
	return renderDDL("mysql_enum", ddlData{Values: values})
}

// SQLiteCheck CHECK(<column> IN ('a', 'b'))
func SQLiteCheck(column string, values []string) (string, error) {
	return renderDDL("sqlite_check", ddlData{Column: column, Values: values})
}
