package dbenumgen

// Params @DbEnum 注解参数
// 字符串参数为空时沿用全局配置或默认推导
type Params struct {
	PgType       string   `param:"name=pg_type,required=false,default=,description=Postgres 枚举类型名，默认为类型名的 snake_case"`
	Mapping      string   `param:"name=mapping,required=false,default=,description=生成的映射类型名，默认为 <类型名>Mapping"`
	ExistingType string   `param:"name=existing_type,required=false,default=,description=绑定已有的映射类型，可写 Name 或 import/path.Name"`
	ValueStyle   string   `param:"name=value_style,required=false,default=,description=取值风格：camelCase/kebab-case/PascalCase/SCREAMING_SNAKE_CASE/snake_case/verbatim"`
	Prefix       string   `param:"name=prefix,required=false,default=,description=计算取值前去掉的常量名前缀，默认为类型名"`
	Backends     []string `param:"name=backends,required=false,default=,description=启用的后端，用 | 分隔：postgres|mysql|sqlite"`
	Gorm         string   `param:"name=gorm,required=false,default=,description=是否生成 GORM 方法：true 或 false"`
	Nullable     bool     `param:"name=nullable,required=false,default=true,description=是否生成 Null 包装类型"`
	Output       string   `param:"name=output,required=false,default=$FILE_dbenum.go,description=输出文件，支持 $FILE 和 $PACKAGE"`
}
