package plugin

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cast"
)

// ParamDef 注解参数的说明，来自参数结构体字段的 param tag
//
//	PgType string `param:"name=pg_type,default=,description=Postgres 枚举类型名"`
type ParamDef struct {
	Name        string
	Required    bool
	Default     string
	Description string
}

// ParamDefs 读取参数结构体（值或指针）上的全部 param tag
func ParamDefs(proto any) []ParamDef {
	typ := reflect.TypeOf(proto)
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	var defs []ParamDef
	for i := range typ.NumField() {
		if def, ok := fieldDef(typ.Field(i)); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

func fieldDef(field reflect.StructField) (ParamDef, bool) {
	tag, ok := field.Tag.Lookup("param")
	if !ok || !field.IsExported() {
		return ParamDef{}, false
	}
	kv := splitTag(tag)
	def := ParamDef{
		Name:        kv["name"],
		Required:    kv["required"] == "true",
		Default:     kv["default"],
		Description: kv["description"],
	}
	return def, def.Name != ""
}

// splitTag 拆分 key=value,key=value，反斜杠转义下一个字符
func splitTag(tag string) map[string]string {
	out := make(map[string]string)
	var key, val strings.Builder
	cur := &key
	escaped := false

	flush := func() {
		if k := strings.TrimSpace(key.String()); k != "" {
			out[k] = val.String()
		}
		key.Reset()
		val.Reset()
		cur = &key
	}

	for _, r := range tag {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '=' && cur == &key:
			cur = &val
		case r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// Decode 把注解参数写入 dst 指向的结构体
// 注解中没有出现的参数取 tag 里的 default
func Decode(ann *Annotation, dst any) error {
	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Pointer || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return errors.Errorf("Decode 需要结构体指针，得到 %T", dst)
	}
	val = val.Elem()

	for i := range val.NumField() {
		def, ok := fieldDef(val.Type().Field(i))
		if !ok {
			continue
		}
		raw, set := ann.Lookup(def.Name)
		if !set {
			if def.Required {
				return errors.Errorf("缺少必填参数 %s", def.Name)
			}
			raw = def.Default
		}
		if err := assign(val.Field(i), raw); err != nil {
			return errors.Wrapf(err, "参数 %s", def.Name)
		}
	}
	return nil
}

// assign 支持 string、bool 和 []string（| 分隔）
func assign(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b := false
		if raw != "" {
			var err error
			if b, err = cast.ToBoolE(raw); err != nil {
				return err
			}
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("不支持的类型 %s", field.Type())
		}
		var items []string
		for _, s := range strings.Split(raw, "|") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items).Convert(field.Type()))
	default:
		return errors.Errorf("不支持的类型 %s", field.Type())
	}
	return nil
}
