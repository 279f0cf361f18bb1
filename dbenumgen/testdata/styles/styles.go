package styles

// @DbEnum(value_style=`camelCase`, mapping=`KindSQL`, backends=`mysql`)
type Kind string

const (
	KindFooBar Kind = "foo_bar"
	KindBazQux Kind = "baz"
)

// @DbEnum(value_style=`verbatim`, prefix=`Lvl`, output=`$PACKAGE_levels`)
type Level int

const (
	LvlLow Level = iota
	LvlHigh
	Lvl // 去掉前缀后为空，保留原名
)

// @DbEnum(value_style=`kebab-case`, pg_type=`audit.event_type`)
type EventType int

const (
	EventTypeUserCreated EventType = iota
	EventTypeSHA256Computed
)
