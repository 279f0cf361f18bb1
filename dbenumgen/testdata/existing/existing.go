package existing

// LocalMapping 本包已有的映射类型
type LocalMapping struct{}

func (LocalMapping) PgTypeName() string { return "local_state" }

// @DbEnum(existing_type=`LocalMapping`)
type State int

const (
	StateOn State = iota
	StateOff
)

// @DbEnum(existing_type=`example.com/remote/ext.RemoteStatus`, backends=`postgres`)
type Remote int

const (
	RemoteA Remote = iota
	RemoteB
)

// @DbEnum(existing_type=`LocalMapping`, backends=`sqlite`)
type Ignored int

const (
	IgnoredX Ignored = iota
)
