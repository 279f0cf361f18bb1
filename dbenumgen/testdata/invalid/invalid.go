package invalid

// @DbEnum
type NotEnum struct {
	ID int
}

// @DbEnum
type Ratio float64

const RatioHalf Ratio = 0.5

// @DbEnum
type Empty int

// @DbEnum
type Dup int

const (
	DupFooBar Dup = iota
	// @DbRename(`foo_bar`)
	DupOther
)

// @DbEnum(value_style=`Title Case`)
type BadStyle int

const BadStyleA BadStyle = 0

// @DbEnum(backends=`oracle`)
type BadBackend int

const BadBackendA BadBackend = 0

// @DbEnum(existing_type=`Missing`)
type NoMapping int

const NoMappingA NoMapping = 0

// @DbEnum
type BadRename int

const (
	// @DbRename()
	BadRenameA BadRename = iota
)

// @DbEnum
type Fine int

const FineA Fine = 0
