package basic

// @DbEnum(pg_type=`Color`, value_style=`SCREAMING_SNAKE_CASE`, backends=`postgres|sqlite`, gorm=`false`, nullable=`false`)
type Color uint8

const (
	ColorLightRed Color = iota + 1
	ColorDarkBlue
	_
	ColorHTTPGreen // @DbRename("it's green")
)
