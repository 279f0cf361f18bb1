package g2

// Status 文件夹是 gg，但 package 声明是 g2
type Status struct{}

func (Status) PgTypeName() string { return "status" }
