package basic

// Status 订单状态
// @DbEnum
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	// @DbRename(`done!`)
	StatusDone

	// StatusDefault 与 StatusPending 取值相同
	StatusDefault = StatusPending
)

// 与枚举无关的常量
const MaxRetry = 3
