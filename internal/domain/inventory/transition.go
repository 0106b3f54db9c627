package inventory

// ChangeType 库存变动类型
// 同一个字符串值贯穿领域层、数据库列、消息体和HTTP响应
type ChangeType string

const (
	ChangeReserve ChangeType = "RESERVE" // 预留
	ChangeCommit  ChangeType = "COMMIT"  // 提交（成交）
	ChangeCancel  ChangeType = "CANCEL"  // 取消预留
	ChangeUpdate  ChangeType = "UPDATE"  // 盘点设置数量
	ChangeRestock ChangeType = "RESTOCK" // 入库/补货
)

// Valid 是否为已知的变动类型
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeReserve, ChangeCommit, ChangeCancel, ChangeUpdate, ChangeRestock:
		return true
	}
	return false
}

// Transition 一次成功的状态变更（变更前后快照）
// 每个Transition恰好对应一条领域事件
type Transition struct {
	Type     ChangeType
	Quantity int // 请求数量（UPDATE时为新的可售数量）
	Before   Record
	After    Record
}
