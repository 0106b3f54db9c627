package event

import (
	"encoding/json"
	"time"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
)

// Type 事件类型，与库存变动类型是同一个类型
type Type = inventory.ChangeType

const (
	TypeReserve = inventory.ChangeReserve
	TypeCommit  = inventory.ChangeCommit
	TypeCancel  = inventory.ChangeCancel
	TypeUpdate  = inventory.ChangeUpdate
	TypeRestock = inventory.ChangeRestock
)

// DomainEvent 库存领域事件（不可变）
// 门店节点每次成功变更产生一条，中心节点按EventID幂等消费
type DomainEvent struct {
	EventID          string            `json:"eventId"`
	SKU              string            `json:"sku"`
	StoreID          string            `json:"storeId"`
	Type             Type              `json:"type"`
	PreviousQuantity int               `json:"previousQuantity"`
	NewQuantity      int               `json:"newQuantity"`
	ReservedQuantity int               `json:"reservedQuantity"`
	RecordVersion    int64             `json:"recordVersion"`
	Timestamp        time.Time         `json:"timestamp"`
	Details          map[string]string `json:"details,omitempty"`
}

// PartitionKey 分区键：同一门店的事件进入同一分区，保证门店内有序
func (e *DomainEvent) PartitionKey() string {
	return e.StoreID
}

// Marshal 序列化为消息体
func (e *DomainEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal 从消息体反序列化
func Unmarshal(data []byte) (*DomainEvent, error) {
	var e DomainEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
