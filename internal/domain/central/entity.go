package central

import (
	"time"

	"github.com/xiebiao/stockhub/internal/domain/event"
)

// ProcessingStatus 台账事件处理状态
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "PENDING"   // 已接收，尚未应用
	ProcessingProcessed ProcessingStatus = "PROCESSED" // 已应用到投影
	ProcessingFailed    ProcessingStatus = "FAILED"    // 校验失败或应用失败
	ProcessingIgnored   ProcessingStatus = "IGNORED"   // 重复或已被更新的事件取代
)

// Valid 是否为已知状态
func (s ProcessingStatus) Valid() bool {
	switch s {
	case ProcessingPending, ProcessingProcessed, ProcessingFailed, ProcessingIgnored:
		return true
	}
	return false
}

// InventoryEvent 中心台账（只追加），审计与对账依据
type InventoryEvent struct {
	ID               uint             `gorm:"primaryKey"`
	EventID          string           `gorm:"uniqueIndex;size:64;not null;comment:领域事件ID"`
	SKU              string           `gorm:"size:64;not null;index:idx_inventory_events_sku_store,priority:1;comment:商品SKU"`
	StoreID          string           `gorm:"size:64;not null;index:idx_inventory_events_sku_store,priority:2;comment:门店编号"`
	Type             event.Type       `gorm:"size:16;not null;comment:事件类型"`
	Payload          []byte           `gorm:"type:blob;comment:原始消息体"`
	ProcessingStatus ProcessingStatus `gorm:"size:16;not null;index;comment:处理状态"`
	ErrorMessage     string           `gorm:"size:500;comment:失败原因"`
	CreatedAt        time.Time        `gorm:"index;comment:接收时间"`
	ProcessedAt      *time.Time       `gorm:"comment:处理完成时间"`
}

// TableName 表名
func (InventoryEvent) TableName() string {
	return "inventory_events"
}

// StoreInventory 门店库存投影，主键(sku, store_id)
// Available对应门店可售数量，Reserved对应门店预留数量，Quantity为实物库存
type StoreInventory struct {
	SKU            string    `gorm:"primaryKey;size:64;comment:商品SKU"`
	StoreID        string    `gorm:"primaryKey;size:64;index;comment:门店编号"`
	Quantity       int       `gorm:"not null;comment:实物库存"`
	Reserved       int       `gorm:"not null;comment:预留数量"`
	Available      int       `gorm:"not null;comment:可售数量"`
	SourceVersion  int64     `gorm:"not null;comment:已应用的门店记录版本"`
	LastEventID    string    `gorm:"size:64;comment:最后应用的事件ID"`
	LastSyncTime   time.Time `gorm:"comment:最后同步时间"`
	IsSynchronized bool      `gorm:"not null;index;comment:是否已同步"`
	Active         bool      `gorm:"not null;comment:门店记录是否启用"`
	Version        int64     `gorm:"not null;comment:乐观锁版本号"`
	UpdatedAt      time.Time `gorm:"comment:更新时间"`
}

// TableName 表名
func (StoreInventory) TableName() string {
	return "store_inventories"
}

// Supersedes 事件是否比投影当前状态更旧
// 投影还没有版本时一律应用；已有版本后，无版本信息(RecordVersion=0)的事件视为旧事件
func (s *StoreInventory) Supersedes(evt *event.DomainEvent) bool {
	return s.SourceVersion > 0 && evt.RecordVersion <= s.SourceVersion
}

// Apply 用事件携带的绝对值覆盖投影（不做增量累加）
func (s *StoreInventory) Apply(evt *event.DomainEvent, now time.Time) {
	s.SKU = evt.SKU
	s.StoreID = evt.StoreID
	s.Available = evt.NewQuantity
	s.Reserved = evt.ReservedQuantity
	s.Quantity = evt.NewQuantity + evt.ReservedQuantity
	s.Active = evt.Details["active"] != "false"
	if evt.RecordVersion > s.SourceVersion {
		s.SourceVersion = evt.RecordVersion
	}
	s.LastEventID = evt.EventID
	s.LastSyncTime = evt.Timestamp
	if s.LastSyncTime.IsZero() {
		s.LastSyncTime = now
	}
	s.IsSynchronized = true
	s.UpdatedAt = now
}

// GlobalInventory 跨门店汇总
type GlobalInventory struct {
	SKU        string    `gorm:"primaryKey;size:64;comment:商品SKU"`
	Quantity   int       `gorm:"not null;comment:实物库存合计"`
	Reserved   int       `gorm:"not null;comment:预留合计"`
	Available  int       `gorm:"not null;index;comment:可售合计"`
	StoreCount int       `gorm:"not null;comment:门店数"`
	Version    int64     `gorm:"not null;comment:乐观锁版本号"`
	Active     bool      `gorm:"not null;comment:是否启用"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

// TableName 表名
func (GlobalInventory) TableName() string {
	return "global_inventories"
}

// Recompute 对该SKU所有门店投影重新求和
// 重复或乱序投递下只要门店投影正确，汇总就正确。任一门店启用即视为启用
func (g *GlobalInventory) Recompute(sku string, stores []*StoreInventory, now time.Time) {
	g.SKU = sku
	g.Quantity, g.Reserved, g.Available = 0, 0, 0
	g.Active = false
	for _, s := range stores {
		g.Quantity += s.Quantity
		g.Reserved += s.Reserved
		g.Available += s.Available
		g.Active = g.Active || s.Active
	}
	g.StoreCount = len(stores)
	g.UpdatedAt = now
}

// StoreStats 门店维度统计
type StoreStats struct {
	StoreID             string    `json:"storeId"`
	SKUCount            int64     `json:"skuCount"`
	TotalQuantity       int64     `json:"totalQuantity"`
	TotalReserved       int64     `json:"totalReserved"`
	TotalAvailable      int64     `json:"totalAvailable"`
	UnsynchronizedCount int64     `json:"unsynchronizedCount"`
	LastSyncTime        time.Time `json:"lastSyncTime"`
}
