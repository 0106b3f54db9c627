package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record 门店库存记录（聚合根），主键为(sku, store_id)
//
// 字段语义：
//   - Quantity：可售数量，可以立即卖出
//   - ReservedQuantity：已预留未提交的数量（下单未支付）
//   - 实物库存 = Quantity + ReservedQuantity
//
// 不变量：Quantity >= 0 且 ReservedQuantity >= 0
// 并发控制：Version乐观锁，每次写回版本+1，不使用任何进程内锁
type Record struct {
	SKU              string          `gorm:"primaryKey;size:64;comment:商品SKU"`
	StoreID          string          `gorm:"primaryKey;size:64;comment:门店编号"`
	Name             string          `gorm:"size:200;not null;comment:商品名称"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:售价"`
	Quantity         int             `gorm:"not null;comment:可售数量"`
	ReservedQuantity int             `gorm:"not null;comment:预留数量"`
	Version          int64           `gorm:"not null;comment:乐观锁版本号"`
	Active           bool            `gorm:"not null;index;comment:是否启用"`
	CreatedAt        time.Time       `gorm:"comment:创建时间"`
	UpdatedAt        time.Time       `gorm:"comment:更新时间"`
}

// TableName 表名
func (Record) TableName() string {
	return "inventory_records"
}

// NewRecord 首次入库创建库存记录
// 初始版本为1，入库事件因此带有可比较的版本号
func NewRecord(sku, storeID, name string, price decimal.Decimal, quantity int, now time.Time) (*Record, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if storeID == "" {
		return nil, ErrInvalidStore
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	return &Record{
		SKU:       sku,
		StoreID:   storeID,
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		Version:   1,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PhysicalQuantity 实物库存（可售+预留）
func (r *Record) PhysicalQuantity() int {
	return r.Quantity + r.ReservedQuantity
}

// HasAvailableQuantity 是否有n件可售库存
func (r *Record) HasAvailableQuantity(n int) bool {
	return n > 0 && r.Quantity >= n
}

// Reserve 预留：可售 -> 预留，实物库存不变
func (r *Record) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if !r.Active {
		return ErrRecordInactive
	}
	if r.Quantity < qty {
		return ErrInsufficientStock
	}

	r.Quantity -= qty
	r.ReservedQuantity += qty
	return nil
}

// Cancel 取消预留：预留 -> 可售，实物库存不变
// 停用的记录仍允许取消，已预留的库存需要能释放
func (r *Record) Cancel(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.ReservedQuantity < qty {
		return ErrInsufficientReserved
	}

	r.Quantity += qty
	r.ReservedQuantity -= qty
	return nil
}

// Commit 提交预留（成交）：只扣预留，实物库存永久减少
func (r *Record) Commit(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.ReservedQuantity < qty {
		return ErrInsufficientReserved
	}

	r.ReservedQuantity -= qty
	return nil
}

// SetQuantity 盘点/补货直接设置可售数量，不影响预留
func (r *Record) SetQuantity(newQty int) error {
	if newQty < 0 {
		return ErrNegativeQuantity
	}
	if !r.Active {
		return ErrRecordInactive
	}

	r.Quantity = newQty
	return nil
}

// Restock 补货：可售数量增加qty
func (r *Record) Restock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if !r.Active {
		return ErrRecordInactive
	}

	r.Quantity += qty
	return nil
}

// Deactivate 停用（软删除，记录永不物理删除）
func (r *Record) Deactivate() {
	r.Active = false
}
