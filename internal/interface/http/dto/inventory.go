package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
)

// TimeLayout 接口返回的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// CreateInventoryRequest 首次入库请求
type CreateInventoryRequest struct {
	SKU      string          `json:"sku" binding:"required,max=64" example:"SKU-1001"`
	StoreID  string          `json:"storeId" binding:"required,max=64" example:"store-sh-01"`
	Name     string          `json:"name" binding:"required,max=200" example:"Go语言实战"`
	Price    decimal.Decimal `json:"price" swaggertype:"string" example:"59.00"`
	Quantity int             `json:"quantity" binding:"min=0" example:"100"`
}

// QuantityRequest 预留/确认/取消/补货/盘点请求
// 使用指针区分"未传"和0：盘点允许设置为0
type QuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required" example:"2"`
}

// ListInventoryRequest 门店库存列表请求
type ListInventoryRequest struct {
	Page       int  `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	ActiveOnly bool `form:"active_only" example:"true"`
}

// InventoryResponse 库存记录
type InventoryResponse struct {
	SKU               string `json:"sku" example:"SKU-1001"`
	StoreID           string `json:"storeId" example:"store-sh-01"`
	Name              string `json:"name" example:"Go语言实战"`
	Price             string `json:"price" example:"59.00"`
	Quantity          int    `json:"quantity" example:"98"`
	ReservedQuantity  int    `json:"reservedQuantity" example:"2"`
	AvailableQuantity int    `json:"availableQuantity" example:"98"`
	Version           int64  `json:"version" example:"3"`
	Active            bool   `json:"active" example:"true"`
	CreatedAt         string `json:"createdAt" example:"2024-01-15 10:30:00"`
	UpdatedAt         string `json:"updatedAt" example:"2024-01-15 10:30:00"`
}

// NewInventoryResponse 领域对象转HTTP响应
func NewInventoryResponse(r *inventory.Record) *InventoryResponse {
	return &InventoryResponse{
		SKU:               r.SKU,
		StoreID:           r.StoreID,
		Name:              r.Name,
		Price:             r.Price.StringFixed(2),
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
		AvailableQuantity: r.Quantity,
		Version:           r.Version,
		Active:            r.Active,
		CreatedAt:         FormatTime(r.CreatedAt),
		UpdatedAt:         FormatTime(r.UpdatedAt),
	}
}

// FormatTime 零值返回空串
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}

// FormatTimePtr 可空时间
func FormatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}
