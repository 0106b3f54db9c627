package dto

import (
	"time"

	"github.com/xiebiao/stockhub/internal/domain/central"
)

// PageRequest 通用分页参数
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// ToPage 转为仓储分页参数
func (r PageRequest) ToPage() central.Page {
	p := central.Page{Page: r.Page, PageSize: r.PageSize}
	p.Normalize()
	return p
}

// LowStockRequest 低库存查询
type LowStockRequest struct {
	PageRequest
	Threshold *int `form:"threshold" binding:"required" example:"10"`
}

// ListEventsRequest 台账查询
type ListEventsRequest struct {
	PageRequest
	Status  string    `form:"status" binding:"omitempty,oneof=PENDING PROCESSED FAILED IGNORED" example:"FAILED"`
	SKU     string    `form:"sku" example:"SKU-1001"`
	StoreID string    `form:"storeId" example:"store-sh-01"`
	From    time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" example:"2024-01-01T00:00:00Z"`
	To      time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" example:"2024-02-01T00:00:00Z"`
}

// ToFilter 转为台账过滤条件
func (r ListEventsRequest) ToFilter() central.EventFilter {
	return central.EventFilter{
		Status:  central.ProcessingStatus(r.Status),
		SKU:     r.SKU,
		StoreID: r.StoreID,
		From:    r.From,
		To:      r.To,
		Page:    r.ToPage(),
	}
}

// StoreInventoryResponse 门店投影
type StoreInventoryResponse struct {
	SKU            string `json:"sku" example:"SKU-1001"`
	StoreID        string `json:"storeId" example:"store-sh-01"`
	Quantity       int    `json:"quantity" example:"98"`
	Reserved       int    `json:"reserved" example:"2"`
	Available      int    `json:"available" example:"98"`
	SourceVersion  int64  `json:"sourceVersion" example:"3"`
	LastEventID    string `json:"lastEventId" example:"4f1c2a9e-5d7b-4c1e-9a0f-2b3c4d5e6f70"`
	LastSyncTime   string `json:"lastSyncTime" example:"2024-01-15 10:30:00"`
	IsSynchronized bool   `json:"isSynchronized" example:"true"`
	Active         bool   `json:"active" example:"true"`
}

// NewStoreInventoryResponse 领域对象转HTTP响应
func NewStoreInventoryResponse(s *central.StoreInventory) *StoreInventoryResponse {
	return &StoreInventoryResponse{
		SKU:            s.SKU,
		StoreID:        s.StoreID,
		Quantity:       s.Quantity,
		Reserved:       s.Reserved,
		Available:      s.Available,
		SourceVersion:  s.SourceVersion,
		LastEventID:    s.LastEventID,
		LastSyncTime:   FormatTime(s.LastSyncTime),
		IsSynchronized: s.IsSynchronized,
		Active:         s.Active,
	}
}

// NewStoreInventoryList 批量转换
func NewStoreInventoryList(items []*central.StoreInventory) []*StoreInventoryResponse {
	list := make([]*StoreInventoryResponse, 0, len(items))
	for _, s := range items {
		list = append(list, NewStoreInventoryResponse(s))
	}
	return list
}

// GlobalInventoryResponse 跨门店汇总
type GlobalInventoryResponse struct {
	SKU        string `json:"sku" example:"SKU-1001"`
	Quantity   int    `json:"quantity" example:"240"`
	Reserved   int    `json:"reserved" example:"6"`
	Available  int    `json:"available" example:"240"`
	StoreCount int    `json:"storeCount" example:"3"`
	Active     bool   `json:"active" example:"true"`
	UpdatedAt  string `json:"updatedAt" example:"2024-01-15 10:30:00"`
}

// NewGlobalInventoryResponse 领域对象转HTTP响应
func NewGlobalInventoryResponse(g *central.GlobalInventory) *GlobalInventoryResponse {
	return &GlobalInventoryResponse{
		SKU:        g.SKU,
		Quantity:   g.Quantity,
		Reserved:   g.Reserved,
		Available:  g.Available,
		StoreCount: g.StoreCount,
		Active:     g.Active,
		UpdatedAt:  FormatTime(g.UpdatedAt),
	}
}

// NewGlobalInventoryList 批量转换
func NewGlobalInventoryList(items []*central.GlobalInventory) []*GlobalInventoryResponse {
	list := make([]*GlobalInventoryResponse, 0, len(items))
	for _, g := range items {
		list = append(list, NewGlobalInventoryResponse(g))
	}
	return list
}

// SKUViewResponse 单个SKU的汇总和门店明细
type SKUViewResponse struct {
	Global *GlobalInventoryResponse  `json:"global"`
	Stores []*StoreInventoryResponse `json:"stores"`
}

// LedgerEventResponse 台账事件
type LedgerEventResponse struct {
	ID               uint   `json:"id" example:"1"`
	EventID          string `json:"eventId" example:"4f1c2a9e-5d7b-4c1e-9a0f-2b3c4d5e6f70"`
	SKU              string `json:"sku" example:"SKU-1001"`
	StoreID          string `json:"storeId" example:"store-sh-01"`
	Type             string `json:"type" example:"RESERVE"`
	ProcessingStatus string `json:"processingStatus" example:"PROCESSED"`
	ErrorMessage     string `json:"errorMessage" example:""`
	CreatedAt        string `json:"createdAt" example:"2024-01-15 10:30:00"`
	ProcessedAt      string `json:"processedAt" example:"2024-01-15 10:30:01"`
}

// NewLedgerEventList 批量转换
func NewLedgerEventList(items []*central.InventoryEvent) []*LedgerEventResponse {
	list := make([]*LedgerEventResponse, 0, len(items))
	for _, e := range items {
		list = append(list, &LedgerEventResponse{
			ID:               e.ID,
			EventID:          e.EventID,
			SKU:              e.SKU,
			StoreID:          e.StoreID,
			Type:             string(e.Type),
			ProcessingStatus: string(e.ProcessingStatus),
			ErrorMessage:     e.ErrorMessage,
			CreatedAt:        FormatTime(e.CreatedAt),
			ProcessedAt:      FormatTimePtr(e.ProcessedAt),
		})
	}
	return list
}

// IngestResponse HTTP入库结果
type IngestResponse struct {
	EventID string `json:"eventId" example:"4f1c2a9e-5d7b-4c1e-9a0f-2b3c4d5e6f70"`
	Outcome string `json:"outcome" example:"processed"`
}

// LogoutResponse 吊销结果
type LogoutResponse struct {
	TokenID string `json:"tokenId" example:"0b7c8e1a-2f3d-4a5b-8c9d-0e1f2a3b4c5d"`
}
