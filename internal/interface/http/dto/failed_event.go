package dto

import (
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
)

// ListFailedEventsRequest 失败事件列表请求
type ListFailedEventsRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING SUCCEEDED FAILED CANCELLED" example:"PENDING"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// PurgeRequest 清理请求
type PurgeRequest struct {
	OlderThanDays int `form:"olderThanDays" example:"30"`
}

// PurgeResponse 清理结果
type PurgeResponse struct {
	Deleted int64 `json:"deleted" example:"12"`
}

// FailedEventResponse 失败事件
// 不返回Payload，排查时直接查库
type FailedEventResponse struct {
	ID           uint   `json:"id" example:"1"`
	EventID      string `json:"eventId" example:"4f1c2a9e-5d7b-4c1e-9a0f-2b3c4d5e6f70"`
	EventType    string `json:"eventType" example:"RESERVE"`
	Destination  string `json:"destination" example:"inventory.events"`
	PartitionKey string `json:"partitionKey" example:"store-sh-01"`
	Status       string `json:"status" example:"PENDING"`
	RetryCount   int    `json:"retryCount" example:"2"`
	MaxRetries   int    `json:"maxRetries" example:"10"`
	LastError    string `json:"lastError" example:"dial tcp: connection refused"`
	CreatedAt    string `json:"createdAt" example:"2024-01-15 10:30:00"`
	LastRetryAt  string `json:"lastRetryAt" example:"2024-01-15 10:34:00"`
	NextRetryAt  string `json:"nextRetryAt" example:"2024-01-15 10:38:00"`
}

// NewFailedEventResponse 领域对象转HTTP响应
func NewFailedEventResponse(fe *failedevent.FailedEvent) *FailedEventResponse {
	return &FailedEventResponse{
		ID:           fe.ID,
		EventID:      fe.EventID,
		EventType:    fe.EventType,
		Destination:  fe.Destination,
		PartitionKey: fe.PartitionKey,
		Status:       string(fe.Status),
		RetryCount:   fe.RetryCount,
		MaxRetries:   fe.MaxRetries,
		LastError:    fe.LastError,
		CreatedAt:    FormatTime(fe.CreatedAt),
		LastRetryAt:  FormatTimePtr(fe.LastRetryAt),
		NextRetryAt:  FormatTimePtr(fe.NextRetryAt),
	}
}

// FailedEventListResponse 失败事件分页，附带各状态数量
type FailedEventListResponse struct {
	List       []*FailedEventResponse `json:"list"`
	Total      int64                  `json:"total" example:"35"`
	Page       int                    `json:"page" example:"1"`
	PageSize   int                    `json:"page_size" example:"20"`
	TotalPages int                    `json:"total_pages" example:"2"`
	Counts     map[string]int64       `json:"counts"`
}
