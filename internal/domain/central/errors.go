package central

import (
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

var (
	// ErrInventoryNotFound 中心库存不存在
	ErrInventoryNotFound = apperrors.New(apperrors.ErrCodeInventoryNotFound, "中心库存不存在")

	// ErrEventNotFound 台账事件不存在
	ErrEventNotFound = apperrors.New(apperrors.ErrCodeNotFound, "事件不存在")

	// ErrDuplicateEvent 台账中已存在该事件
	ErrDuplicateEvent = apperrors.New(apperrors.ErrCodeDuplicateEntry, "事件已存在")

	// ErrInvalidEvent 事件内容不合法（不可重试）
	ErrInvalidEvent = apperrors.New(apperrors.ErrCodeInvalidParams, "事件内容不合法")

	// ErrVersionConflict 投影版本冲突（内部错误，会被自动重试）
	ErrVersionConflict = apperrors.New(apperrors.ErrCodeConcurrencyConflict, "投影版本冲突")

	// ErrInvalidThreshold 阈值不合法
	ErrInvalidThreshold = apperrors.New(apperrors.ErrCodeInvalidParams, "阈值不能为负数")

	// ErrInvalidRetention 保留天数不合法
	ErrInvalidRetention = apperrors.New(apperrors.ErrCodeInvalidParams, "保留天数必须大于0")
)
