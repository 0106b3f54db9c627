package failedevent

import (
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

var (
	// ErrNotFound 失败事件不存在
	ErrNotFound = apperrors.New(apperrors.ErrCodeFailedEventNotFound, "失败事件不存在")

	// ErrInvalidTransition 状态不允许此操作
	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidEventStatus, "事件状态不允许此操作")

	// ErrAlreadyClaimed 已被其他实例领取
	ErrAlreadyClaimed = apperrors.New(apperrors.ErrCodeConcurrencyConflict, "事件已被其他实例领取")

	// ErrStateChanged 写回时状态已被其他操作修改（如管理员取消）
	ErrStateChanged = apperrors.New(apperrors.ErrCodeConcurrencyConflict, "事件状态已被并发修改")
)
