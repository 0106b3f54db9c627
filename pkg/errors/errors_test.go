package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WithCode(ErrCodeRedisError, cause, "检查黑名单失败")

	assert.Equal(t, "[50002] 检查黑名单失败: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[40001] 可售库存不足", New(ErrCodeInsufficientStock, "可售库存不足").Error())
}

func TestGetAppError(t *testing.T) {
	t.Run("从包装链中取出", func(t *testing.T) {
		wrapped := fmt.Errorf("reserve: %w", ErrTooManyRequests)
		assert.Same(t, ErrTooManyRequests, GetAppError(wrapped))
		assert.True(t, IsAppError(wrapped))
	})

	t.Run("普通错误转为内部错误", func(t *testing.T) {
		appErr := GetAppError(errors.New("boom"))
		assert.Equal(t, ErrCodeInternal, appErr.Code)
		assert.False(t, IsAppError(errors.New("boom")))
	})
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrInvalidParams))
	assert.True(t, IsClientError(New(ErrCodeInsufficientReserved, "预留库存不足")))
	assert.False(t, IsClientError(ErrDatabaseError))
	assert.False(t, IsClientError(errors.New("boom")))
	assert.False(t, IsClientError(nil))
}
