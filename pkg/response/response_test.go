package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

func render(t *testing.T, fn func(c *gin.Context)) (int, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"业务错误原样返回", apperrors.New(apperrors.ErrCodeInsufficientStock, "可售库存不足"), apperrors.ErrCodeInsufficientStock, "可售库存不足"},
		{"包装后的业务错误", fmt.Errorf("reserve: %w", apperrors.New(apperrors.ErrCodeRecordInactive, "库存记录已停用")), apperrors.ErrCodeRecordInactive, "库存记录已停用"},
		{"内部错误隐藏细节", apperrors.WithCode(apperrors.ErrCodeDatabaseError, errors.New("dial tcp: refused"), "查询库存失败"), apperrors.ErrCodeDatabaseError, "服务器内部错误"},
		{"并发冲突保留提示", apperrors.ErrConcurrencyConflict, apperrors.ErrCodeConcurrencyConflict, "系统繁忙，请稍后重试"},
		{"普通error视为内部错误", errors.New("boom"), apperrors.ErrCodeInternal, "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := render(t, func(c *gin.Context) { Error(c, tt.err) })
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestErrorWithData(t *testing.T) {
	_, resp := render(t, func(c *gin.Context) {
		ErrorWithData(c, apperrors.ErrCodeInsufficientStock, "可售库存不足", gin.H{"availableQuantity": 1})
	})
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
	assert.Equal(t, map[string]interface{}{"availableQuantity": float64(1)}, resp.Data)
}

func TestNewPageData(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pageSize int
		pages    int
	}{
		{"整除", 40, 20, 2},
		{"有余数", 41, 20, 3},
		{"空列表", 0, 20, 0},
		{"非法页大小", 3, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPageData([]int{}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.pages, p.TotalPages)
		})
	}
}
