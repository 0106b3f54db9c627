package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Run("写入文件的JSON日志", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		l.Info("预留成功", zap.String("sku", "SKU-1"))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"sku":"SKU-1"`)
		assert.Contains(t, string(data), `"msg":"预留成功"`)
	})

	t.Run("级别过滤", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(Config{Level: "warn", Format: "json", Output: path})
		require.NoError(t, err)

		l.Info("不会输出")
		l.Warn("会输出")
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "不会输出")
		assert.Contains(t, string(data), "会输出")
	})

	t.Run("非法配置", func(t *testing.T) {
		_, err := New(Config{Level: "verbose"})
		assert.Error(t, err)

		_, err = New(Config{Format: "xml"})
		assert.Error(t, err)
	})
}
