package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("未配置的字段使用默认值", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 8081
  node_id: store-042
transport:
  driver: kafka
`)
		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, "store-042", cfg.Server.NodeID)
		assert.Equal(t, "kafka", cfg.Transport.Driver)
		assert.Equal(t, "inventory.events", cfg.Transport.Channel)

		assert.Equal(t, 5, cfg.Publisher.MaxAttempts)
		assert.Equal(t, time.Second, cfg.Publisher.InitialInterval)
		assert.Equal(t, 30*time.Second, cfg.Publisher.MaxInterval)

		assert.Equal(t, 5, cfg.Concurrency.MaxAttempts)
		assert.Equal(t, 100*time.Millisecond, cfg.Concurrency.InitialInterval)
		assert.Equal(t, 2*time.Second, cfg.Concurrency.MaxInterval)

		assert.Equal(t, 10, cfg.Retry.MaxRetries)
		assert.Equal(t, 24*time.Hour, cfg.Retry.MaxDelay)
	})

	t.Run("环境变量覆盖配置文件", func(t *testing.T) {
		t.Setenv("STOCKHUB_SERVER_PORT", "9999")
		t.Setenv("STOCKHUB_RETRY_MAX_RETRIES", "3")

		cfg, err := LoadFrom(writeConfig(t, "server:\n  port: 8081\n"))
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, 3, cfg.Retry.MaxRetries)
	})

	t.Run("非法传输驱动", func(t *testing.T) {
		_, err := LoadFrom(writeConfig(t, "transport:\n  driver: nats\n"))
		assert.Error(t, err)
	})

	t.Run("生产环境必须修改JWT密钥", func(t *testing.T) {
		_, err := LoadFrom(writeConfig(t, "server:\n  mode: release\n"))
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 3306, User: "u", Password: "p", DBName: "stockhub",
		Charset: "utf8mb4", ParseTime: true, Loc: "Asia/Shanghai",
	}
	assert.Equal(t, "u:p@tcp(db:3306)/stockhub?charset=utf8mb4&parseTime=true&loc=Asia%2FShanghai", d.DSN())
}

func TestBackoffConfig_Policy(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	p := cfg.Concurrency.Policy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 2*time.Second, p.MaxInterval)
	assert.Equal(t, 0.5, p.RandomizationFactor)

	assert.Equal(t, 30*time.Second, cfg.Publisher.Policy().MaxInterval)
}
