package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/stockhub/internal/domain/central"
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/infrastructure/config"
)

// Schema 节点需要迁移的表
type Schema int

const (
	// SchemaStore 门店节点：库存记录+失败事件
	SchemaStore Schema = iota
	// SchemaCentral 中心节点：台账+门店投影+汇总
	SchemaCentral
)

// NewDB 创建数据库连接
// 1. 连接池参数来自配置
// 2. debug模式打印SQL
// 3. TranslateError开启后唯一索引冲突统一为gorm.ErrDuplicatedKey
// 4. 按节点类型自动迁移表结构
func NewDB(cfg *config.Config, schema Schema, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info("数据库连接成功", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	// 生产环境应使用版本化的迁移脚本
	if err := AutoMigrate(db, schema); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

// AutoMigrate 按节点类型迁移表结构
func AutoMigrate(db *gorm.DB, schema Schema) error {
	switch schema {
	case SchemaCentral:
		return db.AutoMigrate(
			&central.InventoryEvent{},
			&central.StoreInventory{},
			&central.GlobalInventory{},
		)
	default:
		return db.AutoMigrate(
			&inventory.Record{},
			&failedevent.FailedEvent{},
		)
	}
}
