// Package database 管理可选的 MySQL 与 Redis 连接。
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pdf-qa-go/pkg/log"
)

// DB 是问答归档使用的连接，未启用 MySQL 时为 nil。
var DB *gorm.DB

// InitMySQL 打开 MySQL 连接并配置连接池。gorm 自身的 SQL 日志只输出警告以上级别。
func InitMySQL(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("MySQL 不可用: %w", err)
	}

	DB = db
	log.Info("MySQL 连接成功，问答归档已启用")
	return nil
}
