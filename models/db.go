package models

import (
	"database/sql"
	"fmt"
	"time"

	"TimelineStudio-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitDB 打开 MySQL 连接并建表，返回 gorm 句柄。
// store.backend=file 时不调用。
func InitDB() (*gorm.DB, error) {
	if config.AppConfig == nil {
		return nil, fmt.Errorf("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("GORM 初始化失败: %w", err)
	}
	if err := gormDB.AutoMigrate(&ProjectDoc{}); err != nil {
		return nil, fmt.Errorf("建表失败: %w", err)
	}
	return gormDB, nil
}
