package db

import (
	"database/sql"
	"fmt"

	"github.com/jacl-coder/SeaStorm-Server/config"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

var (
	// DB 全局数据库连接实例
	DB *sql.DB
	// Dialect 当前连接使用的SQL方言
	Dialect = config.DriverPostgres
)

// Init 按配置选择数据库驱动并建立连接
func Init() error {
	switch config.GlobalConfig.Database.Driver {
	case config.DriverSQLite:
		return InitSQLite()
	default:
		return InitPostgres()
	}
}

// InitPostgres 初始化PostgreSQL连接
func InitPostgres() error {
	dsn := config.GlobalConfig.Database.GetDSN()

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 测试连接
	if err = conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("数据库Ping失败: %w", err)
	}

	DB = conn
	Dialect = config.DriverPostgres
	log.Info("成功连接到PostgreSQL数据库")
	return nil
}

// Close 关闭数据库和Redis连接
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		log.Info("数据库连接已关闭")
	}
	closeRedis()
}
