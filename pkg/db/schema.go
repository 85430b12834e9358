// schema.go

package db

import (
	"database/sql"
	"fmt"
)

// 统一的数据库表结构定义，PostgreSQL与SQLite通用

// schemaStatements 创建所有表的SQL语句
var schemaStatements = []string{
	// 玩家表
	`CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color_r DOUBLE PRECISION NOT NULL DEFAULT 0.3,
    color_g DOUBLE PRECISION NOT NULL DEFAULT 0.6,
    color_b DOUBLE PRECISION NOT NULL DEFAULT 0.8,
    pos_x DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_z DOUBLE PRECISION NOT NULL DEFAULT 0,
    rotation DOUBLE PRECISION NOT NULL DEFAULT 0,
    mode TEXT NOT NULL DEFAULT 'boat',
    fish_count BIGINT NOT NULL DEFAULT 0,
    monster_kills BIGINT NOT NULL DEFAULT 0,
    money BIGINT NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT FALSE,
    last_update BIGINT NOT NULL DEFAULT 0
)`,
	// 岛屿表
	`CREATE TABLE IF NOT EXISTS islands (
    id TEXT PRIMARY KEY,
    pos_x DOUBLE PRECISION NOT NULL,
    pos_y DOUBLE PRECISION NOT NULL,
    pos_z DOUBLE PRECISION NOT NULL,
    radius DOUBLE PRECISION NOT NULL DEFAULT 50,
    type TEXT NOT NULL DEFAULT 'default',
    created_at BIGINT NOT NULL
)`,
	// 聊天消息表
	`CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    sender_id TEXT NOT NULL,
    sender_name TEXT NOT NULL,
    sender_color TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    message_type TEXT NOT NULL DEFAULT 'global',
    timestamp BIGINT NOT NULL
)`,
	// 背包表，三个集合以JSON文本保存
	`CREATE TABLE IF NOT EXISTS inventories (
    player_id TEXT PRIMARY KEY,
    fish TEXT NOT NULL DEFAULT '[]',
    treasures TEXT NOT NULL DEFAULT '[]',
    cargo TEXT NOT NULL DEFAULT '[]',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_players_active ON players(active)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_type_timestamp ON messages(message_type, timestamp DESC)`,
}

// dropStatements 按依赖顺序删除所有表
var dropStatements = []string{
	`DROP TABLE IF EXISTS inventories`,
	`DROP TABLE IF EXISTS messages`,
	`DROP TABLE IF EXISTS islands`,
	`DROP TABLE IF EXISTS players`,
}

// TableNames 返回创建的表名
func TableNames() []string {
	return []string{"players", "islands", "messages", "inventories"}
}

// InitAllTables 初始化所有数据库表
func InitAllTables(conn *sql.DB) error {
	return execAll(conn, schemaStatements)
}

// DropAllTables 删除所有表和数据
func DropAllTables(conn *sql.DB) error {
	return execAll(conn, dropStatements)
}

func execAll(conn *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("执行SQL失败: %w", err)
		}
	}
	return nil
}
