package db

import (
	"database/sql"
	"fmt"

	"github.com/jacl-coder/SeaStorm-Server/config"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// OpenSQLite 打开SQLite数据库，path可以是":memory:"
func OpenSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开SQLite失败: %w", err)
	}
	// SQLite同一时间只允许一个写者，内存库每个连接也是独立的
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("设置SQLite参数失败 %q: %w", p, err)
		}
	}
	return conn, nil
}

// InitSQLite 初始化SQLite连接
func InitSQLite() error {
	path := config.GlobalConfig.Database.SQLitePath
	conn, err := OpenSQLite(path)
	if err != nil {
		return err
	}

	DB = conn
	Dialect = config.DriverSQLite
	log.WithField("path", path).Info("成功打开SQLite数据库")
	return nil
}
