// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/auth"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	"github.com/jacl-coder/SeaStorm-Server/pkg/db"
	log "github.com/sirupsen/logrus"
)

// 默认岛屿布局
var seedIslands = []models.Island{
	{Position: models.Vector3{X: 0, Y: 0, Z: 0}, Radius: 80, Type: "harbor"},
	{Position: models.Vector3{X: 400, Y: 0, Z: -250}, Radius: models.DefaultIslandRadius, Type: models.DefaultIslandType},
	{Position: models.Vector3{X: -350, Y: 0, Z: 300}, Radius: models.DefaultIslandRadius, Type: models.DefaultIslandType},
	{Position: models.Vector3{X: 650, Y: 0, Z: 500}, Radius: 30, Type: "reef"},
}

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	action := flag.String("action", "help", "操作类型: init, reset, seed, token, help")
	user := flag.String("user", "", "token操作的用户ID")
	ttl := flag.Duration("ttl", 24*time.Hour, "token有效期")
	flag.Parse()

	if *action == "help" {
		showHelp()
		return
	}

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if *action == "token" {
		issueToken(*user, *ttl)
		return
	}

	// 初始化数据库连接
	if err := db.Init(); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer db.Close()

	switch *action {
	case "init":
		initDatabase()
	case "reset":
		resetDatabase()
		initDatabase()
	case "seed":
		initDatabase()
		seedDatabase()
	default:
		log.Fatalf("未知操作: %s", *action)
	}
}

// showHelp 显示帮助信息
func showHelp() {
	fmt.Println("SeaStorm 数据库管理工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  go run ./cmd/dbtool -action=<操作> [-config=<配置文件>]")
	fmt.Println()
	fmt.Println("操作:")
	fmt.Println("  init   - 创建表结构")
	fmt.Println("  reset  - 删除所有表后重新创建")
	fmt.Println("  seed   - 写入默认岛屿")
	fmt.Println("  token  - 签发测试用JWT (-user=<用户ID> [-ttl=24h])")
	fmt.Println("  help   - 显示此帮助信息")
}

func initDatabase() {
	if err := db.InitAllTables(db.DB); err != nil {
		log.Fatalf("初始化数据库表失败: %v", err)
	}
	log.WithField("tables", strings.Join(db.TableNames(), ", ")).Info("数据库初始化完成")
}

func resetDatabase() {
	log.Warn("正在删除所有表和数据")
	if err := db.DropAllTables(db.DB); err != nil {
		log.Fatalf("重置数据库失败: %v", err)
	}
}

// seedDatabase 已有岛屿时不再写入
func seedDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := store.NewSQLStore(db.DB, db.Dialect)
	existing, err := s.ListIslands(ctx)
	if err != nil {
		log.Fatalf("查询岛屿失败: %v", err)
	}
	if len(existing) > 0 {
		log.WithField("count", len(existing)).Info("岛屿已存在，跳过")
		return
	}

	now := time.Now().UTC()
	for _, is := range seedIslands {
		is.ID = uuid.NewString()
		is.CreatedAt = now
		if err := s.CreateIsland(ctx, is); err != nil {
			log.Fatalf("创建岛屿失败: %v", err)
		}
		log.WithFields(log.Fields{"id": is.ID, "type": is.Type}).Info("已创建岛屿")
	}
}

func issueToken(user string, ttl time.Duration) {
	if user == "" {
		log.Fatal("token操作需要-user参数")
	}
	ac := config.GlobalConfig.Auth
	if ac.Mode != config.AuthModeJWT {
		log.Fatalf("当前验证模式为%s，无法签发JWT", ac.Mode)
	}
	token, err := auth.NewJWTVerifier(ac.JWTSecret, ac.Issuer, ac.Audience).Issue(user, ttl)
	if err != nil {
		log.Fatalf("签发token失败: %v", err)
	}
	fmt.Println(token)
}
