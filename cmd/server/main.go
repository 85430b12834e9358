// main.go

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/auth"
	"github.com/jacl-coder/SeaStorm-Server/internal/chat"
	"github.com/jacl-coder/SeaStorm-Server/internal/game"
	"github.com/jacl-coder/SeaStorm-Server/internal/gateway"
	"github.com/jacl-coder/SeaStorm-Server/internal/inventory"
	"github.com/jacl-coder/SeaStorm-Server/internal/journal"
	"github.com/jacl-coder/SeaStorm-Server/internal/leaderboard"
	"github.com/jacl-coder/SeaStorm-Server/internal/protocol"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	"github.com/jacl-coder/SeaStorm-Server/internal/throttle"
	"github.com/jacl-coder/SeaStorm-Server/internal/world"
	"github.com/jacl-coder/SeaStorm-Server/pkg/db"
	log "github.com/sirupsen/logrus"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	cfg := &config.GlobalConfig
	setupLogging(cfg.Server)

	// 初始化数据库连接
	if err := db.Init(); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer db.Close()
	if err := db.InitAllTables(db.DB); err != nil {
		log.Fatalf("创建数据表失败: %v", err)
	}

	// 初始化Redis连接，随db.Close一起关闭
	if err := db.InitRedis(); err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	sqlStore := store.NewSQLStore(db.DB, db.Dialect)
	persister := store.NewWriteBehind(cfg.World.PersistQueue)
	defer persister.Close()

	rec, closeJournal := newJournal(cfg.Journal)
	defer closeJournal()

	state := world.NewState()
	var mirror *leaderboard.RedisMirror
	if db.RedisClient != nil {
		mirror = leaderboard.NewRedisMirror(db.RedisClient)
	}
	history := newHistory(cfg.Chat, sqlStore)
	inventories := inventory.NewService(sqlStore)

	dispatcher := game.NewDispatcher(game.Deps{
		State:    state,
		Registry: world.NewRegistry(),
		Throttle: throttle.NewPolicy(throttle.Thresholds{
			Interval: cfg.World.Throttle.Interval(),
			Distance: cfg.World.Throttle.DistanceThresholdUnits,
		}),
		Store:        sqlStore,
		Persister:    persister,
		Verifier:     newVerifier(cfg.Auth),
		Decoder:      protocol.MustNewDecoder(),
		Leaderboard:  leaderboard.NewService(sqlStore, state, cfg.World.LeaderboardSize),
		Mirror:       mirror,
		History:      history,
		Limiter:      chat.NewLimiter(cfg.Chat.RatePerSecond, cfg.Chat.Burst),
		Inventory:    inventories,
		Journal:      rec,
		HistoryLimit: cfg.Chat.HistoryLimit,
	})

	gameServer := game.NewGameServer(cfg, dispatcher)
	if err := gameServer.Start(); err != nil {
		log.Fatalf("启动游戏服务器失败: %v", err)
	}

	gatewayServer := gateway.NewGateway(cfg, gateway.Deps{
		World:       dispatcher,
		Messages:    history,
		Inventories: sqlStore,
		Mirror:      mirror,
	})
	if err := gatewayServer.Start(); err != nil {
		log.Fatalf("启动网关服务失败: %v", err)
	}

	log.Info("所有服务已启动")

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("接收到关闭信号，正在关闭服务器...")

	if err := gatewayServer.Stop(); err != nil {
		log.WithError(err).Warn("关闭网关失败")
	}
	if err := gameServer.Stop(); err != nil {
		log.WithError(err).Warn("关闭游戏服务器失败")
	}
	persister.Flush()

	written, failed, dropped := persister.Stats()
	log.WithFields(log.Fields{"written": written, "failed": failed, "dropped": dropped}).Info("服务器已安全关闭")
}

// setupLogging 按配置设置日志级别，debug模式总是输出调试日志
func setupLogging(sc config.ServerConfig) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(sc.LogLevel)
	if err != nil {
		log.WithField("level", sc.LogLevel).Warn("无效的日志级别，使用info")
		level = log.InfoLevel
	}
	if sc.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

func newVerifier(ac config.AuthConfig) auth.Verifier {
	if ac.Mode == config.AuthModeSession {
		if db.RedisClient == nil {
			log.Fatal("session验证模式需要启用Redis")
		}
		return auth.NewSessionVerifier(auth.NewRedisSessions(db.RedisClient))
	}
	return auth.NewJWTVerifier(ac.JWTSecret, ac.Issuer, ac.Audience)
}

func newHistory(cc config.ChatConfig, s *store.SQLStore) chat.History {
	switch cc.History {
	case config.HistoryNone:
		return chat.NoHistory{}
	case config.HistoryRedis:
		if db.RedisClient == nil {
			log.Fatal("Redis聊天记录需要启用Redis")
		}
		return chat.NewRedisHistory(db.RedisClient, cc.HistoryLimit)
	default:
		return chat.NewStoreHistory(s)
	}
}

func newJournal(jc config.JournalConfig) (journal.Recorder, func()) {
	if jc.Dir == "" {
		return journal.Nop{}, func() {}
	}
	w := journal.NewWriter(jc.Dir, func(err error) {
		log.WithError(err).Warn("写入事件日志失败")
	})
	log.WithField("dir", jc.Dir).Info("事件日志已启用")
	return w, func() {
		if err := w.Close(); err != nil {
			log.WithError(err).Warn("关闭事件日志失败")
		}
	}
}
