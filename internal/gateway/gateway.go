package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/chat"
	"github.com/jacl-coder/SeaStorm-Server/internal/leaderboard"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/protocol"
	log "github.com/sirupsen/logrus"
)

// World 网关需要的世界状态查询
type World interface {
	ActivePlayers() []models.PlayerState
	Islands() []models.Island
	Leaderboard(ctx context.Context, limit int) models.Leaderboard
	Status() protocol.Status
	CreateIsland(ctx context.Context, is models.Island) (models.Island, error)
}

// InventoryReader 只读背包查询
type InventoryReader interface {
	GetInventory(ctx context.Context, playerID string) (models.Inventory, error)
}

// Deps 网关依赖，Mirror为nil时排行榜总是重新计算
type Deps struct {
	World       World
	Messages    chat.History
	Inventories InventoryReader
	Mirror      *leaderboard.RedisMirror
}

// Gateway HTTP查询网关
type Gateway struct {
	config      *config.Config
	deps        Deps
	rateLimiter *RateLimiter
	httpServer  *http.Server
	isRunning   bool
}

// NewGateway 创建新的网关
func NewGateway(cfg *config.Config, deps Deps) *Gateway {
	if deps.Messages == nil {
		deps.Messages = chat.NoHistory{}
	}
	return &Gateway{
		config:      cfg,
		deps:        deps,
		rateLimiter: NewRateLimiter(120, 20), // 每分钟120次请求，突发20次
	}
}

// Start 启动网关
func (g *Gateway) Start() error {
	if g.isRunning {
		return fmt.Errorf("网关已经在运行")
	}

	g.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", g.config.Server.GatewayPort),
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("API网关启动，监听端口: %d", g.config.Server.GatewayPort)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务器错误: %v", err)
		}
	}()

	g.isRunning = true
	return nil
}

// Stop 停止网关
func (g *Gateway) Stop() error {
	if !g.isRunning {
		return nil
	}
	g.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	g.isRunning = false
	log.Info("API网关已停止")
	return nil
}

// Handler 创建HTTP处理器
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	api := &apiHandler{deps: g.deps, adminToken: g.config.Server.AdminToken}
	api.RegisterHandlers(mux)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return g.applyMiddleware(mux)
}

// applyMiddleware 应用中间件
func (g *Gateway) applyMiddleware(handler http.Handler) http.Handler {
	cache := NewCacheMiddleware()

	// 按顺序应用中间件（从外到内）
	handler = cache.Middleware(handler)
	handler = g.rateLimiter.Middleware(handler)
	handler = corsMiddleware(handler)
	handler = securityMiddleware(handler)
	handler = compressMiddleware(handler)
	handler = loggingMiddleware(handler)

	return handler
}
