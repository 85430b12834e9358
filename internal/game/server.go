package game

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jacl-coder/SeaStorm-Server/config"
	log "github.com/sirupsen/logrus"
)

// 维护周期
const maintenanceInterval = 30 * time.Second

// GameServer 游戏服务器
type GameServer struct {
	config      *config.Config
	dispatcher  *Dispatcher
	httpServer  *http.Server
	connections map[string]*PlayerConnection
	connMutex   sync.RWMutex

	// 关闭信号
	shutdown  chan struct{}
	isRunning bool
}

// PlayerConnection 玩家连接
type PlayerConnection struct {
	ID         string
	LastActive time.Time

	// 发送通道
	Send chan []byte

	conn *websocket.Conn
}

// NewGameServer 创建新的游戏服务器，并把自身设置为调度器的出站通道
func NewGameServer(cfg *config.Config, dispatcher *Dispatcher) *GameServer {
	s := &GameServer{
		config:      cfg,
		dispatcher:  dispatcher,
		connections: make(map[string]*PlayerConnection),
		shutdown:    make(chan struct{}),
	}
	dispatcher.SetTransport(s)
	return s
}

// Start 加载世界状态并启动游戏服务器
func (s *GameServer) Start() error {
	if s.isRunning {
		return fmt.Errorf("服务器已经在运行")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.dispatcher.Preload(ctx); err != nil {
		return fmt.Errorf("加载世界状态失败: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.GamePort),
		Handler: s.Handler(),
	}

	go func() {
		log.Infof("游戏服务器启动，监听端口: %d", s.config.Server.GamePort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务器错误: %v", err)
		}
	}()

	go s.maintenance()

	s.isRunning = true
	return nil
}

// Stop 关闭所有连接并停止游戏服务器
func (s *GameServer) Stop() error {
	if !s.isRunning {
		return nil
	}

	close(s.shutdown)

	s.connMutex.RLock()
	conns := make([]*PlayerConnection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.connMutex.RUnlock()

	// 逐个关闭，玩家被标记为离线
	for _, c := range conns {
		s.closeConnection(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	s.isRunning = false
	log.Info("游戏服务器已停止")
	return nil
}

// Handler 游戏服务器的HTTP处理器
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点
	mux.HandleFunc("/ws", s.handleWSConnection)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// maintenance 定期记录状态并刷新Redis排行榜
func (s *GameServer) maintenance() {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportStatus()
		case <-s.shutdown:
			return
		}
	}
}

func (s *GameServer) reportStatus() {
	st := s.dispatcher.Status()
	written, failed, dropped := s.dispatcher.persister.Stats()
	log.WithFields(log.Fields{
		"connections": s.ConnectionCount(),
		"joined":      st.Connections,
		"active":      st.Active,
		"players":     st.Players,
		"written":     written,
		"failed":      failed,
		"dropped":     dropped,
	}).Debug("服务器状态")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.dispatcher.RefreshMirror(ctx); err != nil {
		log.WithError(err).Warn("刷新Redis排行榜失败")
	}
}
