// websocket.go

package game

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间，超过该时间没有任何消息或pong的连接被关闭
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 512 * 1024 // 512KB

	// 每个连接的发送缓冲
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func newID() string {
	return uuid.New().String()
}

// handleWSConnection 处理WebSocket连接，身份在join事件中验证
func (s *GameServer) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	if max := s.config.Server.MaxPlayers; max > 0 && s.ConnectionCount() >= max {
		http.Error(w, "服务器已满", http.StatusServiceUnavailable)
		return
	}

	// 升级HTTP连接为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket升级失败")
		return
	}

	playerConn := &PlayerConnection{
		ID:         newID(),
		LastActive: time.Now(),
		Send:       make(chan []byte, sendBuffer),
		conn:       conn,
	}

	s.connMutex.Lock()
	s.connections[playerConn.ID] = playerConn
	s.connMutex.Unlock()

	log.WithFields(log.Fields{"conn": playerConn.ID, "remote": r.RemoteAddr}).Debug("新连接")

	go s.writePump(playerConn)
	go s.readPump(playerConn)
}

// readPump 从WebSocket读取数据，按到达顺序逐条处理
func (s *GameServer) readPump(player *PlayerConnection) {
	conn := player.conn
	defer func() {
		s.closeConnection(player)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("conn", player.ID).Warn("WebSocket错误")
			}
			break
		}

		player.LastActive = time.Now()
		conn.SetReadDeadline(player.LastActive.Add(pongWait))

		s.dispatcher.Handle(context.Background(), player.ID, message)
	}
}

// writePump 向WebSocket写入数据，每条消息一帧
func (s *GameServer) writePump(player *PlayerConnection) {
	conn := player.conn
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-player.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection 关闭玩家连接，重复调用无副作用
func (s *GameServer) closeConnection(player *PlayerConnection) {
	s.connMutex.Lock()
	if _, ok := s.connections[player.ID]; !ok {
		s.connMutex.Unlock()
		return
	}
	close(player.Send)
	delete(s.connections, player.ID)
	s.connMutex.Unlock()

	s.dispatcher.Disconnect(player.ID)
	log.WithField("conn", player.ID).Debug("连接已关闭")
}

// Send 非阻塞发送，缓冲已满的连接会被关闭
func (s *GameServer) Send(connID string, data []byte) bool {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	player, ok := s.connections[connID]
	if !ok {
		return false
	}
	select {
	case player.Send <- data:
		return true
	default:
		log.WithField("conn", connID).Warn("发送缓冲已满，关闭连接")
		go s.closeConnection(player)
		return false
	}
}

// Close 关闭指定连接
func (s *GameServer) Close(connID string) {
	s.connMutex.RLock()
	player, ok := s.connections[connID]
	s.connMutex.RUnlock()
	if ok {
		s.closeConnection(player)
	}
}

// ConnectionCount 当前WebSocket连接数，包含尚未加入的连接
func (s *GameServer) ConnectionCount() int {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	return len(s.connections)
}
