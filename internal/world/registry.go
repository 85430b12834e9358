// registry.go

package world

import (
	"sort"
	"sync"
)

// Registry 连接句柄到玩家id的映射。同一玩家只保留最新的连接
type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]string
	byPlayer map[string]string
}

// NewRegistry 创建连接注册表
func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[string]string),
		byPlayer: make(map[string]string),
	}
}

// Register 绑定连接与玩家。若该玩家已有其它连接，旧连接被解绑并返回
func (r *Registry) Register(connID, playerID string) (evicted string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 同一连接重复绑定到其它玩家时先解除旧绑定
	if prev, bound := r.byConn[connID]; bound && prev != playerID {
		if r.byPlayer[prev] == connID {
			delete(r.byPlayer, prev)
		}
	}

	if old, exists := r.byPlayer[playerID]; exists && old != connID {
		delete(r.byConn, old)
		evicted, ok = old, true
	}

	r.byConn[connID] = playerID
	r.byPlayer[playerID] = connID
	return evicted, ok
}

// Lookup 查询连接绑定的玩家
func (r *Registry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	return id, ok
}

// Remove 解除连接绑定，未知连接返回ok=false。
// last表示该玩家已没有任何绑定的连接
func (r *Registry) Remove(connID string) (playerID string, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok = r.byConn[connID]
	if !ok {
		return "", false, false
	}
	delete(r.byConn, connID)

	if r.byPlayer[playerID] == connID {
		delete(r.byPlayer, playerID)
		return playerID, true, true
	}
	_, still := r.byPlayer[playerID]
	return playerID, !still, true
}

// Connection 玩家当前绑定的连接
func (r *Registry) Connection(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPlayer[playerID]
	return c, ok
}

// Players 所有已绑定的玩家id
func (r *Registry) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byPlayer))
	for id := range r.byPlayer {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Connections 所有已绑定的连接，按句柄排序
func (r *Registry) Connections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn))
	for c := range r.byConn {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Count 已绑定的连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
