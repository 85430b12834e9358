// policy.go

package throttle

import (
	"sync"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

// Thresholds 写入节流阈值
type Thresholds struct {
	Interval time.Duration
	Distance float64
}

var (
	// Responsive 快速响应配置
	Responsive = Thresholds{Interval: 200 * time.Millisecond, Distance: 1.5}
	// Conservative 保守配置
	Conservative = Thresholds{Interval: 2 * time.Second, Distance: 20}
)

type persisted struct {
	at  time.Time
	pos models.Vector3
}

// Policy 决定一次位置更新是否需要写入存储。内存状态的更新不受影响
type Policy struct {
	th Thresholds

	mu   sync.Mutex
	last map[string]persisted
}

// NewPolicy 创建节流策略
func NewPolicy(th Thresholds) *Policy {
	return &Policy{
		th:   th,
		last: make(map[string]persisted),
	}
}

// Thresholds 当前阈值
func (p *Policy) Thresholds() Thresholds {
	return p.th
}

// Seed 记录一次已持久化的状态，例如加入时的写入
func (p *Policy) Seed(playerID string, pos models.Vector3, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last[playerID] = persisted{at: now, pos: pos}
}

// ShouldPersist 经过时间超过时间阈值，且移动距离超过距离阈值时返回true，
// 没有记录的玩家总是返回true。返回true时立即更新记录，无论写入结果如何
func (p *Policy) ShouldPersist(playerID string, pos models.Vector3, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.last[playerID]
	if ok {
		if now.Sub(prev.at) <= p.th.Interval {
			return false
		}
		if pos.Distance(prev.pos) <= p.th.Distance {
			return false
		}
	}

	p.last[playerID] = persisted{at: now, pos: pos}
	return true
}

// Forget 清除玩家的记录
func (p *Policy) Forget(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.last, playerID)
}
