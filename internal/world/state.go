// state.go

package world

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

// State 进程内权威的世界状态缓存，所有读取都返回副本
type State struct {
	mu      sync.RWMutex
	players map[string]*models.PlayerState
	islands map[string]models.Island
}

// NewState 创建空的世界状态
func NewState() *State {
	return &State{
		players: make(map[string]*models.PlayerState),
		islands: make(map[string]models.Island),
	}
}

// UpsertPlayer 创建或合并玩家，只修改提供的字段。新玩家以默认值为基础
func (s *State) UpsertPlayer(id string, fields models.PlayerFields, now time.Time) models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		np := models.NewPlayerState(id, now)
		np.Active = false
		p = &np
		s.players[id] = p
	}
	fields.Apply(p)
	return *p
}

// PutPlayer 用完整状态覆盖缓存中的玩家
func (s *State) PutPlayer(p models.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.players[p.ID] = &cp
}

// Player 获取玩家副本
func (s *State) Player(id string) (models.PlayerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return models.PlayerState{}, false
	}
	return *p, true
}

// ActivePlayers 所有在线玩家，按id排序
func (s *State) ActivePlayers() []models.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PlayerState, 0, len(s.players))
	for _, p := range s.players {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllPlayers 缓存中的所有玩家，按id排序
func (s *State) AllPlayers() []models.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PlayerState, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApplyPosition 更新位置，rotation和mode为nil时不变，last_update总是刷新
func (s *State) ApplyPosition(id string, pos models.Vector3, rotation *float64, mode *models.Mode, now time.Time) (models.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return models.PlayerState{}, false
	}
	p.Position = pos
	if rotation != nil {
		p.Rotation = *rotation
	}
	if mode != nil {
		p.Mode = *mode
	}
	p.LastUpdate = now
	return *p, true
}

// SetActive 设置在线状态
func (s *State) SetActive(id string, active bool, now time.Time) (models.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return models.PlayerState{}, false
	}
	p.Active = active
	p.LastUpdate = now
	return *p, true
}

// AddStat 累加统计值，结果截断在[0, MaxInt64]之间
func (s *State) AddStat(id string, stat models.Stat, amount int64, now time.Time) (models.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return models.PlayerState{}, false
	}
	p.SetStat(stat, saturatingAdd(p.StatValue(stat), amount))
	p.LastUpdate = now
	return *p, true
}

// saturatingAdd 统计值不为负，溢出时停在最大值
func saturatingAdd(v, amount int64) int64 {
	if amount > 0 && v > math.MaxInt64-amount {
		return math.MaxInt64
	}
	v += amount
	if v < 0 {
		return 0
	}
	return v
}

// PutIsland 添加岛屿
func (s *State) PutIsland(is models.Island) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.islands[is.ID] = is
}

// Island 获取岛屿
func (s *State) Island(id string) (models.Island, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	is, ok := s.islands[id]
	return is, ok
}

// Islands 所有岛屿，按id排序
func (s *State) Islands() []models.Island {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Island, 0, len(s.islands))
	for _, is := range s.islands {
		out = append(out, is)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts 玩家总数、在线数、岛屿数
func (s *State) Counts() (players, active, islands int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.Active {
			active++
		}
	}
	return len(s.players), active, len(s.islands)
}
