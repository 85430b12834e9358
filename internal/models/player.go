// player.go

package models

import (
	"fmt"
	"math"
	"time"
)

// Vector3 三维坐标
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance 两点间的欧氏距离
func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Color 归一化RGB颜色，分量取值[0,1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// DefaultColor 新玩家默认颜色
var DefaultColor = Color{R: 0.3, G: 0.6, B: 0.8}

// Hex 转换为#rrggbb显示格式
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return int(math.Round(v * 255))
}

// Valid 分量是否都在[0,1]
func (c Color) Valid() bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 }
	return in(c.R) && in(c.G) && in(c.B)
}

// Mode 玩家移动模式，开放枚举
type Mode string

const (
	ModeBoat Mode = "boat"
	ModeSwim Mode = "swim"
)

// Stat 可累加的玩家统计项
type Stat string

const (
	StatFishCount    Stat = "fishCount"
	StatMonsterKills Stat = "monsterKills"
	StatMoney        Stat = "money"
)

// Stats 全部统计项，顺序固定
var Stats = []Stat{StatFishCount, StatMonsterKills, StatMoney}

// PlayerState 玩家实时状态
type PlayerState struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        Color     `json:"color"`
	Position     Vector3   `json:"position"`
	Rotation     float64   `json:"rotation"`
	Mode         Mode      `json:"mode"`
	FishCount    int64     `json:"fishCount"`
	MonsterKills int64     `json:"monsterKills"`
	Money        int64     `json:"money"`
	Active       bool      `json:"active"`
	LastUpdate   time.Time `json:"last_update"`
}

// NewPlayerState 按默认值创建玩家
func NewPlayerState(id string, now time.Time) PlayerState {
	return PlayerState{
		ID:         id,
		Name:       DefaultName(id),
		Color:      DefaultColor,
		Mode:       ModeBoat,
		Active:     true,
		LastUpdate: now,
	}
}

// DefaultName 新玩家默认名称
func DefaultName(id string) string {
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return "Sailor " + short
}

// StatValue 读取统计值
func (p *PlayerState) StatValue(s Stat) int64 {
	switch s {
	case StatFishCount:
		return p.FishCount
	case StatMonsterKills:
		return p.MonsterKills
	case StatMoney:
		return p.Money
	}
	return 0
}

// SetStat 设置统计值
func (p *PlayerState) SetStat(s Stat, v int64) {
	switch s {
	case StatFishCount:
		p.FishCount = v
	case StatMonsterKills:
		p.MonsterKills = v
	case StatMoney:
		p.Money = v
	}
}

// PlayerFields 部分更新，nil字段保持不变
type PlayerFields struct {
	Name         *string
	Color        *Color
	Position     *Vector3
	Rotation     *float64
	Mode         *Mode
	FishCount    *int64
	MonsterKills *int64
	Money        *int64
	Active       *bool
	LastUpdate   *time.Time
}

// Apply 合并到玩家状态
func (f PlayerFields) Apply(p *PlayerState) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Color != nil {
		p.Color = *f.Color
	}
	if f.Position != nil {
		p.Position = *f.Position
	}
	if f.Rotation != nil {
		p.Rotation = *f.Rotation
	}
	if f.Mode != nil {
		p.Mode = *f.Mode
	}
	if f.FishCount != nil {
		p.FishCount = *f.FishCount
	}
	if f.MonsterKills != nil {
		p.MonsterKills = *f.MonsterKills
	}
	if f.Money != nil {
		p.Money = *f.Money
	}
	if f.Active != nil {
		p.Active = *f.Active
	}
	if f.LastUpdate != nil {
		p.LastUpdate = *f.LastUpdate
	}
}

// Empty 是否没有任何字段
func (f PlayerFields) Empty() bool {
	return f == PlayerFields{}
}

// FullFields 把完整状态转换为更新字段
func FullFields(p PlayerState) PlayerFields {
	return PlayerFields{
		Name:         &p.Name,
		Color:        &p.Color,
		Position:     &p.Position,
		Rotation:     &p.Rotation,
		Mode:         &p.Mode,
		FishCount:    &p.FishCount,
		MonsterKills: &p.MonsterKills,
		Money:        &p.Money,
		Active:       &p.Active,
		LastUpdate:   &p.LastUpdate,
	}
}
