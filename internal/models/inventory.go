// inventory.go

package models

import "time"

// ItemType 背包集合类型
type ItemType string

const (
	ItemFish      ItemType = "fish"
	ItemTreasures ItemType = "treasures"
	ItemCargo     ItemType = "cargo"
)

// ItemTypes 全部集合类型
var ItemTypes = []ItemType{ItemFish, ItemTreasures, ItemCargo}

// Valid 是否是已知集合
func (t ItemType) Valid() bool {
	switch t {
	case ItemFish, ItemTreasures, ItemCargo:
		return true
	}
	return false
}

// Item 背包物品
type Item struct {
	Name       string         `json:"name"`
	AcquiredAt time.Time      `json:"acquired_at"`
	Data       map[string]any `json:"data"`
}

// Inventory 玩家背包
type Inventory struct {
	PlayerID  string    `json:"player_id"`
	Fish      []Item    `json:"fish"`
	Treasures []Item    `json:"treasures"`
	Cargo     []Item    `json:"cargo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInventory 创建空背包
func NewInventory(playerID string, now time.Time) Inventory {
	return Inventory{
		PlayerID:  playerID,
		Fish:      []Item{},
		Treasures: []Item{},
		Cargo:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Items 返回指定集合
func (inv *Inventory) Items(t ItemType) []Item {
	switch t {
	case ItemFish:
		return inv.Fish
	case ItemTreasures:
		return inv.Treasures
	case ItemCargo:
		return inv.Cargo
	}
	return nil
}

// SetItems 替换指定集合
func (inv *Inventory) SetItems(t ItemType, items []Item) {
	if items == nil {
		items = []Item{}
	}
	switch t {
	case ItemFish:
		inv.Fish = items
	case ItemTreasures:
		inv.Treasures = items
	case ItemCargo:
		inv.Cargo = items
	}
}

// Clone 深拷贝集合切片
func (inv Inventory) Clone() Inventory {
	out := inv
	for _, t := range ItemTypes {
		src := inv.Items(t)
		dst := make([]Item, len(src))
		copy(dst, src)
		out.SetItems(t, dst)
	}
	return out
}
