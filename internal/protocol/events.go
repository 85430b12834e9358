// events.go

package protocol

import (
	"encoding/json"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

// 客户端发送的事件类型
const (
	TypeJoin                = "join"
	TypeUpdatePosition      = "update_position"
	TypePlayerAction        = "player_action"
	TypeSendMessage         = "send_message"
	TypeUpdatePlayerName    = "update_player_name"
	TypeUpdatePlayerColor   = "update_player_color"
	TypeAddToInventory      = "add_to_inventory"
	TypeRemoveFromInventory = "remove_from_inventory"
	TypeClearInventory      = "clear_inventory"
	TypeGetInventory        = "get_inventory"
)

// 服务器发送的事件类型
const (
	TypeConnectionResponse = "connection_response"
	TypePlayerJoined       = "player_joined"
	TypeAllPlayers         = "all_players"
	TypeAllIslands         = "all_islands"
	TypeChatHistory        = "chat_history"
	TypeLeaderboardUpdate  = "leaderboard_update"
	TypePlayerMoved        = "player_moved"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerUpdated      = "player_updated"
	TypePlayerAchievement  = "player_achievement"
	TypeNewMessage         = "new_message"
	TypeInventoryUpdated   = "inventory_updated"
	TypeInventoryData      = "inventory_data"
	TypeAuthRequired       = "auth_required"
	TypeAuthError          = "auth_error"
	TypeActionError        = "action_error"
	TypeIslandRegistered   = "island_registered"
	TypeSessionReplaced    = "session_replaced"
)

// 玩家行为
const (
	ActionFishCaught    = "fish_caught"
	ActionMonsterKilled = "monster_killed"
	ActionMoneyEarned   = "money_earned"
)

// ActionStat 行为对应的统计项
func ActionStat(action string) (models.Stat, bool) {
	switch action {
	case ActionFishCaught:
		return models.StatFishCount, true
	case ActionMonsterKilled:
		return models.StatMonsterKills, true
	case ActionMoneyEarned:
		return models.StatMoney, true
	}
	return "", false
}

// Message 消息结构
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound 待发送的消息
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event 解析并校验后的入站事件
type Event interface {
	EventType() string
}

// Join 加入世界
type Join struct {
	Token     string          `json:"token"`
	ClaimedID string          `json:"claimed_id"`
	Name      *string         `json:"name,omitempty"`
	Color     *models.Color   `json:"color,omitempty"`
	Position  *models.Vector3 `json:"position,omitempty"`
}

// UpdatePosition 位置更新
type UpdatePosition struct {
	PlayerID string       `json:"player_id"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Z        float64      `json:"z"`
	Rotation *float64     `json:"rotation,omitempty"`
	Mode     *models.Mode `json:"mode,omitempty"`
}

// PlayerAction 成就行为
type PlayerAction struct {
	PlayerID string `json:"player_id"`
	Action   string `json:"action"`
	Amount   *int64 `json:"amount,omitempty"`
}

// SendMessage 聊天消息
type SendMessage struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

// UpdatePlayerName 修改名称
type UpdatePlayerName struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// UpdatePlayerColor 修改颜色
type UpdatePlayerColor struct {
	PlayerID string       `json:"player_id"`
	Color    models.Color `json:"color"`
}

// AddToInventory 添加物品
type AddToInventory struct {
	PlayerID string          `json:"player_id"`
	ItemType string          `json:"item_type"`
	ItemName string          `json:"item_name"`
	ItemData json.RawMessage `json:"item_data,omitempty"`
}

// RemoveFromInventory 删除物品
type RemoveFromInventory struct {
	PlayerID string `json:"player_id"`
	ItemType string `json:"item_type"`
	Index    int    `json:"index"`
}

// ClearInventory 清空背包
type ClearInventory struct {
	PlayerID string `json:"player_id"`
}

// GetInventory 查询背包
type GetInventory struct {
	PlayerID string `json:"player_id"`
}

func (Join) EventType() string                { return TypeJoin }
func (UpdatePosition) EventType() string      { return TypeUpdatePosition }
func (PlayerAction) EventType() string        { return TypePlayerAction }
func (SendMessage) EventType() string         { return TypeSendMessage }
func (UpdatePlayerName) EventType() string    { return TypeUpdatePlayerName }
func (UpdatePlayerColor) EventType() string   { return TypeUpdatePlayerColor }
func (AddToInventory) EventType() string      { return TypeAddToInventory }
func (RemoveFromInventory) EventType() string { return TypeRemoveFromInventory }
func (ClearInventory) EventType() string      { return TypeClearInventory }
func (GetInventory) EventType() string        { return TypeGetInventory }

// ConnectionResponse 加入成功后的完整状态
type ConnectionResponse struct {
	Status       string             `json:"status"`
	ConnectionID string             `json:"connection_id"`
	Player       models.PlayerState `json:"player"`
}

// PlayerMoved 位置广播
type PlayerMoved struct {
	ID       string         `json:"id"`
	Position models.Vector3 `json:"position"`
	Rotation float64        `json:"rotation"`
	Mode     models.Mode    `json:"mode"`
	Color    models.Color   `json:"color"`
}

// PlayerRef 只包含玩家id
type PlayerRef struct {
	ID string `json:"id"`
}

// PlayerUpdated 名称或颜色变化
type PlayerUpdated struct {
	ID    string        `json:"id"`
	Name  *string       `json:"name,omitempty"`
	Color *models.Color `json:"color,omitempty"`
}

// PlayerAchievement 成就广播
type PlayerAchievement struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Action string      `json:"action"`
	Stat   models.Stat `json:"stat"`
	Amount int64       `json:"amount"`
	Value  int64       `json:"value"`
}

// InventoryPayload 背包变化
type InventoryPayload struct {
	Action    string           `json:"action,omitempty"`
	Inventory models.Inventory `json:"inventory"`
	Removed   *models.Item     `json:"removed,omitempty"`
}

// ErrorPayload 发给单个连接的错误
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// Status 服务器状态
type Status struct {
	Status      string `json:"status"`
	Players     int    `json:"players"`
	Active      int    `json:"active"`
	Islands     int    `json:"islands"`
	Connections int    `json:"connections"`
	Timestamp   string `json:"timestamp"`
}

// Encode 序列化出站消息
func Encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Type: msgType, Payload: payload})
}
