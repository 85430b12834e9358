// store.go

package store

import (
	"context"
	"errors"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrDuplicate 违反唯一约束
	ErrDuplicate = errors.New("记录已存在")
)

// PlayerFilter 玩家列表过滤条件
type PlayerFilter struct {
	ActiveOnly bool
}

// Store 持久化存储接口
type Store interface {
	GetPlayer(ctx context.Context, id string) (models.PlayerState, error)
	CreatePlayer(ctx context.Context, p models.PlayerState) error
	UpdatePlayer(ctx context.Context, id string, fields models.PlayerFields) error
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]models.PlayerState, error)
	DeactivateAll(ctx context.Context) (int64, error)

	CreateIsland(ctx context.Context, island models.Island) error
	GetIsland(ctx context.Context, id string) (models.Island, error)
	ListIslands(ctx context.Context) ([]models.Island, error)

	CreateMessage(ctx context.Context, msg models.ChatMessage) error
	// RecentMessages 按时间倒序的索引查询
	RecentMessages(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error)
	// MessagesByType 取出某类型的全部消息，顺序不保证
	MessagesByType(ctx context.Context, messageType string) ([]models.ChatMessage, error)

	GetInventory(ctx context.Context, playerID string) (models.Inventory, error)
	CreateInventory(ctx context.Context, inv models.Inventory) error
	UpdateInventory(ctx context.Context, inv models.Inventory) error
}
