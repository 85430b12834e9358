// history.go

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	log "github.com/sirupsen/logrus"
)

// History 聊天记录，Recent按时间正序返回最近的消息
type History interface {
	Append(ctx context.Context, msg models.ChatMessage) error
	Recent(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error)
}

// MessageStore 消息持久化接口
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.ChatMessage) error
	RecentMessages(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error)
	MessagesByType(ctx context.Context, messageType string) ([]models.ChatMessage, error)
}

// StoreHistory 保存在数据库中的聊天记录
type StoreHistory struct {
	store MessageStore
}

// NewStoreHistory 创建数据库聊天记录
func NewStoreHistory(s MessageStore) *StoreHistory {
	return &StoreHistory{store: s}
}

// Append 保存消息
func (h *StoreHistory) Append(ctx context.Context, msg models.ChatMessage) error {
	return h.store.CreateMessage(ctx, msg)
}

// Recent 优先使用索引查询，失败时取出全部消息在内存中排序，两种方式结果顺序一致
func (h *StoreHistory) Recent(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error) {
	msgs, err := h.store.RecentMessages(ctx, messageType, limit)
	if err != nil {
		log.WithError(err).Warn("索引查询消息失败，改为内存排序")
		all, ferr := h.store.MessagesByType(ctx, messageType)
		if ferr != nil {
			return nil, fmt.Errorf("查询消息失败: %w", ferr)
		}
		msgs = NewestFirst(all, limit)
	}
	return Chronological(msgs), nil
}

// NewestFirst 按时间倒序排列并取前limit条，时间相同时按id倒序
func NewestFirst(msgs []models.ChatMessage, limit int) []models.ChatMessage {
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Chronological 把倒序的消息翻转为正序
func Chronological(newestFirst []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out
}

// RedisHistory 保存在Redis列表中的聊天记录，只保留最近capacity条
type RedisHistory struct {
	client   *redis.Client
	capacity int64
}

// NewRedisHistory 创建Redis聊天记录
func NewRedisHistory(client *redis.Client, capacity int) *RedisHistory {
	if capacity <= 0 {
		capacity = 50
	}
	return &RedisHistory{client: client, capacity: int64(capacity)}
}

func historyKey(messageType string) string {
	return "chat:history:" + messageType
}

// Append 写入列表头部并裁剪
func (h *RedisHistory) Append(ctx context.Context, msg models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := historyKey(msg.MessageType)
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, h.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入Redis聊天记录失败: %w", err)
	}
	return nil
}

// Recent 读取最近的消息
func (h *RedisHistory) Recent(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error) {
	raw, err := h.client.LRange(ctx, historyKey(messageType), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取Redis聊天记录失败: %w", err)
	}
	msgs := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			log.WithError(err).Warn("跳过无法解析的聊天记录")
			continue
		}
		msgs = append(msgs, m)
	}
	return Chronological(msgs), nil
}

// NoHistory 不保存聊天记录，只广播
type NoHistory struct{}

// Append 丢弃消息
func (NoHistory) Append(context.Context, models.ChatMessage) error { return nil }

// Recent 总是为空
func (NoHistory) Recent(context.Context, string, int) ([]models.ChatMessage, error) {
	return []models.ChatMessage{}, nil
}
