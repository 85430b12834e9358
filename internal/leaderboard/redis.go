// redis.go

package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

// 排行榜Redis键名
const (
	keyPrefix = "leaderboard:"

	// PlayerInfoPrefix 玩家显示信息键前缀
	PlayerInfoPrefix = "player:info:"

	// PlayerInfoTTL 玩家显示信息缓存时间
	PlayerInfoTTL = 30 * time.Minute
)

// Key 某类别排行榜的有序集合键
func Key(stat models.Stat) string {
	return keyPrefix + string(stat)
}

type playerInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RedisMirror 用有序集合镜像排行榜，供HTTP查询使用。
// 分数取负值保存，ZRANGE升序读取时并列成员按id升序排列，与Compute一致
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror 创建Redis排行榜镜像
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

// Update 写入玩家三个类别的分数和显示信息
func (m *RedisMirror) Update(ctx context.Context, p models.PlayerState) error {
	info, err := json.Marshal(playerInfo{Name: p.Name, Color: p.Color.Hex()})
	if err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	for _, stat := range models.Stats {
		pipe.ZAdd(ctx, Key(stat), &redis.Z{
			Score:  -float64(p.StatValue(stat)),
			Member: p.ID,
		})
	}
	pipe.Set(ctx, PlayerInfoPrefix+p.ID, info, PlayerInfoTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("更新Redis排行榜失败: %w", err)
	}
	return nil
}

// Refresh 用完整玩家列表重建排行榜
func (m *RedisMirror) Refresh(ctx context.Context, players []models.PlayerState) error {
	keys := make([]string, 0, len(models.Stats))
	for _, stat := range models.Stats {
		keys = append(keys, Key(stat))
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("清空Redis排行榜失败: %w", err)
	}
	for _, p := range players {
		if err := m.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Get 读取排行榜。集合为空时返回ok=false，由调用方回退到重新计算
func (m *RedisMirror) Get(ctx context.Context, limit int) (models.Leaderboard, bool, error) {
	var lb models.Leaderboard
	for _, stat := range models.Stats {
		members, err := m.client.ZRangeWithScores(ctx, Key(stat), 0, int64(limit-1)).Result()
		if err != nil {
			return lb, false, err
		}
		if len(members) == 0 {
			return lb, false, nil
		}

		entries := make([]models.LeaderboardEntry, 0, len(members))
		for _, member := range members {
			id, ok := member.Member.(string)
			if !ok {
				continue
			}
			info, err := m.playerInfo(ctx, id)
			if err != nil {
				// 显示信息过期时无法展示，交给调用方重新计算
				return lb, false, nil
			}
			entries = append(entries, models.LeaderboardEntry{
				PlayerID: id,
				Name:     info.Name,
				Value:    scoreValue(member.Score),
				Color:    info.Color,
			})
		}
		lb.SetCategory(stat, entries)
	}
	return lb, true, nil
}

// scoreValue 还原分数，float64精度外的极大值截断为MaxInt64
func scoreValue(score float64) int64 {
	v := -score
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func (m *RedisMirror) playerInfo(ctx context.Context, id string) (playerInfo, error) {
	var info playerInfo
	data, err := m.client.Get(ctx, PlayerInfoPrefix+id).Bytes()
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}
