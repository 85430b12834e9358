// service.go

package leaderboard

import (
	"context"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	log "github.com/sirupsen/logrus"
)

// PlayerSource 玩家列表来源
type PlayerSource interface {
	ListPlayers(ctx context.Context, filter store.PlayerFilter) ([]models.PlayerState, error)
}

// CacheSource 缓存中的玩家
type CacheSource interface {
	AllPlayers() []models.PlayerState
}

// Service 按需重新计算排行榜
type Service struct {
	players PlayerSource
	cache   CacheSource
	size    int
}

// NewService 创建排行榜服务，players可以为nil
func NewService(players PlayerSource, cache CacheSource, size int) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	return &Service{players: players, cache: cache, size: size}
}

// Size 每个类别的条目数
func (s *Service) Size() int {
	return s.size
}

// Snapshot 合并存储与缓存后计算排行榜，存储读取失败时只使用缓存
func (s *Service) Snapshot(ctx context.Context) models.Leaderboard {
	return s.SnapshotN(ctx, s.size)
}

// SnapshotN 指定条目数的排行榜
func (s *Service) SnapshotN(ctx context.Context, limit int) models.Leaderboard {
	players, err := s.Players(ctx)
	if err != nil {
		log.WithError(err).Warn("读取玩家列表失败，排行榜仅使用缓存")
		players = s.cache.AllPlayers()
	}
	return Compute(players, limit)
}

// Players 存储中的全部玩家与缓存合并，缓存优先
func (s *Service) Players(ctx context.Context) ([]models.PlayerState, error) {
	cached := s.cache.AllPlayers()
	if s.players == nil {
		return cached, nil
	}
	stored, err := s.players.ListPlayers(ctx, store.PlayerFilter{})
	if err != nil {
		return nil, err
	}
	return Merge(stored, cached), nil
}
