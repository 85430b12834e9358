// aggregator.go

package leaderboard

import (
	"sort"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
)

// DefaultSize 默认每个类别的条目数
const DefaultSize = 10

// Compute 计算三个类别的前limit名。并列时按玩家id升序
func Compute(players []models.PlayerState, limit int) models.Leaderboard {
	if limit <= 0 {
		limit = DefaultSize
	}

	sorted := make([]models.PlayerState, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var lb models.Leaderboard
	for _, stat := range models.Stats {
		lb.SetCategory(stat, top(sorted, stat, limit))
	}
	return lb
}

func top(players []models.PlayerState, stat models.Stat, limit int) []models.LeaderboardEntry {
	ranked := make([]models.PlayerState, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].StatValue(stat) > ranked[j].StatValue(stat)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for i := range ranked {
		entries = append(entries, Entry(ranked[i], stat))
	}
	return entries
}

// Entry 把玩家投影为排行榜条目
func Entry(p models.PlayerState, stat models.Stat) models.LeaderboardEntry {
	return models.LeaderboardEntry{
		PlayerID: p.ID,
		Name:     p.Name,
		Value:    p.StatValue(stat),
		Color:    p.Color.Hex(),
	}
}

// Merge 以缓存为准合并存储中的玩家
func Merge(stored, cached []models.PlayerState) []models.PlayerState {
	byID := make(map[string]models.PlayerState, len(stored)+len(cached))
	for _, p := range stored {
		byID[p.ID] = p
	}
	for _, p := range cached {
		byID[p.ID] = p
	}
	out := make([]models.PlayerState, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	return out
}
