// leaderboard.go

package models

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	PlayerID string `json:"-"`
	Name     string `json:"name"`
	Value    int64  `json:"value"`
	Color    string `json:"color"`
}

// Leaderboard 三个类别的排行榜
type Leaderboard struct {
	FishCount    []LeaderboardEntry `json:"fishCount"`
	MonsterKills []LeaderboardEntry `json:"monsterKills"`
	Money        []LeaderboardEntry `json:"money"`
}

// Category 按统计项取排行
func (l *Leaderboard) Category(s Stat) []LeaderboardEntry {
	switch s {
	case StatFishCount:
		return l.FishCount
	case StatMonsterKills:
		return l.MonsterKills
	case StatMoney:
		return l.Money
	}
	return nil
}

// SetCategory 设置某类别排行
func (l *Leaderboard) SetCategory(s Stat, entries []LeaderboardEntry) {
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	switch s {
	case StatFishCount:
		l.FishCount = entries
	case StatMonsterKills:
		l.MonsterKills = entries
	case StatMoney:
		l.Money = entries
	}
}
