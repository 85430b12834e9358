// sql.go

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/lib/pq"
)

// SQLStore 基于database/sql的存储，支持PostgreSQL和SQLite
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore 创建SQL存储，dialect取config.DriverPostgres或config.DriverSQLite
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// rebind 把?占位符转换为当前方言的格式
func (s *SQLStore) rebind(query string) string {
	if s.dialect != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// translateError 把驱动错误统一为包内错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

const playerColumns = `id, name, color_r, color_g, color_b, pos_x, pos_y, pos_z, rotation, mode,
	fish_count, monster_kills, money, active, last_update`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (models.PlayerState, error) {
	var p models.PlayerState
	var mode string
	var lastUpdate int64
	err := row.Scan(&p.ID, &p.Name, &p.Color.R, &p.Color.G, &p.Color.B,
		&p.Position.X, &p.Position.Y, &p.Position.Z, &p.Rotation, &mode,
		&p.FishCount, &p.MonsterKills, &p.Money, &p.Active, &lastUpdate)
	if err != nil {
		return p, err
	}
	p.Mode = models.Mode(mode)
	p.LastUpdate = fromMillis(lastUpdate)
	return p, nil
}

// GetPlayer 查询玩家
func (s *SQLStore) GetPlayer(ctx context.Context, id string) (models.PlayerState, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+playerColumns+` FROM players WHERE id = ?`), id)
	p, err := scanPlayer(row)
	if err != nil {
		return models.PlayerState{}, translateError(err)
	}
	return p, nil
}

// CreatePlayer 新建玩家，id重复时返回ErrDuplicate
func (s *SQLStore) CreatePlayer(ctx context.Context, p models.PlayerState) error {
	query := s.rebind(`INSERT INTO players (` + playerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Color.R, p.Color.G, p.Color.B,
		p.Position.X, p.Position.Y, p.Position.Z, p.Rotation, string(p.Mode),
		p.FishCount, p.MonsterKills, p.Money, p.Active, toMillis(p.LastUpdate))
	if err != nil {
		return fmt.Errorf("创建玩家失败: %w", translateError(err))
	}
	return nil
}

// UpdatePlayer 部分更新玩家字段
func (s *SQLStore) UpdatePlayer(ctx context.Context, id string, f models.PlayerFields) error {
	if f.Empty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if f.Name != nil {
		set("name", *f.Name)
	}
	if f.Color != nil {
		set("color_r", f.Color.R)
		set("color_g", f.Color.G)
		set("color_b", f.Color.B)
	}
	if f.Position != nil {
		set("pos_x", f.Position.X)
		set("pos_y", f.Position.Y)
		set("pos_z", f.Position.Z)
	}
	if f.Rotation != nil {
		set("rotation", *f.Rotation)
	}
	if f.Mode != nil {
		set("mode", string(*f.Mode))
	}
	if f.FishCount != nil {
		set("fish_count", *f.FishCount)
	}
	if f.MonsterKills != nil {
		set("monster_kills", *f.MonsterKills)
	}
	if f.Money != nil {
		set("money", *f.Money)
	}
	if f.Active != nil {
		set("active", *f.Active)
	}
	if f.LastUpdate != nil {
		set("last_update", toMillis(*f.LastUpdate))
	}
	args = append(args, id)

	query := s.rebind(`UPDATE players SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("更新玩家失败: %w", translateError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlayers 按id顺序列出玩家
func (s *SQLStore) ListPlayers(ctx context.Context, filter PlayerFilter) ([]models.PlayerState, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	var args []any
	if filter.ActiveOnly {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("查询玩家列表失败: %w", err)
	}
	defer rows.Close()

	players := make([]models.PlayerState, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("读取玩家失败: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// DeactivateAll 把所有玩家标记为离线，返回受影响行数
func (s *SQLStore) DeactivateAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE players SET active = ? WHERE active = ?`), false, true)
	if err != nil {
		return 0, fmt.Errorf("重置在线状态失败: %w", err)
	}
	return res.RowsAffected()
}

const islandColumns = `id, pos_x, pos_y, pos_z, radius, type, created_at`

func scanIsland(row rowScanner) (models.Island, error) {
	var is models.Island
	var createdAt int64
	if err := row.Scan(&is.ID, &is.Position.X, &is.Position.Y, &is.Position.Z, &is.Radius, &is.Type, &createdAt); err != nil {
		return is, err
	}
	is.CreatedAt = fromMillis(createdAt)
	return is, nil
}

// CreateIsland 新建岛屿
func (s *SQLStore) CreateIsland(ctx context.Context, is models.Island) error {
	query := s.rebind(`INSERT INTO islands (` + islandColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, is.ID, is.Position.X, is.Position.Y, is.Position.Z,
		is.Radius, is.Type, toMillis(is.CreatedAt))
	if err != nil {
		return fmt.Errorf("创建岛屿失败: %w", translateError(err))
	}
	return nil
}

// GetIsland 查询岛屿
func (s *SQLStore) GetIsland(ctx context.Context, id string) (models.Island, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+islandColumns+` FROM islands WHERE id = ?`), id)
	is, err := scanIsland(row)
	if err != nil {
		return models.Island{}, translateError(err)
	}
	return is, nil
}

// ListIslands 按id顺序列出岛屿
func (s *SQLStore) ListIslands(ctx context.Context) ([]models.Island, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+islandColumns+` FROM islands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("查询岛屿失败: %w", err)
	}
	defer rows.Close()

	islands := make([]models.Island, 0)
	for rows.Next() {
		is, err := scanIsland(rows)
		if err != nil {
			return nil, fmt.Errorf("读取岛屿失败: %w", err)
		}
		islands = append(islands, is)
	}
	return islands, rows.Err()
}

const messageColumns = `id, sender_id, sender_name, sender_color, content, message_type, timestamp`

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	defer rows.Close()
	msgs := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		var ts int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.SenderColor, &m.Content, &m.MessageType, &ts); err != nil {
			return nil, fmt.Errorf("读取消息失败: %w", err)
		}
		m.Timestamp = fromMillis(ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateMessage 保存聊天消息
func (s *SQLStore) CreateMessage(ctx context.Context, m models.ChatMessage) error {
	query := s.rebind(`INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, m.ID, m.SenderID, m.SenderName, m.SenderColor,
		m.Content, m.MessageType, toMillis(m.Timestamp))
	if err != nil {
		return fmt.Errorf("保存消息失败: %w", translateError(err))
	}
	return nil
}

// RecentMessages 最新的limit条消息，按时间倒序
func (s *SQLStore) RecentMessages(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error) {
	query := s.rebind(`SELECT ` + messageColumns + ` FROM messages
		WHERE message_type = ? ORDER BY timestamp DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, messageType, limit)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}
	return scanMessages(rows)
}

// MessagesByType 某类型的全部消息
func (s *SQLStore) MessagesByType(ctx context.Context, messageType string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+messageColumns+` FROM messages WHERE message_type = ?`), messageType)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}
	return scanMessages(rows)
}

// GetInventory 查询背包
func (s *SQLStore) GetInventory(ctx context.Context, playerID string) (models.Inventory, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT player_id, fish, treasures, cargo, created_at, updated_at
		FROM inventories WHERE player_id = ?`), playerID)

	var inv models.Inventory
	var fish, treasures, cargo string
	var createdAt, updatedAt int64
	if err := row.Scan(&inv.PlayerID, &fish, &treasures, &cargo, &createdAt, &updatedAt); err != nil {
		return models.Inventory{}, translateError(err)
	}

	for t, raw := range map[models.ItemType]string{
		models.ItemFish:      fish,
		models.ItemTreasures: treasures,
		models.ItemCargo:     cargo,
	} {
		var items []models.Item
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return models.Inventory{}, fmt.Errorf("解析背包%s失败: %w", t, err)
		}
		inv.SetItems(t, items)
	}
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return inv, nil
}

func encodeItems(inv models.Inventory) (fish, treasures, cargo string, err error) {
	enc := func(items []models.Item) (string, error) {
		if items == nil {
			items = []models.Item{}
		}
		b, err := json.Marshal(items)
		return string(b), err
	}
	if fish, err = enc(inv.Fish); err != nil {
		return
	}
	if treasures, err = enc(inv.Treasures); err != nil {
		return
	}
	cargo, err = enc(inv.Cargo)
	return
}

// CreateInventory 新建背包，已存在时返回ErrDuplicate
func (s *SQLStore) CreateInventory(ctx context.Context, inv models.Inventory) error {
	fish, treasures, cargo, err := encodeItems(inv)
	if err != nil {
		return fmt.Errorf("序列化背包失败: %w", err)
	}
	query := s.rebind(`INSERT INTO inventories (player_id, fish, treasures, cargo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, inv.PlayerID, fish, treasures, cargo,
		toMillis(inv.CreatedAt), toMillis(inv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("创建背包失败: %w", translateError(err))
	}
	return nil
}

// UpdateInventory 整体覆盖背包的三个集合
func (s *SQLStore) UpdateInventory(ctx context.Context, inv models.Inventory) error {
	fish, treasures, cargo, err := encodeItems(inv)
	if err != nil {
		return fmt.Errorf("序列化背包失败: %w", err)
	}
	query := s.rebind(`UPDATE inventories SET fish = ?, treasures = ?, cargo = ?, updated_at = ? WHERE player_id = ?`)
	res, err := s.db.ExecContext(ctx, query, fish, treasures, cargo, toMillis(inv.UpdatedAt), inv.PlayerID)
	if err != nil {
		return fmt.Errorf("更新背包失败: %w", translateError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
