// dispatcher.go

package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/auth"
	"github.com/jacl-coder/SeaStorm-Server/internal/chat"
	"github.com/jacl-coder/SeaStorm-Server/internal/inventory"
	"github.com/jacl-coder/SeaStorm-Server/internal/journal"
	"github.com/jacl-coder/SeaStorm-Server/internal/leaderboard"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/protocol"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	"github.com/jacl-coder/SeaStorm-Server/internal/throttle"
	"github.com/jacl-coder/SeaStorm-Server/internal/world"
	log "github.com/sirupsen/logrus"
)

// 非节流写入等待队列空位的最长时间
const submitWait = 2 * time.Second

// ErrPlayerUnavailable 玩家记录暂时无法读取
var ErrPlayerUnavailable = errors.New("玩家数据暂时不可用，请稍后重试")

// Transport 向连接发送数据
type Transport interface {
	// Send 非阻塞发送，连接不存在时返回false
	Send(connID string, data []byte) bool
	// Close 关闭连接
	Close(connID string)
}

// Deps 调度器依赖
type Deps struct {
	State       *world.State
	Registry    *world.Registry
	Throttle    *throttle.Policy
	Store       store.Store
	Persister   *store.WriteBehind
	Verifier    auth.Verifier
	Decoder     *protocol.Decoder
	Leaderboard *leaderboard.Service
	Mirror      *leaderboard.RedisMirror
	History     chat.History
	Limiter     *chat.Limiter
	Inventory   *inventory.Service
	Journal     journal.Recorder

	HistoryLimit int
}

// Dispatcher 把入站事件路由到对应的处理函数
type Dispatcher struct {
	state       *world.State
	registry    *world.Registry
	throttle    *throttle.Policy
	store       store.Store
	persister   *store.WriteBehind
	verifier    auth.Verifier
	decoder     *protocol.Decoder
	leaderboard *leaderboard.Service
	mirror      *leaderboard.RedisMirror
	history     chat.History
	limiter     *chat.Limiter
	inventory   *inventory.Service
	journal     journal.Recorder

	historyLimit int
	transport    Transport
	now          func() time.Time

	// 加入和断开时的在线状态与连接绑定一起变更
	lifecycleMu sync.Mutex
}

// NewDispatcher 创建事件调度器
func NewDispatcher(deps Deps) *Dispatcher {
	d := &Dispatcher{
		state:        deps.State,
		registry:     deps.Registry,
		throttle:     deps.Throttle,
		store:        deps.Store,
		persister:    deps.Persister,
		verifier:     deps.Verifier,
		decoder:      deps.Decoder,
		leaderboard:  deps.Leaderboard,
		mirror:       deps.Mirror,
		history:      deps.History,
		limiter:      deps.Limiter,
		inventory:    deps.Inventory,
		journal:      deps.Journal,
		historyLimit: deps.HistoryLimit,
		now:          time.Now,
	}
	if d.state == nil {
		d.state = world.NewState()
	}
	if d.registry == nil {
		d.registry = world.NewRegistry()
	}
	if d.throttle == nil {
		d.throttle = throttle.NewPolicy(throttle.Responsive)
	}
	if d.persister == nil {
		d.persister = store.NewWriteBehind(0)
	}
	if d.decoder == nil {
		d.decoder = protocol.MustNewDecoder()
	}
	if d.leaderboard == nil {
		d.leaderboard = leaderboard.NewService(d.store, d.state, leaderboard.DefaultSize)
	}
	if d.history == nil {
		d.history = chat.NoHistory{}
	}
	if d.limiter == nil {
		d.limiter = chat.NewLimiter(2, 5)
	}
	if d.inventory == nil && d.store != nil {
		d.inventory = inventory.NewService(d.store)
	}
	if d.journal == nil {
		d.journal = journal.Nop{}
	}
	if d.historyLimit <= 0 {
		d.historyLimit = 50
	}
	return d
}

// SetTransport 设置出站通道
func (d *Dispatcher) SetTransport(t Transport) {
	d.transport = t
}

// Preload 启动时把所有玩家置为离线并加载岛屿
func (d *Dispatcher) Preload(ctx context.Context) error {
	n, err := d.store.DeactivateAll(ctx)
	if err != nil {
		return err
	}
	islands, err := d.store.ListIslands(ctx)
	if err != nil {
		return err
	}
	for _, is := range islands {
		d.state.PutIsland(is)
	}
	log.WithFields(log.Fields{"deactivated": n, "islands": len(islands)}).Info("世界状态已加载")

	if err := d.RefreshMirror(ctx); err != nil {
		log.WithError(err).Warn("刷新Redis排行榜失败")
	}
	return nil
}

// Handle 处理一条入站消息。同一连接的消息由调用方按到达顺序依次传入
func (d *Dispatcher) Handle(ctx context.Context, connID string, raw []byte) {
	ev, err := d.decoder.Decode(raw)
	if err != nil {
		d.rejectInvalid(connID, err)
		return
	}

	switch e := ev.(type) {
	case *protocol.Join:
		d.handleJoin(ctx, connID, e)
	case *protocol.UpdatePosition:
		d.handlePosition(connID, e)
	case *protocol.PlayerAction:
		d.handleAction(ctx, connID, e)
	case *protocol.SendMessage:
		d.handleChat(connID, e)
	case *protocol.UpdatePlayerName:
		d.handleName(connID, e)
	case *protocol.UpdatePlayerColor:
		d.handleColor(connID, e)
	case *protocol.AddToInventory:
		d.handleAddItem(ctx, connID, e)
	case *protocol.RemoveFromInventory:
		d.handleRemoveItem(ctx, connID, e)
	case *protocol.ClearInventory:
		d.handleClearInventory(ctx, connID, e)
	case *protocol.GetInventory:
		d.handleGetInventory(ctx, connID, e)
	}
}

// rejectInvalid 位置更新和未知事件只记日志，其余写操作回复action_error
func (d *Dispatcher) rejectInvalid(connID string, err error) {
	typ := protocol.DecodeErrorType(err)
	entry := log.WithError(err).WithFields(log.Fields{"conn": connID, "type": typ})

	switch {
	case typ == protocol.TypeUpdatePosition:
		entry.Debug("丢弃无效的位置更新")
	case errors.Is(err, protocol.ErrUnknownEvent), typ == "":
		entry.Warn("无法识别的消息")
	default:
		entry.Warn("消息格式无效")
		d.sendError(connID, protocol.TypeActionError, typ, err)
	}
}

// bound 查询连接绑定的玩家，并检查payload中的player_id
func (d *Dispatcher) bound(connID, eventType, claimed string) (string, bool) {
	id, ok := d.registry.Lookup(connID)
	if !ok {
		log.WithFields(log.Fields{"conn": connID, "type": eventType}).Warn("未加入的连接发送了事件")
		return "", false
	}
	if claimed != "" && claimed != id {
		log.WithFields(log.Fields{"conn": connID, "type": eventType, "player": id, "claimed": claimed}).
			Warn("player_id与连接不匹配，丢弃事件")
		return "", false
	}
	return id, true
}

func (d *Dispatcher) handleJoin(ctx context.Context, connID string, ev *protocol.Join) {
	if strings.TrimSpace(ev.Token) == "" {
		d.sendError(connID, protocol.TypeAuthRequired, protocol.TypeJoin, auth.ErrMissingToken)
		return
	}
	playerID, err := d.verifier.Verify(ctx, ev.Token)
	if err != nil {
		log.WithError(err).WithField("conn", connID).Warn("身份验证失败")
		d.sendError(connID, protocol.TypeAuthError, protocol.TypeJoin, err)
		return
	}
	if ev.ClaimedID != "" && ev.ClaimedID != playerID {
		log.WithFields(log.Fields{"conn": connID, "player": playerID, "claimed": ev.ClaimedID}).
			Warn("声明的id与令牌不一致，使用令牌中的id")
	}

	now := d.now()
	fields := d.joinFields(ev, now)

	d.lifecycleMu.Lock()
	if err := d.resolvePlayer(ctx, playerID, now); err != nil {
		d.lifecycleMu.Unlock()
		log.WithError(err).WithFields(log.Fields{"conn": connID, "player": playerID}).Error("读取玩家失败，拒绝加入")
		d.sendError(connID, protocol.TypeActionError, protocol.TypeJoin, ErrPlayerUnavailable)
		return
	}
	player := d.state.UpsertPlayer(playerID, fields, now)
	d.throttle.Seed(playerID, player.Position, now)

	prev, rebound := d.registry.Lookup(connID)
	evicted, replaced := d.registry.Register(connID, playerID)
	var released *models.PlayerState
	if rebound && prev != playerID {
		if _, still := d.registry.Connection(prev); !still {
			if p, ok := d.deactivate(prev, now); ok {
				released = &p
			}
		}
	}
	d.lifecycleMu.Unlock()

	d.submitPlayer("join", playerID, models.FullFields(player))
	if released != nil {
		d.afterLeave(*released)
	}

	if replaced {
		log.WithFields(log.Fields{"player": playerID, "old": evicted, "new": connID}).Info("同一玩家的新连接替换了旧连接")
		d.send(evicted, protocol.TypeSessionReplaced, protocol.ErrorPayload{
			Event:   protocol.TypeJoin,
			Message: "该账号已在其它连接登录",
		})
		d.transport.Close(evicted)
	}

	log.WithFields(log.Fields{"conn": connID, "player": playerID, "name": player.Name}).Info("玩家加入")
	d.journal.Record(journal.KindJoin, playerID, player)

	d.send(connID, protocol.TypeConnectionResponse, protocol.ConnectionResponse{
		Status:       "connected",
		ConnectionID: connID,
		Player:       player,
	})
	d.broadcast(protocol.TypePlayerJoined, player, "")

	d.send(connID, protocol.TypeAllPlayers, d.state.ActivePlayers())
	d.send(connID, protocol.TypeAllIslands, d.state.Islands())
	d.send(connID, protocol.TypeChatHistory, d.recentChat(ctx))
	d.send(connID, protocol.TypeLeaderboardUpdate, d.leaderboard.Snapshot(ctx))
}

// joinFields 加入时携带的可选字段，无效名称被忽略
func (d *Dispatcher) joinFields(ev *protocol.Join, now time.Time) models.PlayerFields {
	active := true
	fields := models.PlayerFields{Active: &active, LastUpdate: &now}
	if ev.Name != nil {
		name, err := chat.SanitizeName(*ev.Name)
		if err != nil {
			log.WithError(err).WithField("name", *ev.Name).Debug("忽略加入时的无效名称")
		} else {
			fields.Name = &name
		}
	}
	if ev.Color != nil && ev.Color.Valid() {
		fields.Color = ev.Color
	}
	if ev.Position != nil {
		fields.Position = ev.Position
	}
	return fields
}

// resolvePlayer 依次从缓存和存储中查找玩家，都没有时创建默认玩家。
// 存储中的记录无法读取时返回错误，不能用默认值覆盖它
func (d *Dispatcher) resolvePlayer(ctx context.Context, id string, now time.Time) error {
	if _, ok := d.state.Player(id); ok {
		return nil
	}

	p, err := d.store.GetPlayer(ctx, id)
	if err == nil {
		d.state.PutPlayer(p)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	p = models.NewPlayerState(id, now)
	err = d.store.CreatePlayer(ctx, p)
	if errors.Is(err, store.ErrDuplicate) {
		// 其它连接刚刚创建了同一玩家
		existing, gerr := d.store.GetPlayer(ctx, id)
		if gerr != nil {
			return gerr
		}
		p, err = existing, nil
	}
	if err != nil {
		// 记录不存在，只影响本次会话的持久化
		log.WithError(err).WithField("player", id).Error("创建玩家失败")
	}
	d.state.PutPlayer(p)
	return nil
}

func (d *Dispatcher) handlePosition(connID string, ev *protocol.UpdatePosition) {
	id, ok := d.bound(connID, protocol.TypeUpdatePosition, ev.PlayerID)
	if !ok {
		return
	}

	now := d.now()
	pos := models.Vector3{X: ev.X, Y: ev.Y, Z: ev.Z}
	p, ok := d.state.ApplyPosition(id, pos, ev.Rotation, ev.Mode, now)
	if !ok {
		return
	}

	if d.throttle.ShouldPersist(id, pos, now) {
		d.submitPosition(id, models.PlayerFields{
			Position:   &p.Position,
			Rotation:   &p.Rotation,
			Mode:       &p.Mode,
			LastUpdate: &p.LastUpdate,
		})
	}

	d.broadcast(protocol.TypePlayerMoved, protocol.PlayerMoved{
		ID:       id,
		Position: p.Position,
		Rotation: p.Rotation,
		Mode:     p.Mode,
		Color:    p.Color,
	}, connID)
}

func (d *Dispatcher) handleAction(ctx context.Context, connID string, ev *protocol.PlayerAction) {
	id, ok := d.bound(connID, protocol.TypePlayerAction, ev.PlayerID)
	if !ok {
		return
	}
	stat, ok := protocol.ActionStat(ev.Action)
	if !ok {
		d.sendError(connID, protocol.TypeActionError, protocol.TypePlayerAction, protocol.ErrInvalidPayload)
		return
	}
	amount := int64(1)
	if ev.Amount != nil {
		amount = *ev.Amount
	}

	now := d.now()
	p, ok := d.state.AddStat(id, stat, amount, now)
	if !ok {
		return
	}
	value := p.StatValue(stat)
	fields := models.PlayerFields{LastUpdate: &p.LastUpdate}
	switch stat {
	case models.StatFishCount:
		fields.FishCount = &value
	case models.StatMonsterKills:
		fields.MonsterKills = &value
	case models.StatMoney:
		fields.Money = &value
	}
	d.submitPlayer("achievement", id, fields)

	d.updateMirror(p)

	d.journal.Record(journal.KindAchievement, id, protocol.PlayerAchievement{
		ID: id, Name: p.Name, Action: ev.Action, Stat: stat, Amount: amount, Value: value,
	})
	d.broadcast(protocol.TypePlayerAchievement, protocol.PlayerAchievement{
		ID:     id,
		Name:   p.Name,
		Action: ev.Action,
		Stat:   stat,
		Amount: amount,
		Value:  value,
	}, "")
	d.broadcast(protocol.TypeLeaderboardUpdate, d.leaderboard.Snapshot(ctx), "")
}

func (d *Dispatcher) handleChat(connID string, ev *protocol.SendMessage) {
	id, ok := d.bound(connID, protocol.TypeSendMessage, ev.PlayerID)
	if !ok {
		return
	}
	if err := chat.Validate(ev.Content); err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeSendMessage, err)
		return
	}
	now := d.now()
	if !d.limiter.AllowAt(connID, now) {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeSendMessage, chat.ErrRateLimited)
		return
	}

	sender, ok := d.state.Player(id)
	if !ok {
		return
	}
	msgType := ev.MessageType
	if msgType == "" {
		msgType = models.MessageTypeGlobal
	}
	msg := chat.NewMessage(sender, strings.TrimSpace(ev.Content), msgType, now)

	history := d.history
	d.persister.Submit("chat message", func(ctx context.Context) error {
		return history.Append(ctx, msg)
	})
	d.journal.Record(journal.KindChat, id, msg)
	d.broadcast(protocol.TypeNewMessage, msg, "")
}

func (d *Dispatcher) handleName(connID string, ev *protocol.UpdatePlayerName) {
	id, ok := d.bound(connID, protocol.TypeUpdatePlayerName, ev.PlayerID)
	if !ok {
		return
	}
	name, err := chat.SanitizeName(ev.Name)
	if err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeUpdatePlayerName, err)
		return
	}

	now := d.now()
	p := d.state.UpsertPlayer(id, models.PlayerFields{Name: &name, LastUpdate: &now}, now)
	d.submitPlayer("name", id, models.PlayerFields{Name: &p.Name, LastUpdate: &p.LastUpdate})
	d.updateMirror(p)
	d.broadcast(protocol.TypePlayerUpdated, protocol.PlayerUpdated{ID: id, Name: &p.Name}, "")
}

func (d *Dispatcher) handleColor(connID string, ev *protocol.UpdatePlayerColor) {
	id, ok := d.bound(connID, protocol.TypeUpdatePlayerColor, ev.PlayerID)
	if !ok {
		return
	}
	if !ev.Color.Valid() {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeUpdatePlayerColor, protocol.ErrInvalidPayload)
		return
	}

	now := d.now()
	color := ev.Color
	p := d.state.UpsertPlayer(id, models.PlayerFields{Color: &color, LastUpdate: &now}, now)
	d.submitPlayer("color", id, models.PlayerFields{Color: &p.Color, LastUpdate: &p.LastUpdate})
	d.updateMirror(p)
	d.broadcast(protocol.TypePlayerUpdated, protocol.PlayerUpdated{ID: id, Color: &p.Color}, "")
}

func (d *Dispatcher) handleAddItem(ctx context.Context, connID string, ev *protocol.AddToInventory) {
	id, ok := d.bound(connID, protocol.TypeAddToInventory, ev.PlayerID)
	if !ok {
		return
	}
	var data map[string]any
	if len(ev.ItemData) > 0 {
		var err error
		if data, err = protocol.ItemDataFromJSON(ev.ItemData); err != nil {
			d.sendError(connID, protocol.TypeActionError, protocol.TypeAddToInventory, err)
			return
		}
	}

	inv, err := d.inventory.Add(ctx, id, models.ItemType(ev.ItemType), ev.ItemName, data)
	if err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeAddToInventory, err)
		return
	}
	d.send(connID, protocol.TypeInventoryUpdated, protocol.InventoryPayload{Action: "add", Inventory: inv})
}

func (d *Dispatcher) handleRemoveItem(ctx context.Context, connID string, ev *protocol.RemoveFromInventory) {
	id, ok := d.bound(connID, protocol.TypeRemoveFromInventory, ev.PlayerID)
	if !ok {
		return
	}
	item, inv, err := d.inventory.Remove(ctx, id, models.ItemType(ev.ItemType), ev.Index)
	if err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeRemoveFromInventory, err)
		return
	}
	d.send(connID, protocol.TypeInventoryUpdated, protocol.InventoryPayload{Action: "remove", Inventory: inv, Removed: &item})
}

func (d *Dispatcher) handleClearInventory(ctx context.Context, connID string, ev *protocol.ClearInventory) {
	id, ok := d.bound(connID, protocol.TypeClearInventory, ev.PlayerID)
	if !ok {
		return
	}
	inv, err := d.inventory.Clear(ctx, id)
	if err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeClearInventory, err)
		return
	}
	d.send(connID, protocol.TypeInventoryUpdated, protocol.InventoryPayload{Action: "clear", Inventory: inv})
}

func (d *Dispatcher) handleGetInventory(ctx context.Context, connID string, ev *protocol.GetInventory) {
	id, ok := d.bound(connID, protocol.TypeGetInventory, ev.PlayerID)
	if !ok {
		return
	}
	inv, err := d.inventory.Get(ctx, id)
	if err != nil {
		d.sendError(connID, protocol.TypeActionError, protocol.TypeGetInventory, err)
		return
	}
	d.send(connID, protocol.TypeInventoryData, protocol.InventoryPayload{Inventory: inv})
}

// Disconnect 连接断开。未知连接直接忽略，被替换的旧连接不会让玩家离线
func (d *Dispatcher) Disconnect(connID string) {
	d.limiter.Forget(connID)

	d.lifecycleMu.Lock()
	playerID, last, ok := d.registry.Remove(connID)
	if !ok || !last {
		d.lifecycleMu.Unlock()
		return
	}
	p, ok := d.deactivate(playerID, d.now())
	d.lifecycleMu.Unlock()

	if ok {
		d.afterLeave(p)
	}
}

// deactivate 调用方持有lifecycleMu
func (d *Dispatcher) deactivate(playerID string, now time.Time) (models.PlayerState, bool) {
	p, ok := d.state.SetActive(playerID, false, now)
	d.throttle.Forget(playerID)
	return p, ok
}

func (d *Dispatcher) afterLeave(p models.PlayerState) {
	d.submitPlayer("leave", p.ID, models.PlayerFields{
		Active:     &p.Active,
		Position:   &p.Position,
		Rotation:   &p.Rotation,
		Mode:       &p.Mode,
		LastUpdate: &p.LastUpdate,
	})
	log.WithField("player", p.ID).Info("玩家离开")
	d.journal.Record(journal.KindLeave, p.ID, nil)
	d.broadcast(protocol.TypePlayerDisconnected, protocol.PlayerRef{ID: p.ID}, "")
}

// CreateIsland 登记新岛屿并通知所有在线玩家
func (d *Dispatcher) CreateIsland(ctx context.Context, is models.Island) (models.Island, error) {
	if is.ID == "" {
		is.ID = newID()
	}
	if is.Radius <= 0 {
		is.Radius = models.DefaultIslandRadius
	}
	if is.Type == "" {
		is.Type = models.DefaultIslandType
	}
	if is.CreatedAt.IsZero() {
		is.CreatedAt = d.now()
	}

	if err := d.store.CreateIsland(ctx, is); err != nil {
		return models.Island{}, err
	}
	d.state.PutIsland(is)
	d.journal.Record(journal.KindIsland, "", is)
	d.broadcast(protocol.TypeIslandRegistered, is, "")
	return is, nil
}

// ActivePlayers 在线玩家
func (d *Dispatcher) ActivePlayers() []models.PlayerState {
	return d.state.ActivePlayers()
}

// Islands 所有岛屿
func (d *Dispatcher) Islands() []models.Island {
	return d.state.Islands()
}

// Leaderboard 指定条目数的排行榜
func (d *Dispatcher) Leaderboard(ctx context.Context, limit int) models.Leaderboard {
	if limit <= 0 {
		limit = d.leaderboard.Size()
	}
	return d.leaderboard.SnapshotN(ctx, limit)
}

// Status 服务器状态
func (d *Dispatcher) Status() protocol.Status {
	players, active, islands := d.state.Counts()
	return protocol.Status{
		Status:      "online",
		Players:     players,
		Active:      active,
		Islands:     islands,
		Connections: d.registry.Count(),
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}
}

func (d *Dispatcher) recentChat(ctx context.Context) []models.ChatMessage {
	msgs, err := d.history.Recent(ctx, models.MessageTypeGlobal, d.historyLimit)
	if err != nil {
		log.WithError(err).Warn("读取聊天记录失败")
		return []models.ChatMessage{}
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs
}

// submitPlayer 异步写入玩家字段，失败只记录日志
// submitPlayer 非节流写入，队列满时短暂等待
func (d *Dispatcher) submitPlayer(name, playerID string, fields models.PlayerFields) {
	s := d.store
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	d.persister.SubmitWait(ctx, name, func(ctx context.Context) error {
		return s.UpdatePlayer(ctx, playerID, fields)
	})
}

// submitPosition 节流后的位置写入，队列满时丢弃，下一次超过阈值的更新会补上
func (d *Dispatcher) submitPosition(playerID string, fields models.PlayerFields) {
	s := d.store
	d.persister.Submit("position", func(ctx context.Context) error {
		return s.UpdatePlayer(ctx, playerID, fields)
	})
}

func (d *Dispatcher) updateMirror(p models.PlayerState) {
	if d.mirror == nil {
		return
	}
	mirror := d.mirror
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	d.persister.SubmitWait(ctx, "leaderboard mirror", func(ctx context.Context) error {
		return mirror.Update(ctx, p)
	})
}

// RefreshMirror 用存储与缓存合并后的完整玩家列表重建Redis排行榜。
// 存储读取失败时保留原有镜像
func (d *Dispatcher) RefreshMirror(ctx context.Context) error {
	if d.mirror == nil {
		return nil
	}
	players, err := d.leaderboard.Players(ctx)
	if err != nil {
		return err
	}
	return d.mirror.Refresh(ctx, players)
}

func (d *Dispatcher) send(connID, msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.WithError(err).WithField("type", msgType).Error("序列化消息失败")
		return
	}
	d.transport.Send(connID, data)
}

func (d *Dispatcher) sendError(connID, msgType, event string, err error) {
	d.send(connID, msgType, protocol.ErrorPayload{Event: event, Message: err.Error()})
}

// broadcast 发给所有已加入的连接，exclude为空时不排除
func (d *Dispatcher) broadcast(msgType string, payload any, exclude string) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.WithError(err).WithField("type", msgType).Error("序列化消息失败")
		return
	}
	for _, c := range d.registry.Connections() {
		if c == exclude {
			continue
		}
		d.transport.Send(c, data)
	}
}
