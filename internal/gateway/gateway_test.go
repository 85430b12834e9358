package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/protocol"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	"github.com/pixil98/go-testutil"
)

type fakeWorld struct {
	players   []models.PlayerState
	islands   []models.Island
	lbLimit   int
	createErr error
	created   []models.Island
}

func (f *fakeWorld) ActivePlayers() []models.PlayerState { return f.players }

func (f *fakeWorld) Islands() []models.Island { return append(f.islands, f.created...) }

func (f *fakeWorld) Leaderboard(ctx context.Context, limit int) models.Leaderboard {
	f.lbLimit = limit
	return models.Leaderboard{
		FishCount:    []models.LeaderboardEntry{{Name: "Jack", Value: 3, Color: "#ff0000"}},
		MonsterKills: []models.LeaderboardEntry{},
		Money:        []models.LeaderboardEntry{},
	}
}

func (f *fakeWorld) Status() protocol.Status {
	return protocol.Status{Status: "online", Players: len(f.players), Active: len(f.players)}
}

func (f *fakeWorld) CreateIsland(ctx context.Context, is models.Island) (models.Island, error) {
	if f.createErr != nil {
		return models.Island{}, f.createErr
	}
	is.ID = "new-island"
	f.created = append(f.created, is)
	return is, nil
}

type fakeInventories map[string]models.Inventory

func (f fakeInventories) GetInventory(ctx context.Context, playerID string) (models.Inventory, error) {
	inv, ok := f[playerID]
	if !ok {
		return models.Inventory{}, store.ErrNotFound
	}
	return inv, nil
}

type fakeHistory []models.ChatMessage

func (f fakeHistory) Append(context.Context, models.ChatMessage) error { return nil }

func (f fakeHistory) Recent(ctx context.Context, messageType string, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range f {
		if m.MessageType == messageType {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestGateway(t *testing.T, world *fakeWorld, adminToken string) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.AdminToken = adminToken

	now := time.UnixMilli(1_700_000_000_000)
	g := NewGateway(cfg, Deps{
		World: world,
		Messages: fakeHistory{
			{ID: "m1", Content: "one", MessageType: models.MessageTypeGlobal, Timestamp: now},
			{ID: "m2", Content: "two", MessageType: models.MessageTypeGlobal, Timestamp: now.Add(time.Second)},
			{ID: "t1", Content: "trade", MessageType: "trade", Timestamp: now},
		},
		Inventories: fakeInventories{
			"user-1": {PlayerID: "user-1", Fish: []models.Item{{Name: "cod"}}},
		},
	})
	t.Cleanup(g.rateLimiter.Stop)
	return g.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return rec.Code, env
}

func TestGateway_Queries(t *testing.T) {
	world := &fakeWorld{
		players: []models.PlayerState{models.NewPlayerState("user-1", time.Now())},
		islands: []models.Island{{ID: "isle", Radius: 50, Type: "default"}},
	}
	h := newTestGateway(t, world, "")

	code, env := do(t, h, http.MethodGet, "/api/players", "", nil)
	testutil.AssertEqual(t, "players status", code, http.StatusOK)
	testutil.AssertEqual(t, "players success", env.Success, true)
	var players []models.PlayerState
	if err := json.Unmarshal(env.Data, &players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	testutil.AssertEqual(t, "players", len(players), 1)

	code, env = do(t, h, http.MethodGet, "/api/islands", "", nil)
	testutil.AssertEqual(t, "islands status", code, http.StatusOK)
	var islands []models.Island
	if err := json.Unmarshal(env.Data, &islands); err != nil {
		t.Fatalf("decode islands: %v", err)
	}
	testutil.AssertEqual(t, "islands", len(islands), 1)

	code, env = do(t, h, http.MethodGet, "/api/status", "", nil)
	testutil.AssertEqual(t, "status code", code, http.StatusOK)
	var st protocol.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	testutil.AssertEqual(t, "online", st.Status, "online")

	code, _ = do(t, h, http.MethodDelete, "/api/players", "", nil)
	testutil.AssertEqual(t, "method", code, http.StatusMethodNotAllowed)
}

func TestGateway_Leaderboard(t *testing.T) {
	world := &fakeWorld{}
	h := newTestGateway(t, world, "")

	code, env := do(t, h, http.MethodGet, "/api/leaderboard?limit=500", "", nil)
	testutil.AssertEqual(t, "status", code, http.StatusOK)
	testutil.AssertEqual(t, "clamped", world.lbLimit, maxLeaderboardLimit)

	var lb models.Leaderboard
	if err := json.Unmarshal(env.Data, &lb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "leader", lb.FishCount[0].Name, "Jack")
	testutil.AssertEqual(t, "color", lb.FishCount[0].Color, "#ff0000")

	code, env = do(t, h, http.MethodGet, "/api/leaderboard?limit=abc", "", nil)
	testutil.AssertEqual(t, "bad limit", code, http.StatusBadRequest)
	testutil.AssertEqual(t, "failure", env.Success, false)
}

func TestGateway_Messages(t *testing.T) {
	h := newTestGateway(t, &fakeWorld{}, "")

	_, env := do(t, h, http.MethodGet, "/api/messages?limit=1", "", nil)
	var msgs []models.ChatMessage
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "count", len(msgs), 1)
	testutil.AssertEqual(t, "newest", msgs[0].ID, "m2")

	_, env = do(t, h, http.MethodGet, "/api/messages?type=trade", "", nil)
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "trade", len(msgs), 1)
}

func TestGateway_Inventory(t *testing.T) {
	h := newTestGateway(t, &fakeWorld{}, "")

	_, env := do(t, h, http.MethodGet, "/api/inventory/user-1", "", nil)
	var inv models.Inventory
	if err := json.Unmarshal(env.Data, &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "fish", len(inv.Fish), 1)

	code, env := do(t, h, http.MethodGet, "/api/inventory/nobody", "", nil)
	testutil.AssertEqual(t, "missing ok", code, http.StatusOK)
	if err := json.Unmarshal(env.Data, &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "empty", len(inv.Fish), 0)
	testutil.AssertEqual(t, "player", inv.PlayerID, "nobody")

	code, _ = do(t, h, http.MethodGet, "/api/inventory/", "", nil)
	testutil.AssertEqual(t, "no id", code, http.StatusBadRequest)
}

func TestGateway_CreateIsland(t *testing.T) {
	world := &fakeWorld{}
	h := newTestGateway(t, world, "secret")
	body := `{"x": 10, "y": 0, "z": -20, "type": "volcano"}`

	code, _ := do(t, h, http.MethodPost, "/api/islands", body, nil)
	testutil.AssertEqual(t, "no token", code, http.StatusUnauthorized)

	code, _ = do(t, h, http.MethodPost, "/api/islands", body, map[string]string{adminTokenHeader: "wrong"})
	testutil.AssertEqual(t, "wrong token", code, http.StatusUnauthorized)

	code, _ = do(t, h, http.MethodPost, "/api/islands", "{", map[string]string{adminTokenHeader: "secret"})
	testutil.AssertEqual(t, "bad body", code, http.StatusBadRequest)

	code, env := do(t, h, http.MethodPost, "/api/islands", body, map[string]string{adminTokenHeader: "secret"})
	testutil.AssertEqual(t, "created", code, http.StatusOK)
	var is models.Island
	if err := json.Unmarshal(env.Data, &is); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "type", is.Type, "volcano")
	testutil.AssertEqual(t, "position", is.Position, models.Vector3{X: 10, Y: 0, Z: -20})

	world.createErr = errors.New("db down")
	code, _ = do(t, h, http.MethodPost, "/api/islands", body, map[string]string{adminTokenHeader: "secret"})
	testutil.AssertEqual(t, "store failure", code, http.StatusInternalServerError)
}

func TestGateway_AdminDisabled(t *testing.T) {
	h := newTestGateway(t, &fakeWorld{}, "")

	code, _ := do(t, h, http.MethodPost, "/api/islands", `{"x":1,"y":2,"z":3}`, map[string]string{adminTokenHeader: ""})
	testutil.AssertEqual(t, "disabled", code, http.StatusForbidden)
}

func TestCacheMiddleware(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			calls++
		}
		sendSuccessResponse(w, "ok", calls)
	})
	cm := NewCacheMiddleware()
	now := time.Unix(100, 0)
	cm.now = func() time.Time { return now }
	h := cm.Middleware(next)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/islands", nil))
		return rec
	}

	first := get()
	testutil.AssertEqual(t, "miss", first.Header().Get("X-Cache"), "MISS")
	second := get()
	testutil.AssertEqual(t, "hit", second.Header().Get("X-Cache"), "HIT")
	testutil.AssertEqual(t, "same body", second.Body.String(), first.Body.String())
	testutil.AssertEqual(t, "calls", calls, 1)

	// 写请求使缓存失效
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/islands", nil))
	get()
	testutil.AssertEqual(t, "after write", calls, 2)

	now = now.Add(time.Minute)
	get()
	testutil.AssertEqual(t, "after expiry", calls, 3)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	defer rl.Stop()
	now := time.Unix(100, 0)

	testutil.AssertEqual(t, "first", rl.allow("1.2.3.4", now), true)
	testutil.AssertEqual(t, "second", rl.allow("1.2.3.4", now), true)
	testutil.AssertEqual(t, "third", rl.allow("1.2.3.4", now), false)
	testutil.AssertEqual(t, "other client", rl.allow("5.6.7.8", now), true)
	testutil.AssertEqual(t, "refilled", rl.allow("1.2.3.4", now.Add(time.Second)), true)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	testutil.AssertEqual(t, "remote", clientIP(req), "10.0.0.1")

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	testutil.AssertEqual(t, "forwarded", clientIP(req), "203.0.113.9")
}
