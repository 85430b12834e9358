package game

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/protocol"
	"github.com/pixil98/go-testutil"
)

func dialGame(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": msgType, "payload": payload})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil 读取消息直到出现指定类型
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		var m protocol.Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if m.Type == msgType {
			return m
		}
	}
}

func newTestServer(t *testing.T) (*testEnv, *GameServer, *httptest.Server) {
	t.Helper()
	e := newTestEnv(t)
	e.d.now = time.Now

	cfg := &config.Config{}
	gs := NewGameServer(cfg, e.d)
	server := httptest.NewServer(gs.Handler())
	t.Cleanup(server.Close)
	return e, gs, server
}

func TestGameServer_Health(t *testing.T) {
	_, _, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	testutil.AssertEqual(t, "status", resp.StatusCode, http.StatusOK)
}

func TestGameServer_JoinMoveAndLeave(t *testing.T) {
	e, gs, server := newTestServer(t)

	first := dialGame(t, server)
	defer first.Close()
	token1, _ := e.verifier.Issue("user-1", time.Hour)
	writeEvent(t, first, protocol.TypeJoin, map[string]any{"token": token1})

	var resp protocol.ConnectionResponse
	if err := json.Unmarshal(readUntil(t, first, protocol.TypeConnectionResponse).Payload, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "player", resp.Player.ID, "user-1")
	readUntil(t, first, protocol.TypeLeaderboardUpdate)

	second := dialGame(t, server)
	token2, _ := e.verifier.Issue("user-2", time.Hour)
	writeEvent(t, second, protocol.TypeJoin, map[string]any{"token": token2})
	readUntil(t, second, protocol.TypeLeaderboardUpdate)
	readUntil(t, first, protocol.TypePlayerJoined)

	writeEvent(t, second, protocol.TypeUpdatePosition, map[string]any{"player_id": "user-2", "x": 5, "y": 0, "z": 7})
	var moved protocol.PlayerMoved
	if err := json.Unmarshal(readUntil(t, first, protocol.TypePlayerMoved).Payload, &moved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "moved id", moved.ID, "user-2")
	testutil.AssertEqual(t, "moved x", moved.Position.X, 5.0)

	second.Close()
	var ref protocol.PlayerRef
	if err := json.Unmarshal(readUntil(t, first, protocol.TypePlayerDisconnected).Payload, &ref); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "left", ref.ID, "user-2")
	testutil.AssertEqual(t, "connections", gs.ConnectionCount(), 1)
}

func TestGameServer_UnauthenticatedJoin(t *testing.T) {
	_, _, server := newTestServer(t)

	conn := dialGame(t, server)
	defer conn.Close()

	writeEvent(t, conn, protocol.TypeJoin, map[string]any{"token": "bogus"})
	var payload protocol.ErrorPayload
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeAuthError).Payload, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "event", payload.Event, protocol.TypeJoin)
}
