package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/config"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/pkg/db"
	"github.com/pixil98/go-testutil"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.InitAllTables(conn); err != nil {
		t.Fatalf("init tables: %v", err)
	}
	return NewSQLStore(conn, config.DriverSQLite)
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := NewSQLStore(nil, config.DriverPostgres)
	testutil.AssertEqual(t, "postgres", pg.rebind("a = ? AND b = ?"), "a = $1 AND b = $2")

	lite := NewSQLStore(nil, config.DriverSQLite)
	testutil.AssertEqual(t, "sqlite", lite.rebind("a = ? AND b = ?"), "a = ? AND b = ?")
}

func TestSQLStore_Players(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.UnixMilli(1_700_000_000_000).UTC()

	p := models.NewPlayerState("user-b", now)
	if err := s.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.CreatePlayer(ctx, p)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	a := models.NewPlayerState("user-a", now)
	a.Active = false
	if err := s.CreatePlayer(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetPlayer(ctx, "user-b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	testutil.AssertEqual(t, "name", got.Name, "Sailor user")
	testutil.AssertEqual(t, "color", got.Color, models.DefaultColor)
	testutil.AssertEqual(t, "mode", got.Mode, models.ModeBoat)
	testutil.AssertEqual(t, "active", got.Active, true)
	testutil.AssertEqual(t, "last update", got.LastUpdate.Equal(now), true)

	pos := models.Vector3{X: 3, Y: 0, Z: -4}
	fish := int64(7)
	if err := s.UpdatePlayer(ctx, "user-b", models.PlayerFields{Position: &pos, FishCount: &fish}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetPlayer(ctx, "user-b")
	testutil.AssertEqual(t, "position", got.Position, pos)
	testutil.AssertEqual(t, "fish", got.FishCount, int64(7))
	testutil.AssertEqual(t, "name untouched", got.Name, "Sailor user")

	err = s.UpdatePlayer(ctx, "missing", models.PlayerFields{FishCount: &fish})
	testutil.AssertEqual(t, "update missing", errors.Is(err, ErrNotFound), true)

	_, err = s.GetPlayer(ctx, "missing")
	testutil.AssertEqual(t, "get missing", errors.Is(err, ErrNotFound), true)

	all, err := s.ListPlayers(ctx, PlayerFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	testutil.AssertEqual(t, "count", len(all), 2)
	testutil.AssertEqual(t, "ordered", all[0].ID, "user-a")

	active, _ := s.ListPlayers(ctx, PlayerFilter{ActiveOnly: true})
	testutil.AssertEqual(t, "active count", len(active), 1)

	n, err := s.DeactivateAll(ctx)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	testutil.AssertEqual(t, "deactivated", n, int64(1))
	active, _ = s.ListPlayers(ctx, PlayerFilter{ActiveOnly: true})
	testutil.AssertEqual(t, "active after reset", len(active), 0)
}

func TestSQLStore_Messages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		msg := models.ChatMessage{
			ID:          id,
			SenderID:    "u",
			SenderName:  "Sailor u",
			Content:     id,
			MessageType: models.MessageTypeGlobal,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := models.ChatMessage{ID: "t1", SenderID: "u", Content: "x", MessageType: "trade", Timestamp: base}
	if err := s.CreateMessage(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	recent, err := s.RecentMessages(ctx, models.MessageTypeGlobal, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	testutil.AssertEqual(t, "count", len(recent), 2)
	testutil.AssertEqual(t, "newest", recent[0].ID, "m4")
	testutil.AssertEqual(t, "second", recent[1].ID, "m3")

	all, err := s.MessagesByType(ctx, "trade")
	if err != nil {
		t.Fatalf("by type: %v", err)
	}
	testutil.AssertEqual(t, "trade count", len(all), 1)
}

func TestSQLStore_Inventory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.UnixMilli(1_700_000_000_000)

	_, err := s.GetInventory(ctx, "u")
	testutil.AssertEqual(t, "missing", errors.Is(err, ErrNotFound), true)

	inv := models.NewInventory("u", now)
	if err := s.CreateInventory(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	err = s.CreateInventory(ctx, inv)
	testutil.AssertEqual(t, "duplicate", errors.Is(err, ErrDuplicate), true)

	inv.Fish = append(inv.Fish, models.Item{Name: "cod", AcquiredAt: now, Data: map[string]any{"weight": 2.5}})
	if err := s.UpdateInventory(ctx, inv); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetInventory(ctx, "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	testutil.AssertEqual(t, "fish", len(got.Fish), 1)
	testutil.AssertEqual(t, "fish name", got.Fish[0].Name, "cod")
	testutil.AssertEqual(t, "fish data", got.Fish[0].Data["weight"], any(2.5))
	testutil.AssertEqual(t, "cargo", len(got.Cargo), 0)
}

func TestSQLStore_Islands(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	is := models.Island{ID: "i1", Position: models.Vector3{X: 1, Y: 2, Z: 3}, Radius: 50, Type: "default", CreatedAt: time.UnixMilli(5)}
	if err := s.CreateIsland(ctx, is); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetIsland(ctx, "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	testutil.AssertEqual(t, "position", got.Position, is.Position)

	list, err := s.ListIslands(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	testutil.AssertEqual(t, "count", len(list), 1)
}
