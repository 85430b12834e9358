package journal

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	w := NewWriter(dir, func(err error) { t.Errorf("record: %v", err) })
	w.now = func() time.Time { return at }
	w.Record(KindJoin, "u1", map[string]any{"name": "Jack"})
	w.Record(KindChat, "u1", "ahoy")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := ReadFile(w.Path("2024-05-01-10"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	testutil.AssertEqual(t, "count", len(entries), 2)
	testutil.AssertEqual(t, "kind", entries[0].Kind, KindJoin)
	testutil.AssertEqual(t, "player", entries[0].PlayerID, "u1")
	testutil.AssertEqual(t, "data", entries[1].Data, any("ahoy"))
	testutil.AssertEqual(t, "time", entries[0].At.Equal(at), true)
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	first := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	if err := w.Write(Entry{At: first, Kind: KindLeave}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(Entry{At: first.Add(2 * time.Minute), Kind: KindLeave}); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	a, err := ReadFile(w.Path("2024-05-01-10"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	b, err := ReadFile(w.Path("2024-05-01-11"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	testutil.AssertEqual(t, "first hour", len(a), 1)
	testutil.AssertEqual(t, "second hour", len(b), 1)
}
