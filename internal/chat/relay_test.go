package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/pixil98/go-testutil"
)

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		content string
		expErr  error
	}{
		"ok":         {content: "ahoy"},
		"empty":      {content: "", expErr: ErrEmptyMessage},
		"whitespace": {content: "   ", expErr: ErrEmptyMessage},
		"at limit":   {content: strings.Repeat("a", 500)},
		"too long":   {content: strings.Repeat("a", 501), expErr: ErrMessageTooLong},
		"multibyte":  {content: strings.Repeat("海", 500)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(tt.content)
			testutil.AssertEqual(t, "err", errors.Is(err, tt.expErr), true)
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]struct {
		in     string
		exp    string
		expErr error
	}{
		"plain":          {in: "Captain", exp: "Captain"},
		"trimmed":        {in: "  Jack  ", exp: "Jack"},
		"tags":           {in: "<b>Bold</b>", exp: "Bold"},
		"entities":       {in: "Fish&amp;Chips", exp: "FishChips"},
		"quotes":         {in: `O'Neil "the" \/ Sailor`, exp: "ONeil the  Sailor"},
		"clan tag":       {in: "[SEA] Wolf", exp: "[SEA] Wolf"},
		"script":         {in: "<script>evil</script>[Clan<b>X</b>]", exp: "[ClanX]"},
		"nested clan":    {in: "[a[<i>b</i>]c]", exp: "[a[b]c]"},
		"too short":      {in: "<b>x</b>", expErr: ErrInvalidName},
		"only stripped":  {in: `"'/\`, expErr: ErrInvalidName},
		"truncated":      {in: strings.Repeat("x", 60), exp: strings.Repeat("x", 50)},
		"truncate trims": {in: strings.Repeat("x", 49) + "  tail", exp: strings.Repeat("x", 49)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			testutil.AssertEqual(t, "err", errors.Is(err, tt.expErr), true)
			testutil.AssertEqual(t, "name", got, tt.exp)
		})
	}
}

func TestSanitizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"Captain",
		"<script>evil</script>[Clan<b>X</b>]",
		"&lt;b&gt;Bold&lt;/b&gt;",
		"<<b>b>hidden",
		"[[x]]  [y<z]",
		"&amp;lt;tricky",
		"  spaced   out  ",
		strings.Repeat("ab ", 30),
		"[" + strings.Repeat("q", 60) + "]",
		"名字<i>海</i>",
	}
	for _, in := range inputs {
		once, err := SanitizeName(in)
		if err != nil {
			continue
		}
		twice, err := SanitizeName(once)
		if err != nil {
			t.Fatalf("second pass of %q failed: %v", in, err)
		}
		testutil.AssertEqual(t, in, twice, once)
	}
}

func TestSanitizeName_ClanInteriorIsClean(t *testing.T) {
	got, err := SanitizeName(`<script>evil</script>[Cl&quot;an<b>X</b>'/]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(got, `<>&\/"'`) {
		t.Fatalf("unsanitized characters in %q", got)
	}
	if strings.Contains(got, "script") {
		t.Fatalf("script survived in %q", got)
	}
	testutil.AssertEqual(t, "clan", got, "[ClanX]")
}

func TestNewMessage(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	sender := models.PlayerState{ID: "u1", Name: "Sailor u1", Color: models.Color{R: 1, G: 1, B: 1}}

	msg := NewMessage(sender, "hi", "", now)
	testutil.AssertEqual(t, "type", msg.MessageType, models.MessageTypeGlobal)
	testutil.AssertEqual(t, "name", msg.SenderName, "Sailor u1")
	testutil.AssertEqual(t, "color", msg.SenderColor, "#ffffff")
	testutil.AssertEqual(t, "id length", len(msg.ID), 26)

	next := NewMessage(sender, "again", "", now.Add(time.Millisecond))
	if next.ID <= msg.ID {
		t.Fatalf("expected time-sortable ids, got %s then %s", msg.ID, next.ID)
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(1, 2)
	now := time.Unix(1_000, 0)

	testutil.AssertEqual(t, "first", l.AllowAt("c1", now), true)
	testutil.AssertEqual(t, "burst", l.AllowAt("c1", now), true)
	testutil.AssertEqual(t, "limited", l.AllowAt("c1", now), false)
	testutil.AssertEqual(t, "other conn", l.AllowAt("c2", now), true)
	testutil.AssertEqual(t, "refilled", l.AllowAt("c1", now.Add(time.Second)), true)

	l.Forget("c1")
	testutil.AssertEqual(t, "fresh after forget", l.AllowAt("c1", now), true)
}
