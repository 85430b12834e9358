package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/pixil98/go-testutil"
)

func TestDecoder_Decode(t *testing.T) {
	d := MustNewDecoder()

	tests := map[string]struct {
		raw     string
		expType string
		expErr  error
	}{
		"join with token":        {raw: `{"type":"join","payload":{"token":"abc","claimed_id":"u1","name":"Jack"}}`, expType: TypeJoin},
		"join without payload":   {raw: `{"type":"join"}`, expType: TypeJoin},
		"join bad color":         {raw: `{"type":"join","payload":{"token":"t","color":{"r":2,"g":0,"b":0}}}`, expErr: ErrInvalidPayload},
		"position":               {raw: `{"type":"update_position","payload":{"player_id":"u1","x":1,"y":2,"z":3,"rotation":0.5}}`, expType: TypeUpdatePosition},
		"position missing z":     {raw: `{"type":"update_position","payload":{"player_id":"u1","x":1,"y":2}}`, expErr: ErrInvalidPayload},
		"position string x":      {raw: `{"type":"update_position","payload":{"player_id":"u1","x":"1","y":2,"z":3}}`, expErr: ErrInvalidPayload},
		"action":                 {raw: `{"type":"player_action","payload":{"player_id":"u1","action":"fish_caught"}}`, expType: TypePlayerAction},
		"action unknown":         {raw: `{"type":"player_action","payload":{"player_id":"u1","action":"dance"}}`, expErr: ErrInvalidPayload},
		"action zero amount":     {raw: `{"type":"player_action","payload":{"player_id":"u1","action":"money_earned","amount":0}}`, expErr: ErrInvalidPayload},
		"message":                {raw: `{"type":"send_message","payload":{"player_id":"u1","content":"hi"}}`, expType: TypeSendMessage},
		"color":                  {raw: `{"type":"update_player_color","payload":{"player_id":"u1","color":{"r":0,"g":0.5,"b":1}}}`, expType: TypeUpdatePlayerColor},
		"inventory add":          {raw: `{"type":"add_to_inventory","payload":{"player_id":"u1","item_type":"fish","item_name":"cod","item_data":{"w":1}}}`, expType: TypeAddToInventory},
		"inventory add array":    {raw: `{"type":"add_to_inventory","payload":{"player_id":"u1","item_type":"fish","item_name":"cod","item_data":[1]}}`, expErr: ErrInvalidPayload},
		"inventory remove float": {raw: `{"type":"remove_from_inventory","payload":{"player_id":"u1","item_type":"fish","index":1.5}}`, expErr: ErrInvalidPayload},
		"inventory get":          {raw: `{"type":"get_inventory","payload":{"player_id":"u1"}}`, expType: TypeGetInventory},
		"unknown type":           {raw: `{"type":"teleport","payload":{}}`, expErr: ErrUnknownEvent},
		"not json":               {raw: `{{`, expErr: ErrInvalidPayload},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := d.Decode([]byte(tt.raw))
			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Fatalf("expected %v, got %v", tt.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", ev.EventType(), tt.expType)
		})
	}
}

func TestDecoder_TypedFields(t *testing.T) {
	d := MustNewDecoder()

	ev, err := d.Decode([]byte(`{"type":"update_position","payload":{"player_id":"u1","x":1,"y":2,"z":3,"mode":"swim"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	pos, ok := ev.(*UpdatePosition)
	if !ok {
		t.Fatalf("unexpected event %T", ev)
	}
	testutil.AssertEqual(t, "z", pos.Z, 3.0)
	testutil.AssertEqual(t, "rotation omitted", pos.Rotation == nil, true)
	testutil.AssertEqual(t, "mode", *pos.Mode, models.ModeSwim)
}

func TestDecodeDocument(t *testing.T) {
	doc, err := decodeDocument([]byte(`{"amount":9007199254740993,"x":1.5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("unexpected document %T", doc)
	}
	testutil.AssertEqual(t, "amount", m["amount"], any(json.Number("9007199254740993")))
	testutil.AssertEqual(t, "x", m["x"], any(json.Number("1.5")))

	_, err = decodeDocument([]byte(`{"a":1} {"b":2}`))
	testutil.AssertErrorContains(t, err, "多余内容")

	d := MustNewDecoder()
	ev, err := d.Decode([]byte(`{"type":"player_action","payload":{"player_id":"u1","action":"money_earned","amount":9007199254740993}}`))
	if err != nil {
		t.Fatalf("large amount: %v", err)
	}
	testutil.AssertEqual(t, "amount", *ev.(*PlayerAction).Amount, int64(9007199254740993))
}

func TestDecodeErrorType(t *testing.T) {
	d := MustNewDecoder()
	_, err := d.Decode([]byte(`{"type":"update_position","payload":{"player_id":"u1"}}`))
	testutil.AssertEqual(t, "type", DecodeErrorType(err), TypeUpdatePosition)
	testutil.AssertEqual(t, "plain error", DecodeErrorType(errors.New("x")), "")
}

func TestItemDataFromJSON(t *testing.T) {
	data, err := ItemDataFromJSON([]byte(`{"weight":2.5,"rare":true,"tags":["a"]}`))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	testutil.AssertEqual(t, "weight", data["weight"], any(2.5))
	testutil.AssertEqual(t, "rare", data["rare"], any(true))

	empty, err := ItemDataFromJSON(nil)
	if err != nil {
		t.Fatalf("convert nil: %v", err)
	}
	testutil.AssertEqual(t, "empty", len(empty), 0)

	_, err = ItemDataFromJSON([]byte(`[1,2]`))
	testutil.AssertEqual(t, "array rejected", errors.Is(err, ErrInvalidPayload), true)

	raw, err := ItemDataToJSON(map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, _ := ItemDataFromJSON(raw)
	testutil.AssertEqual(t, "round trip", back["k"], any("v"))
}
