// schema.go

package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://seastorm.local/schemas/"

var (
	// ErrUnknownEvent 未知的事件类型
	ErrUnknownEvent = errors.New("未知的事件类型")
	// ErrInvalidPayload 事件内容不符合格式
	ErrInvalidPayload = errors.New("事件内容无效")
)

// DecodeError 解析失败，Type为信封中的事件类型（可能为空）
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// inbound 每种入站事件的类型构造函数
var inbound = map[string]func() Event{
	TypeJoin:                func() Event { return &Join{} },
	TypeUpdatePosition:      func() Event { return &UpdatePosition{} },
	TypePlayerAction:        func() Event { return &PlayerAction{} },
	TypeSendMessage:         func() Event { return &SendMessage{} },
	TypeUpdatePlayerName:    func() Event { return &UpdatePlayerName{} },
	TypeUpdatePlayerColor:   func() Event { return &UpdatePlayerColor{} },
	TypeAddToInventory:      func() Event { return &AddToInventory{} },
	TypeRemoveFromInventory: func() Event { return &RemoveFromInventory{} },
	TypeClearInventory:      func() Event { return &ClearInventory{} },
	TypeGetInventory:        func() Event { return &GetInventory{} },
}

// Decoder 校验并解析入站事件
type Decoder struct {
	schemas map[string]*jsonschema.Schema
}

// NewDecoder 编译内置的事件schema
func NewDecoder() (*Decoder, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("加载schema %s失败: %w", e.Name(), err)
		}
	}

	d := &Decoder{schemas: make(map[string]*jsonschema.Schema, len(inbound))}
	for t := range inbound {
		s, err := c.Compile(schemaBase + t + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("编译schema %s失败: %w", t, err)
		}
		d.schemas[t] = s
	}
	return d, nil
}

// MustNewDecoder 编译失败时panic
func MustNewDecoder() *Decoder {
	d, err := NewDecoder()
	if err != nil {
		panic(err)
	}
	return d
}

// Decode 解析消息信封，按事件类型校验payload并返回具体事件
func (d *Decoder) Decode(data []byte) (Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}

	newEvent, ok := inbound[msg.Type]
	if !ok {
		return nil, &DecodeError{Type: msg.Type, Err: ErrUnknownEvent}
	}

	payload := msg.Payload
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = []byte("{}")
	}

	doc, err := decodeDocument(payload)
	if err != nil {
		return nil, &DecodeError{Type: msg.Type, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	if err := d.schemas[msg.Type].Validate(doc); err != nil {
		return nil, &DecodeError{Type: msg.Type, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}

	ev := newEvent()
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, &DecodeError{Type: msg.Type, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return ev, nil
}

// decodeDocument 把payload解析为schema校验使用的通用值，数字保留为json.Number
func decodeDocument(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("payload后存在多余内容")
	}
	return doc, nil
}

// DecodeErrorType 返回解析错误对应的事件类型
func DecodeErrorType(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}
