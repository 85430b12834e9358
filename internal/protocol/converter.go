// converter.go

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ItemDataFromJSON 把客户端的物品附加数据规范化为通用map，只接受JSON对象
func ItemDataFromJSON(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	var s structpb.Struct
	if err := protojson.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: item_data: %v", ErrInvalidPayload, err)
	}
	return s.AsMap(), nil
}

// ItemDataToJSON 把物品附加数据编码为JSON对象
func ItemDataToJSON(data map[string]any) (json.RawMessage, error) {
	s, err := structpb.NewStruct(data)
	if err != nil {
		return nil, fmt.Errorf("转换物品数据失败: %w", err)
	}
	return protojson.Marshal(s)
}
