// message.go

package models

import "time"

const (
	// MessageTypeGlobal 全服频道
	MessageTypeGlobal = "global"
	// MaxMessageLength 消息最大字符数
	MaxMessageLength = 500
)

// ChatMessage 聊天消息，只追加
type ChatMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderColor string    `json:"sender_color"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
}
