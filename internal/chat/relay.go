// relay.go

package chat

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

var (
	ErrEmptyMessage   = errors.New("消息内容不能为空")
	ErrMessageTooLong = errors.New("消息内容过长")
	ErrInvalidName    = errors.New("名称无效")
	ErrRateLimited    = errors.New("发送过于频繁")
)

const (
	// MinNameLength 名称最少字符数
	MinNameLength = 2
	// MaxNameLength 名称最多字符数，超出截断
	MaxNameLength = 50
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)\s*>`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	htmlEntity  = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)
	clanTag     = regexp.MustCompile(`\[[^\[\]]*\]`)
	stripChars  = strings.NewReplacer(`<`, "", `>`, "", `&`, "", `\`, "", `/`, "", `"`, "", `'`, "")
)

// Validate 校验消息内容
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// SanitizeName 清理玩家名称：去掉HTML标签和实体以及\ / " '，
// 保留[...]战队标签并清理其内部，少于2个字符时返回ErrInvalidName，超过50个字符时截断
func SanitizeName(name string) (string, error) {
	var b strings.Builder
	rest := name
	for {
		loc := clanTag.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(sanitizeText(rest))
			break
		}
		b.WriteString(sanitizeText(rest[:loc[0]]))
		inner := rest[loc[0]+1 : loc[1]-1]
		b.WriteString("[" + sanitizeText(inner) + "]")
		rest = rest[loc[1]:]
	}

	out := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(out) > MaxNameLength {
		out = strings.TrimSpace(string([]rune(out)[:MaxNameLength]))
	}
	if utf8.RuneCountInString(out) < MinNameLength {
		return "", ErrInvalidName
	}
	return out, nil
}

func sanitizeText(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	s = htmlEntity.ReplaceAllString(s, "")
	return stripChars.Replace(s)
}

// NewMessage 用发送者当前的显示信息构造消息
func NewMessage(sender models.PlayerState, content, messageType string, now time.Time) models.ChatMessage {
	if messageType == "" {
		messageType = models.MessageTypeGlobal
	}
	return models.ChatMessage{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		SenderColor: sender.Color.Hex(),
		Content:     content,
		MessageType: messageType,
		Timestamp:   now,
	}
}

// Limiter 按连接限制发送频率
type Limiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewLimiter 创建频率限制器
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow 连接此刻是否允许发送
func (l *Limiter) Allow(connID string) bool {
	return l.AllowAt(connID, time.Now())
}

// AllowAt 指定时间点是否允许发送
func (l *Limiter) AllowAt(connID string, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.limiters[connID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[connID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// Forget 连接断开后释放限制器
func (l *Limiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, connID)
}
