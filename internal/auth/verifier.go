// verifier.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken 未提供令牌
	ErrMissingToken = errors.New("缺少身份令牌")
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("身份令牌无效")
)

// Verifier 校验令牌并返回持久的用户id
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier 校验HS256签名的JWT，sub为用户id
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewJWTVerifier 创建JWT校验器，issuer和audience为空时不校验
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Verify 校验令牌
func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: 已过期", ErrInvalidToken)
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", fmt.Errorf("%w: 签名错误", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: 缺少sub", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Issue 签发令牌
func (v *JWTVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if v.issuer != "" {
		claims.Issuer = v.issuer
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// SessionLookup 会话数据读取
type SessionLookup interface {
	Get(ctx context.Context, key string) (string, error)
}

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("会话不存在")

// RedisSessions 从Redis读取会话
type RedisSessions struct {
	client *redis.Client
}

// NewRedisSessions 创建Redis会话读取器
func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

// Get 读取键值
func (r *RedisSessions) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return val, err
}

// SessionVerifier 校验登录会话令牌，会话格式为"playerID:username:expiresUnix"
type SessionVerifier struct {
	sessions SessionLookup
	now      func() time.Time
}

// NewSessionVerifier 创建会话校验器
func NewSessionVerifier(sessions SessionLookup) *SessionVerifier {
	return &SessionVerifier{sessions: sessions, now: time.Now}
}

// SessionKey 会话令牌对应的键
func SessionKey(token string) string {
	return "session:" + token
}

// Verify 校验令牌
func (v *SessionVerifier) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	data, err := v.sessions.Get(ctx, SessionKey(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", fmt.Errorf("%w: 会话不存在", ErrInvalidToken)
		}
		return "", fmt.Errorf("读取会话失败: %w", err)
	}

	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", fmt.Errorf("%w: 会话格式错误", ErrInvalidToken)
	}
	expiresAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: 会话格式错误", ErrInvalidToken)
	}
	if v.now().After(time.Unix(expiresAt, 0)) {
		return "", fmt.Errorf("%w: 会话已过期", ErrInvalidToken)
	}
	return parts[0], nil
}
