package gateway

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CacheEntry 缓存的GET响应
type CacheEntry struct {
	Data        []byte
	ContentType string
	ETag        string
	ExpiresAt   time.Time
}

// CacheMiddleware 短时间缓存查询结果，任何写请求成功后清空
type CacheMiddleware struct {
	mutex   sync.RWMutex
	entries map[string]*CacheEntry

	// 可缓存的路径前缀及其有效期
	CacheTTL   map[string]time.Duration
	MaxEntries int

	now func() time.Time
}

// NewCacheMiddleware 创建缓存中间件
func NewCacheMiddleware() *CacheMiddleware {
	return &CacheMiddleware{
		entries: make(map[string]*CacheEntry),
		CacheTTL: map[string]time.Duration{
			"/api/leaderboard": 2 * time.Second, // 排行榜变化频繁
			"/api/islands":     30 * time.Second,
		},
		MaxEntries: 256,
		now:        time.Now,
	}
}

// Middleware 缓存中间件
func (cm *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.statusCode < 300 {
				cm.Clear()
			}
			return
		}

		ttl, ok := cm.ttl(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		if entry := cm.get(key); entry != nil {
			w.Header().Set("X-Cache", "HIT")
			if r.Header.Get("If-None-Match") == entry.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("Content-Type", entry.ContentType)
			w.Header().Set("ETag", entry.ETag)
			w.WriteHeader(http.StatusOK)
			w.Write(entry.Data)
			return
		}

		rec := &cacheRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.statusCode == http.StatusOK {
			sum := sha1.Sum(rec.body.Bytes())
			cm.set(key, &CacheEntry{
				Data:        rec.body.Bytes(),
				ContentType: rec.Header().Get("Content-Type"),
				ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
				ExpiresAt:   cm.now().Add(ttl),
			})
		}
	})
}

func (cm *CacheMiddleware) ttl(path string) (time.Duration, bool) {
	for prefix, ttl := range cm.CacheTTL {
		if strings.HasPrefix(path, prefix) {
			return ttl, true
		}
	}
	return 0, false
}

func (cm *CacheMiddleware) get(key string) *CacheEntry {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	e, ok := cm.entries[key]
	if !ok || cm.now().After(e.ExpiresAt) {
		return nil
	}
	return e
}

func (cm *CacheMiddleware) set(key string, entry *CacheEntry) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if len(cm.entries) >= cm.MaxEntries {
		now := cm.now()
		for k, e := range cm.entries {
			if now.After(e.ExpiresAt) {
				delete(cm.entries, k)
			}
		}
		// 仍然满时整体丢弃
		if len(cm.entries) >= cm.MaxEntries {
			cm.entries = make(map[string]*CacheEntry)
		}
	}
	cm.entries[key] = entry
}

// Clear 清空缓存
func (cm *CacheMiddleware) Clear() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.entries = make(map[string]*CacheEntry)
}

// cacheRecorder 在写出响应的同时保存一份
type cacheRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (cr *cacheRecorder) WriteHeader(code int) {
	cr.statusCode = code
	cr.ResponseWriter.WriteHeader(code)
}

func (cr *cacheRecorder) Write(data []byte) (int, error) {
	cr.body.Write(data)
	return cr.ResponseWriter.Write(data)
}
