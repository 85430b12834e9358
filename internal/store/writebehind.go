// writebehind.go

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// WriteFunc 一次异步写入
type WriteFunc func(ctx context.Context) error

type writeJob struct {
	name string
	fn   WriteFunc
	done chan struct{}
}

// WriteBehind 写后异步持久化：按提交顺序执行，失败只记录日志，不重试，队列满时丢弃
type WriteBehind struct {
	queue   chan writeJob
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
	failed  atomic.Int64
	written atomic.Int64
}

// NewWriteBehind 创建并启动持久化协程
func NewWriteBehind(queueSize int) *WriteBehind {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &WriteBehind{
		queue:   make(chan writeJob, queueSize),
		timeout: 5 * time.Second,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit 提交一次写入，不等待结果。队列满时丢弃
func (w *WriteBehind) Submit(name string, fn WriteFunc) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.accepting(name) {
		return false
	}

	select {
	case w.queue <- writeJob{name: name, fn: fn}:
		return true
	default:
		log.WithField("write", name).Warn("持久化队列已满，丢弃写入")
		w.dropped.Add(1)
		return false
	}
}

// SubmitWait 提交一次写入，队列满时等待空位直到ctx结束。
// 用于不能被节流替代的低频写入
func (w *WriteBehind) SubmitWait(ctx context.Context, name string, fn WriteFunc) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.accepting(name) {
		return false
	}

	select {
	case w.queue <- writeJob{name: name, fn: fn}:
		return true
	case <-ctx.Done():
		log.WithError(ctx.Err()).WithField("write", name).Warn("等待持久化队列超时，丢弃写入")
		w.dropped.Add(1)
		return false
	}
}

// accepting 调用方持有mu读锁
func (w *WriteBehind) accepting(name string) bool {
	if w.closed {
		log.WithField("write", name).Warn("持久化队列已关闭，丢弃写入")
		w.dropped.Add(1)
		return false
	}
	return true
}

// Flush 等待此前提交的写入全部执行完
func (w *WriteBehind) Flush() {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return
	}
	done := make(chan struct{})
	w.queue <- writeJob{name: "flush", done: done}
	w.mu.RUnlock()
	<-done
}

// Close 执行完剩余写入后停止
func (w *WriteBehind) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

// Stats 返回已写入、失败、丢弃的次数
func (w *WriteBehind) Stats() (written, failed, dropped int64) {
	return w.written.Load(), w.failed.Load(), w.dropped.Load()
}

func (w *WriteBehind) run() {
	defer w.wg.Done()
	for job := range w.queue {
		if job.done != nil {
			close(job.done)
			continue
		}
		w.execute(job)
	}
}

func (w *WriteBehind) execute(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := job.fn(ctx); err != nil {
		w.failed.Add(1)
		log.WithError(err).WithField("write", job.name).Error("持久化写入失败")
		return
	}
	w.written.Add(1)
}
