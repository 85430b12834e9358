// writer.go

package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// 事件种类
const (
	KindJoin        = "join"
	KindLeave       = "leave"
	KindAchievement = "achievement"
	KindChat        = "chat"
	KindIsland      = "island"
)

// Entry 一条事件记录
type Entry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	PlayerID string    `json:"player_id,omitempty"`
	Data     any       `json:"data,omitempty"`
}

// Recorder 事件记录接口
type Recorder interface {
	Record(kind, playerID string, data any)
}

// Nop 不记录任何事件
type Nop struct{}

// Record 丢弃
func (Nop) Record(string, string, any) {}

// Writer 按小时切分的zstd压缩JSONL事件日志
type Writer struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer

	onError func(error)
}

// NewWriter 创建事件日志，文件写入dir目录
func NewWriter(dir string, onError func(error)) *Writer {
	if onError == nil {
		onError = func(error) {}
	}
	return &Writer{dir: dir, now: time.Now, onError: onError}
}

// Record 追加一条记录，写入失败交给onError处理
func (w *Writer) Record(kind, playerID string, data any) {
	if err := w.Write(Entry{At: w.now().UTC(), Kind: kind, PlayerID: playerID, Data: data}); err != nil {
		w.onError(err)
	}
}

// Write 追加一条记录
func (w *Writer) Write(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := e.At.UTC().Format("2006-01-02-15")
	if hour != w.hour || w.buf == nil {
		if err := w.rotate(hour); err != nil {
			return fmt.Errorf("切换事件日志失败: %w", err)
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Path 指定小时的日志文件路径
func (w *Writer) Path(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("events-%s.jsonl.zst", hour))
}

func (w *Writer) rotate(hour string) error {
	if err := w.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	w.f, w.enc, w.hour = f, enc, hour
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *Writer) closeFile() error {
	var err error
	if w.buf != nil {
		w.buf.Flush()
		w.buf = nil
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	return err
}

// Close 刷新并关闭当前文件
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

// ReadFile 读取一个压缩日志文件中的全部记录
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read 从压缩流中读取记录
func Read(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []Entry
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return entries, fmt.Errorf("解析事件记录失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
