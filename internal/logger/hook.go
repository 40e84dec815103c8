package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncHook ghi log bất đồng bộ vào nhiều writers (file, stdout) trong một goroutine riêng.
// Khi buffer đầy, entry bị bỏ qua thay vì block request handling.
type AsyncHook struct {
	writers []io.Writer
	entries chan *logrus.Entry
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewAsyncHookWithWriters tạo một async hook mới với nhiều writers
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	hook := &AsyncHook{
		writers: writers,
		entries: make(chan *logrus.Entry, bufferSize),
	}

	hook.wg.Add(1)
	go hook.processEntries()

	return hook
}

// Levels trả về các log levels mà hook này xử lý
func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire đưa entry vào channel, không block
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		// Hook đã đóng: ghi trực tiếp
		h.write(entry)
		return nil
	}

	select {
	case h.entries <- snapshot(entry):
	default:
		// Channel đầy, bỏ qua entry
	}
	return nil
}

// snapshot sao chép entry để goroutine ghi log không dùng chung Buffer/Data với logrus
func snapshot(entry *logrus.Entry) *logrus.Entry {
	cp := *entry
	cp.Buffer = nil
	cp.Data = make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		cp.Data[k] = v
	}
	return &cp
}

// processEntries có recover để panic trong formatter không làm crash server
func (h *AsyncHook) processEntries() {
	defer h.wg.Done()

	for entry := range h.entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[LOGGER PANIC] Logger goroutine panic recovered: %v\n", r)
					debug.PrintStack()
				}
			}()
			h.write(entry)
		}()
	}
}

func (h *AsyncHook) write(entry *logrus.Entry) {
	// FilterHook đã đánh dấu entry bị filter bằng field "_filtered"
	if filtered, ok := entry.Data["_filtered"].(bool); ok && filtered {
		return
	}

	var data []byte
	var err error
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		data, err = entry.Logger.Formatter.Format(entry)
	} else {
		var line string
		line, err = entry.String()
		data = []byte(line)
	}
	if err != nil {
		return
	}

	for _, writer := range h.writers {
		_, _ = writer.Write(data)
	}
}

// Close đóng hook và đợi tất cả entries được xử lý xong
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}
