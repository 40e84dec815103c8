package logger

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// FilterHook lọc log entries theo module, page, endpoint và log level.
// Entry bị lọc được đánh dấu "_filtered" để AsyncHook bỏ qua.
type FilterHook struct {
	allowedModules   map[string]bool
	allowedPages     map[string]bool
	allowedEndpoints map[string]bool
	allowedLogTypes  map[string]bool

	mu sync.RWMutex
}

// NewFilterHook tạo một filter hook mới với cấu hình
func NewFilterHook(cfg *LogConfig) *FilterHook {
	hook := &FilterHook{}
	hook.UpdateFilters(cfg)
	return hook
}

// UpdateFilters cập nhật filters từ config mới (có thể gọi runtime)
func (h *FilterHook) UpdateFilters(cfg *LogConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.allowedModules = parseFilter(cfg.FilterModules)
	h.allowedPages = parseFilter(cfg.FilterPages)
	h.allowedEndpoints = parseFilter(cfg.FilterEndpoints)
	h.allowedLogTypes = parseFilter(cfg.FilterLogTypes)
}

// parseFilter parse "a,b,c" thành set; rỗng hoặc "*" trả về nil (không lọc)
func parseFilter(filterStr string) map[string]bool {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" || filterStr == "*" {
		return nil
	}

	result := make(map[string]bool)
	for _, v := range strings.Split(filterStr, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			result[strings.ToLower(v)] = true
		}
	}
	if len(result) == 0 || result["*"] {
		return nil
	}
	return result
}

// Levels trả về các log levels mà hook này xử lý
func (h *FilterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire đánh dấu entry bị lọc. Field vắng mặt thì không lọc theo field đó.
func (h *FilterHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Error trở lên luôn được ghi
	if entry.Level <= logrus.ErrorLevel {
		return nil
	}

	if h.allowedLogTypes != nil && !h.allowedLogTypes[strings.ToLower(entry.Level.String())] {
		entry.Data["_filtered"] = true
		return nil
	}
	if !matchField(h.allowedModules, entry.Data["module"], false) {
		entry.Data["_filtered"] = true
		return nil
	}
	if !matchField(h.allowedPages, entry.Data["page_id"], false) {
		entry.Data["_filtered"] = true
		return nil
	}

	endpoint := entry.Data["endpoint"]
	if endpoint == nil {
		endpoint = entry.Data["path"]
	}
	if !matchField(h.allowedEndpoints, endpoint, true) {
		entry.Data["_filtered"] = true
	}
	return nil
}

func matchField(allowed map[string]bool, raw interface{}, prefix bool) bool {
	if allowed == nil {
		return true
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return true
	}
	value = strings.ToLower(value)
	if allowed[value] {
		return true
	}
	if prefix {
		for a := range allowed {
			if strings.HasPrefix(value, a) {
				return true
			}
		}
	}
	return false
}
