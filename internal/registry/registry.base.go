// Package registry cung cấp implementation của registry pattern với generic type.
// Mỗi instance là một map thread-safe có tên, được tạo và truyền vào nơi cần dùng
// (không có registry toàn cục).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"message_mate/internal/common"
)

// Registry là một thread-safe generic registry.
// Thread-safety được đảm bảo thông qua sync.RWMutex.
//
// Example:
//
//	states := NewRegistry[State]()
//	states.Register("page-1", StateListening)
//	if s, ok := states.Get("page-1"); ok {
//	    fmt.Println(s)
//	}
type Registry[T any] struct {
	items map[string]T // Map lưu trữ các items theo key
	mu    sync.RWMutex // Mutex để đảm bảo thread-safety
}

// NewRegistry tạo và trả về một registry mới.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

// Register đăng ký một item, ghi đè nếu name đã tồn tại.
//
// Returns:
//   - isNew: true nếu là item mới, false nếu ghi đè item cũ
//   - err: lỗi nếu name rỗng
func (r *Registry[T]) Register(name string, item T) (isNew bool, err error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.items[name]
	r.items[name] = item
	return !exists, nil
}

// Get lấy item theo name.
func (r *Registry[T]) Get(name string) (item T, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists = r.items[name]
	return item, exists
}

// GetOrCreate trả về item đã có, hoặc tạo mới bằng creator trong cùng một lock.
func (r *Registry[T]) GetOrCreate(name string, creator func() (T, error)) (item T, err error) {
	if name == "" {
		return item, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existingItem, exists := r.items[name]; exists {
		return existingItem, nil
	}

	newItem, err := creator()
	if err != nil {
		return item, fmt.Errorf("failed to create item: %w", err)
	}

	r.items[name] = newItem
	return newItem, nil
}

// Update cập nhật item bằng updater. Trả về common.ErrNotFound nếu chưa có item.
//
// updater chạy trong write lock, không được gọi lại registry.
func (r *Registry[T]) Update(name string, updater func(T) (T, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.items[name]
	if !exists {
		return fmt.Errorf("item not found: %s: %w", name, common.ErrNotFound)
	}

	updated, err := updater(current)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	r.items[name] = updated
	return nil
}

// Clear xóa item, gọi cleanup trước khi xóa nếu có.
func (r *Registry[T]) Clear(name string, cleanup func(T) error) (deleted bool, err error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[name]
	if !exists {
		return false, nil
	}

	if cleanup != nil {
		if err := cleanup(item); err != nil {
			return false, fmt.Errorf("failed to cleanup item %s: %w", name, err)
		}
	}

	delete(r.items, name)
	return true, nil
}

// Names trả về danh sách key đã sắp xếp
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count trả về số lượng items
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
