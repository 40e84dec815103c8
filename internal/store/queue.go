package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"message_mate/internal/logger"
)

// ErrQueueClosed trả về khi gửi thao tác vào hàng đợi đã đóng
var ErrQueueClosed = errors.New("write queue closed")

type writeOp struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// WriteQueue tuần tự hóa mọi thao tác ghi vào Store trên một goroutine duy nhất.
// fn không được gọi lại Do của cùng hàng đợi (sẽ deadlock).
type WriteQueue struct {
	ops      chan writeOp
	stop     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWriteQueue tạo và khởi động hàng đợi ghi
func NewWriteQueue(buffer int) *WriteQueue {
	if buffer <= 0 {
		buffer = 64
	}
	q := &WriteQueue{
		ops:    make(chan writeOp, buffer),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *WriteQueue) run() {
	defer q.wg.Done()
	defer close(q.exited)
	for {
		select {
		case <-q.stop:
			// Hủy các thao tác còn trong buffer
			for {
				select {
				case op := <-q.ops:
					op.result <- ErrQueueClosed
				default:
					return
				}
			}
		case op := <-q.ops:
			op.result <- q.exec(op)
		}
	}
}

func (q *WriteQueue) exec(op writeOp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithModule("store").WithField("panic", r).Error("💾 [STORE] Write op panic recovered")
			err = fmt.Errorf("write op panic: %v", r)
		}
	}()
	if err := op.ctx.Err(); err != nil {
		return err
	}
	return op.fn(op.ctx)
}

// Do gửi fn vào hàng đợi và chờ kết quả
func (q *WriteQueue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	op := writeOp{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case <-q.stop:
		return ErrQueueClosed
	default:
	}
	select {
	case <-q.stop:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.ops <- op:
	}

	select {
	case err := <-op.result:
		return err
	case <-q.exited:
		select {
		case err := <-op.result:
			return err
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		// fn vẫn có thể chạy xong trên goroutine ghi; kết quả bị bỏ qua
		return ctx.Err()
	}
}

// Close dừng hàng đợi và đợi goroutine ghi kết thúc
func (q *WriteQueue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	q.wg.Wait()
}
