package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// KafkaConfig là cấu hình kết nối topic sự kiện
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaFeed ghi sự kiện vào topic với key = page id (giữ thứ tự theo trang)
// và đọc lại bằng một consumer group duy nhất, phân phối qua Hub nội bộ.
type KafkaFeed struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	hub    *Hub

	mu     sync.Mutex
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafkaFeed tạo KafkaFeed; reader chỉ được mở khi có trang đăng ký đầu tiên
func NewKafkaFeed(cfg KafkaConfig) *KafkaFeed {
	return &KafkaFeed{
		cfg: cfg,
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		}),
		hub: NewHub(0),
	}
}

var _ Feed = (*KafkaFeed)(nil)

func (k *KafkaFeed) Subscribe(ctx context.Context, pageID string, handler Handler) error {
	if err := k.hub.Subscribe(ctx, pageID, handler); err != nil {
		return err
	}
	k.ensureReader()
	return nil
}

func (k *KafkaFeed) Unsubscribe(pageID string) error {
	return k.hub.Unsubscribe(pageID)
}

func (k *KafkaFeed) ensureReader() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reader != nil {
		return
	}
	k.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.cfg.Brokers,
		Topic:   k.cfg.Topic,
		GroupID: k.cfg.GroupID,
	})
	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	k.done = make(chan struct{})
	go k.consume(ctx, k.reader, k.done)
}

func (k *KafkaFeed) consume(ctx context.Context, reader *kafka.Reader, done chan struct{}) {
	defer close(done)
	log := logger.WithModule("feed").WithField("topic", k.cfg.Topic)
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			log.WithError(err).Error("📡 [FEED] Lỗi đọc Kafka")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		ev, err := decodeEvent(m.Key, m.Value)
		if err != nil {
			log.WithError(err).WithField("offset", m.Offset).Warn("📡 [FEED] Bỏ message Kafka không hợp lệ")
			continue
		}
		if err := k.hub.Publish(ctx, ev); err != nil {
			return
		}
	}
}

// decodeEvent đọc LiveEvent từ value JSON; key là page id khi value không có
func decodeEvent(key, value []byte) (models.LiveEvent, error) {
	var ev models.LiveEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return ev, common.Wrap(common.ErrInvalidFormat, err)
	}
	if ev.PageId == "" && ev.BusinessId == "" {
		ev.PageId = string(key)
	}
	if ev.RoutingKey() == "" || ev.MessageId == "" {
		return ev, common.ErrRequiredField
	}
	return ev, nil
}

func (k *KafkaFeed) Publish(ctx context.Context, ev models.LiveEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RoutingKey()),
		Value: value,
		Time:  time.Now(),
	})
}

func (k *KafkaFeed) Close() error {
	k.mu.Lock()
	reader, cancel, done := k.reader, k.cancel, k.done
	k.reader = nil
	k.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	var errs []error
	if reader != nil {
		errs = append(errs, reader.Close())
	}
	errs = append(errs, k.hub.Close(), k.writer.Close())
	return errors.Join(errs...)
}
