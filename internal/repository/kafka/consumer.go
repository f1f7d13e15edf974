// internal/repository/kafka/consumer.go
package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/defineus/nakadi/internal/domain"
	"github.com/defineus/nakadi/internal/repository"
	"github.com/defineus/nakadi/pkg/logger"
)

// ErrConsumerClosed возвращается из ReadEvent после Close: консьюмер
// не перезапускаем, нужен новый.
var ErrConsumerClosed = errors.New("kafka: event consumer is closed")

// eventConsumer читает один топик, начиная с заданного смещения в
// каждой названной партиции. Партиции, не названные в курсорах, не
// читаются. Подключение устанавливается лениво при первом ReadEvent.
type eventConsumer struct {
	conns       connections
	topic       string
	starts      map[int32]int64 // партиция → стартовое смещение
	pollTimeout time.Duration
	log         *logger.Logger

	mu       sync.Mutex
	started  bool
	closed   bool
	consumer sarama.Consumer
	parts    []sarama.PartitionConsumer
	records  chan *sarama.ConsumerMessage
	done     chan struct{}
	wg       sync.WaitGroup
}

// newEventConsumer декодирует курсоры сразу (чисто, без I/O) и
// откладывает подключение до первого чтения.
func newEventConsumer(conns connections, topic string, cursors map[string]string, pollTimeout time.Duration, log *logger.Logger) (*eventConsumer, error) {
	starts := make(map[int32]int64, len(cursors))
	for partition, offset := range cursors {
		kc, err := fromNakadiCursor(domain.Cursor{Partition: partition, Offset: offset})
		if err != nil {
			return nil, err
		}
		starts[kc.partition] = kc.offset
	}
	return &eventConsumer{
		conns:       conns,
		topic:       topic,
		starts:      starts,
		pollTimeout: pollTimeout,
		log:         log.Named("event-consumer"),
		done:        make(chan struct{}),
	}, nil
}

// start открывает консьюмер и по одному partition-consumer'у на каждый
// курсор; первой приходит запись со смещением ≥ стартового. Все каналы
// партиций сливаются в один.
func (c *eventConsumer) start() error {
	consumer, err := c.conns.Consumer()
	if err != nil {
		return repository.Unavailable("open consumer", err)
	}

	records := make(chan *sarama.ConsumerMessage)
	parts := make([]sarama.PartitionConsumer, 0, len(c.starts))
	for partition, offset := range c.starts {
		pc, err := consumer.ConsumePartition(c.topic, partition, offset)
		if err != nil {
			for _, opened := range parts {
				_ = opened.Close()
			}
			_ = consumer.Close()
			return repository.Unavailable("consume partition", err)
		}
		parts = append(parts, pc)

		c.wg.Add(1)
		go func(pc sarama.PartitionConsumer) {
			defer c.wg.Done()
			for msg := range pc.Messages() {
				select {
				case records <- msg:
				case <-c.done:
					return
				}
			}
		}(pc)
	}

	c.consumer = consumer
	c.parts = parts
	c.records = records
	c.started = true
	c.log.Debug("event consumer started",
		zap.String("topic", c.topic),
		zap.Int("partitions", len(parts)),
	)
	return nil
}

// ReadEvent блокирует до следующей записи, но не дольше poll-таймаута.
// Истёкший таймаут — пустое чтение (nil, nil), не ошибка.
func (c *eventConsumer) ReadEvent(ctx context.Context) (*domain.ConsumedEvent, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConsumerClosed
	}
	if !c.started {
		if err := c.start(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	records := c.records
	c.mu.Unlock()

	select {
	case msg := <-records:
		return &domain.ConsumedEvent{
			Topic:     msg.Topic,
			Partition: toNakadiPartition(msg.Partition),
			Offset:    toNakadiOffset(msg.Offset),
			Event:     string(msg.Value),
		}, nil
	case <-time.After(c.pollTimeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close останавливает чтение всех партиций и закрывает консьюмер.
// Ошибки закрытия отдельных партиций логируются и не маскируют
// результат.
func (c *eventConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if !c.started {
		return nil
	}

	close(c.done)
	for _, pc := range c.parts {
		if err := pc.Close(); err != nil {
			c.log.Warn("partition consumer close failed", zap.Error(err))
		}
	}
	c.wg.Wait()
	return c.consumer.Close()
}
