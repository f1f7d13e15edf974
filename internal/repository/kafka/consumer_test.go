// internal/repository/kafka/consumer_test.go
package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/defineus/nakadi/internal/repository"
)

func TestEventConsumer_DeliversFromNamedPartitions(t *testing.T) {
	mc := mocks.NewConsumer(t, nil)
	// Чтение обязано начаться ровно со смещения курсора: мок проверяет,
	// что декодированное значение дошло до ConsumePartition.
	pc := mc.ExpectConsumePartition("orders", 0, 5)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte(`{"order":1}`)})

	conns := &fakeConns{consumer: mc}
	c, err := newEventConsumer(conns, "orders", map[string]string{"0": "5"}, time.Second, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	ev, err := c.ReadEvent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil {
		t.Fatal("expected an event, got empty read")
	}
	if ev.Partition != "0" {
		t.Errorf("partition = %q; want 0", ev.Partition)
	}
	if ev.Event != `{"order":1}` {
		t.Errorf("event payload = %q", ev.Event)
	}
}

func TestEventConsumer_PollTimeoutIsEmptyRead(t *testing.T) {
	mc := mocks.NewConsumer(t, nil)
	mc.ExpectConsumePartition("orders", 0, 0)

	conns := &fakeConns{consumer: mc}
	c, err := newEventConsumer(conns, "orders", map[string]string{"0": "0"}, 30*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	ev, err := c.ReadEvent(context.Background())
	if err != nil {
		t.Fatalf("empty read must not be an error, got: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected empty read, got %+v", ev)
	}
}

// Подключение откладывается до первого ReadEvent и выполняется ровно
// один раз.
func TestEventConsumer_ConnectsLazilyOnce(t *testing.T) {
	mc := mocks.NewConsumer(t, nil)
	mc.ExpectConsumePartition("orders", 1, 7)

	conns := &fakeConns{consumer: mc}
	c, err := newEventConsumer(conns, "orders", map[string]string{"1": "7"}, 20*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if conns.consumerCalls != 0 {
		t.Fatal("consumer opened before first read")
	}
	_, _ = c.ReadEvent(context.Background())
	_, _ = c.ReadEvent(context.Background())
	if conns.consumerCalls != 1 {
		t.Errorf("consumer opened %d times; want 1", conns.consumerCalls)
	}
}

func TestEventConsumer_ReadAfterClose(t *testing.T) {
	c, err := newEventConsumer(&fakeConns{}, "orders", map[string]string{"0": "0"}, time.Second, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got: %v", err)
	}
	if _, err := c.ReadEvent(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Fatalf("error = %v; want ErrConsumerClosed", err)
	}
}

func TestEventConsumer_RejectsBadCursors(t *testing.T) {
	cases := []struct {
		name    string
		cursors map[string]string
		sentry  error
	}{
		{"badPartition", map[string]string{"west": "0"}, repository.ErrInvalidPartitionID},
		{"badOffset", map[string]string{"0": "BEGIN"}, repository.ErrMalformedOffset},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := newEventConsumer(&fakeConns{}, "orders", c.cursors, time.Second, testLogger(t))
			if !errors.Is(err, c.sentry) {
				t.Fatalf("error = %v; want %v", err, c.sentry)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Partial-failure cleanup
// -----------------------------------------------------------------------------

type fakePartitionConsumer struct {
	sarama.PartitionConsumer
	msgs   chan *sarama.ConsumerMessage
	closed bool
}

func (f *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return f.msgs }

func (f *fakePartitionConsumer) Close() error {
	if !f.closed {
		f.closed = true
		close(f.msgs)
	}
	return nil
}

type flakyConsumer struct {
	sarama.Consumer
	succeed int // сколько партиций открыть до сбоя
	opened  []*fakePartitionConsumer
	closed  bool
}

func (f *flakyConsumer) ConsumePartition(string, int32, int64) (sarama.PartitionConsumer, error) {
	if len(f.opened) >= f.succeed {
		return nil, errors.New("leader not available")
	}
	pc := &fakePartitionConsumer{msgs: make(chan *sarama.ConsumerMessage)}
	f.opened = append(f.opened, pc)
	return pc, nil
}

func (f *flakyConsumer) Close() error {
	f.closed = true
	return nil
}

func TestEventConsumer_PartialStartFailureReleasesEverything(t *testing.T) {
	flaky := &flakyConsumer{succeed: 1}
	conns := &fakeConns{consumer: flaky}
	c, err := newEventConsumer(conns, "orders", map[string]string{"0": "0", "1": "0"}, time.Second, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.ReadEvent(context.Background())
	if !repository.IsKind(err, repository.KindUnavailable) {
		t.Fatalf("error = %v; want KindUnavailable", err)
	}
	if !flaky.closed {
		t.Error("consumer must be closed after partial start failure")
	}
	for i, pc := range flaky.opened {
		if !pc.closed {
			t.Errorf("partition consumer %d leaked", i)
		}
	}
}
