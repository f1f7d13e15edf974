// internal/repository/kafka/repository.go
package kafka

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/defineus/nakadi/internal/domain"
	"github.com/defineus/nakadi/internal/repository"
	"github.com/defineus/nakadi/pkg/logger"
)

var tracer = otel.Tracer("kafka-repository")

// Coordination — фасад координационного сервиса кластера: перечисление
// существующих топиков и адреса брокеров для административных сессий.
type Coordination interface {
	Topics(ctx context.Context) ([]string, error)
	Brokers(ctx context.Context) ([]string, error)
}

// Repository реализует repository.TopicRepository поверх Kafka,
// переводя курсорную модель брокера в нативную адресацию кластера.
type Repository struct {
	coord Coordination
	conns connections
	cfg   Config
	log   *logger.Logger
}

var _ repository.TopicRepository = (*Repository)(nil)

// NewRepository собирает репозиторий из координации и фабрики
// подключений.
func NewRepository(coord Coordination, conns connections, cfg Config, log *logger.Logger) *Repository {
	cfg.applyDefaults()
	return &Repository{
		coord: coord,
		conns: conns,
		cfg:   cfg,
		log:   log.Named("kafka-repository"),
	}
}

// -----------------------------------------------------------------------------
// Topic lifecycle
// -----------------------------------------------------------------------------

// ListTopics перечисляет топики из координационного сервиса.
func (r *Repository) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	names, err := r.coord.Topics(ctx)
	if err != nil {
		return nil, repository.Unavailable("list topics", err)
	}
	topics := make([]domain.Topic, 0, len(names))
	for _, name := range names {
		topics = append(topics, domain.Topic{Name: name})
	}
	return topics, nil
}

// CreateTopic выполняет административную команду создания топика в
// выделенной сессии. Сессия освобождается на любом исходе; проверки
// существования и ретраев нет — дубликат имени приходит как ошибка
// команды.
func (r *Repository) CreateTopic(ctx context.Context, topic string, settings *repository.TopicSettings) error {
	ctx, span := tracer.Start(ctx, "CreateTopic",
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	ts := r.topicSettings(settings)

	brokers, err := r.coord.Brokers(ctx)
	if err != nil {
		repoMetrics.TopicCreateErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return repository.TopicCreation("resolve brokers", err)
	}

	admin, err := r.conns.ClusterAdmin(brokers)
	if err != nil {
		repoMetrics.TopicCreateErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return repository.TopicCreation("open admin session", err)
	}
	defer r.closeQuietly(admin, "cluster admin")

	retention := strconv.FormatInt(ts.RetentionMs, 10)
	rotation := strconv.FormatInt(ts.RotationMs, 10)
	detail := &sarama.TopicDetail{
		NumPartitions:     ts.PartitionsNum,
		ReplicationFactor: ts.ReplicaFactor,
		ConfigEntries: map[string]*string{
			"retention.ms": &retention,
			"segment.ms":   &rotation,
		},
	}

	if err := admin.CreateTopic(topic, detail, false); err != nil {
		repoMetrics.TopicCreateErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return repository.TopicCreation("create topic", err)
	}

	r.log.Info("topic created",
		zap.String("topic", topic),
		zap.Int32("partitions", ts.PartitionsNum),
		zap.Int16("replicas", ts.ReplicaFactor),
	)
	return nil
}

// topicSettings подставляет дефолты конфига вместо нулевых значений.
func (r *Repository) topicSettings(s *repository.TopicSettings) repository.TopicSettings {
	ts := repository.TopicSettings{}
	if s != nil {
		ts = *s
	}
	if ts.PartitionsNum <= 0 {
		ts.PartitionsNum = r.cfg.DefaultTopicPartitionsNum
	}
	if ts.ReplicaFactor <= 0 {
		ts.ReplicaFactor = r.cfg.DefaultTopicReplicaFactor
	}
	if ts.RetentionMs <= 0 {
		ts.RetentionMs = r.cfg.DefaultTopicRetentionMs
	}
	if ts.RotationMs <= 0 {
		ts.RotationMs = r.cfg.DefaultTopicRotationMs
	}
	return ts
}

// TopicExists — линейный поиск по ListTopics; стоимость и ошибки те же.
func (r *Repository) TopicExists(ctx context.Context, topic string) (bool, error) {
	topics, err := r.ListTopics(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range topics {
		if t.Name == topic {
			return true, nil
		}
	}
	return false, nil
}

// -----------------------------------------------------------------------------
// Partition metadata
// -----------------------------------------------------------------------------

// ListPartitions возвращает снимок границ смещений каждой партиции
// топика. Клиент выборки открывается только на время вызова; частичный
// список никогда не возвращается.
func (r *Repository) ListPartitions(ctx context.Context, topic string) ([]domain.TopicPartition, error) {
	ctx, span := tracer.Start(ctx, "ListPartitions",
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	client, err := r.conns.OffsetClient()
	if err != nil {
		repoMetrics.MetadataErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return nil, repository.Unavailable("open offset client", err)
	}
	defer r.closeQuietly(client, "offset client")

	partitions, err := client.Partitions(topic)
	if err != nil {
		repoMetrics.MetadataErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return nil, repository.Unavailable("list partitions", err)
	}

	result, err := r.fetchPartitionBounds(ctx, client, topic, partitions)
	if err != nil {
		repoMetrics.MetadataErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return nil, repository.Unavailable("fetch partition offsets", err)
	}
	return result, nil
}

// GetPartition — ListPartitions для одной партиции.
func (r *Repository) GetPartition(ctx context.Context, topic, partition string) (domain.TopicPartition, error) {
	kp, err := toKafkaPartition(partition)
	if err != nil {
		return domain.TopicPartition{}, err
	}

	client, err := r.conns.OffsetClient()
	if err != nil {
		repoMetrics.MetadataErrors.WithLabelValues(serviceLabel).Inc()
		return domain.TopicPartition{}, repository.Unavailable("open offset client", err)
	}
	defer r.closeQuietly(client, "offset client")

	result, err := r.fetchPartitionBounds(ctx, client, topic, []int32{kp})
	if err != nil {
		repoMetrics.MetadataErrors.WithLabelValues(serviceLabel).Inc()
		return domain.TopicPartition{}, repository.Unavailable("fetch partition offsets", err)
	}
	return result[0], nil
}

// PartitionExists сообщает, назначена ли партиция топику.
func (r *Repository) PartitionExists(ctx context.Context, topic, partition string) (bool, error) {
	client, err := r.conns.OffsetClient()
	if err != nil {
		return false, repository.Unavailable("open offset client", err)
	}
	defer r.closeQuietly(client, "offset client")

	partitions, err := client.Partitions(topic)
	if err != nil {
		return false, repository.Unavailable("list partitions", err)
	}
	for _, p := range partitions {
		if toNakadiPartition(p) == partition {
			return true, nil
		}
	}
	return false, nil
}

// fetchPartitionBounds выполняет две независимые пакетные выборки —
// earliest и latest — параллельно и объединяет их в записи партиций
// только после завершения обеих. Сбой любой из выборок роняет весь
// вызов.
func (r *Repository) fetchPartitionBounds(ctx context.Context, client sarama.Client, topic string, partitions []int32) ([]domain.TopicPartition, error) {
	oldest := make([]int64, len(partitions))
	newest := make([]int64, len(partitions))

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i, p := range partitions {
			off, err := client.GetOffset(topic, p, sarama.OffsetOldest)
			if err != nil {
				return fmt.Errorf("oldest offset of partition %d: %w", p, err)
			}
			oldest[i] = off
		}
		return nil
	})
	g.Go(func() error {
		for i, p := range partitions {
			off, err := client.GetOffset(topic, p, sarama.OffsetNewest)
			if err != nil {
				return fmt.Errorf("newest offset of partition %d: %w", p, err)
			}
			newest[i] = off
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]domain.TopicPartition, len(partitions))
	for i, p := range partitions {
		result[i] = domain.TopicPartition{
			TopicID:               topic,
			PartitionID:           toNakadiPartition(p),
			OldestAvailableOffset: toNakadiOffset(oldest[i]),
			NewestAvailableOffset: toNakadiOffset(newest[i]),
		}
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Cursor validation
// -----------------------------------------------------------------------------

// AreCursorsValid проверяет пакет курсоров по одному свежему снимку
// метаданных. Один невалидный курсор делает невалидным весь пакет.
func (r *Repository) AreCursorsValid(ctx context.Context, topic string, cursors []domain.Cursor) (bool, error) {
	partitions, err := r.ListPartitions(ctx, topic)
	if err != nil {
		return false, err
	}

	byID := make(map[string]domain.TopicPartition, len(partitions))
	for _, tp := range partitions {
		byID[tp.PartitionID] = tp
	}

	for _, cursor := range cursors {
		tp, ok := byID[cursor.Partition]
		if !ok {
			return false, nil
		}
		offset, err := toKafkaOffset(cursor.Offset)
		if err != nil {
			return false, nil
		}
		oldest, err := toKafkaOffset(tp.OldestAvailableOffset)
		if err != nil {
			return false, fmt.Errorf("own offset encoding broken: %w", err)
		}
		newest, err := toKafkaOffset(tp.NewestAvailableOffset)
		if err != nil {
			return false, fmt.Errorf("own offset encoding broken: %w", err)
		}
		// Верхняя граница включительная: newest — это следующая позиция
		// записи, и курсор ровно на хвосте считается валидным.
		if offset < oldest || offset > newest {
			return false, nil
		}
	}
	return true, nil
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

// PostEvent публикует событие в партицию на разделяемом продьюсере и
// блокируется до подтверждения кластера или таймаута отправки. Ключом
// маршрутизации служит сырой строковый идентификатор партиции.
func (r *Repository) PostEvent(ctx context.Context, topic, partition, payload string) error {
	_, span := tracer.Start(ctx, "PostEvent", trace.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("partition", partition),
	))
	defer span.End()

	kp, err := toKafkaPartition(partition)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Partition: kp,
		Key:       sarama.StringEncoder(partition),
		Value:     sarama.StringEncoder(payload),
	}

	start := time.Now()
	_, offset, err := r.conns.Producer().SendMessage(msg)
	latency := time.Since(start)
	repoMetrics.PublishLatency.WithLabelValues(serviceLabel).Observe(latency.Seconds())

	if err != nil {
		repoMetrics.PublishErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		r.log.Error("publish failed",
			zap.String("topic", topic),
			zap.String("partition", partition),
			zap.Error(err),
		)
		return repository.Publish("send event", err)
	}

	repoMetrics.PublishSuccess.WithLabelValues(serviceLabel).Inc()
	r.log.Debug("event published",
		zap.String("topic", topic),
		zap.String("partition", partition),
		zap.Int64("offset", offset),
		zap.Float64("latency_s", latency.Seconds()),
	)
	return nil
}

// -----------------------------------------------------------------------------
// Consumers
// -----------------------------------------------------------------------------

// CreateEventConsumer строит ленивый консьюмер: курсоры декодируются
// сразу (это чистая операция), подключение и чтение откладываются до
// первого ReadEvent.
func (r *Repository) CreateEventConsumer(topic string, cursors map[string]string) (repository.EventConsumer, error) {
	return newEventConsumer(r.conns, topic, cursors, r.cfg.PollTimeout, r.log)
}

// closeQuietly закрывает ресурс, логируя и проглатывая ошибку закрытия:
// она не должна маскировать основной результат вызова.
func (r *Repository) closeQuietly(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		r.log.Warn("close failed", zap.String("resource", what), zap.Error(err))
	}
}
