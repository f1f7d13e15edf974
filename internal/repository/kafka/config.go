// internal/repository/kafka/config.go
package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/defineus/nakadi/pkg/backoff"
)

// Config groups all tunables of the Kafka-backed topic repository.
//
// Zero values are replaced with sane defaults by applyDefaults().
type Config struct {
	// Brokers — список адресов Kafka-брокеров для разделяемого клиента.
	Brokers []string `mapstructure:"brokers"`

	// RequiredAcks определяет стратегию подтверждения брокеров:
	//   "all" (дефолт) | "leader" | "none".
	RequiredAcks string `mapstructure:"acks"`

	// Compression указывает алгоритм сжатия:
	//   "none" (дефолт), "gzip", "snappy", "lz4", "zstd".
	Compression string `mapstructure:"compression"`

	// SendTimeout — максимальное время ожидания ack при публикации.
	SendTimeout time.Duration `mapstructure:"send_timeout"`

	// PollTimeout — сколько один fetch консьюмера ждёт новых записей,
	// прежде чем вернуть управление пустым чтением.
	PollTimeout time.Duration `mapstructure:"poll_timeout"`

	// Дефолты создания топика; используются, когда вызывающий не задал
	// собственные настройки.
	DefaultTopicPartitionsNum int32 `mapstructure:"default_topic_partitions"`
	DefaultTopicReplicaFactor int16 `mapstructure:"default_topic_replica_factor"`
	DefaultTopicRetentionMs   int64 `mapstructure:"default_topic_retention_ms"`
	DefaultTopicRotationMs    int64 `mapstructure:"default_topic_rotation_ms"`

	// Backoff описывает стратегию ретраев установления соединения.
	// Сами операции репозитория внутренних ретраев не имеют.
	Backoff backoff.Config `mapstructure:"backoff"`
}

// applyDefaults заполняет zero-полям безопасные дефолты.
func (c *Config) applyDefaults() {
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 200 * time.Millisecond
	}
	if c.DefaultTopicPartitionsNum <= 0 {
		c.DefaultTopicPartitionsNum = 8
	}
	if c.DefaultTopicReplicaFactor <= 0 {
		c.DefaultTopicReplicaFactor = 1
	}
	if c.DefaultTopicRetentionMs <= 0 {
		c.DefaultTopicRetentionMs = 86400000 // 1 день
	}
	if c.DefaultTopicRotationMs <= 0 {
		c.DefaultTopicRotationMs = 3600000 // 1 час
	}
}

// validate выполняет быстрые sanity-checks.
func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka repository: brokers required")
	}
	return nil
}

// buildSaramaConfig собирает конфиг Sarama для разделяемого клиента и
// синхронного продьюсера.
func buildSaramaConfig(c Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	// Административные запросы (create-topic) требуют версию протокола
	// не ниже 1.0.
	sc.Version = sarama.V2_1_0_0

	// RequiredAcks
	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka repository: invalid RequiredAcks %q", c.RequiredAcks)
	}

	// Producer common settings. Партицию всегда назначает репозиторий,
	// поэтому партиционер строго ручной.
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Timeout = c.SendTimeout
	sc.Producer.Partitioner = sarama.NewManualPartitioner

	// Compression
	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka repository: invalid Compression %q", c.Compression)
	}

	return sc, nil
}
