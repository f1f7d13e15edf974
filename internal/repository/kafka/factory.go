// internal/repository/kafka/factory.go
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/dnwe/otelsarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/defineus/nakadi/pkg/backoff"
	"github.com/defineus/nakadi/pkg/logger"
)

// connections раздаёт репозиторию подключения к кластеру: одно
// разделяемое (продьюсер) и короткоживущие, со сроком жизни в один
// вызов (метаданные, консьюмеры, административные сессии).
type connections interface {
	// Producer — разделяемый синхронный продьюсер процесса.
	Producer() sarama.SyncProducer

	// OffsetClient открывает свежий клиент для одного вызова выборки
	// метаданных/смещений. Вызывающий обязан закрыть его на всех путях.
	OffsetClient() (sarama.Client, error)

	// Consumer открывает свежий консьюмер; живёт до Close() самого
	// EventConsumer'а.
	Consumer() (sarama.Consumer, error)

	// ClusterAdmin открывает выделенную административную сессию к
	// brokers. Вызывающий обязан закрыть её на всех путях.
	ClusterAdmin(brokers []string) (sarama.ClusterAdmin, error)
}

// Factory — конкретная реализация connections поверх Sarama. Владеет
// разделяемым клиентом и продьюсером: они создаются один раз при
// старте процесса и детерминированно закрываются при остановке.
type Factory struct {
	cfg      Config
	client   sarama.Client
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewFactory подключает разделяемый клиент и синхронный продьюсер
// с ретраями по стратегии cfg.Backoff.
func NewFactory(ctx context.Context, cfg Config, log *logger.Logger) (*Factory, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-factory")

	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka factory: new client: %w", err)
	}

	var syncProd sarama.SyncProducer
	connect := func(ctx context.Context) error {
		p, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			return err
		}
		syncProd = p
		return nil
	}
	if err := backoff.Execute(ctx, cfg.Backoff, log, connect); err != nil {
		_ = client.Close()
		log.Error("kafka producer connect failed", zap.Error(err))
		return nil, fmt.Errorf("kafka factory: connect producer: %w", err)
	}

	// Оборачиваем для OpenTelemetry
	wrapped := otelsarama.WrapSyncProducer(sc, syncProd)

	log.Info("kafka factory ready", zap.Strings("brokers", cfg.Brokers))
	return &Factory{
		cfg:      cfg,
		client:   client,
		producer: wrapped,
		log:      log,
	}, nil
}

// Producer возвращает разделяемый продьюсер. Sarama гарантирует его
// потокобезопасность, так что один handle обслуживает все публикации.
func (f *Factory) Producer() sarama.SyncProducer { return f.producer }

// OffsetClient открывает одноразовый клиент выборки смещений. Каждому
// вызову — собственный client-id, чтобы параллельные in-flight запросы
// различались на стороне кластера.
func (f *Factory) OffsetClient() (sarama.Client, error) {
	sc, err := buildSaramaConfig(f.cfg)
	if err != nil {
		return nil, err
	}
	// Токен живёт один вызов: обе пакетные выборки (earliest и latest)
	// внутри него идут под общим client-id.
	sc.ClientID = "offsetlookup_" + uuid.NewString()

	client, err := sarama.NewClient(f.cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka factory: offset client: %w", err)
	}
	repoMetrics.ScopedClientsOpen.WithLabelValues(serviceLabel).Inc()
	return &scopedClient{Client: client}, nil
}

// Consumer открывает свежий консьюмер с собственным клиентом; тот
// закрывается вместе с консьюмером.
func (f *Factory) Consumer() (sarama.Consumer, error) {
	sc, err := buildSaramaConfig(f.cfg)
	if err != nil {
		return nil, err
	}
	consumer, err := sarama.NewConsumer(f.cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka factory: consumer: %w", err)
	}
	return consumer, nil
}

// ClusterAdmin открывает выделенную административную сессию. Адреса
// брокеров приходят от координации, не из конфига фабрики.
func (f *Factory) ClusterAdmin(brokers []string) (sarama.ClusterAdmin, error) {
	sc, err := buildSaramaConfig(f.cfg)
	if err != nil {
		return nil, err
	}
	admin, err := sarama.NewClusterAdmin(brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka factory: cluster admin: %w", err)
	}
	return admin, nil
}

// Ping обновляет метаданные разделяемого клиента, проверяя
// достижимость кластера.
func (f *Factory) Ping(_ context.Context) error {
	return f.client.RefreshMetadata()
}

// Close корректно закрывает продьюсер и разделяемый клиент.
func (f *Factory) Close() error {
	if err := f.producer.Close(); err != nil {
		f.log.Error("producer close failed", zap.Error(err))
		return err
	}
	if err := f.client.Close(); err != nil {
		f.log.Error("client close failed", zap.Error(err))
		return err
	}
	f.log.Info("kafka factory closed")
	return nil
}

// scopedClient уменьшает gauge открытых одноразовых клиентов при
// закрытии.
type scopedClient struct {
	sarama.Client
}

func (s *scopedClient) Close() error {
	repoMetrics.ScopedClientsOpen.WithLabelValues(serviceLabel).Dec()
	return s.Client.Close()
}
