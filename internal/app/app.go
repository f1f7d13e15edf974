// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/defineus/nakadi/internal/config"
	"github.com/defineus/nakadi/internal/repository/kafka"
	"github.com/defineus/nakadi/internal/repository/zookeeper"
	"github.com/defineus/nakadi/pkg/httpserver"
	"github.com/defineus/nakadi/pkg/logger"
	"github.com/defineus/nakadi/pkg/serviceid"
	"github.com/defineus/nakadi/pkg/telemetry"
)

// Run собирает слой хранилища топиков и держит его до отмены ctx:
// сессия ZooKeeper, разделяемый Kafka-клиент с продьюсером,
// репозиторий и ops-HTTP-сервер.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	serviceid.InitServiceName(cfg.ServiceName)

	// Трассировка
	cfg.Telemetry.ServiceName = cfg.ServiceName
	cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownSafe(ctx, "telemetry", func() error { return shutdownTracer(ctx) }, log)

	// 1) Координация
	zkHolder, err := zookeeper.New(ctx, cfg.ZooKeeper, log)
	if err != nil {
		return fmt.Errorf("zookeeper init: %w", err)
	}
	defer shutdownSafe(ctx, "zookeeper", zkHolder.Close, log)

	// 2) Разделяемые подключения Kafka
	factory, err := kafka.NewFactory(ctx, cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("kafka factory init: %w", err)
	}
	defer shutdownSafe(ctx, "kafka-factory", factory.Close, log)

	// 3) Репозиторий. Стартовое перечисление топиков заодно проверяет,
	// что координация отвечает.
	repo := kafka.NewRepository(zkHolder, factory, cfg.Kafka, log)
	topics, err := repo.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("initial topic listing: %w", err)
	}
	log.Info("topic repository ready",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("zookeeper", zkHolder.ConnectionString()),
		zap.Int("topics", len(topics)),
	)

	// 4) Ops-HTTP-сервер
	readiness := func() error { return factory.Ping(ctx) }
	httpSrv, err := httpserver.New(cfg.HTTP, readiness, log)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Start(ctx) })

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.WithContext(ctx).Info("nakadi storage layer stopped by context")
			return nil
		}
		return err
	}
	return nil
}

// shutdownSafe оборачивает вызов Close()/Shutdown() с логированием.
func shutdownSafe(ctx context.Context, name string, fn func() error, log *logger.Logger) {
	log.WithContext(ctx).Info(fmt.Sprintf("%s: shutting down", name))
	if err := fn(); err != nil {
		log.WithContext(ctx).Error(fmt.Sprintf("%s shutdown error", name), zap.Error(err))
	} else {
		log.WithContext(ctx).Info(fmt.Sprintf("%s: shutdown complete", name))
	}
}
