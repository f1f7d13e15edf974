// internal/repository/repository.go
//
// Пакет repository задаёт контракт хранилища топиков, который потребляет
// остальной брокер (HTTP-слой, подписки, оркестрация timeline'ов).
// Контракт не зависит от конкретного кластера; реализация для Kafka
// лежит в repository/kafka.
package repository

import (
	"context"

	"github.com/defineus/nakadi/internal/domain"
)

// TopicSettings — параметры создания топика. Нулевые значения
// заменяются настроенными дефолтами реализации.
type TopicSettings struct {
	PartitionsNum int32
	ReplicaFactor int16
	RetentionMs   int64
	RotationMs    int64
}

// TopicRepository — единая точка доступа брокера к нижележащему
// кластеру. Все партиции и смещения на этой границе — строки в
// кодировке брокера.
//
// Операции чтения метаданных (ListTopics, ListPartitions, GetPartition,
// TopicExists, PartitionExists, AreCursorsValid) при недоступности
// кластера или координации возвращают ошибку вида Unavailable и никогда
// не отдают частичный результат. Внутренних ретраев нет нигде.
type TopicRepository interface {
	// ListTopics перечисляет все существующие топики кластера.
	ListTopics(ctx context.Context) ([]domain.Topic, error)

	// CreateTopic создаёт топик. settings == nil → дефолты из конфига.
	// Любая ошибка (включая «топик уже существует») — TopicCreation;
	// предварительной проверки существования нет.
	CreateTopic(ctx context.Context, topic string, settings *TopicSettings) error

	// TopicExists — линейный поиск по ListTopics, с той же стоимостью
	// и теми же ошибками.
	TopicExists(ctx context.Context, topic string) (bool, error)

	// PartitionExists сообщает, назначена ли партиция topic'у.
	PartitionExists(ctx context.Context, topic, partition string) (bool, error)

	// AreCursorsValid проверяет пакет курсоров по свежему снимку
	// метаданных: несуществующая партиция, некорректное смещение или
	// выход за [oldest, newest] любого курсора делают весь пакет
	// невалидным. Ошибки декодирования — это false, а не ошибка.
	AreCursorsValid(ctx context.Context, topic string, cursors []domain.Cursor) (bool, error)

	// PostEvent публикует событие в партицию топика и ждёт
	// подтверждения кластера не дольше настроенного таймаута.
	// После ошибки Publish статус доставки неизвестен.
	PostEvent(ctx context.Context, topic, partition, payload string) error

	// ListPartitions возвращает по одной записи на каждую партицию
	// топика со свежими границами смещений.
	ListPartitions(ctx context.Context, topic string) ([]domain.TopicPartition, error)

	// GetPartition — ListPartitions для одной партиции.
	GetPartition(ctx context.Context, topic, partition string) (domain.TopicPartition, error)

	// CreateEventConsumer строит ленивый консьюмер, закреплённый на
	// стартовых смещениях cursors (partition → offset). Партиции, не
	// названные в cursors, не читаются. Сам вызов не делает I/O.
	CreateEventConsumer(topic string, cursors map[string]string) (EventConsumer, error)
}

// EventConsumer — долгоживущий курсор-ориентированный читатель одного
// топика. Порядок записей гарантирован только внутри партиции.
// Повторный запуск после Close невозможен — нужен новый консьюмер.
type EventConsumer interface {
	// ReadEvent блокирует до следующей записи, но не дольше poll-таймаута
	// реализации. Истёкший таймаут — это (nil, nil), не ошибка: вызывающий
	// может между чтениями коммитить курсоры или слать heartbeat'ы.
	ReadEvent(ctx context.Context) (*domain.ConsumedEvent, error)

	Close() error
}
