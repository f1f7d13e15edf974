// internal/repository/kafka/cursor.go
package kafka

import (
	"fmt"
	"strconv"

	"github.com/defineus/nakadi/internal/domain"
	"github.com/defineus/nakadi/internal/repository"
)

// Кодек курсоров: чистый двусторонний перевод между строковой кодировкой
// брокера и нативной адресацией Kafka (int32 партиция, int64 смещение).
// Обе стороны — десятичные неотрицательные числа без альтернативных
// представлений, round-trip обязан быть точным.

// kafkaCursor — курсор, переведённый в нативную адресацию Kafka.
type kafkaCursor struct {
	partition int32
	offset    int64
}

// toKafkaPartition декодирует строковый идентификатор партиции.
// Ошибка декодирования — repository.ErrInvalidPartitionID.
func toKafkaPartition(id string) (int32, error) {
	p, err := strconv.ParseInt(id, 10, 32)
	if err != nil || p < 0 {
		return 0, fmt.Errorf("%w: %q", repository.ErrInvalidPartitionID, id)
	}
	return int32(p), nil
}

// toNakadiPartition кодирует нативный номер партиции в строку брокера.
func toNakadiPartition(p int32) string {
	return strconv.FormatInt(int64(p), 10)
}

// toKafkaOffset декодирует строковое смещение брокера.
// Ошибка декодирования — repository.ErrMalformedOffset; вызывающие
// трактуют её как «курсор невалиден», не как фатальный сбой.
func toKafkaOffset(offset string) (int64, error) {
	o, err := strconv.ParseInt(offset, 10, 64)
	if err != nil || o < 0 {
		return 0, fmt.Errorf("%w: %q", repository.ErrMalformedOffset, offset)
	}
	return o, nil
}

// toNakadiOffset кодирует нативное смещение в строку брокера.
func toNakadiOffset(offset int64) string {
	return strconv.FormatInt(offset, 10)
}

// fromNakadiCursor декодирует обе координаты курсора разом.
func fromNakadiCursor(c domain.Cursor) (kafkaCursor, error) {
	p, err := toKafkaPartition(c.Partition)
	if err != nil {
		return kafkaCursor{}, err
	}
	o, err := toKafkaOffset(c.Offset)
	if err != nil {
		return kafkaCursor{}, err
	}
	return kafkaCursor{partition: p, offset: o}, nil
}
