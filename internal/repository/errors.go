// internal/repository/errors.go
package repository

import (
	"errors"
	"fmt"
)

// Kind классифицирует операционные ошибки репозитория.
type Kind uint8

const (
	// KindUnavailable — координация или кластер недоступны/не ответили
	// вовремя во время операции чтения.
	KindUnavailable Kind = iota + 1

	// KindTopicCreation — административная команда создания топика
	// отклонена или завершилась ошибкой (в т.ч. дубликат имени).
	KindTopicCreation

	// KindPublish — подтверждение отправки не получено за таймаут либо
	// транспортная ошибка; статус доставки после этого неизвестен.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "repository unavailable"
	case KindTopicCreation:
		return "topic creation failed"
	case KindPublish:
		return "publish failed"
	default:
		return "unknown"
	}
}

// Error — операционная ошибка репозитория с сохранённой причиной.
// Сырые транспортные ошибки за границу репозитория не выходят —
// только обёрнутые в Error.
type Error struct {
	Kind Kind
	Op   string // операция, в которой произошёл сбой
	Err  error  // исходная причина (для диагностики)
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}
func (e *Error) Unwrap() error { return e.Err }

// Unavailable оборачивает err как недоступность кластера/координации.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

// TopicCreation оборачивает err как сбой создания топика.
func TopicCreation(op string, err error) *Error {
	return &Error{Kind: KindTopicCreation, Op: op, Err: err}
}

// Publish оборачивает err как сбой публикации.
func Publish(op string, err error) *Error {
	return &Error{Kind: KindPublish, Op: op, Err: err}
}

// IsKind сообщает, относится ли err (по цепочке Unwrap) к виду k.
func IsKind(err error, k Kind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == k
}

// Валидационные ошибки: курсор или идентификатор партиции не
// декодируется. В AreCursorsValid это «false», а не сбой вызова.
var (
	ErrMalformedOffset    = errors.New("malformed offset")
	ErrInvalidPartitionID = errors.New("invalid partition id")
)
