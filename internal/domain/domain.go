// internal/domain/domain.go
//
// Пакет domain содержит типы брокерского уровня: топики, партиции,
// курсоры и события. Все идентификаторы и смещения здесь — строки
// в кодировке брокера; нативные числовые значения Kafka наружу
// не выходят.
package domain

// Topic — append-only партиционированный лог событий. На этом уровне
// у топика нет изменяемого состояния, кроме имени: количество партиций
// и retention хранит сам кластер.
type Topic struct {
	Name string `json:"name"`
}

// TopicPartition — снимок метаданных одной партиции на момент запроса.
// OldestAvailableOffset — достижимая нижняя граница (включительно).
// NewestAvailableOffset — следующая позиция записи, не последняя
// записанная. Снимок никогда не кэшируется между вызовами.
type TopicPartition struct {
	TopicID               string `json:"topic_id"`
	PartitionID           string `json:"partition_id"`
	OldestAvailableOffset string `json:"oldest_available_offset"`
	NewestAvailableOffset string `json:"newest_available_offset"`
}

// Cursor — позиция возобновления чтения, переданная клиентом брокера:
// партиция + смещение в строковой кодировке брокера.
type Cursor struct {
	Partition string `json:"partition"`
	Offset    string `json:"offset"`
}

// ConsumedEvent — одна запись, прочитанная консьюмером: полезная
// нагрузка плюс позиция, с которой она была прочитана.
type ConsumedEvent struct {
	Topic     string `json:"topic"`
	Partition string `json:"partition"`
	Offset    string `json:"offset"`
	Event     string `json:"event"`
}
