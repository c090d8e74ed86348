package kafka

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeItemCreated EventType = "item.created"
	EventTypeItemUpdated EventType = "item.updated"
	EventTypeItemDeleted EventType = "item.deleted"
)

// TopicItemEvents — topic по умолчанию для событий позиций.
const TopicItemEvents = "restaurant.item.events"

// ItemEvent представляет изменение позиции стола
type ItemEvent struct {
	EventType EventType `json:"event_type"`
	TableID   uint32    `json:"table_id"`
	ItemID    uint32    `json:"item_id"`
	Version   uint32    `json:"version,omitempty"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent создает событие по состоянию позиции после операции.
func NewItemEvent(eventType EventType, table domain.TableID, item domain.Item) *ItemEvent {
	return &ItemEvent{
		EventType: eventType,
		TableID:   uint32(table),
		ItemID:    uint32(item.ID),
		Version:   uint32(item.Version),
		Deleted:   item.Deleted,
		Timestamp: time.Now().UTC(),
	}
}

// Key возвращает ключ сообщения "<tid>:<id>", чтобы события одной позиции
// попадали в одну партицию.
func (e *ItemEvent) Key() string {
	return fmt.Sprintf("%d:%d", e.TableID, e.ItemID)
}
