// Package items реализует операции над позициями стола поверх ItemRepository.
package items

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
)

// Имена операций для логов и метрик.
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpReadAll = "read_all"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// EventPublisher публикует события об изменении позиций.
type EventPublisher interface {
	PublishItemEvent(event *kafka.ItemEvent) error
}

// Service выполняет операции над одной позицией и приводит ошибки
// репозитория к закрытому набору для каждой операции.
type Service struct {
	repo      domain.ItemRepository
	publisher EventPublisher
	metrics   *metrics.ItemMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис. publisher, metrics и logger могут быть nil.
func NewService(repo domain.ItemRepository, publisher EventPublisher, m *metrics.ItemMetrics, logger *log.Entry) *Service {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	if logger == nil {
		logger = log.New().WithField("component", "items")
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Create добавляет позицию в стол. Новая позиция всегда живая, с версией 1,
// время готовности вычисляется заново.
// Ошибки: ErrConflict, ErrUnknown.
func (s *Service) Create(table domain.TableID, item domain.Item) (domain.Item, error) {
	done := s.track(OpCreate)

	item.Version = domain.InitialVersion
	item.Deleted = false

	created, err := s.repo.Insert(table, item.WithTimeToPrepare(s.now()))
	err = s.normalize(OpCreate, table, item.ID, err, domain.ErrConflict)
	done(err)
	if err != nil {
		return domain.Item{}, err
	}

	s.publish(kafka.EventTypeItemCreated, table, created)
	return created, nil
}

// Read возвращает неудалённую позицию.
// Ошибки: ErrUnknownTableID, ErrUnknownItemID, ErrUnknown.
func (s *Service) Read(table domain.TableID, id domain.ItemID) (domain.Item, error) {
	done := s.track(OpRead)

	item, err := s.repo.FetchOne(table, id)
	err = s.normalize(OpRead, table, id, err, domain.ErrUnknownTableID, domain.ErrUnknownItemID)
	done(err)
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// ReadAll возвращает позиции стола в порядке текстовых ID.
// Ошибки: ErrUnknownTableID, ErrUnknown.
func (s *Service) ReadAll(table domain.TableID, includeDeleted bool) ([]domain.Item, error) {
	done := s.track(OpReadAll)

	items, err := s.repo.FetchAll(table, includeDeleted)
	err = s.normalize(OpReadAll, table, 0, err, domain.ErrUnknownTableID)
	done(err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update заменяет поля позиции, если версия клиента не устарела.
// Ошибки: ErrUnknownTableID, ErrUnknownItemID, ErrVersionConflict, ErrUnknown.
func (s *Service) Update(table domain.TableID, item domain.Item) (domain.Item, error) {
	done := s.track(OpUpdate)

	updated, err := s.repo.Update(table, item.WithTimeToPrepare(s.now()))
	err = s.normalize(OpUpdate, table, item.ID, err,
		domain.ErrUnknownTableID, domain.ErrUnknownItemID, domain.ErrVersionConflict)
	done(err)
	if err != nil {
		return domain.Item{}, err
	}

	s.publish(kafka.EventTypeItemUpdated, table, updated)
	return updated, nil
}

// Delete помечает позицию удалённой. Событие несёт последнюю прочитанную
// перед удалением версию.
// Ошибки: ErrUnknownTableID, ErrUnknownItemID, ErrUnknown.
func (s *Service) Delete(table domain.TableID, id domain.ItemID) error {
	done := s.track(OpDelete)

	tombstone := domain.Item{ID: id}
	if current, err := s.repo.FetchOne(table, id); err == nil {
		tombstone = current
	}
	tombstone.Deleted = true

	err := s.repo.Delete(table, id)
	err = s.normalize(OpDelete, table, id, err, domain.ErrUnknownTableID, domain.ErrUnknownItemID)
	done(err)
	if err != nil {
		return err
	}

	s.publish(kafka.EventTypeItemDeleted, table, tombstone)
	return nil
}

// RecordBatch записывает размер пакетного запроса.
func (s *Service) RecordBatch(op string, size int) {
	if s.metrics != nil {
		s.metrics.RecordBatchSize(op, size)
	}
}

// Ping проверяет хранилище.
func (s *Service) Ping() error {
	return s.repo.Ping()
}

func (s *Service) track(op string) func(err error) {
	if s.metrics == nil {
		return func(error) {}
	}

	start := time.Now()
	s.metrics.OperationStarted()
	return func(err error) {
		s.metrics.OperationFinished()
		s.metrics.RecordOperation(op, Outcome(err), time.Since(start))
	}
}

// normalize оставляет только ошибки из allowed, остальное превращает в ErrUnknown.
// Исходная ошибка при этом попадает в лог.
func (s *Service) normalize(op string, table domain.TableID, id domain.ItemID, err error, allowed ...error) error {
	if err == nil {
		return nil
	}

	normalized := domain.Normalize(err, allowed...)
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"op":       op,
		"table_id": uint32(table),
	})
	if id != 0 {
		entry = entry.WithField("item_id", uint32(id))
	}

	if errors.Is(normalized, domain.ErrUnknown) {
		entry.Error("item operation failed")
	} else {
		entry.Debug("item operation rejected")
	}
	return normalized
}

func (s *Service) publish(eventType kafka.EventType, table domain.TableID, item domain.Item) {
	err := s.publisher.PublishItemEvent(kafka.NewItemEvent(eventType, table, item))
	if s.metrics != nil {
		s.metrics.RecordEvent(string(eventType), err)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"table_id":   uint32(table),
			"item_id":    uint32(item.ID),
		}).Warn("failed to publish item event")
	}
}

// Outcome переводит ошибку операции в значение label outcome.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, domain.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, domain.ErrVersionConflict):
		return metrics.OutcomeVersionConflict
	case errors.Is(err, domain.ErrUnknownTableID):
		return metrics.OutcomeUnknownTable
	case errors.Is(err, domain.ErrUnknownItemID):
		return metrics.OutcomeUnknownItem
	default:
		return metrics.OutcomeError
	}
}
