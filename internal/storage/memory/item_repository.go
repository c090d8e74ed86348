package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// itemRepositoryInMemory — in-memory реализация ItemRepository.
// Хранит только текущее состояние каждой пары (стол, позиция) вместе с
// флагом удаления, поэтому повторное создание удалённой позиции не растит память.
type itemRepositoryInMemory struct {
	mu       sync.Mutex
	poisoned bool
	tables   map[domain.TableID]map[domain.ItemID]domain.Item
}

// NewItemRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewItemRepository() domain.ItemRepository {
	return newItemRepository()
}

func newItemRepository() *itemRepositoryInMemory {
	return &itemRepositoryInMemory{
		tables: make(map[domain.TableID]map[domain.ItemID]domain.Item),
	}
}

// withLock выполняет fn под единственной блокировкой репозитория.
// Паника внутри критической секции переводит репозиторий в деградированное
// состояние: дальше все операции возвращают ErrUnknown.
func (r *itemRepositoryInMemory) withLock(op string, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned {
		return fmt.Errorf("%s: repository is poisoned: %w", op, domain.ErrUnknown)
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.poisoned = true
			err = fmt.Errorf("%s: panic in critical section: %v: %w", op, rec, domain.ErrUnknown)
		}
	}()

	return fn()
}

// Insert сохраняет новую позицию, если в столе нет неудалённой позиции с тем же ID.
func (r *itemRepositoryInMemory) Insert(table domain.TableID, item domain.Item) (domain.Item, error) {
	err := r.withLock("insert", func() error {
		items, ok := r.tables[table]
		if !ok {
			items = make(map[domain.ItemID]domain.Item)
			r.tables[table] = items
		}
		if current, exists := items[item.ID]; exists && !current.Deleted {
			return domain.ErrConflict
		}
		// Удалённая запись с тем же ID заменяется новой.
		items[item.ID] = item
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// Update перезаписывает позицию, проверяя версию (optimistic locking).
func (r *itemRepositoryInMemory) Update(table domain.TableID, item domain.Item) (domain.Item, error) {
	var updated domain.Item
	err := r.withLock("update", func() error {
		items, ok := r.tables[table]
		if !ok {
			return domain.ErrUnknownTableID
		}
		current, exists := items[item.ID]
		if !exists || current.Deleted {
			return domain.ErrUnknownItemID
		}
		if item.Version.Less(current.Version) {
			return domain.ErrVersionConflict
		}

		updated = item
		updated.Version = current.Version.Next()
		items[item.ID] = updated
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

// FetchOne возвращает неудалённую позицию.
func (r *itemRepositoryInMemory) FetchOne(table domain.TableID, id domain.ItemID) (domain.Item, error) {
	var found domain.Item
	err := r.withLock("fetch one", func() error {
		items, ok := r.tables[table]
		if !ok {
			return domain.ErrUnknownTableID
		}
		item, exists := items[id]
		if !exists || item.Deleted {
			return domain.ErrUnknownItemID
		}
		found = item
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return found, nil
}

// FetchAll возвращает копию позиций стола, отсортированную по текстовому ID.
func (r *itemRepositoryInMemory) FetchAll(table domain.TableID, includeDeleted bool) ([]domain.Item, error) {
	var result []domain.Item
	err := r.withLock("fetch all", func() error {
		items, ok := r.tables[table]
		if !ok {
			return domain.ErrUnknownTableID
		}
		result = make([]domain.Item, 0, len(items))
		for _, item := range items {
			if item.Deleted && !includeDeleted {
				continue
			}
			result = append(result, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	domain.SortItems(result)
	return result, nil
}

// Delete помечает позицию удалённой.
func (r *itemRepositoryInMemory) Delete(table domain.TableID, id domain.ItemID) error {
	return r.withLock("delete", func() error {
		items, ok := r.tables[table]
		if !ok {
			return domain.ErrUnknownTableID
		}
		item, exists := items[id]
		if !exists || item.Deleted {
			return domain.ErrUnknownItemID
		}
		item.Deleted = true
		items[id] = item
		return nil
	})
}

// Ping сообщает об ошибке, если репозиторий деградировал после паники.
func (r *itemRepositoryInMemory) Ping() error {
	return r.withLock("ping", func() error { return nil })
}

func (r *itemRepositoryInMemory) Close() error { return nil }

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
