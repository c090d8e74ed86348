// Package storagetest содержит общий набор проверок контракта ItemRepository,
// который прогоняется для каждой реализации хранилища.
package storagetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// Factory создаёт пустой репозиторий для одного подтеста.
type Factory func(t *testing.T) domain.ItemRepository

// NewItem собирает валидную позицию для тестов.
func NewItem(t *testing.T, id domain.ItemID, name, notes string, qty domain.ItemQuantity) domain.Item {
	t.Helper()
	n, err := domain.ParseItemName(name)
	require.NoError(t, err)
	nt, err := domain.ParseItemNotes(notes)
	require.NoError(t, err)
	return domain.NewItem(id, n, nt, qty, domain.InitialVersion).WithTimeToPrepare(time.Now())
}

// Pizza — позиция из типового сценария.
func Pizza(t *testing.T, id domain.ItemID) domain.Item {
	t.Helper()
	return NewItem(t, id, "Some pizza", "Some notes", 1)
}

// RunContract прогоняет все проверки контракта.
func RunContract(t *testing.T, newRepo Factory) {
	t.Run("InsertAndConflict", func(t *testing.T) { testInsertAndConflict(t, newRepo(t)) })
	t.Run("InsertAfterDelete", func(t *testing.T) { testInsertAfterDelete(t, newRepo(t)) })
	t.Run("FetchOne", func(t *testing.T) { testFetchOne(t, newRepo(t)) })
	t.Run("FetchAllFiltersDeleted", func(t *testing.T) { testFetchAllFiltersDeleted(t, newRepo(t)) })
	t.Run("FetchAllTextualOrder", func(t *testing.T) { testFetchAllTextualOrder(t, newRepo(t)) })
	t.Run("FetchAllUnknownTable", func(t *testing.T) { testFetchAllUnknownTable(t, newRepo(t)) })
	t.Run("UpdateVersioning", func(t *testing.T) { testUpdateVersioning(t, newRepo(t)) })
	t.Run("UpdateErrors", func(t *testing.T) { testUpdateErrors(t, newRepo(t)) })
	t.Run("DeleteIdempotence", func(t *testing.T) { testDeleteIdempotence(t, newRepo(t)) })
	t.Run("DeleteUnknownTable", func(t *testing.T) { testDeleteUnknownTable(t, newRepo(t)) })
	t.Run("TablesAreIsolated", func(t *testing.T) { testTablesAreIsolated(t, newRepo(t)) })
	t.Run("ConcurrentInsertSingleWinner", func(t *testing.T) { testConcurrentInsert(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newRepo(t).Ping()) })
}

func testInsertAndConflict(t *testing.T, repo domain.ItemRepository) {
	item := Pizza(t, 1)

	got, err := repo.Insert(1, item)
	require.NoError(t, err)
	require.Equal(t, domain.ItemVersion(1), got.Version)
	require.False(t, got.Deleted)
	require.NotEmpty(t, got.TimeToPrepare)

	_, err = repo.Insert(1, item)
	require.ErrorIs(t, err, domain.ErrConflict)

	// Тот же ID в другом столе не конфликтует.
	_, err = repo.Insert(2, item)
	require.NoError(t, err)
}

func testInsertAfterDelete(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(1, 1))

	pasta := NewItem(t, 1, "Some pasta", "Some other notes", 2)
	_, err = repo.Insert(1, pasta)
	require.NoError(t, err)

	got, err := repo.FetchOne(1, 1)
	require.NoError(t, err)
	require.Equal(t, "Some pasta", got.Name.String())
	require.Equal(t, domain.ItemQuantity(2), got.Quantity)
}

func testFetchOne(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.FetchOne(1, 1)
	require.ErrorIs(t, err, domain.ErrUnknownTableID)

	item := Pizza(t, 1)
	_, err = repo.Insert(1, item)
	require.NoError(t, err)

	got, err := repo.FetchOne(1, 1)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
	require.Equal(t, item.Name, got.Name)
	require.Equal(t, item.Notes, got.Notes)
	require.Equal(t, item.Quantity, got.Quantity)
	require.Equal(t, item.Version, got.Version)
	require.False(t, got.Deleted)
	require.NotEmpty(t, got.TimeToPrepare)

	_, err = repo.FetchOne(1, 2)
	require.ErrorIs(t, err, domain.ErrUnknownItemID)

	require.NoError(t, repo.Delete(1, 1))
	_, err = repo.FetchOne(1, 1)
	require.ErrorIs(t, err, domain.ErrUnknownItemID)
}

func testFetchAllFiltersDeleted(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)
	deleted := Pizza(t, 2)
	deleted.Deleted = true
	_, err = repo.Insert(1, deleted)
	require.NoError(t, err)

	items, err := repo.FetchAll(1, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, domain.ItemID(1), items[0].ID)

	items, err = repo.FetchAll(1, true)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Стол, где все позиции удалены, остаётся «известным».
	require.NoError(t, repo.Delete(1, 1))
	items, err = repo.FetchAll(1, false)
	require.NoError(t, err)
	require.Empty(t, items)
}

func testFetchAllTextualOrder(t *testing.T, repo domain.ItemRepository) {
	for _, id := range []domain.ItemID{2, 10, 1, 21} {
		_, err := repo.Insert(5, Pizza(t, id))
		require.NoError(t, err)
	}

	items, err := repo.FetchAll(5, false)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID.String())
	}
	require.Equal(t, []string{"1", "10", "2", "21"}, ids)
}

func testFetchAllUnknownTable(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.FetchAll(7, false)
	require.ErrorIs(t, err, domain.ErrUnknownTableID)
}

func testUpdateVersioning(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)

	candidate := NewItem(t, 1, "Some pasta", "Some other notes", 3)
	candidate.Version = 1
	updated, err := repo.Update(1, candidate)
	require.NoError(t, err)
	require.Equal(t, domain.ItemVersion(2), updated.Version)
	require.Equal(t, "Some pasta", updated.Name.String())

	stored, err := repo.FetchOne(1, 1)
	require.NoError(t, err)
	require.Equal(t, domain.ItemVersion(2), stored.Version)
	require.Equal(t, domain.ItemQuantity(3), stored.Quantity)
	require.Equal(t, "Some other notes", stored.Notes.String())

	// Версия клиента ниже сохранённой.
	candidate.Version = 1
	_, err = repo.Update(1, candidate)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	// Версия клиента выше сохранённой принимается, новая версия всё равно stored+1.
	candidate.Version = 40
	updated, err = repo.Update(1, candidate)
	require.NoError(t, err)
	require.Equal(t, domain.ItemVersion(3), updated.Version)
}

func testUpdateErrors(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Update(1, Pizza(t, 1))
	require.ErrorIs(t, err, domain.ErrUnknownTableID)

	_, err = repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)

	_, err = repo.Update(1, Pizza(t, 2))
	require.ErrorIs(t, err, domain.ErrUnknownItemID)

	require.NoError(t, repo.Delete(1, 1))
	_, err = repo.Update(1, Pizza(t, 1))
	require.ErrorIs(t, err, domain.ErrUnknownItemID)
}

func testDeleteIdempotence(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(1, 1))
	require.ErrorIs(t, repo.Delete(1, 1), domain.ErrUnknownItemID)
	require.ErrorIs(t, repo.Delete(1, 99), domain.ErrUnknownItemID)
}

func testDeleteUnknownTable(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)
	require.ErrorIs(t, repo.Delete(2, 1), domain.ErrUnknownTableID)
}

func testTablesAreIsolated(t *testing.T, repo domain.ItemRepository) {
	_, err := repo.Insert(1, Pizza(t, 1))
	require.NoError(t, err)
	_, err = repo.Insert(2, NewItem(t, 1, "Some pasta", "", 4))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(1, 1))

	got, err := repo.FetchOne(2, 1)
	require.NoError(t, err)
	require.Equal(t, "Some pasta", got.Name.String())
}

func testConcurrentInsert(t *testing.T, repo domain.ItemRepository) {
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		other     []error
	)
	items := make([]domain.Item, workers)
	for i := range items {
		items[i] = NewItem(t, 1, fmt.Sprintf("Pizza %d", i), "", 1)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.Insert(1, items[n])

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, succeeded)
	require.Equal(t, workers-1, conflicts)
}
