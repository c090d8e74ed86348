package domain

import "sort"

// ItemRepository описывает требования к хранилищу позиций.
// Все мутирующие операции атомарны относительно конкурентных вызовов
// на одном экземпляре.
type ItemRepository interface {
	// Insert добавляет позицию. ErrConflict, если в столе уже есть неудалённая позиция с таким ID.
	Insert(table TableID, item Item) (Item, error)
	// Update заменяет поля позиции целиком и выставляет версию stored+1.
	// ErrUnknownTableID, ErrUnknownItemID или ErrVersionConflict (stored > candidate).
	Update(table TableID, item Item) (Item, error)
	// FetchOne возвращает неудалённую позицию или ErrUnknownTableID/ErrUnknownItemID.
	FetchOne(table TableID, id ItemID) (Item, error)
	// FetchAll возвращает позиции стола, отсортированные по текстовому ID.
	// ErrUnknownTableID только если в стол никогда ничего не добавляли.
	FetchAll(table TableID, includeDeleted bool) ([]Item, error)
	// Delete помечает позицию удалённой, не удаляя её физически.
	Delete(table TableID, id ItemID) error
	// Ping проверяет доступность хранилища.
	Ping() error
	// Close освобождает ресурсы хранилища.
	Close() error
}

// SortItems упорядочивает позиции по текстовому представлению ID ("10" < "2").
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ID.String() < items[j].ID.String()
	})
}
