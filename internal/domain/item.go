package domain

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	minPrepareMinutes = 1
	maxPrepareMinutes = 15
)

// Item — позиция заказа, привязанная к столу.
type Item struct {
	ID       ItemID       `json:"id"`
	Name     ItemName     `json:"name"`
	Notes    ItemNotes    `json:"notes"`
	Quantity ItemQuantity `json:"quantity"`
	// Deleted: признак мягкого удаления, запись физически остаётся в хранилище.
	Deleted bool        `json:"deleted"`
	Version ItemVersion `json:"version"`
	// TimeToPrepare: ожидаемое время готовности (RFC 3339, UTC), вычисляется сервером.
	TimeToPrepare string `json:"time_to_prepare"`
}

// NewItem собирает новую (неудалённую) позицию из уже провалидированных значений.
func NewItem(id ItemID, name ItemName, notes ItemNotes, quantity ItemQuantity, version ItemVersion) Item {
	return Item{
		ID:       id,
		Name:     name,
		Notes:    notes,
		Quantity: quantity,
		Version:  version,
	}
}

// WithTimeToPrepare возвращает копию позиции с пересчитанным временем готовности:
// now плюс случайные 1–15 минут.
func (i Item) WithTimeToPrepare(now time.Time) Item {
	minutes := minPrepareMinutes + rand.IntN(maxPrepareMinutes-minPrepareMinutes+1)
	i.TimeToPrepare = now.UTC().Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
	return i
}

// StoredItem — «сырое» представление строки хранилища до валидации.
type StoredItem struct {
	ItemID        uint32 `json:"item_id"`
	TableID       uint32 `json:"table_id"`
	Name          string `json:"name"`
	Notes         string `json:"notes"`
	Quantity      uint32 `json:"quantity"`
	Deleted       bool   `json:"deleted"`
	Version       uint32 `json:"version"`
	TimeToPrepare string `json:"time_to_prepare"`
}

// ToStored переводит позицию в представление для хранилища.
func ToStored(table TableID, item Item) StoredItem {
	return StoredItem{
		ItemID:        uint32(item.ID),
		TableID:       uint32(table),
		Name:          item.Name.String(),
		Notes:         item.Notes.String(),
		Quantity:      uint32(item.Quantity),
		Deleted:       item.Deleted,
		Version:       uint32(item.Version),
		TimeToPrepare: item.TimeToPrepare,
	}
}

// RestoreItem повторно валидирует строку хранилища. Хранилище должно содержать
// только ранее провалидированные данные, поэтому ошибка здесь означает порчу данных.
func RestoreItem(raw StoredItem) (Item, error) {
	id, err := ParseItemID(strconv.FormatUint(uint64(raw.ItemID), 10))
	if err != nil {
		return Item{}, err
	}
	name, err := ParseItemName(raw.Name)
	if err != nil {
		return Item{}, err
	}
	notes, err := ParseItemNotes(raw.Notes)
	if err != nil {
		return Item{}, err
	}

	return Item{
		ID:            id,
		Name:          name,
		Notes:         notes,
		Quantity:      ItemQuantity(raw.Quantity),
		Deleted:       raw.Deleted,
		Version:       ItemVersion(raw.Version),
		TimeToPrepare: raw.TimeToPrepare,
	}, nil
}
