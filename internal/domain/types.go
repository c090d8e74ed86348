package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	// MinTableID и MaxTableID задают допустимый диапазон номеров столов.
	MinTableID = 1
	MaxTableID = 100

	// MaxItemNameGraphemes ограничивает длину названия позиции в графемах.
	MaxItemNameGraphemes = 100
	// MaxItemNotesGraphemes ограничивает длину комментария к позиции в графемах.
	MaxItemNotesGraphemes = 256
)

// forbiddenCharacters — символы, недопустимые в названии и комментарии.
const forbiddenCharacters = `/()"<>\{}`

// TableID — номер стола, ключ партиции позиций.
type TableID uint32

// ParseTableID разбирает номер стола из текстового представления (например, из URL).
func ParseTableID(s string) (TableID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v < MinTableID || v > MaxTableID {
		return 0, fmt.Errorf("%s is not a valid table id.", s)
	}
	return TableID(v), nil
}

func (t TableID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// ItemID — идентификатор позиции внутри стола.
// Уникален только среди неудалённых позиций стола.
type ItemID uint32

// ParseItemID разбирает идентификатор позиции; ноль недопустим.
func ParseItemID(s string) (ItemID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("'%s' is not a valid item id.", s)
	}
	return ItemID(v), nil
}

func (id ItemID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MarshalText позволяет использовать ItemID как ключ JSON-объекта.
func (id ItemID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText валидирует ключ JSON-объекта так же, как ParseItemID.
func (id *ItemID) UnmarshalText(text []byte) error {
	parsed, err := ParseItemID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalJSON принимает идентификатор в виде JSON-числа.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("'%s' is not a valid item id.", string(data))
	}
	return id.UnmarshalText([]byte(n.String()))
}

// MarshalJSON сериализует идентификатор как число.
func (id ItemID) MarshalJSON() ([]byte, error) {
	return []byte(id.String()), nil
}

// ItemName — название позиции меню.
type ItemName struct {
	value string
}

// ParseItemName проверяет название: не пустое, не из одних пробелов,
// не длиннее 100 графем и без запрещённых символов.
func ParseItemName(s string) (ItemName, error) {
	if strings.TrimSpace(s) == "" ||
		uniseg.GraphemeClusterCount(s) > MaxItemNameGraphemes ||
		strings.ContainsAny(s, forbiddenCharacters) {
		return ItemName{}, fmt.Errorf("'%s' is not a valid item name.", s)
	}
	return ItemName{value: s}, nil
}

func (n ItemName) String() string { return n.value }

func (n ItemName) MarshalJSON() ([]byte, error) { return json.Marshal(n.value) }

// ItemNotes — комментарий официанта к позиции, может быть пустым.
type ItemNotes struct {
	value string
}

// ParseItemNotes проверяет комментарий: не длиннее 256 графем и без запрещённых символов.
func ParseItemNotes(s string) (ItemNotes, error) {
	if uniseg.GraphemeClusterCount(s) > MaxItemNotesGraphemes ||
		strings.ContainsAny(s, forbiddenCharacters) {
		return ItemNotes{}, fmt.Errorf("%s is not a valid notes.", s)
	}
	return ItemNotes{value: s}, nil
}

func (n ItemNotes) String() string { return n.value }

func (n ItemNotes) MarshalJSON() ([]byte, error) { return json.Marshal(n.value) }

// ItemQuantity — количество порций. Положительность на этом уровне не проверяется.
type ItemQuantity uint32

// ParseItemQuantity разбирает количество из десятичной строки.
func ParseItemQuantity(s string) (ItemQuantity, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid quantity value.", s)
	}
	return ItemQuantity(v), nil
}

// ItemVersion — версия позиции для optimistic locking.
type ItemVersion uint32

// InitialVersion — версия только что созданной позиции.
const InitialVersion ItemVersion = 1

// ParseItemVersion разбирает номер версии из десятичной строки.
func ParseItemVersion(s string) (ItemVersion, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid version number.", s)
	}
	return ItemVersion(v), nil
}

// Next возвращает следующую версию.
func (v ItemVersion) Next() ItemVersion { return v + 1 }

// Less сообщает, что версия v строго меньше other.
func (v ItemVersion) Less(other ItemVersion) bool { return v < other }

func (v ItemVersion) String() string {
	return strconv.FormatUint(uint64(v), 10)
}
