package domain

import (
	"errors"
	"fmt"
)

// Закрытый набор ошибок репозитория. Каждая операция возвращает только
// подмножество, описанное в ItemRepository.
var (
	// ErrConflict — в столе уже есть неудалённая позиция с таким ID.
	ErrConflict = errors.New("item already exists")
	// ErrUnknownTableID — в стол ещё ни разу ничего не добавляли.
	ErrUnknownTableID = errors.New("unknown table id")
	// ErrUnknownItemID — в столе нет неудалённой позиции с таким ID.
	ErrUnknownItemID = errors.New("unknown item id")
	// ErrVersionConflict — в хранилище более новая версия позиции.
	ErrVersionConflict = errors.New("version mismatch: server has newer version")
	// ErrUnknown — любая ошибка уровня хранилища (блокировка, I/O, драйвер, порча данных).
	ErrUnknown = errors.New("unknown storage error")
)

var knownErrors = []error{
	ErrConflict,
	ErrUnknownTableID,
	ErrUnknownItemID,
	ErrVersionConflict,
	ErrUnknown,
}

// WrapUnknown оборачивает ошибку драйвера в ErrUnknown, сохраняя контекст для логов.
func WrapUnknown(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnknown, err)
}

// Normalize сводит ошибку к одной из allowed; всё остальное превращается в ErrUnknown.
func Normalize(err error, allowed ...error) error {
	if err == nil {
		return nil
	}
	for _, target := range allowed {
		if errors.Is(err, target) {
			return target
		}
	}
	return ErrUnknown
}

// IsKnown сообщает, принадлежит ли ошибка таксономии репозитория.
func IsKnown(err error) bool {
	for _, target := range knownErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
