// Package batch применяет одноэлементную операцию к каждому элементу пакета
// и собирает результаты по ID позиции.
package batch

import "github.com/vladislavdragonenkov/restaurant/internal/domain"

// Outcome — результат одного элемента: значение либо ошибка.
type Outcome[V any] struct {
	Value V
	Err   error
}

// Results — результаты пакета по ID позиции.
type Results[V any] map[domain.ItemID]Outcome[V]

// Run применяет apply к элементам по очереди. Ошибка одного элемента не
// прерывает обработку остальных и ничего не откатывает. При повторяющемся
// ключе остаётся результат последнего элемента.
func Run[E, V any](elements []E, key func(E) domain.ItemID, apply func(E) (V, error)) Results[V] {
	results := make(Results[V], len(elements))
	for _, element := range elements {
		value, err := apply(element)
		results[key(element)] = Outcome[V]{Value: value, Err: err}
	}
	return results
}

// Single возвращает единственный результат, если пакет состоит из одного элемента.
func (r Results[V]) Single() (domain.ItemID, Outcome[V], bool) {
	if len(r) != 1 {
		return 0, Outcome[V]{}, false
	}
	for id, outcome := range r {
		return id, outcome, true
	}
	return 0, Outcome[V]{}, false
}

// Failed возвращает количество элементов с ошибкой.
func (r Results[V]) Failed() int {
	failed := 0
	for _, outcome := range r {
		if outcome.Err != nil {
			failed++
		}
	}
	return failed
}
