package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace — общий префикс метрик сервиса.
const namespace = "restaurant"

// register регистрирует collector в registerer. Если коллектор с таким же
// описанием уже есть, возвращается существующий.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		panic(fmt.Sprintf("register restaurant metrics: %v", err))
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		panic(fmt.Sprintf("restaurant metrics: collector registered with type %T", already.ExistingCollector))
	}
	return existing
}
