package health

import (
	"fmt"
	"time"
)

// DefaultSlowThreshold — время ответа хранилища, после которого оно считается degraded.
const DefaultSlowThreshold = 500 * time.Millisecond

// Pinger — хранилище, умеющее проверять доступность.
type Pinger interface {
	Ping() error
}

// StorageChecker проверяет хранилище позиций.
type StorageChecker struct {
	name          string
	driver        string
	storage       Pinger
	slowThreshold time.Duration
}

// NewStorageChecker создаёт проверку хранилища driver (memory, sqlite, ...).
func NewStorageChecker(driver string, storage Pinger) *StorageChecker {
	return &StorageChecker{
		name:          "storage",
		driver:        driver,
		storage:       storage,
		slowThreshold: DefaultSlowThreshold,
	}
}

// Check пингует хранилище. Ошибка даёт unhealthy, медленный ответ degraded.
func (c *StorageChecker) Check() Check {
	start := time.Now()
	err := c.storage.Ping()
	duration := time.Since(start)

	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("%s: %v", c.driver, err)
	case duration > c.slowThreshold:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%s: slow ping %s", c.driver, duration)
	}
	return check
}
