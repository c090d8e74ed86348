package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

func TestStorageChecker(t *testing.T) {
	checker := NewStorageChecker("memory", pingerFunc(func() error { return nil }))

	check := checker.Check()
	if check.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", check.Status)
	}
	if check.Name != "storage" {
		t.Errorf("expected name storage, got %s", check.Name)
	}
}

func TestStorageChecker_Error(t *testing.T) {
	checker := NewStorageChecker("sqlite", pingerFunc(func() error { return errors.New("database is locked") }))

	check := checker.Check()
	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}
	if check.Message != "sqlite: database is locked" {
		t.Errorf("unexpected message %q", check.Message)
	}
}

func TestStorageChecker_Slow(t *testing.T) {
	checker := NewStorageChecker("redis", pingerFunc(func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}))
	checker.slowThreshold = time.Millisecond

	if check := checker.Check(); check.Status != StatusDegraded {
		t.Errorf("expected status degraded, got %s", check.Status)
	}
}

func TestReadinessHandler_DegradedIsReady(t *testing.T) {
	handler := NewHandler("v1.0.0")
	checker := NewStorageChecker("redis", pingerFunc(func() error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}))
	checker.slowThreshold = time.Nanosecond
	handler.RegisterChecker("storage", checker)

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for degraded storage, got %d", w.Code)
	}
}
