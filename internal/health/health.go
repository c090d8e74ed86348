// Package health отдаёт liveness/readiness пробы и отчёт о состоянии хранилища позиций.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status — состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity упорядочивает статусы от лучшего к худшему.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report — тело ответа /healthz.
type Report struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Checks        map[string]Check `json:"checks,omitempty"`
}

// Checker проверяет один компонент сервиса.
type Checker interface {
	Check() Check
}

// Handler собирает проверки и отвечает на /healthz и /readyz.
type Handler struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewHandler(version string) *Handler {
	return &Handler{
		version:  version,
		started:  time.Now(),
		checkers: make(map[string]Checker),
	}
}

// RegisterChecker добавляет проверку; повторное имя заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет проверки в порядке имён. Итоговый статус равен худшему из них.
func (h *Handler) Evaluate() Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make([]Checker, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		checkers = append(checkers, h.checkers[name])
	}
	h.mu.RUnlock()

	report := Report{
		Status:        StatusHealthy,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Checks:        make(map[string]Check, len(names)),
	}
	for i, checker := range checkers {
		check := checker.Check()
		report.Checks[names[i]] = check
		if check.Status.severity() > report.Status.severity() {
			report.Status = check.Status
		}
	}
	return report
}

// ServeHTTP отдаёт полный отчёт; 503, если хранилище недоступно.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := h.Evaluate()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(report.Status))
	_ = json.NewEncoder(w).Encode(report)
}

// ReadinessHandler снимает сервис с балансировки только при unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if code := statusCode(h.Evaluate().Status); code != http.StatusOK {
		writeText(w, code, "not ready")
		return
	}
	writeText(w, http.StatusOK, "ready")
}

// LivenessHandler отвечает 200, пока процесс обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
