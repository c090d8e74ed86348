package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// codeTransportError — ключ в гистограмме кодов для запросов без ответа.
const codeTransportError = "error"

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type routeReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time              `json:"started_at"`
	DurationSeconds float64                `json:"duration_seconds"`
	TotalRequests   int64                  `json:"total_requests"`
	SuccessRequests int64                  `json:"success_requests"`
	FailedRequests  int64                  `json:"failed_requests"`
	ErrorRate       float64                `json:"error_rate"`
	RPS             float64                `json:"rps"`
	Codes           map[string]int64       `json:"codes"`
	LatencyMs       latencySummary         `json:"latency_ms"`
	Routes          map[string]routeReport `json:"routes"`
}

type routeStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

func newRouteStats() *routeStats {
	return &routeStats{codes: make(map[string]int64)}
}

func (s *routeStats) add(latency time.Duration, code string, ok bool) {
	s.calls++
	if ok {
		s.success++
	} else {
		s.failed++
	}
	s.codes[code]++
	s.latencies = append(s.latencies, float64(latency.Microseconds())/1000.0)
}

func (s *routeStats) report() routeReport {
	codesCopy := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		codesCopy[code] = count
	}
	return routeReport{
		Calls:     s.calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     codesCopy,
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

type collector struct {
	mu     sync.Mutex
	total  *routeStats
	routes map[string]*routeStats
}

func newCollector() *collector {
	return &collector{
		total:  newRouteStats(),
		routes: make(map[string]*routeStats),
	}
}

// record учитывает один запрос. Ответы 4xx ожидаемы при случайной нагрузке
// и считаются успешными; неуспехом считаются 5xx и ошибки транспорта.
func (c *collector) record(route string, latency time.Duration, status int, err error) {
	code := codeTransportError
	if err == nil {
		code = strconv.Itoa(status)
	}
	ok := err == nil && status < 500

	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.routes[route]
	if !found {
		stats = newRouteStats()
		c.routes[route] = stats
	}
	stats.add(latency, code, ok)
	c.total.add(latency, code, ok)
}

func (c *collector) snapshot(route string) (routeReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.routes[route]
	if !ok {
		return routeReport{}, false
	}
	return stats.report(), true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.total.report()
	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		TotalRequests:   total.Calls,
		SuccessRequests: total.Success,
		FailedRequests:  total.Failed,
		ErrorRate:       total.ErrorRate,
		Codes:           total.Codes,
		LatencyMs:       total.LatencyMs,
		Routes:          make(map[string]routeReport, len(c.routes)),
	}
	if duration > 0 {
		result.RPS = float64(result.TotalRequests) / duration.Seconds()
	}

	for route, stats := range c.routes {
		result.Routes[route] = stats.report()
	}
	return result
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(out io.Writer, result report, cfg config) {
	fmt.Fprintln(out, "Load test summary")
	fmt.Fprintf(out, "target=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.baseURL,
		runTarget(cfg),
		result.TotalRequests,
		result.SuccessRequests,
		result.FailedRequests,
		result.ErrorRate,
	)
	fmt.Fprintf(out, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Fprintf(out, "latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.LatencyMs.Min,
		result.LatencyMs.Avg,
		result.LatencyMs.P50,
		result.LatencyMs.P95,
		result.LatencyMs.P99,
		result.LatencyMs.Max,
	)

	routes := make([]string, 0, len(result.Routes))
	for route := range result.Routes {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		stats := result.Routes[route]
		fmt.Fprintf(out,
			"%s: calls=%d success=%d failed=%d codes=%s p95=%.2fms\n",
			route,
			stats.Calls,
			stats.Success,
			stats.Failed,
			formatCodes(stats.Codes),
			stats.LatencyMs.P95,
		)
	}
}

func formatCodes(codes map[string]int64) string {
	keys := make([]string, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, code := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", code, codes[code]))
	}
	return strings.Join(parts, ",")
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
