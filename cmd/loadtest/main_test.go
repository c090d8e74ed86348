package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		cfg, err := parseConfig(newFlagSet(), []string{
			"-url=http://127.0.0.1:3000/",
			"-total=12",
			"-clients=3",
			"-timeout=2s",
			"-sleep-max=10ms",
			"-seed=42",
			"-output=/tmp/out.json",
		})
		require.NoError(t, err)
		require.True(t, cfg.totalSet)
		require.Zero(t, cfg.duration)
		require.Equal(t, "http://127.0.0.1:3000", cfg.baseURL)
		require.Equal(t, 12, cfg.total)
		require.Equal(t, 3, cfg.concurrency)
		require.Equal(t, 2*time.Second, cfg.timeout)
		require.Equal(t, uint64(42), cfg.seed)
	})

	t.Run("duration mode", func(t *testing.T) {
		cfg, err := parseConfig(newFlagSet(), []string{"-duration=3s", "-clients=2"})
		require.NoError(t, err)
		require.Equal(t, 3*time.Second, cfg.duration)
		require.False(t, cfg.totalSet, "totalSet must be false when -total was not provided")
		require.NotZero(t, cfg.seed)
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "invalid value"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "no clients", args: []string{"-clients=0"}, wantErr: "clients must be > 0"},
			{name: "empty url", args: []string{"-url= "}, wantErr: "url is required"},
			{name: "negative sleep", args: []string{"-sleep-max=-1ms"}, wantErr: "sleep-max must be >= 0"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := parseConfig(newFlagSet(), tc.args)
				require.ErrorContains(t, err, tc.wantErr)
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(context.Background(), jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		require.True(t, slices.Equal(got, []int{0, 1, 2, 3, 4}), "unexpected jobs sequence: %v", got)
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(context.Background(), jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		require.NotZero(t, count)
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(context.Background(), jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		require.Equal(t, 3, count)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		jobs := make(chan int)
		dispatchJobs(ctx, jobs, config{duration: time.Hour})
		_, open := <-jobs
		require.False(t, open)
	})
}

func TestRandomRequest(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seen := make(map[string]bool)

	for i := 0; i < 500; i++ {
		req := randomRequest(rng)
		seen[req.route] = true
		require.True(t, strings.HasPrefix(req.path, "/tables/"), "unexpected path %s", req.path)

		switch req.route {
		case routeCreate, routeUpdate:
			var body map[string]itemBody
			require.NoError(t, json.Unmarshal(req.body, &body))
			require.NotEmpty(t, body)
			require.LessOrEqual(t, len(body), maxBatchSize)
			for _, item := range body {
				require.Equal(t, menuItemName, item.Name)
				require.GreaterOrEqual(t, item.Quantity, uint32(1))
				require.Equal(t, req.route == routeUpdate, item.Version != nil)
			}
		case routeDeleteMany:
			var body struct {
				IDs []int `json:"ids"`
			}
			require.NoError(t, json.Unmarshal(req.body, &body))
			require.NotEmpty(t, body.IDs)
		default:
			require.Nil(t, req.body)
		}
	}

	require.Len(t, seen, 6, "every route must be generated")
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record(routeCreate, 10*time.Millisecond, http.StatusCreated, nil)
	c.record(routeCreate, 20*time.Millisecond, http.StatusInternalServerError, nil)
	c.record(routeGetItem, 15*time.Millisecond, http.StatusNotFound, nil)
	c.record(routeGetItem, 5*time.Millisecond, 0, errors.New("connection refused"))

	snap, ok := c.snapshot(routeCreate)
	require.True(t, ok)
	require.EqualValues(t, 2, snap.Calls)
	require.EqualValues(t, 1, snap.Success)
	require.EqualValues(t, 1, snap.Failed)
	require.EqualValues(t, 1, snap.Codes["201"])
	require.EqualValues(t, 1, snap.Codes["500"])

	_, ok = c.snapshot(routeUpdate)
	require.False(t, ok)

	r := c.buildReport(time.Now(), 2*time.Second)
	require.EqualValues(t, 4, r.TotalRequests)
	require.EqualValues(t, 2, r.SuccessRequests, "404 is an expected outcome")
	require.EqualValues(t, 2, r.FailedRequests)
	require.EqualValues(t, 1, r.Codes[codeTransportError])
	require.Equal(t, 2.0, r.RPS)
	require.Contains(t, r.Routes, routeGetItem)
}

func TestUtilityFunctions(t *testing.T) {
	require.Equal(t, 0.25, ratio(1, 4))
	require.Zero(t, ratio(1, 0))

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	require.Equal(t, 40.0, summary.Max)
	require.Equal(t, 25.0, summary.P50)
	require.Positive(t, percentile(values, 95))
	require.Equal(t, latencySummary{}, buildLatencySummary(nil))

	require.Equal(t, "count:50", runTarget(config{total: 50}))
	require.Equal(t, "duration:2s", runTarget(config{duration: 2 * time.Second}))
	require.Equal(t, "duration:2s,max-total:10", runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}))

	require.Equal(t, "200:3,404:1", formatCodes(map[string]int64{"404": 1, "200": 3}))
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	sample := report{TotalRequests: 2, SuccessRequests: 2}
	require.NoError(t, writeJSONReport(path, sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.EqualValues(t, 2, decoded.TotalRequests)

	require.Error(t, writeJSONReport("../outside.json", sample))
}

func TestPrintReport(t *testing.T) {
	r := report{
		TotalRequests:   2,
		SuccessRequests: 2,
		Routes: map[string]routeReport{
			routeCreate: {Calls: 2, Success: 2, Codes: map[string]int64{"201": 2}},
		},
	}

	var out bytes.Buffer
	printReport(&out, r, config{baseURL: "http://api", total: 2})

	require.Contains(t, out.String(), "Load test summary")
	require.Contains(t, out.String(), routeCreate)
	require.Contains(t, out.String(), "codes=201:2")
}

func TestRunSmoke(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "restaurant-loadtest/"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	outPath := filepath.Join(t.TempDir(), "report.json")
	cfg := config{
		baseURL:     srv.URL,
		total:       20,
		concurrency: 4,
		timeout:     2 * time.Second,
		seed:        7,
		outputPath:  outPath,
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), cfg, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	require.EqualValues(t, 20, calls.Load())
	require.FileExists(t, outPath)
	require.Contains(t, stdout.String(), "total=20")
}

func TestRunFailsOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config{baseURL: srv.URL, total: 3, concurrency: 1, timeout: time.Second, seed: 1}
	require.Equal(t, 1, run(context.Background(), cfg, io.Discard, io.Discard))
}
