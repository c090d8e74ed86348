package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	sleepMax    time.Duration
	seed        uint64
	outputPath  string
}

func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config

	fs.StringVar(&cfg.baseURL, "url", "http://127.0.0.1:3000", "restaurant API base URL")
	fs.IntVar(&cfg.total, "total", 400, "total requests to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "clients", 10, "number of concurrent clients")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.DurationVar(&cfg.sleepMax, "sleep-max", 0, "upper bound of random pause between requests of one client")
	fs.Uint64Var(&cfg.seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.seed == 0 {
		cfg.seed = uint64(time.Now().UnixNano())
	}

	if cfg.baseURL == "" {
		return cfg, errors.New("url is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("clients must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.sleepMax < 0 {
		return cfg, errors.New("sleep-max must be >= 0")
	}

	return cfg, nil
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, os.Stdout, os.Stderr))
}

// run выполняет нагрузку и возвращает код выхода процесса.
func run(ctx context.Context, cfg config, stdout, stderr io.Writer) int {
	result := execute(ctx, cfg)

	printReport(stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(stderr, "failed to write report: %v\n", err)
			return 1
		}
	}

	if result.FailedRequests > 0 {
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg config) report {
	client := &http.Client{Timeout: cfg.timeout}
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup

	for clientID := 0; clientID < cfg.concurrency; clientID++ {
		wg.Add(1)
		// у каждого клиента свой генератор: *rand.Rand не потокобезопасен
		rng := rand.New(rand.NewPCG(cfg.seed, uint64(clientID)))
		go func() {
			defer wg.Done()
			for range jobs {
				_ = doRequest(ctx, client, cfg.baseURL, randomRequest(rng), col)
				pause(ctx, rng, cfg.sleepMax)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func pause(ctx context.Context, rng *rand.Rand, limit time.Duration) {
	if limit <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(rng.Int64N(int64(limit))))
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}
