package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/app"
	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

// parseConfig читает RESTAURANT_* из environ (nil означает окружение процесса)
// и позволяет переопределить значения флагами.
func parseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (app.Config, bool, error) {
	cfg, err := app.LoadConfig(environ)
	if err != nil {
		return app.Config{}, false, err
	}

	var (
		brokers     = strings.Join(cfg.KafkaBrokers, ",")
		showVersion bool
	)
	fs.StringVar(&cfg.Address, "address", cfg.Address, "server address (RESTAURANT_ADDRESS)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "server port 0-65535 (RESTAURANT_PORT)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address for /metrics and health checks, empty disables (RESTAURANT_METRICS_ADDR)")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "storage driver: memory|sqlite|postgres|redis (RESTAURANT_STORAGE_DRIVER)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "path to sqlite database (RESTAURANT_SQLITE_PATH)")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "postgres connection string (RESTAURANT_POSTGRES_DSN)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address (RESTAURANT_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "redis database number (RESTAURANT_REDIS_DB)")
	fs.StringVar(&brokers, "kafka-brokers", brokers, "comma-separated kafka brokers, empty disables events (RESTAURANT_KAFKA_BROKERS)")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "topic for item events (RESTAURANT_KAFKA_TOPIC)")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for traces, empty disables (RESTAURANT_OTEL_ENDPOINT)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (RESTAURANT_LOG_LEVEL)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, false, err
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.KafkaBrokers = cfg.KafkaBrokers[:0]
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	if showVersion {
		return cfg, true, nil
	}
	return cfg, false, cfg.Validate()
}

func main() {
	cfg, showVersion, err := parseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if showVersion {
		fmt.Println(version.String())
		return
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr(),
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем restaurant API")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("restaurant API остановлен")
}
