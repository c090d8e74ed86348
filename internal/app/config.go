package app

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// Поддерживаемые хранилища позиций.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)

// EnvPrefix — префикс переменных окружения сервиса.
const EnvPrefix = "RESTAURANT_"

// Config описывает настройки запуска приложения.
type Config struct {
	Address         string        `env:"ADDRESS" envDefault:"127.0.0.1"`
	Port            int           `env:"PORT" envDefault:"3000"`
	MetricsAddr     string        `env:"METRICS_ADDR" envDefault:":9090"`
	StorageDriver   string        `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"restaurant.sqlite"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix     string        `env:"REDIS_PREFIX" envDefault:"restaurant"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic      string        `env:"KAFKA_TOPIC" envDefault:"restaurant.item.events"`
	OTelEndpoint    string        `env:"OTEL_ENDPOINT"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig возвращает настройки по умолчанию без учёта окружения.
func DefaultConfig() Config {
	cfg, err := LoadConfig(map[string]string{})
	if err != nil {
		// значения по умолчанию всегда разбираются
		panic(err)
	}
	return cfg
}

// LoadConfig читает настройки из переменных окружения с префиксом RESTAURANT_.
// Если environ не nil, переменные берутся из него, а не из процесса.
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)

	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if net.ParseIP(c.Address) == nil {
		return fmt.Errorf("address %q is not an ip address", c.Address)
	}
	switch c.StorageDriver {
	case StorageDriverMemory, StorageDriverRedis:
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for %s storage", c.StorageDriver)
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for %s storage", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// HTTPAddr возвращает адрес HTTP API в виде host:port.
func (c Config) HTTPAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}
