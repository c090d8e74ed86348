package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/restaurant/internal/health"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/memory"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/restaurant/internal/storage/redis"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/sqlite"
)

// storageDependencies — выбранное хранилище и его health-проверка.
type storageDependencies struct {
	repo           domain.ItemRepository
	storageChecker *healthcheck.StorageChecker
}

// initStorage открывает хранилище, выбранное в cfg.StorageDriver.
// Репозиторий владеет подключением: Close освобождает его.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (storageDependencies, error) {
	repo, err := openItemRepository(ctx, cfg)
	if err != nil {
		return storageDependencies{}, err
	}

	logger.WithField("storage_driver", cfg.StorageDriver).Info("хранилище позиций инициализировано")
	return storageDependencies{
		repo:           repo,
		storageChecker: healthcheck.NewStorageChecker(cfg.StorageDriver, repo),
	}, nil
}

func openItemRepository(ctx context.Context, cfg Config) (domain.ItemRepository, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		return memory.NewItemRepository(), nil

	case StorageDriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return sqlite.NewItemRepository(store), nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for %s storage", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return postgres.NewItemRepository(store), nil

	case StorageDriverRedis:
		client, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return redisstore.NewItemRepository(client, cfg.RedisPrefix), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// closeStorage закрывает репозиторий если он не nil.
func closeStorage(repo domain.ItemRepository, logger *log.Entry) {
	if repo == nil {
		return
	}
	if err := repo.Close(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
