package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/restaurant/internal/health"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
	"github.com/vladislavdragonenkov/restaurant/internal/service/items"
	"github.com/vladislavdragonenkov/restaurant/internal/tracing"
	"github.com/vladislavdragonenkov/restaurant/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

const (
	serviceName       = "restaurant-api"
	readHeaderTimeout = 5 * time.Second
)

// Run открывает HTTP-листенер по cfg.HTTPAddr() и обслуживает API до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.HTTPAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr(), err)
	}
	return Serve(ctx, cfg, lis)
}

// Serve собирает зависимости и обслуживает API на lis.
// Возвращает ctx.Err() после штатной остановки.
func Serve(ctx context.Context, cfg Config, lis net.Listener) error {
	logger := log.WithField("component", "app")

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer closeStorage(storage.repo, logger)

	publisher := initEventPublisher(cfg, logger)
	defer closeKafka(publisher, logger)

	itemService := items.NewService(
		storage.repo,
		publisher,
		metrics.NewItemMetrics(),
		logger.WithField("layer", "service"),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", storage.storageChecker)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	srv := &http.Server{
		Handler:           httpapi.NewRouter(itemService, metrics.NewHTTPMetrics(), logger.WithField("layer", "http")),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-проверок.
// Пустой addr отключает сервер.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
