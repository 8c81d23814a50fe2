package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conductor/internal/events"
	"github.com/shaiso/Conductor/internal/httpapi"
	"github.com/shaiso/Conductor/internal/plugin"
	"github.com/shaiso/Conductor/internal/plugins/builtin"
	"github.com/shaiso/Conductor/internal/schedule"
	"github.com/shaiso/Conductor/internal/sink"
	"github.com/shaiso/Conductor/internal/supervisor"
	"github.com/shaiso/Conductor/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("conductor-server")
	logger.Info("starting conductor-server")

	// Метрики
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(promReg)

	// Реестр плагинов со встроенными узлами
	registry := plugin.NewRegistry(logger)
	if err := builtin.RegisterAll(registry, logger); err != nil {
		logger.Error("failed to register builtin plugins", "error", err)
		os.Exit(1)
	}

	// Sinks: лог всегда, архив в Postgres — если задан DB_URL
	sinks := []sink.Sink{sink.NewSlog(logger)}

	if os.Getenv("DB_URL") != "" {
		pool, err := sink.NewPool(context.Background())
		if err != nil {
			logger.Warn("archive disabled: database unavailable", "error", err)
		} else {
			defer pool.Close()
			archive, err := sink.NewArchive(context.Background(), pool, logger)
			if err != nil {
				logger.Warn("archive disabled: schema setup failed", "error", err)
				pool.Close()
			} else {
				sinks = append(sinks, archive)
				logger.Info("run archive enabled")
			}
		}
	}

	// События в RabbitMQ — если задан RABBITMQ_URL
	var publisher *events.Publisher
	if os.Getenv("RABBITMQ_URL") != "" {
		conn, err := events.NewConnection(events.DefaultURL(), logger)
		if err != nil {
			logger.Warn("events disabled: broker unavailable", "error", err)
		} else {
			defer conn.Close()
			publisher, err = events.NewPublisher(conn, logger)
			if err != nil {
				logger.Warn("events disabled: exchange setup failed", "error", err)
			} else {
				sinks = append(sinks, publisher)
				logger.Info("event publishing enabled", "exchange", events.Exchange)
			}
		}
	}

	// Supervisor выполняет runs
	sup := supervisor.New(supervisor.Config{
		Registry:    registry,
		Sink:        sink.NewFanout(sinks...),
		Metrics:     metrics,
		Events:      publisher,
		Logger:      logger,
		NodeTimeout: envDuration("NODE_TIMEOUT_SEC", 0),
		Retention:   envDuration("RUN_RETENTION_SEC", 0),
	})
	defer sup.Stop()

	// Планировщик cron-расписаний
	sched := schedule.New(schedule.Config{
		Launcher: sup,
		Logger:   logger,
	})
	sched.Start(context.Background())
	defer sched.Stop()

	// API handler
	handler := httpapi.NewHandler(httpapi.Config{
		Supervisor: sup,
		Scheduler:  sched,
		Registry:   registry,
		Metrics:    metrics,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// envDuration читает длительность в секундах из переменной окружения.
// Отсутствующее или невалидное значение возвращает def.
func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}
