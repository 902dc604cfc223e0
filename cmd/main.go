package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niklvrr/em-metrics/internal/config"
	"github.com/niklvrr/em-metrics/internal/infrastructure/db"
	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
	"github.com/niklvrr/em-metrics/internal/integrations/github"
	"github.com/niklvrr/em-metrics/internal/integrations/githubapp"
	"github.com/niklvrr/em-metrics/internal/integrations/linear"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport"
	"github.com/niklvrr/em-metrics/internal/transport/handler"
	transportMiddleware "github.com/niklvrr/em-metrics/internal/transport/middleware"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"github.com/niklvrr/em-metrics/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Конфиг
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// Логгер
	log, err := logger.NewLogger(cfg.App.Env, cfg.App.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	fileCfg, err := config.LoadFile(cfg.App.ConfigFile)
	if err != nil {
		log.Fatal("failed to load config file", zap.String("path", cfg.App.ConfigFile), zap.Error(err))
	}
	holder := teams.NewHolder(fileCfg.Resolver())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// БД
	pool, err := db.NewDatabase(ctx, cfg.Database.URL, db.DefaultMigrationsPath, log)
	if err != nil {
		log.Fatal("failed to init database", zap.Error(err))
	}
	defer pool.Close()

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg, cfg.App.Environment)

	// Репозитории
	prRepo := repository.NewPrRepository(pool, log)
	deploymentRepo := repository.NewDeploymentRepository(pool, log)
	incidentRepo := repository.NewIncidentRepository(pool, log)
	ticketRepo := repository.NewTicketRepository(pool, log)
	txManager := repository.NewTxManager(pool)

	// Сервисы
	prService := service.NewPrService(prRepo, holder, m, log)
	deploymentService := service.NewDeploymentService(deploymentRepo, holder, m, log)
	incidentService := service.NewIncidentService(incidentRepo, deploymentRepo, txManager, holder, m, log)
	ticketService := service.NewTicketService(ticketRepo, m, log)
	ticketStatsService := service.NewTicketStatsService(ticketRepo, log)

	// Интеграции
	githubClient, err := githubapp.NewClient(githubapp.Config{
		Endpoint:     cfg.Github.Endpoint,
		ClientID:     cfg.Github.ClientID,
		RSAPemKeyB64: cfg.Github.RSAPemKeyB64,
	}, githubapp.NewTokenCache(time.Now), log)
	if err != nil {
		log.Fatal("failed to init github app client", zap.Error(err))
	}
	githubDispatcher := github.NewDispatcher(prService, githubClient, holder, log)
	linearHandler := linear.NewHandler(ticketService, fileCfg.LinearConfig(), log)

	// Хендлеры
	handlers := transport.Handlers{
		Pr:         handler.NewPrHandler(prService, log),
		Deployment: handler.NewDeploymentHandler(deploymentService, log),
		Incident:   handler.NewIncidentHandler(incidentService, log),
		Ticketing:  handler.NewTicketingHandler(ticketStatsService, log),
		Webhook: handler.NewWebhookHandler(githubDispatcher, linearHandler, handler.WebhookSecrets{
			Github: cfg.Github.WebhookSecret,
			Linear: cfg.Linear.Secret,
		}, log),
		Health: handler.NewHealthHandler(pool, log),
	}

	router := transport.NewRouter(handlers, transport.RouterConfig{
		Auth: transportMiddleware.AuthConfig{
			Disabled:      cfg.Auth.Disabled,
			Token:         cfg.Auth.Token,
			BasicUsername: cfg.Auth.BasicUsername,
			BasicPassword: cfg.Auth.BasicPassword,
		},
		Timeout: cfg.App.RequestTimeout,
	}, m, reg, log)

	server := transport.NewServer(cfg.App.Port, router, log)

	go watchReload(ctx, cfg.App.ConfigFile, holder, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// watchReload перечитывает файл команд по SIGHUP и атомарно подменяет индекс.
// Настройки Linear применяются только при старте.
func watchReload(ctx context.Context, path string, holder *teams.Holder, log *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			fileCfg, err := config.LoadFile(path)
			if err != nil {
				log.Error("config reload failed, keeping current teams", zap.Error(err))
				continue
			}
			holder.Store(fileCfg.Resolver())
			log.Info("teams config reloaded", zap.Int("teams", len(fileCfg.Teams)))
		}
	}
}
