package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/transport/handler"
	transportMiddleware "github.com/niklvrr/em-metrics/internal/transport/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Pr         *handler.PrHandler
	Deployment *handler.DeploymentHandler
	Incident   *handler.IncidentHandler
	Ticketing  *handler.TicketingHandler
	Webhook    *handler.WebhookHandler
	Health     *handler.HealthHandler
}

type RouterConfig struct {
	Auth    transportMiddleware.AuthConfig
	Timeout time.Duration
}

func NewRouter(
	h Handlers,
	cfg RouterConfig,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	// Recovery должен быть первым для обработки паник во всех middleware
	router.Use(transportMiddleware.Recovery(log))

	// RequestID для трейсинга запросов
	router.Use(middleware.RequestID)

	router.Use(transportMiddleware.Logging(log))
	router.Use(transportMiddleware.Timeout(cfg.Timeout, log))
	router.Use(transportMiddleware.Metrics(m))

	// Эндпоинт для Prometheus метрик
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Get("/health", h.Health.HealthCheck)

	// Вебхуки проверяются подписью, а не авторизацией
	router.Route("/webhooks", func(r chi.Router) {
		r.Post("/github", h.Webhook.Github)
		r.Post("/linear", h.Webhook.Linear)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(transportMiddleware.Auth(cfg.Auth, log))

		r.Route("/pull-requests", func(r chi.Router) {
			r.Post("/", h.Pr.CreatePr)
			r.Post("/{id}/reviewed", h.Pr.ReviewedPr)
			r.Post("/{id}/closed", h.Pr.ClosedPr)
			r.Post("/{id}/merged", h.Pr.MergedPr)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.Deployment.StartDeployment)
			r.Get("/", h.Deployment.ListDeployments)
			r.Get("/{id}", h.Deployment.GetDeployment)
			r.Post("/{id}/deployed", h.Deployment.Deployed)
		})

		r.Route("/incidents", func(r chi.Router) {
			r.Post("/", h.Incident.CreateIncident)
			r.Get("/", h.Incident.ListIncidents)
			r.Post("/{id}/restored", h.Incident.RestoredIncident)
			r.Post("/{id}/finished", h.Incident.FinishedIncident)
		})

		r.Post("/ticketing/stats", h.Ticketing.Stats)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return router
}
