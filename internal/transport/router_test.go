package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/transport/handler"
	transportMiddleware "github.com/niklvrr/em-metrics/internal/transport/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func newTestRouter(auth transportMiddleware.AuthConfig) http.Handler {
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")

	return NewRouter(Handlers{
		Pr:         handler.NewPrHandler(nil, log),
		Deployment: handler.NewDeploymentHandler(nil, log),
		Incident:   handler.NewIncidentHandler(nil, log),
		Ticketing:  handler.NewTicketingHandler(nil, log),
		Webhook:    handler.NewWebhookHandler(nil, nil, handler.WebhookSecrets{Github: "gh", Linear: "ln"}, log),
		Health:     handler.NewHealthHandler(okPinger{}, log),
	}, RouterConfig{Auth: auth, Timeout: time.Second}, m, reg, log)
}

func TestRouter_ApiRequiresAuth(t *testing.T) {
	router := newTestRouter(transportMiddleware.AuthConfig{Token: "t0ken"})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/pull-requests"},
		{http.MethodPost, "/api/v1/deployments/d1/deployed"},
		{http.MethodGet, "/api/v1/incidents"},
		{http.MethodPost, "/api/v1/ticketing/stats"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			req := httptest.NewRequest(p.method, p.path, nil)
			req.Header.Set("Authorization", "Token wrong")
			w = httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router := newTestRouter(transportMiddleware.AuthConfig{Token: "t0ken"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	// Вебхук без подписи: 404 без тела, авторизация не нужна
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}
