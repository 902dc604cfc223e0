package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklvrr/em-metrics/internal/integrations/signature"
	"go.uber.org/zap"
)

const (
	githubSignatureHeader = "X-Hub-Signature-256"
	githubEventHeader     = "X-GitHub-Event"
	githubDeliveryHeader  = "X-GitHub-Delivery"
	githubSignaturePrefix = "sha256="
	linearSignatureHeader = "Linear-Signature"

	maxWebhookBody = 5 << 20
)

type GithubDispatcher interface {
	Dispatch(ctx context.Context, eventType string, body []byte) (bool, error)
}

type LinearDispatcher interface {
	Dispatch(ctx context.Context, body []byte) (bool, error)
}

type WebhookSecrets struct {
	Github string
	Linear string
}

type WebhookHandler struct {
	github  GithubDispatcher
	linear  LinearDispatcher
	secrets WebhookSecrets
	log     *zap.Logger
}

func NewWebhookHandler(github GithubDispatcher, linear LinearDispatcher, secrets WebhookSecrets, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		github:  github,
		linear:  linear,
		secrets: secrets,
		log:     log,
	}
}

func (h *WebhookHandler) Github(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, h.secrets.Github, r.Header.Get(githubSignatureHeader), githubSignaturePrefix)
	if !ok {
		return
	}

	eventType := r.Header.Get(githubEventHeader)
	handled, err := h.github.Dispatch(r.Context(), eventType, body)
	if err != nil {
		h.log.Error("failed to handle github webhook",
			zap.String("event_type", eventType),
			zap.String("delivery_id", r.Header.Get(githubDeliveryHeader)),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	h.log.Info("github webhook processed",
		zap.String("event_type", eventType),
		zap.String("delivery_id", r.Header.Get(githubDeliveryHeader)),
		zap.Bool("handled", handled),
	)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) Linear(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, h.secrets.Linear, r.Header.Get(linearSignatureHeader), "")
	if !ok {
		return
	}

	handled, err := h.linear.Dispatch(r.Context(), body)
	if err != nil {
		h.log.Error("failed to handle linear webhook",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	h.log.Info("linear webhook processed",
		zap.Bool("handled", handled),
	)
	w.WriteHeader(http.StatusOK)
}

// verifiedBody читает сырое тело; при неверной подписи отвечает 404 без тела
func (h *WebhookHandler) verifiedBody(w http.ResponseWriter, r *http.Request, secret, header, prefix string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Error("failed to read webhook body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}

	if err := signature.Verify([]byte(secret), body, header, prefix); err != nil {
		h.log.Info("rejecting webhook, wrong signature",
			zap.String("path", r.URL.Path),
		)
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return body, true
}
