package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"go.uber.org/zap"
)

type DeploymentService interface {
	Start(ctx context.Context, req *request.StartDeploymentRequest) (*response.DeploymentResponse, error)
	Deployed(ctx context.Context, req *request.DeployedRequest) (*response.DeploymentResponse, bool, error)
	Get(ctx context.Context, id string) (*domain.Deployment, error)
	List(ctx context.Context, req *request.ListDeploymentsRequest) (*response.ListDeploymentsResponse, error)
}

type DeploymentHandler struct {
	svc DeploymentService
	log *zap.Logger
}

func NewDeploymentHandler(svc DeploymentService, log *zap.Logger) *DeploymentHandler {
	return &DeploymentHandler{
		svc: svc,
		log: log,
	}
}

func (h *DeploymentHandler) StartDeployment(w http.ResponseWriter, r *http.Request) {
	var req request.StartDeploymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.Start(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Deployed отвечает 201, если деплой пришлось создать, иначе 200
func (h *DeploymentHandler) Deployed(w http.ResponseWriter, r *http.Request) {
	var req request.DeployedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.DeploymentId = chi.URLParam(r, "id")

	resp, created, err := h.svc.Deployed(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	writeJSON(w, statusCode, resp)
}

func (h *DeploymentHandler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	deployment, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deployment)
}

func (h *DeploymentHandler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := request.ListDeploymentsRequest{
		ProjectId: query.Get("project_id"),
	}

	var err error
	if req.Limit, err = intParam(query.Get("limit")); err != nil {
		writeError(w, err)
		return
	}
	if req.Offset, err = intParam(query.Get("offset")); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.List(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// intParam: пустой параметр означает значение по умолчанию
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, service.WrapError(service.ErrInvalidInput, fmt.Errorf("%w: %q", domain.ErrInvalidValue, v))
	}
	return n, nil
}
