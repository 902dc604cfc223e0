package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"go.uber.org/zap"
)

type IncidentService interface {
	Create(ctx context.Context, req *request.CreateIncidentRequest) (*domain.Incident, error)
	Resolve(ctx context.Context, req *request.IncidentDateRequest) error
	Finish(ctx context.Context, req *request.IncidentDateRequest) error
	List(ctx context.Context, req *request.ListIncidentsRequest) (*response.ListIncidentsResponse, error)
}

type IncidentHandler struct {
	svc IncidentService
	log *zap.Logger
}

func NewIncidentHandler(svc IncidentService, log *zap.Logger) *IncidentHandler {
	return &IncidentHandler{
		svc: svc,
		log: log,
	}
}

func (h *IncidentHandler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req request.CreateIncidentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	incident, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, incident)
}

func (h *IncidentHandler) RestoredIncident(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Resolve)
}

func (h *IncidentHandler) FinishedIncident(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Finish)
}

func (h *IncidentHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.List(r.Context(), &request.ListIncidentsRequest{
		Filter: r.URL.Query().Get("filter"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *IncidentHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, *request.IncidentDateRequest) error) {
	var req request.IncidentDateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.IncidentId = chi.URLParam(r, "id")

	if err := apply(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response.StatusResponse{Status: "ok"})
}
