package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"go.uber.org/zap"
)

type PrService interface {
	Created(ctx context.Context, req *request.CreatePrRequest) (*response.PrResponse, error)
	Reviewed(ctx context.Context, req *request.ReviewPrRequest) error
	Closed(ctx context.Context, req *request.ClosePrRequest) error
	Merged(ctx context.Context, req *request.MergePrRequest) (*response.PrResponse, error)
}

type PrHandler struct {
	svc PrService
	log *zap.Logger
}

func NewPrHandler(svc PrService, log *zap.Logger) *PrHandler {
	return &PrHandler{
		svc: svc,
		log: log,
	}
}

func (h *PrHandler) CreatePr(w http.ResponseWriter, r *http.Request) {
	// Парсим json в модель CreatePrRequest
	var req request.CreatePrRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Вызов сервиса
	resp, err := h.svc.Created(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *PrHandler) ReviewedPr(w http.ResponseWriter, r *http.Request) {
	var req request.ReviewPrRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.PrId = chi.URLParam(r, "id")

	if err := h.svc.Reviewed(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response.StatusResponse{Status: "ok"})
}

func (h *PrHandler) ClosedPr(w http.ResponseWriter, r *http.Request) {
	var req request.ClosePrRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.PrId = chi.URLParam(r, "id")

	if err := h.svc.Closed(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response.StatusResponse{Status: "ok"})
}

func (h *PrHandler) MergedPr(w http.ResponseWriter, r *http.Request) {
	var req request.MergePrRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.PrId = chi.URLParam(r, "id")

	resp, err := h.svc.Merged(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
