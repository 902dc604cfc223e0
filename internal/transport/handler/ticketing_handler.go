package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"go.uber.org/zap"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

type TicketStatsService interface {
	Stats(ctx context.Context, req *request.TicketStatsRequest) (*response.TicketStatsResponse, error)
	StatsCSV(ctx context.Context, req *request.TicketStatsRequest) ([]byte, error)
}

type TicketingHandler struct {
	svc TicketStatsService
	log *zap.Logger
}

func NewTicketingHandler(svc TicketStatsService, log *zap.Logger) *TicketingHandler {
	return &TicketingHandler{
		svc: svc,
		log: log,
	}
}

func (h *TicketingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatCSV {
		writeError(w, service.WrapError(service.ErrInvalidInput, fmt.Errorf("%w: format %q", domain.ErrInvalidValue, format)))
		return
	}

	var req request.TicketStatsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.log.Info("ticket stats requested",
		zap.String("format", format),
		zap.Int("unhash_actors", len(req.UnhashActors)),
	)

	if format == formatCSV {
		body, err := h.svc.StatsCSV(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="ticket-stats.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	resp, err := h.svc.Stats(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
