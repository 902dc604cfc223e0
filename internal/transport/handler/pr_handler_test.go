package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockPrService мок сервиса для тестов
type MockPrService struct {
	mock.Mock
}

func (m *MockPrService) Created(ctx context.Context, req *request.CreatePrRequest) (*response.PrResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PrResponse), args.Error(1)
}

func (m *MockPrService) Reviewed(ctx context.Context, req *request.ReviewPrRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPrService) Closed(ctx context.Context, req *request.ClosePrRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPrService) Merged(ctx context.Context, req *request.MergePrRequest) (*response.PrResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PrResponse), args.Error(1)
}

func prRouter(h *PrHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/pull-requests", h.CreatePr)
	r.Post("/pull-requests/{id}/reviewed", h.ReviewedPr)
	r.Post("/pull-requests/{id}/closed", h.ClosedPr)
	r.Post("/pull-requests/{id}/merged", h.MergedPr)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPrHandler_CreatePr_Success(t *testing.T) {
	mockService := new(MockPrService)
	router := prRouter(NewPrHandler(mockService, zap.NewNop()))
	openedAt := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	mockService.On("Created", mock.Anything, mock.MatchedBy(func(r *request.CreatePrRequest) bool {
		return r.Id == "pr1" && r.TeamId == "backend" && r.OpenedAt.Equal(openedAt) && *r.Additions == 10
	})).Return(&response.PrResponse{Id: "pr1", TeamId: "backend", OpenedAt: openedAt}, nil)

	w := serve(router, http.MethodPost, "/pull-requests",
		`{"id":"pr1","team_id":"backend","opened_at":"2025-01-10T10:00:00Z","additions":10}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"pr1"`)
	mockService.AssertExpectations(t)
}

func TestPrHandler_CreatePr_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed body", body: `{"id":`, status: http.StatusBadRequest},
		{name: "missing id", body: `{}`, err: service.ErrInvalidInput, status: http.StatusBadRequest},
		{name: "duplicate", body: `{"id":"pr1"}`, err: service.ErrPrExists, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockPrService)
			router := prRouter(NewPrHandler(mockService, zap.NewNop()))
			if tt.err != nil {
				mockService.On("Created", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			w := serve(router, http.MethodPost, "/pull-requests", tt.body)

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				mockService.AssertNotCalled(t, "Created", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPrHandler_ReviewedPr(t *testing.T) {
	mockService := new(MockPrService)
	router := prRouter(NewPrHandler(mockService, zap.NewNop()))

	mockService.On("Reviewed", mock.Anything, mock.MatchedBy(func(r *request.ReviewPrRequest) bool {
		return r.PrId == "pr1" && r.Approved && r.NbComments == 3
	})).Return(nil)

	w := serve(router, http.MethodPost, "/pull-requests/pr1/reviewed", `{"approved":true,"nb_comments":3}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestPrHandler_ClosedPr_EmptyBody(t *testing.T) {
	mockService := new(MockPrService)
	router := prRouter(NewPrHandler(mockService, zap.NewNop()))

	mockService.On("Closed", mock.Anything, mock.MatchedBy(func(r *request.ClosePrRequest) bool {
		return r.PrId == "pr1" && r.ClosedAt == nil
	})).Return(nil)

	w := serve(router, http.MethodPost, "/pull-requests/pr1/closed", "")

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestPrHandler_MergedPr_NotFound(t *testing.T) {
	mockService := new(MockPrService)
	router := prRouter(NewPrHandler(mockService, zap.NewNop()))

	mockService.On("Merged", mock.Anything, mock.MatchedBy(func(r *request.MergePrRequest) bool {
		return r.PrId == "missing"
	})).Return(nil, service.ErrPrNotFound)

	w := serve(router, http.MethodPost, "/pull-requests/missing/merged", `{"merged_at":"2025-01-11T10:00:00Z"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}
