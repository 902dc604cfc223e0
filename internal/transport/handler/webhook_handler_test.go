package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/niklvrr/em-metrics/internal/integrations/signature"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockGithubDispatcher struct {
	mock.Mock
}

func (m *MockGithubDispatcher) Dispatch(ctx context.Context, eventType string, body []byte) (bool, error) {
	args := m.Called(ctx, eventType, body)
	return args.Bool(0), args.Error(1)
}

type MockLinearDispatcher struct {
	mock.Mock
}

func (m *MockLinearDispatcher) Dispatch(ctx context.Context, body []byte) (bool, error) {
	args := m.Called(ctx, body)
	return args.Bool(0), args.Error(1)
}

var testSecrets = WebhookSecrets{Github: "gh-secret", Linear: "linear-secret"}

func newWebhookHandler() (*WebhookHandler, *MockGithubDispatcher, *MockLinearDispatcher) {
	gh := new(MockGithubDispatcher)
	ln := new(MockLinearDispatcher)
	return NewWebhookHandler(gh, ln, testSecrets, zap.NewNop()), gh, ln
}

func githubRequest(body, sig, event string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sig)
	req.Header.Set("X-GitHub-Event", event)
	return req
}

func TestWebhookHandler_Github_Dispatched(t *testing.T) {
	h, gh, _ := newWebhookHandler()
	body := `{"action":"opened"}`
	sig := "sha256=" + signature.Compute([]byte(testSecrets.Github), []byte(body))
	gh.On("Dispatch", mock.Anything, "pull_request", []byte(body)).Return(true, nil)

	w := httptest.NewRecorder()
	h.Github(w, githubRequest(body, sig, "pull_request"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	gh.AssertExpectations(t)
}

func TestWebhookHandler_Github_WrongSignature(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{name: "missing header", sig: ""},
		{name: "wrong digest", sig: "sha256=" + signature.Compute([]byte("other"), []byte(`{}`))},
		{name: "missing prefix", sig: signature.Compute([]byte(testSecrets.Github), []byte(`{}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, gh, _ := newWebhookHandler()

			w := httptest.NewRecorder()
			h.Github(w, githubRequest(`{}`, tt.sig, "pull_request"))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, w.Body.String())
			assert.Empty(t, gh.Calls)
		})
	}
}

func TestWebhookHandler_Github_DispatchError(t *testing.T) {
	h, gh, _ := newWebhookHandler()
	body := `{"action":"opened"}`
	sig := "sha256=" + signature.Compute([]byte(testSecrets.Github), []byte(body))
	gh.On("Dispatch", mock.Anything, "pull_request", []byte(body)).Return(false, service.ErrInvalidInput)

	w := httptest.NewRecorder()
	h.Github(w, githubRequest(body, sig, "pull_request"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_Linear(t *testing.T) {
	h, _, ln := newWebhookHandler()
	body := `{"type":"Comment"}`
	ln.On("Dispatch", mock.Anything, []byte(body)).Return(false, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", strings.NewReader(body))
	req.Header.Set("Linear-Signature", signature.Compute([]byte(testSecrets.Linear), []byte(body)))
	w := httptest.NewRecorder()
	h.Linear(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ln.AssertExpectations(t)
}

func TestWebhookHandler_Linear_WrongSignature(t *testing.T) {
	h, _, ln := newWebhookHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", strings.NewReader(`{}`))
	req.Header.Set("Linear-Signature", "deadbeef")
	w := httptest.NewRecorder()
	h.Linear(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, ln.Calls)
}
