package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	clientmodel "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry(), "test")
}

func newTestTeams() *teams.Holder {
	return teams.NewHolder(teams.NewResolver(teams.Config{
		"backend": {
			Projects: []string{"api"},
			Users: []teams.User{
				{GithubUsername: "alice", Email: "alice@example.com"},
			},
		},
		"frontend": {
			Projects: []string{"web"},
			Users: []teams.User{
				{GithubUsername: "bob", Email: "bob@example.com"},
			},
		},
	}))
}

// histogram возвращает число наблюдений и их сумму для набора меток
func histogram(t *testing.T, vec *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &clientmodel.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func counter(vec *prometheus.CounterVec, labels ...string) float64 {
	return testutil.ToFloat64(vec.WithLabelValues(labels...))
}

func fixedClock(s string) func() time.Time {
	t := mustTime(s)
	return func() time.Time { return t }
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func timeRef(s string) *time.Time {
	t := mustTime(s)
	return &t
}

func floatRef(v float64) *float64 {
	return &v
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

// MockPrRepository мок репозитория для тестов
type MockPrRepository struct {
	mock.Mock
}

func (m *MockPrRepository) Create(ctx context.Context, pr *domain.PullRequest) error {
	return m.Called(ctx, pr).Error(0)
}

func (m *MockPrRepository) Get(ctx context.Context, id string) (*domain.PullRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PullRequest), args.Error(1)
}

func (m *MockPrRepository) AddComments(ctx context.Context, id string, nbComments int) error {
	return m.Called(ctx, id, nbComments).Error(0)
}

func (m *MockPrRepository) SetFirstReview(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrRepository) SetFirstApproval(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrRepository) Close(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockPrRepository) Merge(ctx context.Context, id string, at time.Time) (*domain.PullRequest, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PullRequest), args.Error(1)
}

// MockDeploymentRepository мок репозитория для тестов
type MockDeploymentRepository struct {
	mock.Mock
}

func (m *MockDeploymentRepository) Create(ctx context.Context, d *domain.Deployment) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDeploymentRepository) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *MockDeploymentRepository) SetDeployed(ctx context.Context, id string, at time.Time) (*domain.Deployment, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *MockDeploymentRepository) List(ctx context.Context, f repository.DeploymentFilter) ([]*domain.Deployment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Deployment), args.Error(1)
}

// MockIncidentRepository мок репозитория для тестов
type MockIncidentRepository struct {
	mock.Mock
}

func (m *MockIncidentRepository) CountByProject(ctx context.Context, projectId string) (int, error) {
	args := m.Called(ctx, projectId)
	return args.Int(0), args.Error(1)
}

func (m *MockIncidentRepository) Create(ctx context.Context, inc *domain.Incident) error {
	return m.Called(ctx, inc).Error(0)
}

func (m *MockIncidentRepository) Get(ctx context.Context, id string) (*domain.Incident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Incident), args.Error(1)
}

func (m *MockIncidentRepository) SetRestored(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockIncidentRepository) SetFinished(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockIncidentRepository) List(ctx context.Context, inProgress bool) ([]*domain.Incident, error) {
	args := m.Called(ctx, inProgress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Incident), args.Error(1)
}

// MockTicketRepository мок репозитория для тестов
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Insert(ctx context.Context, t *domain.Ticket) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTicketRepository) Update(ctx context.Context, t *domain.Ticket) (domain.TicketStatus, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(domain.TicketStatus), args.Error(1)
}

func (m *MockTicketRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) ListFinished(ctx context.Context, from, to time.Time) ([]*domain.Ticket, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// fakeTx выполняет функцию без транзакции; rolledBack отмечает ошибку внутри
type fakeTx struct {
	calls      int
	rolledBack bool
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}

func finishedCount(svc *IncidentService) float64 {
	return testutil.ToFloat64(svc.metrics.IncidentFinished)
}
