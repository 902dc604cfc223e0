package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIncidentService(repo IncidentRepository, deployments DeploymentReader) (*IncidentService, *fakeTx) {
	tx := &fakeTx{}
	svc := NewIncidentService(repo, deployments, tx, newTestTeams(), newTestMetrics(), zap.NewNop())
	svc.now = fixedClock("2024-01-01T12:00:00Z")
	return svc, tx
}

func TestIncidentService_Create_GeneratesIdAndLinksDeployment(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	mockDeployments := new(MockDeploymentRepository)
	svc, tx := newTestIncidentService(mockRepo, mockDeployments)

	mockRepo.On("CountByProject", mock.Anything, "api").Return(2, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(inc *domain.Incident) bool {
		return inc.Id == "incident_api_3" && *inc.DeploymentId == "d1" && *inc.TeamId == "backend"
	})).Return(nil)
	mockDeployments.On("Get", mock.Anything, "d1").Return(&domain.Deployment{
		Id:         "d1",
		ProjectId:  "api",
		DeployedAt: mustTime("2024-01-01T09:00:00Z"),
	}, nil)

	inc, err := svc.Create(context.Background(), &request.CreateIncidentRequest{
		ProjectId:    "api",
		DeploymentId: "d1",
		StartedAt:    timeRef("2024-01-01T10:00:00Z"),
	})

	require.NoError(t, err)
	assert.Equal(t, "incident_api_3", inc.Id)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1.0, counter(svc.metrics.ChangeFailure, "api"))
	assert.Equal(t, 1.0, counter(svc.metrics.IncidentCount, "api"))

	// деплой раньше старта инцидента дает отрицательное значение
	count, sum := histogram(t, svc.metrics.TimeToDetect, "api")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, -60.0, sum)

	assert.Equal(t, 0.0, counter(svc.metrics.IncidentRestored, "api"))
	mockRepo.AssertExpectations(t)
	mockDeployments.AssertExpectations(t)
}

func TestIncidentService_Create_UnknownDeploymentRollsBack(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	mockDeployments := new(MockDeploymentRepository)
	svc, tx := newTestIncidentService(mockRepo, mockDeployments)

	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: fk", repository.ErrConstraintViolation))

	inc, err := svc.Create(context.Background(), &request.CreateIncidentRequest{
		Id:           "inc-1",
		ProjectId:    "api",
		DeploymentId: "nope",
	})

	assert.Nil(t, inc)
	assertDomainCode(t, err, CodeConstraintViolation)
	assert.True(t, tx.rolledBack)
	assert.Equal(t, 0.0, counter(svc.metrics.ChangeFailure, "api"))
	assert.Equal(t, 0.0, counter(svc.metrics.IncidentCount, "api"))
	count, _ := histogram(t, svc.metrics.TimeToDetect, "api")
	assert.Equal(t, uint64(0), count)
	mockRepo.AssertNotCalled(t, "CountByProject", mock.Anything, mock.Anything)
	mockDeployments.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestIncidentService_Create_RetroactiveRestore(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), &request.CreateIncidentRequest{
		Id:         "inc-2",
		ProjectId:  "web",
		StartedAt:  timeRef("2024-01-01T10:00:00Z"),
		RestoredAt: timeRef("2024-01-01T10:00:02Z"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, counter(svc.metrics.IncidentRestored, "web"))
	_, sum := histogram(t, svc.metrics.TimeToRestore, "web")
	assert.Equal(t, 2000.0, sum)
	assert.Equal(t, 0.0, counter(svc.metrics.ChangeFailure, "web"))
}

func TestIncidentService_Create_DuplicateId(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)

	_, err := svc.Create(context.Background(), &request.CreateIncidentRequest{Id: "inc-1", ProjectId: "api"})

	assertDomainCode(t, err, CodeAlreadyExists)
}

func TestIncidentService_Create_MissingProject(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, tx := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	_, err := svc.Create(context.Background(), &request.CreateIncidentRequest{Id: "inc-1"})

	assertDomainCode(t, err, CodeInvalidInput)
	assert.Equal(t, 0, tx.calls)
}

func TestIncidentService_Resolve_Success(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Get", mock.Anything, "inc-1").Return(&domain.Incident{
		Id:        "inc-1",
		ProjectId: "api",
		StartedAt: mustTime("2024-01-01T11:00:00Z"),
	}, nil)
	mockRepo.On("SetRestored", mock.Anything, "inc-1", mustTime("2024-01-01T12:00:00Z")).Return(nil)

	require.NoError(t, svc.Resolve(context.Background(), &request.IncidentDateRequest{IncidentId: "inc-1"}))

	assert.Equal(t, 1.0, counter(svc.metrics.IncidentRestored, "api"))
	_, sum := histogram(t, svc.metrics.TimeToRestore, "api")
	assert.Equal(t, 3600000.0, sum)
	mockRepo.AssertExpectations(t)
}

func TestIncidentService_Resolve_NotFound(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Get", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	err := svc.Resolve(context.Background(), &request.IncidentDateRequest{IncidentId: "missing"})

	assertDomainCode(t, err, CodeNotFound)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestIncidentService_Finish_RestoresWhenNeeded(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Get", mock.Anything, "inc-1").Return(&domain.Incident{
		Id:        "inc-1",
		ProjectId: "api",
		StartedAt: mustTime("2024-01-01T11:00:00Z"),
	}, nil)
	mockRepo.On("SetFinished", mock.Anything, "inc-1", mustTime("2024-01-01T11:30:00Z")).Return(nil)

	err := svc.Finish(context.Background(), &request.IncidentDateRequest{
		IncidentId: "inc-1",
		Date:       timeRef("2024-01-01T11:30:00Z"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, counter(svc.metrics.IncidentRestored, "api"))
	assert.Equal(t, 1.0, finishedCount(svc))
	_, sum := histogram(t, svc.metrics.TimeToRestore, "api")
	assert.Equal(t, 1800000.0, sum)
}

func TestIncidentService_Finish_AlreadyRestored(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("Get", mock.Anything, "inc-1").Return(&domain.Incident{
		Id:         "inc-1",
		ProjectId:  "api",
		StartedAt:  mustTime("2024-01-01T11:00:00Z"),
		RestoredAt: timeRef("2024-01-01T11:10:00Z"),
	}, nil)
	mockRepo.On("SetFinished", mock.Anything, "inc-1", mock.Anything).Return(nil)

	require.NoError(t, svc.Finish(context.Background(), &request.IncidentDateRequest{IncidentId: "inc-1"}))

	assert.Equal(t, 0.0, counter(svc.metrics.IncidentRestored, "api"))
	assert.Equal(t, 1.0, finishedCount(svc))
}

func TestIncidentService_List_Filter(t *testing.T) {
	mockRepo := new(MockIncidentRepository)
	svc, _ := newTestIncidentService(mockRepo, new(MockDeploymentRepository))

	mockRepo.On("List", mock.Anything, true).Return([]*domain.Incident{{Id: "inc-1"}}, nil)
	mockRepo.On("List", mock.Anything, false).Return([]*domain.Incident{}, nil)

	resp, err := svc.List(context.Background(), &request.ListIncidentsRequest{Filter: "in-progress"})
	require.NoError(t, err)
	assert.Len(t, resp.Incidents, 1)

	resp, err = svc.List(context.Background(), &request.ListIncidentsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Incidents)

	_, err = svc.List(context.Background(), &request.ListIncidentsRequest{Filter: "all"})
	assertDomainCode(t, err, CodeInvalidInput)
}
