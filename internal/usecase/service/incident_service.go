package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"go.uber.org/zap"
)

var (
	createIncidentError  = errors.New("create incident error")
	restoreIncidentError = errors.New("restore incident error")
	finishIncidentError  = errors.New("finish incident error")
	listIncidentsError   = errors.New("list incidents error")
)

const inProgressFilter = "in-progress"

// Интерфейс репозитория
type IncidentRepository interface {
	CountByProject(ctx context.Context, projectId string) (int, error)
	Create(ctx context.Context, inc *domain.Incident) error
	Get(ctx context.Context, id string) (*domain.Incident, error)
	SetRestored(ctx context.Context, id string, at time.Time) error
	SetFinished(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, inProgress bool) ([]*domain.Incident, error)
}

type DeploymentReader interface {
	Get(ctx context.Context, id string) (*domain.Deployment, error)
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type IncidentService struct {
	repo        IncidentRepository
	deployments DeploymentReader
	tx          TxManager
	teams       *teams.Holder
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewIncidentService(
	repo IncidentRepository,
	deployments DeploymentReader,
	tx TxManager,
	holder *teams.Holder,
	m *metrics.Metrics,
	log *zap.Logger,
) *IncidentService {
	return &IncidentService{
		repo:        repo,
		deployments: deployments,
		tx:          tx,
		teams:       holder,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Create сохраняет инцидент и читает связанный деплой в одной транзакции.
// Метрики пишутся только после коммита.
func (s *IncidentService) Create(ctx context.Context, req *request.CreateIncidentRequest) (*domain.Incident, error) {
	s.log.Info("create incident request accepted",
		zap.String("incident_id", req.Id),
		zap.String("project_id", req.ProjectId),
		zap.String("deployment_id", req.DeploymentId),
	)

	if req.ProjectId == "" {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: project_id", domain.ErrMissingField))
	}

	teamId := req.TeamId
	if teamId == "" {
		teamId, _ = s.teams.Load().Resolve(teams.Context{ProjectId: req.ProjectId})
	}

	var (
		incident   *domain.Incident
		deployment *domain.Deployment
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		id := req.Id
		if id == "" {
			// incident_<project>_<n>, n = число инцидентов проекта + 1
			count, err := s.repo.CountByProject(ctx, req.ProjectId)
			if err != nil {
				return err
			}
			id = domain.IncidentId(req.ProjectId, count+1)
		}

		inc, err := domain.NewIncident(domain.IncidentParams{
			Id:           id,
			ProjectId:    req.ProjectId,
			DeploymentId: req.DeploymentId,
			TeamId:       teamId,
			StartedAt:    req.StartedAt,
			RestoredAt:   req.RestoredAt,
			FinishedAt:   req.FinishedAt,
		}, s.now())
		if err != nil {
			return WrapError(ErrInvalidInput, err)
		}

		if err := s.repo.Create(ctx, inc); err != nil {
			return err
		}

		if inc.DeploymentId != nil {
			d, err := s.deployments.Get(ctx, *inc.DeploymentId)
			if err != nil {
				return err
			}
			deployment = d
		}

		incident = inc
		return nil
	})
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		s.log.Error("failed to create incident",
			zap.String("project_id", req.ProjectId),
			zap.String("deployment_id", req.DeploymentId),
			zap.Error(err),
		)
		// несуществующий деплой приходит как ошибка внешнего ключа
		return nil, mapRepoError(err, ErrConstraintViolation, ErrIncidentExists, createIncidentError)
	}

	if deployment != nil {
		s.metrics.ChangeFailure.WithLabelValues(incident.ProjectId).Inc()
	}
	s.metrics.IncidentCount.WithLabelValues(incident.ProjectId).Inc()
	if incident.RestoredAt != nil {
		s.recordResolution(incident, *incident.RestoredAt)
	}
	if deployment != nil {
		ttd := deployment.DeployedAt.Sub(incident.StartedAt)
		s.metrics.TimeToDetect.WithLabelValues(incident.ProjectId).Observe(ttd.Minutes())
	}

	s.log.Info("incident created",
		zap.String("incident_id", incident.Id),
		zap.String("project_id", incident.ProjectId),
	)
	return incident, nil
}

func (s *IncidentService) Resolve(ctx context.Context, req *request.IncidentDateRequest) error {
	s.log.Info("restore incident request accepted",
		zap.String("incident_id", req.IncidentId),
	)

	incident, err := s.repo.Get(ctx, req.IncidentId)
	if err != nil {
		return mapRepoError(err, ErrIncidentNotFound, nil, restoreIncidentError)
	}

	restoredAt := s.dateOrNow(req.Date)
	if err := s.repo.SetRestored(ctx, incident.Id, restoredAt); err != nil {
		s.log.Error("failed to set restored_at",
			zap.String("incident_id", incident.Id),
			zap.Error(err),
		)
		return mapRepoError(err, ErrIncidentNotFound, nil, restoreIncidentError)
	}

	s.recordResolution(incident, restoredAt)
	return nil
}

// Finish закрывает инцидент; если он не был восстановлен, restored_at ставится той же датой.
func (s *IncidentService) Finish(ctx context.Context, req *request.IncidentDateRequest) error {
	s.log.Info("finish incident request accepted",
		zap.String("incident_id", req.IncidentId),
	)

	incident, err := s.repo.Get(ctx, req.IncidentId)
	if err != nil {
		return mapRepoError(err, ErrIncidentNotFound, nil, finishIncidentError)
	}

	finishedAt := s.dateOrNow(req.Date)
	if err := s.repo.SetFinished(ctx, incident.Id, finishedAt); err != nil {
		s.log.Error("failed to set finished_at",
			zap.String("incident_id", incident.Id),
			zap.Error(err),
		)
		return mapRepoError(err, ErrIncidentNotFound, nil, finishIncidentError)
	}

	if incident.RestoredAt == nil {
		s.recordResolution(incident, finishedAt)
	}
	s.metrics.IncidentFinished.Inc()
	return nil
}

func (s *IncidentService) List(ctx context.Context, req *request.ListIncidentsRequest) (*response.ListIncidentsResponse, error) {
	if req.Filter != "" && req.Filter != inProgressFilter {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: filter %q", domain.ErrInvalidValue, req.Filter))
	}

	// Запрос в бд
	incidents, err := s.repo.List(ctx, req.Filter == inProgressFilter)
	if err != nil {
		s.log.Error("failed to list incidents", zap.Error(err))
		return nil, mapRepoError(err, nil, nil, listIncidentsError)
	}

	// Ответ
	return &response.ListIncidentsResponse{Incidents: incidents}, nil
}

func (s *IncidentService) recordResolution(incident *domain.Incident, restoredAt time.Time) {
	ttr := restoredAt.Sub(incident.StartedAt)
	s.metrics.TimeToRestore.WithLabelValues(incident.ProjectId).Observe(float64(ttr.Milliseconds()))
	s.metrics.IncidentRestored.WithLabelValues(incident.ProjectId).Inc()
}

func (s *IncidentService) dateOrNow(date *time.Time) time.Time {
	if date == nil || date.IsZero() {
		return s.now().UTC()
	}
	return date.UTC()
}
