package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"go.uber.org/zap"
)

var (
	startDeploymentError    = errors.New("start deployment error")
	deployedDeploymentError = errors.New("deployed deployment error")
	getDeploymentError      = errors.New("get deployment error")
	listDeploymentsError    = errors.New("list deployments error")
)

const (
	defaultDeploymentsLimit = 50
	maxDeploymentsLimit     = 500
)

// Интерфейс репозитория
type DeploymentRepository interface {
	Create(ctx context.Context, d *domain.Deployment) error
	Get(ctx context.Context, id string) (*domain.Deployment, error)
	SetDeployed(ctx context.Context, id string, at time.Time) (*domain.Deployment, error)
	List(ctx context.Context, f repository.DeploymentFilter) ([]*domain.Deployment, error)
}

type DeploymentService struct {
	repo    DeploymentRepository
	teams   *teams.Holder
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewDeploymentService(repo DeploymentRepository, holder *teams.Holder, m *metrics.Metrics, log *zap.Logger) *DeploymentService {
	return &DeploymentService{
		repo:    repo,
		teams:   holder,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *DeploymentService) Start(ctx context.Context, req *request.StartDeploymentRequest) (*response.DeploymentResponse, error) {
	s.log.Info("start deployment request accepted",
		zap.String("deployment_id", req.Id),
		zap.String("project_id", req.ProjectId),
	)

	d, err := domain.NewDeployment(domain.DeploymentParams{
		Id:            req.Id,
		ProjectId:     req.ProjectId,
		FirstCommitAt: req.FirstCommitAt,
		DeployStartAt: req.DeployStartAt,
	}, s.now())
	if err != nil {
		return nil, WrapError(ErrInvalidInput, err)
	}

	teamId, err := s.start(ctx, d, req.Username)
	if err != nil {
		return nil, err
	}

	// Ответ
	return &response.DeploymentResponse{Deployment: d, TeamId: teamId}, nil
}

// Deployed помечает деплой завершенным. Второе значение true, если деплой был создан в этом вызове.
func (s *DeploymentService) Deployed(ctx context.Context, req *request.DeployedRequest) (*response.DeploymentResponse, bool, error) {
	s.log.Info("deployed request accepted",
		zap.String("deployment_id", req.DeploymentId),
	)

	if req.CreateIfNotExists == nil {
		return nil, false, WrapError(ErrInvalidInput, fmt.Errorf("%w: create_if_not_exists", domain.ErrMissingField))
	}

	existing, err := s.repo.Get(ctx, req.DeploymentId)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if !*req.CreateIfNotExists {
			return nil, false, WrapError(ErrDeploymentNotFound, err)
		}
		if req.DeployStartAt == nil {
			return nil, false, WrapError(ErrInvalidInput, fmt.Errorf("%w: deploy_start_at", domain.ErrMissingField))
		}

		// Создаем деплой, который не был заведен через start
		d, err := domain.NewDeployment(domain.DeploymentParams{
			Id:            req.DeploymentId,
			ProjectId:     req.ProjectId,
			FirstCommitAt: req.FirstCommitAt,
			DeployStartAt: req.DeployStartAt,
		}, s.now())
		if err != nil {
			return nil, false, WrapError(ErrInvalidInput, err)
		}
		switch _, err := s.start(ctx, d, req.Username); {
		case errors.Is(err, repository.ErrAlreadyExists):
			// деплой успели завести параллельно, просто закрываем его
			s.log.Info("deployment created concurrently, marking existing as deployed",
				zap.String("deployment_id", d.Id),
			)
		case err != nil:
			return nil, false, err
		default:
			created = true
		}
		existing = d
	case err != nil:
		return nil, false, mapRepoError(err, ErrDeploymentNotFound, nil, deployedDeploymentError)
	}

	deployedAt := s.now().UTC()
	if req.DeployedAt != nil && !req.DeployedAt.IsZero() {
		deployedAt = req.DeployedAt.UTC()
	}

	d, err := s.repo.SetDeployed(ctx, existing.Id, deployedAt)
	if err != nil {
		s.log.Error("failed to set deployed_at",
			zap.String("deployment_id", existing.Id),
			zap.Error(err),
		)
		return nil, false, mapRepoError(err, ErrDeploymentNotFound, nil, deployedDeploymentError)
	}

	teamId := s.teamId(d.ProjectId, req.Username)
	s.metrics.DeploymentDuration.WithLabelValues(d.ProjectId, teamId).Observe(float64(d.Duration().Milliseconds()))
	s.metrics.DeploymentFrequency.WithLabelValues(d.ProjectId, teamId).Inc()
	s.metrics.LeadTimeForChanges.WithLabelValues(d.ProjectId, teamId).Observe(float64(d.LeadTime().Milliseconds()))

	s.log.Info("deployment finished",
		zap.String("deployment_id", d.Id),
		zap.String("project_id", d.ProjectId),
		zap.Duration("duration", d.Duration()),
		zap.Bool("created", created),
	)

	// Ответ
	return &response.DeploymentResponse{Deployment: d, TeamId: teamId}, created, nil
}

func (s *DeploymentService) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, ErrDeploymentNotFound, nil, getDeploymentError)
	}
	return d, nil
}

func (s *DeploymentService) List(ctx context.Context, req *request.ListDeploymentsRequest) (*response.ListDeploymentsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultDeploymentsLimit
	}
	if limit < 0 || limit > maxDeploymentsLimit || req.Offset < 0 {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: limit/offset", domain.ErrInvalidValue))
	}

	// Запрос в бд
	deployments, err := s.repo.List(ctx, repository.DeploymentFilter{
		ProjectId: req.ProjectId,
		Limit:     uint64(limit),
		Offset:    uint64(req.Offset),
	})
	if err != nil {
		s.log.Error("failed to list deployments",
			zap.String("project_id", req.ProjectId),
			zap.Error(err),
		)
		return nil, mapRepoError(err, nil, nil, listDeploymentsError)
	}

	// Ответ
	return &response.ListDeploymentsResponse{
		Deployments: deployments,
		Limit:       limit,
		Offset:      req.Offset,
	}, nil
}

func (s *DeploymentService) start(ctx context.Context, d *domain.Deployment, username string) (string, error) {
	// Запрос в бд
	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to create deployment",
			zap.String("deployment_id", d.Id),
			zap.Error(err),
		)
		return "", mapRepoError(err, nil, ErrDeploymentExists, startDeploymentError)
	}

	teamId := s.teamId(d.ProjectId, username)
	s.metrics.DeploymentStarted.WithLabelValues(d.ProjectId, teamId).Inc()

	s.log.Info("deployment started",
		zap.String("deployment_id", d.Id),
		zap.String("project_id", d.ProjectId),
		zap.String("team_id", teamId),
	)
	return teamId, nil
}

func (s *DeploymentService) teamId(projectId, username string) string {
	return s.teams.Load().TeamId(teams.Context{ProjectId: projectId, GithubUsername: username}, domain.UnknownTeam)
}
