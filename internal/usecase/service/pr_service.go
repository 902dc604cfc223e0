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
	createPrError = errors.New("create pull request error")
	reviewPrError = errors.New("review pull request error")
	closePrError  = errors.New("close pull request error")
	mergePrError  = errors.New("merge pull request error")
)

// Интерфейс репозитория
type PrRepository interface {
	Create(ctx context.Context, pr *domain.PullRequest) error
	Get(ctx context.Context, id string) (*domain.PullRequest, error)
	AddComments(ctx context.Context, id string, nbComments int) error
	SetFirstReview(ctx context.Context, id string, at time.Time) (bool, error)
	SetFirstApproval(ctx context.Context, id string, at time.Time) (bool, error)
	Close(ctx context.Context, id string, at time.Time) error
	Merge(ctx context.Context, id string, at time.Time) (*domain.PullRequest, error)
}

type PrService struct {
	repo    PrRepository
	teams   *teams.Holder
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewPrService(repo PrRepository, holder *teams.Holder, m *metrics.Metrics, log *zap.Logger) *PrService {
	return &PrService{
		repo:    repo,
		teams:   holder,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *PrService) Created(ctx context.Context, req *request.CreatePrRequest) (*response.PrResponse, error) {
	s.log.Info("create pull request request accepted",
		zap.String("pr_id", req.Id),
		zap.String("author", req.Author),
	)

	// Команда либо из запроса, либо по автору
	teamId := req.TeamId
	if teamId == "" {
		teamId = s.teams.Load().TeamId(teams.Context{GithubUsername: req.Author}, domain.UnknownTeam)
	}

	pr, err := domain.NewPullRequest(req.Id, teamId, req.OpenedAt, s.now())
	if err != nil {
		return nil, WrapError(ErrInvalidInput, err)
	}

	// Запрос в бд
	if err := s.repo.Create(ctx, pr); err != nil {
		s.log.Error("failed to create pull request",
			zap.String("pr_id", pr.Id),
			zap.Error(err),
		)
		return nil, mapRepoError(err, nil, ErrPrExists, createPrError)
	}

	s.metrics.PullRequestOpened.WithLabelValues(pr.TeamId).Inc()
	if req.Additions != nil && *req.Additions > 0 {
		s.metrics.PullRequestLocAdded.WithLabelValues(pr.TeamId).Observe(float64(*req.Additions))
	}
	if req.Deletions != nil && *req.Deletions > 0 {
		s.metrics.PullRequestLocRemoved.WithLabelValues(pr.TeamId).Observe(float64(*req.Deletions))
	}

	s.log.Info("pull request created",
		zap.String("pr_id", pr.Id),
		zap.String("team_id", pr.TeamId),
	)

	// Ответ
	return toPrResponse(pr), nil
}

// Reviewed учитывает ревью. Первое ревью и первый апрув фиксируются условными апдейтами,
// поэтому при параллельных вызовах метрика пишется ровно один раз.
func (s *PrService) Reviewed(ctx context.Context, req *request.ReviewPrRequest) error {
	s.log.Info("review pull request request accepted",
		zap.String("pr_id", req.PrId),
		zap.Bool("approved", req.Approved),
	)

	if req.PrId == "" {
		return WrapError(ErrInvalidInput, fmt.Errorf("%w: id", domain.ErrMissingField))
	}
	if req.NbComments < 0 {
		return WrapError(ErrInvalidInput, fmt.Errorf("%w: nb_comments", domain.ErrInvalidValue))
	}

	pr, err := s.repo.Get(ctx, req.PrId)
	if err != nil {
		return mapRepoError(err, ErrPrNotFound, nil, reviewPrError)
	}

	reviewedAt := s.now().UTC()
	if req.ReviewedAt != nil && !req.ReviewedAt.IsZero() {
		reviewedAt = req.ReviewedAt.UTC()
	}

	if req.NbComments > 0 {
		if err := s.repo.AddComments(ctx, pr.Id, req.NbComments); err != nil {
			return mapRepoError(err, ErrPrNotFound, nil, reviewPrError)
		}
	}

	firstReview, err := s.repo.SetFirstReview(ctx, pr.Id, reviewedAt)
	if err != nil {
		s.log.Error("failed to set first review",
			zap.String("pr_id", pr.Id),
			zap.Error(err),
		)
		return mapRepoError(err, ErrPrNotFound, nil, reviewPrError)
	}
	s.metrics.PullRequestCommentsReview.WithLabelValues(pr.TeamId).Observe(float64(req.NbComments))
	if firstReview {
		s.metrics.PullRequestFirstReview.WithLabelValues(pr.TeamId).Observe(pr.MinutesSinceOpened(reviewedAt))
	}

	if req.Approved {
		firstApproval, err := s.repo.SetFirstApproval(ctx, pr.Id, reviewedAt)
		if err != nil {
			s.log.Error("failed to set first approval",
				zap.String("pr_id", pr.Id),
				zap.Error(err),
			)
			return mapRepoError(err, ErrPrNotFound, nil, reviewPrError)
		}
		if firstApproval {
			s.metrics.PullRequestApprove.WithLabelValues(pr.TeamId).Observe(pr.MinutesSinceOpened(reviewedAt))
		}
	}

	s.log.Info("pull request reviewed",
		zap.String("pr_id", pr.Id),
		zap.Bool("first_review", firstReview),
	)
	return nil
}

func (s *PrService) Closed(ctx context.Context, req *request.ClosePrRequest) error {
	s.log.Info("close pull request request accepted",
		zap.String("pr_id", req.PrId),
	)

	pr, err := s.repo.Get(ctx, req.PrId)
	if err != nil {
		return mapRepoError(err, ErrPrNotFound, nil, closePrError)
	}

	closedAt := s.now().UTC()
	if req.ClosedAt != nil && !req.ClosedAt.IsZero() {
		closedAt = req.ClosedAt.UTC()
	}

	if err := s.repo.Close(ctx, pr.Id, closedAt); err != nil {
		s.log.Error("failed to close pull request",
			zap.String("pr_id", pr.Id),
			zap.Error(err),
		)
		return mapRepoError(err, ErrPrNotFound, nil, closePrError)
	}

	s.metrics.PullRequestClosed.WithLabelValues(pr.TeamId).Inc()
	return nil
}

func (s *PrService) Merged(ctx context.Context, req *request.MergePrRequest) (*response.PrResponse, error) {
	s.log.Info("merge pull request request accepted",
		zap.String("pr_id", req.PrId),
	)

	mergedAt := s.now().UTC()
	if req.MergedAt != nil && !req.MergedAt.IsZero() {
		mergedAt = req.MergedAt.UTC()
	}

	// Запрос в бд, nb_reviews берем из сохраненной строки
	pr, err := s.repo.Merge(ctx, req.PrId, mergedAt)
	if err != nil {
		s.log.Error("failed to merge pull request",
			zap.String("pr_id", req.PrId),
			zap.Error(err),
		)
		return nil, mapRepoError(err, ErrPrNotFound, nil, mergePrError)
	}

	s.metrics.PullRequestMerged.WithLabelValues(pr.TeamId).Inc()
	s.metrics.PullRequestMerge.WithLabelValues(pr.TeamId).Observe(pr.MinutesSinceOpened(mergedAt))
	s.metrics.PullRequestReviewsPerPr.WithLabelValues(pr.TeamId).Observe(float64(pr.NbReviews))

	s.log.Info("pull request merged",
		zap.String("pr_id", pr.Id),
		zap.Int("nb_reviews", pr.NbReviews),
	)

	// Ответ
	return toPrResponse(pr), nil
}

func toPrResponse(pr *domain.PullRequest) *response.PrResponse {
	return &response.PrResponse{
		Id:              pr.Id,
		TeamId:          pr.TeamId,
		OpenedAt:        pr.OpenedAt,
		ClosedAt:        pr.ClosedAt,
		MergedAt:        pr.MergedAt,
		FirstReviewAt:   pr.FirstReviewAt,
		FirstApprovedAt: pr.FirstApprovedAt,
		NbComments:      pr.NbComments,
		NbReviews:       pr.NbReviews,
	}
}
