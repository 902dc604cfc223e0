package service

import (
	"context"
	"errors"
	"math"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
	"github.com/niklvrr/em-metrics/internal/metrics"
	"go.uber.org/zap"
)

var (
	handleTicketError = errors.New("handle ticket error")
	ticketParentError = errors.New("ticket parent lookup error")
)

// Интерфейс репозитория
type TicketRepository interface {
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Insert(ctx context.Context, t *domain.Ticket) error
	Update(ctx context.Context, t *domain.Ticket) (domain.TicketStatus, error)
	HasChildren(ctx context.Context, id string) (bool, error)
}

type TicketService struct {
	repo    TicketRepository
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewTicketService(repo TicketRepository, m *metrics.Metrics, log *zap.Logger) *TicketService {
	return &TicketService{
		repo:    repo,
		metrics: m,
		log:     log,
	}
}

// Handle сохраняет тикет и пишет метрики переходов относительно сохраненной версии.
func (s *TicketService) Handle(ctx context.Context, t *domain.Ticket) error {
	s.log.Info("ticket event accepted",
		zap.String("ticket_id", t.Id),
		zap.String("status", string(t.Status)),
	)

	stored, err := s.repo.Get(ctx, t.Id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = s.insert(ctx, t)
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return s.mapError(t, err)
		}

		// тикет успели вставить параллельно, обрабатываем как обновление
		s.log.Info("ticket inserted concurrently, retrying as update",
			zap.String("ticket_id", t.Id),
		)
		stored, err = s.repo.Get(ctx, t.Id)
		if err != nil {
			return s.mapError(t, err)
		}
	case err != nil:
		return s.mapError(t, err)
	}

	return s.mapError(t, s.update(ctx, t, stored))
}

func (s *TicketService) HasChildren(ctx context.Context, id string) (bool, error) {
	has, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		s.log.Error("failed to look up child tickets",
			zap.String("ticket_id", id),
			zap.Error(err),
		)
		return false, mapRepoError(err, nil, nil, ticketParentError)
	}
	return has, nil
}

func (s *TicketService) insert(ctx context.Context, t *domain.Ticket) error {
	t.InitialEstimation = t.CurrentEstimation
	if err := s.repo.Insert(ctx, t); err != nil {
		return err
	}

	// webhook пришел уже по закрытому тикету
	if t.IsDone() {
		s.recordDone(t)
	}

	s.log.Info("ticket created",
		zap.String("ticket_id", t.Id),
		zap.String("project_id", t.ProjectId),
	)
	return nil
}

func (s *TicketService) update(ctx context.Context, t, stored *domain.Ticket) error {
	if t.IsDone() && t.FinalEstimation == nil && t.CurrentEstimation != nil {
		final := *t.CurrentEstimation
		t.FinalEstimation = &final
	}

	previous, err := s.repo.Update(ctx, t)
	if err != nil {
		return err
	}

	// статус до изменения возвращает сам апдейт
	becameDone := t.IsDone() && previous != domain.TicketStatusDone

	if becameDone {
		s.recordDone(t)
	}

	delta := t.EstimationDelta(stored.CurrentEstimation)
	labels := ticketLabels(t)
	switch {
	case delta > 0:
		s.metrics.TicketEstimationChanged.WithLabelValues(labels...).Observe(delta)
	case delta < 0:
		// гистограмма не принимает отрицательные значения, пишем модуль в отдельный канал
		s.metrics.TicketEstimationChangedNeg.WithLabelValues(labels...).Observe(math.Abs(delta))
	}

	s.log.Info("ticket updated",
		zap.String("ticket_id", t.Id),
		zap.Bool("done", becameDone),
		zap.Float64("estimation_delta", delta),
	)
	return nil
}

func (s *TicketService) recordDone(t *domain.Ticket) {
	labels := ticketLabels(t)
	s.metrics.TicketCount.WithLabelValues(labels...).Inc()

	if minutes := t.MinutesToFinish(); minutes > 0 {
		s.metrics.TimePerTicket.WithLabelValues(labels...).Observe(minutes)
	} else {
		s.log.Info("could not determine time to finish ticket",
			zap.String("ticket_id", t.Id),
		)
	}
}

func (s *TicketService) mapError(t *domain.Ticket, err error) error {
	if err == nil {
		return nil
	}
	s.log.Error("failed to handle ticket",
		zap.String("ticket_id", t.Id),
		zap.Error(err),
	)
	return mapRepoError(err, ErrTicketNotFound, nil, handleTicketError)
}

func ticketLabels(t *domain.Ticket) []string {
	teamId := t.TeamId
	if teamId == "" {
		teamId = domain.UnknownTeam
	}
	return []string{teamId, t.ProjectId, t.TicketType}
}
