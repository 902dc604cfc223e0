package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"go.uber.org/zap"
)

var ticketStatsError = errors.New("ticket stats error")

const (
	// ISO-формат с миллисекундами, как в запросах клиентов
	statsTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	noActor         = "no-actor"
	statsWindow     = 6
)

type TicketStatsRepository interface {
	ListFinished(ctx context.Context, from, to time.Time) ([]*domain.Ticket, error)
}

type TicketStatsService struct {
	repo TicketStatsRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewTicketStatsService(repo TicketStatsRepository, log *zap.Logger) *TicketStatsService {
	return &TicketStatsService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

type ticketStatsQuery struct {
	from   time.Time
	to     time.Time
	actors map[string]string
	rows   []TicketStatsRow
}

func (s *TicketStatsService) Stats(ctx context.Context, req *request.TicketStatsRequest) (*response.TicketStatsResponse, error) {
	q, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	// Ответ
	return &response.TicketStatsResponse{
		From:    q.from.Format(statsTimeLayout),
		To:      q.to.Format(statsTimeLayout),
		Summary: SummarizeTicketStats(q.rows, q.actors),
	}, nil
}

func (s *TicketStatsService) StatsCSV(ctx context.Context, req *request.TicketStatsRequest) ([]byte, error) {
	q, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteTicketStatsCSV(&buf, q.rows, q.actors); err != nil {
		return nil, fmt.Errorf("%w: %w", ticketStatsError, err)
	}
	return buf.Bytes(), nil
}

func (s *TicketStatsService) query(ctx context.Context, req *request.TicketStatsRequest) (*ticketStatsQuery, error) {
	from, to := s.defaultWindow()
	if req.From != nil {
		from = req.From.UTC()
	}
	if req.To != nil {
		to = req.To.UTC()
	}
	if to.Before(from) {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: to is before from", domain.ErrInvalidValue))
	}

	actors, err := unhashTable(req.UnhashActors)
	if err != nil {
		return nil, WrapError(ErrInvalidInput, err)
	}

	s.log.Info("ticket stats request accepted",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("unhash_actors", len(req.UnhashActors)),
	)

	// Запрос в бд
	tickets, err := s.repo.ListFinished(ctx, from, to)
	if err != nil {
		s.log.Error("failed to list finished tickets", zap.Error(err))
		return nil, mapRepoError(err, nil, nil, ticketStatsError)
	}

	rows := AggregateTicketStats(tickets)
	s.log.Info("ticket stats computed",
		zap.Int("tickets", len(tickets)),
		zap.Int("rows", len(rows)),
	)

	return &ticketStatsQuery{from: from, to: to, actors: actors, rows: rows}, nil
}

// defaultWindow: первое число месяца полгода назад (00:00 UTC) и шесть месяцев после него
func (s *TicketStatsService) defaultWindow() (time.Time, time.Time) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month()-statsWindow, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, statsWindow, 0)
}

func unhashTable(emails []string) (map[string]string, error) {
	actors := map[string]string{
		domain.HashActorEmail(""): noActor,
	}
	for _, email := range emails {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: unhash_actors %q", domain.ErrInvalidValue, email)
		}
		actors[domain.HashActorEmail(email)] = email
	}
	return actors, nil
}
