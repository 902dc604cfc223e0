package github

import (
	"context"
	"fmt"

	"github.com/niklvrr/em-metrics/internal/integrations/githubapp"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"go.uber.org/zap"
)

// EventHandler обрабатывает один тип события GitHub
type EventHandler interface {
	IsAllowed(event *Event) bool
	Handle(ctx context.Context, event *Event) error
}

type PullRequestService interface {
	Created(ctx context.Context, req *request.CreatePrRequest) (*response.PrResponse, error)
	Reviewed(ctx context.Context, req *request.ReviewPrRequest) error
	Closed(ctx context.Context, req *request.ClosePrRequest) error
	Merged(ctx context.Context, req *request.MergePrRequest) (*response.PrResponse, error)
}

type ReviewCommentsClient interface {
	ReviewComments(ctx context.Context, installationID int64, repo string, prNumber int, reviewID int64) ([]githubapp.ReviewComment, error)
}

// Dispatcher: таблица обработчиков собирается один раз в конструкторе и дальше не меняется
type Dispatcher struct {
	handlers map[EventType]EventHandler
	log      *zap.Logger
}

func NewDispatcher(prs PullRequestService, comments ReviewCommentsClient, holder *teams.Holder, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[EventType]EventHandler{
			EventPullRequest:       newPullRequestHandler(prs, holder, log),
			EventPullRequestReview: newPullRequestReviewHandler(prs, comments, holder, log),
		},
		log: log,
	}
}

// Dispatch возвращает false, если событие не поддерживается или отфильтровано
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, body []byte) (bool, error) {
	handler, ok := d.handlers[EventType(eventType)]
	if !ok {
		d.log.Info("ignoring github event, no handler", zap.String("event_type", eventType))
		return false, nil
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		return false, service.WrapError(service.ErrInvalidInput, err)
	}

	if !handler.IsAllowed(event) {
		return false, nil
	}

	if _, err := event.InstallationId(); err != nil {
		return false, service.WrapError(service.ErrInvalidInput, err)
	}

	if err := handler.Handle(ctx, event); err != nil {
		return false, fmt.Errorf("handle %s event: %w", eventType, err)
	}
	return true, nil
}
