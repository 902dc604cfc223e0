package linear

import (
	"context"
	"fmt"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"go.uber.org/zap"
)

type TicketService interface {
	Handle(ctx context.Context, t *domain.Ticket) error
	HasChildren(ctx context.Context, id string) (bool, error)
}

type Config struct {
	IgnoreParentIssues bool
	TicketTypeSelector TicketTypeSelector
}

type Handler struct {
	tickets TicketService
	cfg     Config
	log     *zap.Logger
}

func NewHandler(tickets TicketService, cfg Config, log *zap.Logger) *Handler {
	return &Handler{
		tickets: tickets,
		cfg:     cfg,
		log:     log,
	}
}

// Dispatch возвращает false для payload'ов, которые не обрабатываются (не Issue, родительские задачи)
func (h *Handler) Dispatch(ctx context.Context, body []byte) (bool, error) {
	payload, err := ParsePayload(body)
	if err != nil {
		return false, service.WrapError(service.ErrInvalidInput, err)
	}

	if payload.Type != typeIssue {
		h.log.Info("ignoring linear event, unsupported type",
			zap.String("type", payload.Type),
		)
		return false, nil
	}

	issue, err := payload.Issue()
	if err != nil {
		return false, service.WrapError(service.ErrInvalidInput, err)
	}

	ticket, err := h.toTicket(ctx, issue)
	if err != nil {
		return false, err
	}
	if ticket == nil {
		return false, nil
	}

	if err := h.tickets.Handle(ctx, ticket); err != nil {
		h.log.Error("failed to handle linear issue",
			zap.String("ticket_id", ticket.Id),
			zap.Error(err),
		)
		return false, err
	}
	return true, nil
}

func (h *Handler) toTicket(ctx context.Context, issue *Issue) (*domain.Ticket, error) {
	if issue.Project == nil || issue.Project.Name == "" {
		return nil, service.WrapError(service.ErrInvalidInput,
			fmt.Errorf("%w: project of issue %q", domain.ErrMissingField, issue.Identifier))
	}

	if h.cfg.IgnoreParentIssues {
		hasChildren, err := h.tickets.HasChildren(ctx, issue.Identifier)
		if err != nil {
			return nil, err
		}
		if hasChildren {
			h.log.Info("ignoring linear issue, parent of tracked tickets",
				zap.String("ticket_id", issue.Identifier),
			)
			return nil, nil
		}
	}

	candidate := domain.TicketCandidate{
		Id:                issue.Identifier,
		ProjectId:         issue.Project.Name,
		CreatedAt:         issue.CreatedAt,
		StartedAt:         issue.StartedAt,
		FinishedAt:        issue.CompletedAt,
		TicketType:        FindTicketType(h.cfg.TicketTypeSelector, issue.Labels),
		Status:            MapWorkflowState(issue.State.Type),
		CurrentEstimation: issue.Estimate,
	}
	if issue.Team != nil {
		candidate.TeamId = issue.Team.Key
	}
	if issue.Assignee != nil {
		candidate.ActorEmail = issue.Assignee.Email
	}
	if issue.Parent != nil && issue.Parent.Identifier != "" {
		parent := issue.Parent.Identifier
		candidate.ParentTicketId = &parent
	}

	ticket, err := domain.BuildTicket(candidate)
	if err != nil {
		return nil, service.WrapError(service.ErrInvalidInput, err)
	}
	return ticket, nil
}
