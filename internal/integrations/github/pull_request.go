package github

import (
	"context"
	"fmt"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"go.uber.org/zap"
)

const (
	actionOpened    = "opened"
	actionClosed    = "closed"
	actionSubmitted = "submitted"
)

type pullRequestHandler struct {
	prs   PullRequestService
	teams *teams.Holder
	log   *zap.Logger
}

func newPullRequestHandler(prs PullRequestService, holder *teams.Holder, log *zap.Logger) *pullRequestHandler {
	return &pullRequestHandler{
		prs:   prs,
		teams: holder,
		log:   log,
	}
}

func (h *pullRequestHandler) IsAllowed(event *Event) bool {
	if event.Action != actionOpened && event.Action != actionClosed {
		return false
	}
	if event.PullRequest == nil {
		return false
	}

	author := event.authorLogin()
	if !h.teams.Load().IsActorAllowed(author, "") {
		h.log.Info("ignoring pull request event, user is not allowed",
			zap.String("github_username", author),
		)
		return false
	}
	return true
}

func (h *pullRequestHandler) Handle(ctx context.Context, event *Event) error {
	pr := event.PullRequest
	prId := event.PullRequestId()

	switch event.Action {
	case actionOpened:
		author := event.authorLogin()
		_, err := h.prs.Created(ctx, &request.CreatePrRequest{
			Id:        prId,
			TeamId:    h.teams.Load().TeamId(teams.Context{GithubUsername: author}, domain.UnknownTeam),
			Author:    author,
			OpenedAt:  pr.CreatedAt,
			Additions: pr.Additions,
			Deletions: pr.Deletions,
		})
		return err

	case actionClosed:
		if pr.Merged {
			_, err := h.prs.Merged(ctx, &request.MergePrRequest{
				PrId:     prId,
				MergedAt: pr.MergedAt,
			})
			return err
		}
		return h.prs.Closed(ctx, &request.ClosePrRequest{
			PrId:     prId,
			ClosedAt: pr.ClosedAt,
		})
	}

	return fmt.Errorf("unexpected pull request action %q", event.Action)
}
