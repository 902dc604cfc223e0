package github

import (
	"context"

	"github.com/niklvrr/em-metrics/internal/integrations/githubapp"
	"github.com/niklvrr/em-metrics/internal/teams"
	"github.com/niklvrr/em-metrics/internal/transport/dto/request"
	"go.uber.org/zap"
)

var allowedReviewStates = map[string]struct{}{
	"approved":          {},
	"changes_requested": {},
	"commented":         {},
}

type pullRequestReviewHandler struct {
	prs      PullRequestService
	comments ReviewCommentsClient
	teams    *teams.Holder
	log      *zap.Logger
}

func newPullRequestReviewHandler(prs PullRequestService, comments ReviewCommentsClient, holder *teams.Holder, log *zap.Logger) *pullRequestReviewHandler {
	return &pullRequestReviewHandler{
		prs:      prs,
		comments: comments,
		teams:    holder,
		log:      log,
	}
}

// IsAllowed: ревьюить может кто угодно, но автор PR должен быть в одной из команд
func (h *pullRequestReviewHandler) IsAllowed(event *Event) bool {
	if event.Action != actionSubmitted {
		return false
	}
	if event.PullRequest == nil || event.Review == nil {
		return false
	}

	author := event.authorLogin()
	if event.reviewerLogin() == author {
		h.log.Info("ignoring pull request review event, review by author",
			zap.String("github_username", author),
		)
		return false
	}

	if !h.teams.Load().IsActorAllowed(author, "") {
		h.log.Info("ignoring pull request review event, pr author is not allowed",
			zap.String("github_username", author),
		)
		return false
	}
	return true
}

func (h *pullRequestReviewHandler) Handle(ctx context.Context, event *Event) error {
	review := event.Review
	if _, ok := allowedReviewStates[review.State]; !ok {
		h.log.Info("ignoring pull request review event, state is not allowed",
			zap.String("state", review.State),
		)
		return nil
	}

	installationId, err := event.InstallationId()
	if err != nil {
		return err
	}

	repo := ""
	if event.Repository != nil {
		repo = event.Repository.FullName
	}

	comments, err := h.comments.ReviewComments(ctx, installationId, repo, event.PullRequest.Number, review.Id)
	if err != nil {
		h.log.Error("failed to fetch review comments",
			zap.String("pr_id", event.PullRequestId()),
			zap.Int64("review_id", review.Id),
			zap.Error(err),
		)
		return err
	}

	// GitHub присылает ответ в треде как отдельное ревью
	if onlyReplies(comments) {
		h.log.Info("ignoring pull request review event, all comments are replies",
			zap.String("pr_id", event.PullRequestId()),
		)
		return nil
	}

	return h.prs.Reviewed(ctx, &request.ReviewPrRequest{
		PrId:       event.PullRequestId(),
		Approved:   review.State == "approved",
		ReviewedAt: review.SubmittedAt,
		NbComments: len(comments),
	})
}

// onlyReplies: пустой список ответом не считается, иначе пропали бы апрувы без комментариев
func onlyReplies(comments []githubapp.ReviewComment) bool {
	if len(comments) == 0 {
		return false
	}
	for _, c := range comments {
		if c.InReplyToId == nil {
			return false
		}
	}
	return true
}
