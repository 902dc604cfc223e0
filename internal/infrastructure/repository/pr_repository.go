package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/em-metrics/internal/domain"
	"go.uber.org/zap"
)

const (
	insertPrQuery = `
INSERT INTO pull_requests (id, team_id, opened_at)
VALUES ($1, $2, $3);`

	selectPrQuery = `
SELECT id, team_id, opened_at, closed_at, merged_at, first_review_at, first_approved_at, nb_comments, nb_reviews
FROM pull_requests
WHERE id = $1;`

	addPrCommentsQuery = `
UPDATE pull_requests
SET nb_comments = nb_comments + $2
WHERE id = $1;`

	// условие first_review_at IS NULL гарантирует единственный инкремент nb_reviews
	setFirstReviewQuery = `
UPDATE pull_requests
SET first_review_at = $2,
    nb_reviews = nb_reviews + 1
WHERE id = $1 AND first_review_at IS NULL;`

	setFirstApprovalQuery = `
UPDATE pull_requests
SET first_approved_at = $2
WHERE id = $1 AND first_approved_at IS NULL;`

	closePrQuery = `
UPDATE pull_requests
SET closed_at = $2
WHERE id = $1;`

	mergePrQuery = `
UPDATE pull_requests
SET merged_at = $2
WHERE id = $1
RETURNING id, team_id, opened_at, closed_at, merged_at, first_review_at, first_approved_at, nb_comments, nb_reviews;`
)

type PrRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewPrRepository(db *pgxpool.Pool, log *zap.Logger) *PrRepository {
	return &PrRepository{
		db:  db,
		log: log,
	}
}

func (r *PrRepository) Create(ctx context.Context, pr *domain.PullRequest) error {
	_, err := executor(ctx, r.db).Exec(ctx, insertPrQuery, pr.Id, pr.TeamId, pr.OpenedAt)
	if err != nil {
		r.log.Error("failed to insert PR",
			zap.String("pr_id", pr.Id),
			zap.Error(err),
		)
		return handleDBError(err)
	}
	return nil
}

func (r *PrRepository) Get(ctx context.Context, id string) (*domain.PullRequest, error) {
	pr, err := scanPr(executor(ctx, r.db).QueryRow(ctx, selectPrQuery, id))
	if err != nil {
		return nil, handleDBError(err)
	}
	return pr, nil
}

func (r *PrRepository) AddComments(ctx context.Context, id string, nbComments int) error {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, addPrCommentsQuery, id, nbComments)
	if err != nil {
		return handleDBError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFirstReview возвращает true только для того вызова, который действительно записал первое ревью.
func (r *PrRepository) SetFirstReview(ctx context.Context, id string, at time.Time) (bool, error) {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, setFirstReviewQuery, id, at)
	if err != nil {
		return false, handleDBError(err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *PrRepository) SetFirstApproval(ctx context.Context, id string, at time.Time) (bool, error) {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, setFirstApprovalQuery, id, at)
	if err != nil {
		return false, handleDBError(err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *PrRepository) Close(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, closePrQuery, id, at)
	if err != nil {
		return handleDBError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PrRepository) Merge(ctx context.Context, id string, at time.Time) (*domain.PullRequest, error) {
	pr, err := scanPr(executor(ctx, r.db).QueryRow(ctx, mergePrQuery, id, at))
	if err != nil {
		return nil, handleDBError(err)
	}
	return pr, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPr(row rowScanner) (*domain.PullRequest, error) {
	pr := &domain.PullRequest{}
	var closedAt, mergedAt, firstReviewAt, firstApprovedAt sql.NullTime
	err := row.Scan(
		&pr.Id,
		&pr.TeamId,
		&pr.OpenedAt,
		&closedAt,
		&mergedAt,
		&firstReviewAt,
		&firstApprovedAt,
		&pr.NbComments,
		&pr.NbReviews,
	)
	if err != nil {
		return nil, err
	}
	pr.OpenedAt = pr.OpenedAt.UTC()
	pr.ClosedAt = timePtr(closedAt)
	pr.MergedAt = timePtr(mergedAt)
	pr.FirstReviewAt = timePtr(firstReviewAt)
	pr.FirstApprovedAt = timePtr(firstApprovedAt)
	return pr, nil
}
