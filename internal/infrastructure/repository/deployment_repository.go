package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/em-metrics/internal/domain"
	"go.uber.org/zap"
)

const (
	insertDeploymentQuery = `
INSERT INTO deployments (id, project_id, first_commit_at, deploy_start_at, deployed_at)
VALUES ($1, $2, $3, $4, $5);`

	selectDeploymentQuery = `
SELECT id, project_id, first_commit_at, deploy_start_at, deployed_at
FROM deployments
WHERE id = $1;`

	setDeployedQuery = `
UPDATE deployments
SET deployed_at = $2
WHERE id = $1
RETURNING id, project_id, first_commit_at, deploy_start_at, deployed_at;`
)

var deploymentColumns = []string{"id", "project_id", "first_commit_at", "deploy_start_at", "deployed_at"}

type DeploymentFilter struct {
	ProjectId string
	Limit     uint64
	Offset    uint64
}

type DeploymentRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
	log     *zap.Logger
}

func NewDeploymentRepository(db *pgxpool.Pool, log *zap.Logger) *DeploymentRepository {
	return &DeploymentRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:     log,
	}
}

func (r *DeploymentRepository) Create(ctx context.Context, d *domain.Deployment) error {
	_, err := executor(ctx, r.db).Exec(ctx, insertDeploymentQuery,
		d.Id,
		d.ProjectId,
		d.FirstCommitAt,
		d.DeployStartAt,
		d.DeployedAt,
	)
	if err != nil {
		r.log.Error("failed to insert deployment",
			zap.String("deployment_id", d.Id),
			zap.Error(err),
		)
		return handleDBError(err)
	}
	return nil
}

func (r *DeploymentRepository) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	d, err := scanDeployment(executor(ctx, r.db).QueryRow(ctx, selectDeploymentQuery, id))
	if err != nil {
		return nil, handleDBError(err)
	}
	return d, nil
}

// SetDeployed обновляет deployed_at и возвращает актуальное состояние строки
func (r *DeploymentRepository) SetDeployed(ctx context.Context, id string, at time.Time) (*domain.Deployment, error) {
	d, err := scanDeployment(executor(ctx, r.db).QueryRow(ctx, setDeployedQuery, id, at))
	if err != nil {
		return nil, handleDBError(err)
	}
	return d, nil
}

func (r *DeploymentRepository) List(ctx context.Context, f DeploymentFilter) ([]*domain.Deployment, error) {
	q := r.builder.
		Select(deploymentColumns...).
		From("deployments").
		OrderBy("deploy_start_at DESC", "id ASC").
		Limit(f.Limit).
		Offset(f.Offset)
	if f.ProjectId != "" {
		q = q.Where(squirrel.Eq{"project_id": f.ProjectId})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := executor(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer rows.Close()

	deployments := make([]*domain.Deployment, 0)
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, handleDBError(err)
		}
		deployments = append(deployments, d)
	}
	return deployments, handleDBError(rows.Err())
}

func scanDeployment(row rowScanner) (*domain.Deployment, error) {
	d := &domain.Deployment{}
	if err := row.Scan(&d.Id, &d.ProjectId, &d.FirstCommitAt, &d.DeployStartAt, &d.DeployedAt); err != nil {
		return nil, err
	}
	d.FirstCommitAt = d.FirstCommitAt.UTC()
	d.DeployStartAt = d.DeployStartAt.UTC()
	d.DeployedAt = d.DeployedAt.UTC()
	return d, nil
}
