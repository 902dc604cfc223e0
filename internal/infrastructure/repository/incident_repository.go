package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/em-metrics/internal/domain"
	"go.uber.org/zap"
)

const (
	insertIncidentQuery = `
INSERT INTO incidents (id, project_id, deployment_id, team_id, started_at, restored_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	countIncidentsByProjectQuery = `
SELECT COUNT(*) FROM incidents
WHERE project_id = $1;`

	setRestoredQuery = `
UPDATE incidents
SET restored_at = $2
WHERE id = $1;`

	setFinishedQuery = `
UPDATE incidents
SET finished_at = $2,
    restored_at = COALESCE(restored_at, $3)
WHERE id = $1;`
)

var incidentColumns = []string{"id", "project_id", "deployment_id", "team_id", "started_at", "restored_at", "finished_at"}

type IncidentRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
	log     *zap.Logger
}

func NewIncidentRepository(db *pgxpool.Pool, log *zap.Logger) *IncidentRepository {
	return &IncidentRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:     log,
	}
}

func (r *IncidentRepository) CountByProject(ctx context.Context, projectId string) (int, error) {
	var count int
	if err := executor(ctx, r.db).QueryRow(ctx, countIncidentsByProjectQuery, projectId).Scan(&count); err != nil {
		return 0, handleDBError(err)
	}
	return count, nil
}

func (r *IncidentRepository) Create(ctx context.Context, inc *domain.Incident) error {
	_, err := executor(ctx, r.db).Exec(ctx, insertIncidentQuery,
		inc.Id,
		inc.ProjectId,
		inc.DeploymentId,
		inc.TeamId,
		inc.StartedAt,
		inc.RestoredAt,
		inc.FinishedAt,
	)
	if err != nil {
		r.log.Error("failed to insert incident",
			zap.String("incident_id", inc.Id),
			zap.Error(err),
		)
		return handleDBError(err)
	}
	return nil
}

func (r *IncidentRepository) Get(ctx context.Context, id string) (*domain.Incident, error) {
	query, args, err := r.builder.
		Select(incidentColumns...).
		From("incidents").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	inc, err := scanIncident(executor(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, handleDBError(err)
	}
	return inc, nil
}

func (r *IncidentRepository) SetRestored(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, setRestoredQuery, id, at)
	if err != nil {
		return handleDBError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFinished проставляет finished_at и, если инцидент еще не восстановлен, restored_at
func (r *IncidentRepository) SetFinished(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := executor(ctx, r.db).Exec(ctx, setFinishedQuery, id, at, at)
	if err != nil {
		return handleDBError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает незавершенные инциденты; inProgress оставляет только невосстановленные
func (r *IncidentRepository) List(ctx context.Context, inProgress bool) ([]*domain.Incident, error) {
	q := r.builder.
		Select(incidentColumns...).
		From("incidents").
		OrderBy("started_at ASC", "id ASC")
	if inProgress {
		q = q.Where(squirrel.Eq{"restored_at": nil})
	} else {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"finished_at": nil},
			squirrel.Eq{"restored_at": nil},
		})
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

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, handleDBError(err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, handleDBError(rows.Err())
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	inc := &domain.Incident{}
	var deploymentId, teamId sql.NullString
	var restoredAt, finishedAt sql.NullTime
	err := row.Scan(
		&inc.Id,
		&inc.ProjectId,
		&deploymentId,
		&teamId,
		&inc.StartedAt,
		&restoredAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	inc.StartedAt = inc.StartedAt.UTC()
	inc.DeploymentId = stringPtr(deploymentId)
	inc.TeamId = stringPtr(teamId)
	inc.RestoredAt = timePtr(restoredAt)
	inc.FinishedAt = timePtr(finishedAt)
	return inc, nil
}
