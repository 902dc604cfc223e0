package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/em-metrics/internal/domain"
	"go.uber.org/zap"
)

const (
	insertTicketQuery = `
INSERT INTO tickets (
    id, team_id, project_id, created_at, started_at, finished_at, actor_hash, ticket_type,
    status, parent_ticket_id, initial_estimation, current_estimation, final_estimation
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	// initial_estimation не трогаем, final_estimation пишется один раз.
	// FOR UPDATE сериализует параллельные апдейты, prev.status отдает статус до изменения
	updateTicketQuery = `
WITH prev AS (
    SELECT id, status FROM tickets WHERE id = $1 FOR UPDATE
)
UPDATE tickets AS t
SET team_id = $2,
    project_id = $3,
    started_at = $4,
    finished_at = $5,
    actor_hash = $6,
    ticket_type = $7,
    status = $8,
    parent_ticket_id = $9,
    current_estimation = $10,
    final_estimation = COALESCE(t.final_estimation, $11)
FROM prev
WHERE t.id = prev.id
RETURNING prev.status;`

	hasChildrenQuery = `
SELECT EXISTS (
    SELECT 1 FROM tickets WHERE parent_ticket_id = $1
);`
)

var ticketColumns = []string{
	"id", "team_id", "project_id", "created_at", "started_at", "finished_at", "actor_hash",
	"ticket_type", "status", "parent_ticket_id", "initial_estimation", "current_estimation", "final_estimation",
}

type TicketRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
	log     *zap.Logger
}

func NewTicketRepository(db *pgxpool.Pool, log *zap.Logger) *TicketRepository {
	return &TicketRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:     log,
	}
}

func (r *TicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := r.builder.
		Select(ticketColumns...).
		From("tickets").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTicket(executor(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, handleDBError(err)
	}
	return t, nil
}

func (r *TicketRepository) Insert(ctx context.Context, t *domain.Ticket) error {
	_, err := executor(ctx, r.db).Exec(ctx, insertTicketQuery,
		t.Id,
		t.TeamId,
		t.ProjectId,
		t.CreatedAt,
		t.StartedAt,
		t.FinishedAt,
		t.ActorHash,
		t.TicketType,
		string(t.Status),
		t.ParentTicketId,
		t.InitialEstimation,
		t.CurrentEstimation,
		t.FinalEstimation,
	)
	if err != nil {
		r.log.Error("failed to insert ticket",
			zap.String("ticket_id", t.Id),
			zap.Error(err),
		)
		return handleDBError(err)
	}
	return nil
}

// Update перезаписывает тикет и возвращает статус, который был до обновления.
func (r *TicketRepository) Update(ctx context.Context, t *domain.Ticket) (domain.TicketStatus, error) {
	var previous string
	err := executor(ctx, r.db).QueryRow(ctx, updateTicketQuery,
		t.Id,
		t.TeamId,
		t.ProjectId,
		t.StartedAt,
		t.FinishedAt,
		t.ActorHash,
		t.TicketType,
		string(t.Status),
		t.ParentTicketId,
		t.CurrentEstimation,
		t.FinalEstimation,
	).Scan(&previous)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Error("failed to update ticket",
				zap.String("ticket_id", t.Id),
				zap.Error(err),
			)
		}
		return "", handleDBError(err)
	}
	return domain.TicketStatus(previous), nil
}

func (r *TicketRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := executor(ctx, r.db).QueryRow(ctx, hasChildrenQuery, id).Scan(&exists); err != nil {
		return false, handleDBError(err)
	}
	return exists, nil
}

// ListFinished возвращает завершенные тикеты, у которых finished_at <= to
// и эффективное начало (started_at или created_at) попадает в [from, to].
func (r *TicketRepository) ListFinished(ctx context.Context, from, to time.Time) ([]*domain.Ticket, error) {
	query, args, err := r.builder.
		Select(ticketColumns...).
		From("tickets").
		Where(squirrel.NotEq{"finished_at": nil}).
		Where(squirrel.LtOrEq{"finished_at": to}).
		Where(squirrel.GtOrEq{"COALESCE(started_at, created_at)": from}).
		Where(squirrel.LtOrEq{"COALESCE(started_at, created_at)": to}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := executor(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, handleDBError(err)
		}
		tickets = append(tickets, t)
	}
	return tickets, handleDBError(rows.Err())
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var (
		teamId, parentId                 sql.NullString
		status                           string
		startedAt, finishedAt            sql.NullTime
		initialEst, currentEst, finalEst sql.NullFloat64
	)
	err := row.Scan(
		&t.Id,
		&teamId,
		&t.ProjectId,
		&t.CreatedAt,
		&startedAt,
		&finishedAt,
		&t.ActorHash,
		&t.TicketType,
		&status,
		&parentId,
		&initialEst,
		&currentEst,
		&finalEst,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.TeamId = teamId.String
	t.Status = domain.TicketStatus(status)
	t.StartedAt = timePtr(startedAt)
	t.FinishedAt = timePtr(finishedAt)
	t.ParentTicketId = stringPtr(parentId)
	t.InitialEstimation = floatPtr(initialEst)
	t.CurrentEstimation = floatPtr(currentEst)
	t.FinalEstimation = floatPtr(finalEst)
	return t, nil
}
