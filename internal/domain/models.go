package domain

import (
	"time"
)

// UnknownTeam is the team_id label used when attribution is ambiguous or absent.
const UnknownTeam = "unknown"

type PullRequest struct {
	Id              string
	TeamId          string
	OpenedAt        time.Time
	ClosedAt        *time.Time
	MergedAt        *time.Time
	FirstReviewAt   *time.Time
	FirstApprovedAt *time.Time
	NbComments      int
	NbReviews       int
}

type Review struct {
	Approved   bool
	ReviewedAt time.Time
	NbComments int
}

type Deployment struct {
	Id            string    `json:"id"`
	ProjectId     string    `json:"project_id"`
	FirstCommitAt time.Time `json:"first_commit_at"`
	DeployStartAt time.Time `json:"deploy_start_at"`
	DeployedAt    time.Time `json:"deployed_at"`
}

type Incident struct {
	Id           string     `json:"id"`
	ProjectId    string     `json:"project_id"`
	DeploymentId *string    `json:"deployment_id"`
	TeamId       *string    `json:"team_id"`
	StartedAt    time.Time  `json:"started_at"`
	RestoredAt   *time.Time `json:"restored_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

type TicketStatus string

const (
	TicketStatusBacklog  TicketStatus = "BACKLOG"
	TicketStatusTodo     TicketStatus = "TODO"
	TicketStatusDoing    TicketStatus = "DOING"
	TicketStatusDone     TicketStatus = "DONE"
	TicketStatusCanceled TicketStatus = "CANCELED"
	TicketStatusUnknown  TicketStatus = "UNKNOWN"
)

type Ticket struct {
	Id                string
	TeamId            string
	ProjectId         string
	CreatedAt         time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	ActorHash         string
	TicketType        string
	Status            TicketStatus
	ParentTicketId    *string
	InitialEstimation *float64
	CurrentEstimation *float64
	FinalEstimation   *float64
}
