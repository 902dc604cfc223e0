package request

import "time"

type CreateIncidentRequest struct {
	Id           string     `json:"id"`
	ProjectId    string     `json:"project_id"`
	DeploymentId string     `json:"deployment_id"`
	TeamId       string     `json:"team_id"`
	StartedAt    *time.Time `json:"started_at"`
	RestoredAt   *time.Time `json:"restored_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

type IncidentDateRequest struct {
	IncidentId string     `json:"-"`
	Date       *time.Time `json:"date"`
}

type ListIncidentsRequest struct {
	Filter string
}
