package request

import "time"

type StartDeploymentRequest struct {
	Id            string     `json:"id"`
	ProjectId     string     `json:"project_id"`
	FirstCommitAt *time.Time `json:"first_commit_at"`
	DeployStartAt *time.Time `json:"deploy_start_at"`
	Username      string     `json:"username"`
}

// DeployedRequest: при CreateIfNotExists=true обязательны project_id, first_commit_at и deploy_start_at
type DeployedRequest struct {
	DeploymentId      string     `json:"-"`
	CreateIfNotExists *bool      `json:"create_if_not_exists"`
	ProjectId         string     `json:"project_id"`
	FirstCommitAt     *time.Time `json:"first_commit_at"`
	DeployStartAt     *time.Time `json:"deploy_start_at"`
	DeployedAt        *time.Time `json:"deployed_at"`
	Username          string     `json:"username"`
}

type ListDeploymentsRequest struct {
	ProjectId string
	Limit     int
	Offset    int
}
