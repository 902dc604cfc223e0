package response

import "github.com/niklvrr/em-metrics/internal/domain"

type DeploymentResponse struct {
	Deployment *domain.Deployment `json:"deployment"`
	TeamId     string             `json:"team_id"`
}

type ListDeploymentsResponse struct {
	Deployments []*domain.Deployment `json:"deployments"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}
