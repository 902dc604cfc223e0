package domain

import (
	"fmt"
	"time"
)

type DeploymentParams struct {
	Id            string
	ProjectId     string
	FirstCommitAt *time.Time
	DeployStartAt *time.Time
	DeployedAt    *time.Time
}

func NewDeployment(p DeploymentParams, now time.Time) (*Deployment, error) {
	if p.Id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	if p.ProjectId == "" {
		return nil, fmt.Errorf("%w: project_id", ErrMissingField)
	}
	if p.FirstCommitAt == nil || p.FirstCommitAt.IsZero() {
		return nil, fmt.Errorf("%w: first_commit_at", ErrMissingField)
	}

	return &Deployment{
		Id:            p.Id,
		ProjectId:     p.ProjectId,
		FirstCommitAt: p.FirstCommitAt.UTC(),
		DeployStartAt: orNow(p.DeployStartAt, now),
		DeployedAt:    orNow(p.DeployedAt, now),
	}, nil
}

// Duration is the time between the start of the deployment and its completion.
func (d *Deployment) Duration() time.Duration {
	return d.DeployedAt.Sub(d.DeployStartAt)
}

// LeadTime is the time from the first commit to the deployment.
func (d *Deployment) LeadTime() time.Duration {
	return d.DeployedAt.Sub(d.FirstCommitAt)
}

func orNow(t *time.Time, now time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now.UTC()
	}
	return t.UTC()
}
