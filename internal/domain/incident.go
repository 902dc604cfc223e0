package domain

import (
	"fmt"
	"time"
)

type IncidentParams struct {
	Id           string
	ProjectId    string
	DeploymentId string
	TeamId       string
	StartedAt    *time.Time
	RestoredAt   *time.Time
	FinishedAt   *time.Time
}

// IncidentId формирует идентификатор вида incident_<project>_<n>.
func IncidentId(projectId string, seq int) string {
	return fmt.Sprintf("incident_%s_%d", projectId, seq)
}

func NewIncident(p IncidentParams, now time.Time) (*Incident, error) {
	if p.Id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	if p.ProjectId == "" {
		return nil, fmt.Errorf("%w: project_id", ErrMissingField)
	}

	inc := &Incident{
		Id:         p.Id,
		ProjectId:  p.ProjectId,
		StartedAt:  orNow(p.StartedAt, now),
		RestoredAt: utcPtr(p.RestoredAt),
		FinishedAt: utcPtr(p.FinishedAt),
	}
	if p.DeploymentId != "" {
		id := p.DeploymentId
		inc.DeploymentId = &id
	}
	if p.TeamId != "" {
		team := p.TeamId
		inc.TeamId = &team
	}

	return inc, nil
}

// TimeToRestore is only meaningful once restored_at is set.
func (i *Incident) TimeToRestore() time.Duration {
	if i.RestoredAt == nil {
		return 0
	}
	return i.RestoredAt.Sub(i.StartedAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
