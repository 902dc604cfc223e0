package domain

import (
	"fmt"
	"time"
)

// NewPullRequest собирает PR в состоянии OPEN.
// Пустой teamId превращается в UnknownTeam, отсутствующая дата открытия в now.
func NewPullRequest(id, teamId string, openedAt *time.Time, now time.Time) (*PullRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	if teamId == "" {
		teamId = UnknownTeam
	}

	opened := now
	if openedAt != nil && !openedAt.IsZero() {
		opened = *openedAt
	}

	return &PullRequest{
		Id:       id,
		TeamId:   teamId,
		OpenedAt: opened.UTC(),
	}, nil
}

// MinutesSinceOpened возвращает разницу в минутах с дробной частью.
func (p *PullRequest) MinutesSinceOpened(at time.Time) float64 {
	return at.Sub(p.OpenedAt).Minutes()
}
