package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"time"
)

// TicketCandidate is a ticket as seen in a provider payload, before hashing and estimation bookkeeping.
type TicketCandidate struct {
	Id                string
	TeamId            string
	ProjectId         string
	CreatedAt         time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	ActorEmail        string
	TicketType        string
	Status            TicketStatus
	ParentTicketId    *string
	CurrentEstimation *float64
}

// HashActorEmail: base64(sha256(email)). Пустой email тоже хэшируется.
func HashActorEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func ParseTicketStatus(s string) (TicketStatus, error) {
	switch status := TicketStatus(s); status {
	case TicketStatusBacklog, TicketStatusTodo, TicketStatusDoing,
		TicketStatusDone, TicketStatusCanceled, TicketStatusUnknown:
		return status, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalidValue, s)
}

func BuildTicket(c TicketCandidate) (*Ticket, error) {
	if c.Id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	if c.ProjectId == "" {
		return nil, fmt.Errorf("%w: project_id", ErrMissingField)
	}
	if c.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: created_at", ErrMissingField)
	}

	status := c.Status
	if status == "" {
		status = TicketStatusUnknown
	}
	ticketType := c.TicketType
	if ticketType == "" {
		ticketType = "unknown"
	}

	t := &Ticket{
		Id:                c.Id,
		TeamId:            c.TeamId,
		ProjectId:         c.ProjectId,
		CreatedAt:         c.CreatedAt.UTC(),
		StartedAt:         utcPtr(c.StartedAt),
		FinishedAt:        utcPtr(c.FinishedAt),
		ActorHash:         HashActorEmail(c.ActorEmail),
		TicketType:        ticketType,
		Status:            status,
		ParentTicketId:    c.ParentTicketId,
		CurrentEstimation: copyFloat(c.CurrentEstimation),
	}

	if t.CurrentEstimation != nil {
		if t.FinishedAt != nil {
			t.FinalEstimation = copyFloat(t.CurrentEstimation)
		}
		if t.FinishedAt == nil || t.StartedAt == nil {
			t.InitialEstimation = copyFloat(t.CurrentEstimation)
		}
	}

	return t, nil
}

func (t *Ticket) IsDone() bool {
	return t.Status == TicketStatusDone
}

func (t *Ticket) IsCanceled() bool {
	return t.Status == TicketStatusCanceled
}

// MinutesToFinish возвращает целое число минут между started_at и finished_at, 0 если одной из дат нет.
func (t *Ticket) MinutesToFinish() float64 {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return math.Floor(t.FinishedAt.Sub(*t.StartedAt).Minutes())
}

// EffectiveStart is started_at, or created_at when the ticket was never started.
func (t *Ticket) EffectiveStart() time.Time {
	if t.StartedAt != nil {
		return *t.StartedAt
	}
	return t.CreatedAt
}

// EstimationDelta returns 0 when either side is undefined.
// A change that passes through an undefined estimation (2 -> nil -> 8) is not reported.
func (t *Ticket) EstimationDelta(previous *float64) float64 {
	if t.CurrentEstimation == nil || previous == nil {
		return 0
	}
	return *t.CurrentEstimation - *previous
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
