package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type EventType string

const (
	EventPullRequest       EventType = "pull_request"
	EventPullRequestReview EventType = "pull_request_review"
)

var (
	ErrInvalidPayload      = errors.New("invalid github event payload")
	ErrMissingInstallation = errors.New("could not find github installation id")
)

type User struct {
	Login string `json:"login"`
}

type Installation struct {
	Id int64 `json:"id"`
}

type Repository struct {
	FullName string `json:"full_name"`
}

type PullRequest struct {
	Id        int64      `json:"id"`
	Number    int        `json:"number"`
	User      *User      `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	MergedAt  *time.Time `json:"merged_at"`
	Merged    bool       `json:"merged"`
	Additions *int       `json:"additions"`
	Deletions *int       `json:"deletions"`
}

type Review struct {
	Id          int64      `json:"id"`
	State       string     `json:"state"`
	User        *User      `json:"user"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// Event общий конверт вебхука; поля заполняются в зависимости от типа
type Event struct {
	Type         EventType     `json:"-"`
	Action       string        `json:"action"`
	Installation *Installation `json:"installation"`
	Repository   *Repository   `json:"repository"`
	PullRequest  *PullRequest  `json:"pull_request"`
	Review       *Review       `json:"review"`
}

func ParseEvent(eventType string, body []byte) (*Event, error) {
	event := &Event{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	event.Type = EventType(eventType)
	return event, nil
}

func (e *Event) InstallationId() (int64, error) {
	if e.Installation == nil || e.Installation.Id == 0 {
		return 0, ErrMissingInstallation
	}
	return e.Installation.Id, nil
}

func (e *Event) PullRequestId() string {
	return strconv.FormatInt(e.PullRequest.Id, 10)
}

func (e *Event) authorLogin() string {
	if e.PullRequest == nil || e.PullRequest.User == nil {
		return ""
	}
	return e.PullRequest.User.Login
}

func (e *Event) reviewerLogin() string {
	if e.Review == nil || e.Review.User == nil {
		return ""
	}
	return e.Review.User.Login
}
