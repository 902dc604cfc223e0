package linear

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
)

const (
	typeIssue         = "Issue"
	unknownTicketType = "unknown"
)

type Label struct {
	Id       string  `json:"id"`
	Name     string  `json:"name"`
	ParentId *string `json:"parentId"`
}

type Issue struct {
	Identifier  string     `json:"identifier"`
	Estimate    *float64   `json:"estimate"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Team        *struct {
		Key string `json:"key"`
	} `json:"team"`
	Project *struct {
		Name string `json:"name"`
	} `json:"project"`
	Assignee *struct {
		Email string `json:"email"`
	} `json:"assignee"`
	Parent *struct {
		Identifier string `json:"identifier"`
	} `json:"parent"`
	Labels []Label `json:"labels"`
	State  struct {
		Type string `json:"type"`
	} `json:"state"`
}

type Payload struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func ParsePayload(body []byte) (*Payload, error) {
	p := &Payload{}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, fmt.Errorf("%w: linear payload: %w", domain.ErrInvalidValue, err)
	}
	return p, nil
}

func (p *Payload) Issue() (*Issue, error) {
	issue := &Issue{}
	if err := json.Unmarshal(p.Data, issue); err != nil {
		return nil, fmt.Errorf("%w: linear issue: %w", domain.ErrInvalidValue, err)
	}
	return issue, nil
}

var statusMapping = map[string]domain.TicketStatus{
	"triage":    domain.TicketStatusBacklog,
	"backlog":   domain.TicketStatusBacklog,
	"unstarted": domain.TicketStatusTodo,
	"started":   domain.TicketStatusDoing,
	"completed": domain.TicketStatusDone,
	"canceled":  domain.TicketStatusCanceled,
}

// MapWorkflowState переводит тип состояния Linear в статус тикета
func MapWorkflowState(state string) domain.TicketStatus {
	if status, ok := statusMapping[state]; ok {
		return status
	}
	return domain.TicketStatusUnknown
}

type TicketTypeSelector struct {
	ParentLabelId string   `yaml:"parent_label_id" json:"parent_label_id"`
	AllowList     []string `yaml:"allow_list" json:"allow_list"`
}

// FindTicketType: при заданном parent_label_id берется первая метка с таким родителем,
// иначе первая метка из allow_list.
func FindTicketType(selector TicketTypeSelector, labels []Label) string {
	if selector.ParentLabelId != "" {
		for _, l := range labels {
			if l.ParentId != nil && *l.ParentId == selector.ParentLabelId {
				return l.Name
			}
		}
		return unknownTicketType
	}

	if len(selector.AllowList) == 0 {
		return unknownTicketType
	}
	allowed := make(map[string]struct{}, len(selector.AllowList))
	for _, id := range selector.AllowList {
		allowed[id] = struct{}{}
	}
	for _, l := range labels {
		if _, ok := allowed[l.Id]; ok {
			return l.Name
		}
	}
	return unknownTicketType
}
