package response

import "github.com/niklvrr/em-metrics/internal/domain"

type ListIncidentsResponse struct {
	Incidents []*domain.Incident `json:"incidents"`
}
