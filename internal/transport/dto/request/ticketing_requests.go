package request

import "time"

type TicketStatsRequest struct {
	From         *time.Time `json:"from"`
	To           *time.Time `json:"to"`
	UnhashActors []string   `json:"unhash_actors"`
}
