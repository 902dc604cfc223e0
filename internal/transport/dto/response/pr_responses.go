package response

import "time"

type PrResponse struct {
	Id              string     `json:"id"`
	TeamId          string     `json:"team_id"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	MergedAt        *time.Time `json:"merged_at"`
	FirstReviewAt   *time.Time `json:"first_review_at"`
	FirstApprovedAt *time.Time `json:"first_approved_at"`
	NbComments      int        `json:"nb_comments"`
	NbReviews       int        `json:"nb_reviews"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
