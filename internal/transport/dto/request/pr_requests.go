package request

import "time"

type CreatePrRequest struct {
	Id        string     `json:"id"`
	TeamId    string     `json:"team_id"`
	Author    string     `json:"author"`
	OpenedAt  *time.Time `json:"opened_at"`
	Additions *int       `json:"additions"`
	Deletions *int       `json:"deletions"`
}

type ReviewPrRequest struct {
	PrId       string     `json:"-"`
	Approved   bool       `json:"approved"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	NbComments int        `json:"nb_comments"`
}

type ClosePrRequest struct {
	PrId     string     `json:"-"`
	ClosedAt *time.Time `json:"closed_at"`
}

type MergePrRequest struct {
	PrId     string     `json:"-"`
	MergedAt *time.Time `json:"merged_at"`
}
