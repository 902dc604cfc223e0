package response

// TicketStatsResponse: month (YYYY-MM-01) -> by_actor -> actor -> projects
type TicketStatsResponse struct {
	From    string                 `json:"from"`
	To      string                 `json:"to"`
	Summary map[string]*MonthStats `json:"summary"`
}

type MonthStats struct {
	ByActor map[string]*ActorStats `json:"by_actor"`
}

type ActorStats struct {
	ActorMonthlyTime        int64                    `json:"actor_monthly_time"`
	ActorMonthlyEstimation  *float64                 `json:"actor_monthly_estimation"`
	ActorMonthlyTicketCount int                      `json:"actor_monthly_ticket_count"`
	Projects                map[string]*ProjectStats `json:"projects"`
}

type ProjectStats struct {
	SumMonthProjectEstimation           *float64 `json:"sum_month_project_estimation"`
	PercentMonthProjectEstimation       *float64 `json:"percent_month_project_estimation"`
	SumMonthProjectTimeSpentSeconds     int64    `json:"sum_month_project_time_spent_seconds"`
	PercentMonthProjectTimeSpentSeconds *float64 `json:"percent_month_project_time_spent_seconds"`
	ActorMonthlyProjectTicketCount      int      `json:"actor_monthly_project_ticket_count"`
	ActorMonthlyProjectTicketPercent    float64  `json:"actor_monthly_project_ticket_percent"`
}
