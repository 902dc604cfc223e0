package service

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/niklvrr/em-metrics/internal/domain"
	"github.com/niklvrr/em-metrics/internal/transport/dto/response"
)

const monthLayout = "2006-01-02"

// TicketStatsRow одна строка на (месяц, проект, актор)
type TicketStatsRow struct {
	ActorMonthlyTicketCount             int
	ActorMonthlyProjectTicketCount      int
	ActorMonthlyProjectTicketPercent    float64
	ActorHash                           string
	ActorMonthlyEstimation              *float64
	ActorMonthlyTime                    int64
	ProjectId                           string
	Month                               string
	SumMonthProjectEstimation           *float64
	PercentMonthProjectEstimation       *float64
	SumMonthProjectTimeSpentSeconds     int64
	PercentMonthProjectTimeSpentSeconds *float64
}

var ticketStatsColumns = []string{
	"actor_monthly_ticket_count",
	"actor_monthly_project_ticket_count",
	"actor_monthly_project_ticket_percent",
	"actor_hash",
	"actor_monthly_estimation",
	"actor_monthly_time",
	"project_id",
	"month",
	"sum_month_project_estimation",
	"percent_month_project_estimation",
	"sum_month_project_time_spent_seconds",
	"percent_month_project_time_spent_seconds",
}

type actorMonthKey struct {
	month string
	actor string
}

type actorProjectKey struct {
	actorMonthKey
	project string
}

type ticketTotals struct {
	count      int
	estimation *float64
	seconds    int64
}

func (t *ticketTotals) add(ticket *domain.Ticket) {
	t.count++
	if ticket.CurrentEstimation != nil {
		sum := *ticket.CurrentEstimation
		if t.estimation != nil {
			sum += *t.estimation
		}
		t.estimation = &sum
	}
	t.seconds += ticket.FinishedAt.Unix() - ticket.EffectiveStart().Unix()
}

// AggregateTicketStats считает суммы по (месяц, актор), затем доли проектов от этих сумм.
// Тикеты без finished_at пропускаются, фильтрация по окну делается в запросе.
func AggregateTicketStats(tickets []*domain.Ticket) []TicketStatsRow {
	actorTotals := make(map[actorMonthKey]*ticketTotals)
	projectTotals := make(map[actorProjectKey]*ticketTotals)

	// Первый проход: суммы по актору за месяц
	for _, t := range tickets {
		if t.FinishedAt == nil {
			continue
		}
		key := actorMonthKey{month: monthOf(t.CreatedAt), actor: t.ActorHash}
		totals, ok := actorTotals[key]
		if !ok {
			totals = &ticketTotals{}
			actorTotals[key] = totals
		}
		totals.add(t)

		pkey := actorProjectKey{actorMonthKey: key, project: t.ProjectId}
		ptotals, ok := projectTotals[pkey]
		if !ok {
			ptotals = &ticketTotals{}
			projectTotals[pkey] = ptotals
		}
		ptotals.add(t)
	}

	// Второй проход: доли проектов
	rows := make([]TicketStatsRow, 0, len(projectTotals))
	for key, p := range projectTotals {
		a := actorTotals[key.actorMonthKey]
		rows = append(rows, TicketStatsRow{
			ActorMonthlyTicketCount:             a.count,
			ActorMonthlyProjectTicketCount:      p.count,
			ActorMonthlyProjectTicketPercent:    float64(p.count) / float64(a.count),
			ActorHash:                           key.actor,
			ActorMonthlyEstimation:              a.estimation,
			ActorMonthlyTime:                    a.seconds,
			ProjectId:                           key.project,
			Month:                               key.month,
			SumMonthProjectEstimation:           p.estimation,
			PercentMonthProjectEstimation:       ratio(p.estimation, a.estimation),
			SumMonthProjectTimeSpentSeconds:     p.seconds,
			PercentMonthProjectTimeSpentSeconds: secondsRatio(p.seconds, a.seconds),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		if rows[i].ProjectId != rows[j].ProjectId {
			return rows[i].ProjectId < rows[j].ProjectId
		}
		return rows[i].ActorHash < rows[j].ActorHash
	})
	return rows
}

// SummarizeTicketStats собирает вложенное представление month -> by_actor -> actor -> projects.
func SummarizeTicketStats(rows []TicketStatsRow, actors map[string]string) map[string]*response.MonthStats {
	summary := make(map[string]*response.MonthStats)
	for _, row := range rows {
		month, ok := summary[row.Month]
		if !ok {
			month = &response.MonthStats{ByActor: make(map[string]*response.ActorStats)}
			summary[row.Month] = month
		}

		actor := unhashActor(row.ActorHash, actors)
		stats, ok := month.ByActor[actor]
		if !ok {
			stats = &response.ActorStats{
				ActorMonthlyTime:        row.ActorMonthlyTime,
				ActorMonthlyEstimation:  row.ActorMonthlyEstimation,
				ActorMonthlyTicketCount: row.ActorMonthlyTicketCount,
				Projects:                make(map[string]*response.ProjectStats),
			}
			month.ByActor[actor] = stats
		}

		stats.Projects[row.ProjectId] = &response.ProjectStats{
			SumMonthProjectEstimation:           row.SumMonthProjectEstimation,
			PercentMonthProjectEstimation:       row.PercentMonthProjectEstimation,
			SumMonthProjectTimeSpentSeconds:     row.SumMonthProjectTimeSpentSeconds,
			PercentMonthProjectTimeSpentSeconds: row.PercentMonthProjectTimeSpentSeconds,
			ActorMonthlyProjectTicketCount:      row.ActorMonthlyProjectTicketCount,
			ActorMonthlyProjectTicketPercent:    row.ActorMonthlyProjectTicketPercent,
		}
	}
	return summary
}

// WriteTicketStatsCSV пишет заголовок и строки; пустой набор дает пустой вывод.
func WriteTicketStatsCSV(w io.Writer, rows []TicketStatsRow, actors map[string]string) error {
	if len(rows) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ticketStatsColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.ActorMonthlyTicketCount),
			strconv.Itoa(row.ActorMonthlyProjectTicketCount),
			formatFloat(&row.ActorMonthlyProjectTicketPercent),
			unhashActor(row.ActorHash, actors),
			formatFloat(row.ActorMonthlyEstimation),
			strconv.FormatInt(row.ActorMonthlyTime, 10),
			row.ProjectId,
			row.Month,
			formatFloat(row.SumMonthProjectEstimation),
			formatFloat(row.PercentMonthProjectEstimation),
			strconv.FormatInt(row.SumMonthProjectTimeSpentSeconds, 10),
			formatFloat(row.PercentMonthProjectTimeSpentSeconds),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func monthOf(t time.Time) string {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(monthLayout)
}

func ratio(part, total *float64) *float64 {
	if part == nil || total == nil || *total == 0 {
		return nil
	}
	v := *part / *total
	return &v
}

func secondsRatio(part, total int64) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(part) / float64(total)
	return &v
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func unhashActor(hash string, actors map[string]string) string {
	if email, ok := actors[hash]; ok {
		return email
	}
	return hash
}
