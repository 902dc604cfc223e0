package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	locBuckets           = []float64{1, 10, 50, 100, 300, 750, 1250, 1700, 2500, 5000}
	commentsBuckets      = []float64{1, 3, 5, 10, 30, 50, 100}
	reviewMinutesBuckets = []float64{5, 15, 30, 60, 3 * 60, 5 * 60, 15 * 60, 30 * 60, 72 * 60}
	mergeMinutesBuckets  = []float64{5, 15, 30, 60, 3 * 60, 5 * 60, 10 * 60, 15 * 60, 25 * 60, 40 * 60}
	reviewsPerPrBuckets  = []float64{1, 2, 3, 4, 5, 7, 10, 15}
	detectMinutesBuckets = []float64{1, 5, 10, 20, 30, 60, 2 * 60, 3 * 60, 5 * 60, 8 * 60, 15 * 60, 24 * 60, 72 * 60}
	ticketMinutesBuckets = []float64{0, 5, 10, 15, 25, 45, 60, 90, 120, 150, 180, 240, 300, 480, 600, 900}
	estimationBuckets    = linearBuckets(25)
	millisecondBuckets   = prometheus.ExponentialBuckets(1000, 4, 12)
	httpDurationBuckets  = prometheus.DefBuckets
)

const (
	labelTeam       = "team_id"
	labelProject    = "project_id"
	labelTicketType = "ticket_type"
)

// Metrics holds every instrument the service emits.
type Metrics struct {
	PullRequestOpened         *prometheus.CounterVec
	PullRequestClosed         *prometheus.CounterVec
	PullRequestMerged         *prometheus.CounterVec
	PullRequestLocAdded       *prometheus.HistogramVec
	PullRequestLocRemoved     *prometheus.HistogramVec
	PullRequestCommentsReview *prometheus.HistogramVec
	PullRequestFirstReview    *prometheus.HistogramVec
	PullRequestApprove        *prometheus.HistogramVec
	PullRequestMerge          *prometheus.HistogramVec
	PullRequestReviewsPerPr   *prometheus.HistogramVec

	DeploymentStarted   *prometheus.CounterVec
	DeploymentFrequency *prometheus.CounterVec
	DeploymentDuration  *prometheus.HistogramVec
	LeadTimeForChanges  *prometheus.HistogramVec
	ChangeFailure       *prometheus.CounterVec
	IncidentCount       *prometheus.CounterVec
	IncidentRestored    *prometheus.CounterVec
	IncidentFinished    prometheus.Counter
	TimeToDetect        *prometheus.HistogramVec
	TimeToRestore       *prometheus.HistogramVec

	TicketCount                *prometheus.CounterVec
	TimePerTicket              *prometheus.HistogramVec
	TicketEstimationChanged    *prometheus.HistogramVec
	TicketEstimationChangedNeg *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers all instruments on reg; environment is attached as a constant label.
func New(reg prometheus.Registerer, environment string) *Metrics {
	if environment == "" {
		environment = "NO_ENV"
	}
	f := promauto.With(reg)
	env := prometheus.Labels{"environment": environment}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help, ConstLabels: env}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets, ConstLabels: env}, labels)
	}

	ticketLabels := []string{labelTeam, labelProject, labelTicketType}
	incidentFinished := f.NewCounter(prometheus.CounterOpts{
		Name:        "incident_finished",
		Help:        "Incidents finished.",
		ConstLabels: env,
	})

	return &Metrics{
		PullRequestOpened:         counter("pull_request_opened_count", "Pull requests opened.", labelTeam),
		PullRequestClosed:         counter("pull_request_closed_count", "Pull requests closed without merge.", labelTeam),
		PullRequestMerged:         counter("pull_request_merged_count", "Pull requests merged.", labelTeam),
		PullRequestLocAdded:       histogram("pull_request_loc_added", "Lines added per pull request.", locBuckets, labelTeam),
		PullRequestLocRemoved:     histogram("pull_request_loc_removed", "Lines removed per pull request.", locBuckets, labelTeam),
		PullRequestCommentsReview: histogram("pull_request_nb_comments_per_review", "Comments per submitted review.", commentsBuckets, labelTeam),
		PullRequestFirstReview:    histogram("pull_request_time_to_first_review_minutes", "Minutes from opening to first review.", reviewMinutesBuckets, labelTeam),
		PullRequestApprove:        histogram("pull_request_time_to_approve_minutes", "Minutes from opening to first approval.", reviewMinutesBuckets, labelTeam),
		PullRequestMerge:          histogram("pull_request_time_to_merge_minutes", "Minutes from opening to merge.", mergeMinutesBuckets, labelTeam),
		PullRequestReviewsPerPr:   histogram("pull_request_nb_reviews_per_pr", "Reviews counted on a pull request at merge time.", reviewsPerPrBuckets, labelTeam),

		DeploymentStarted:   counter("deployment_started", "Deployments started.", labelProject, labelTeam),
		DeploymentFrequency: counter("deployment_frequency", "Deployments finished.", labelProject, labelTeam),
		DeploymentDuration:  histogram("deployment_duration", "Deployment duration in milliseconds.", millisecondBuckets, labelProject, labelTeam),
		LeadTimeForChanges:  histogram("lead_time_for_changes", "First commit to deployment in milliseconds.", millisecondBuckets, labelProject, labelTeam),
		ChangeFailure:       counter("change_failure_count", "Incidents linked to a deployment.", labelProject),
		IncidentCount:       counter("incident_count", "Incidents declared.", labelProject),
		IncidentRestored:    counter("incident_restored", "Incidents restored.", labelProject),
		IncidentFinished:    incidentFinished,
		TimeToDetect:        histogram("time_to_detect", "Deployment to incident start in minutes.", detectMinutesBuckets, labelProject),
		TimeToRestore:       histogram("time_to_restore", "Incident start to restoration in milliseconds.", millisecondBuckets, labelProject),

		TicketCount:                counter("ticket_count", "Tickets moved to DONE.", ticketLabels...),
		TimePerTicket:              histogram("time_per_ticket", "Minutes from start to finish of a ticket.", ticketMinutesBuckets, ticketLabels...),
		TicketEstimationChanged:    histogram("ticket_estimation_changed", "Positive estimation changes in points.", estimationBuckets, ticketLabels...),
		TicketEstimationChangedNeg: histogram("ticket_estimation_changed_negative", "Magnitude of negative estimation changes in points.", estimationBuckets, ticketLabels...),

		HTTPRequests: counter("http_requests_total", "HTTP requests served.", "method", "route", "status"),
		HTTPDuration: histogram("http_request_duration_seconds", "HTTP request latency.", httpDurationBuckets, "method", "route"),
	}
}

// linearBuckets returns 0..n point boundaries.
func linearBuckets(n int) []float64 {
	return prometheus.LinearBuckets(0, 1, n+1)
}
