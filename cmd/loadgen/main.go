package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niklvrr/em-metrics/internal/integrations/signature"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type options struct {
	baseURL      string
	rps          int
	duration     time.Duration
	token        string
	githubSecret string
	project      string
	author       string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "service base url")
	flag.IntVar(&opts.rps, "rate", 5, "requests per second")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "attack duration")
	flag.StringVar(&opts.token, "token", os.Getenv("EM_METRICS_TOKEN_AUTH"), "api token")
	flag.StringVar(&opts.githubSecret, "github-secret", os.Getenv("GITHUB_WEBHOOK_SECRET"), "github webhook secret")
	flag.StringVar(&opts.project, "project", "loadgen", "project id used for deployments and incidents")
	flag.StringVar(&opts.author, "author", "loadgen-bot", "github login used for pull requests")
	flag.Parse()

	scenario := flag.Arg(0)
	if scenario == "" {
		fmt.Println("Usage: loadgen [flags] <scenario>")
		fmt.Println("Scenarios: health, prs, deployments, incidents, github, stats, all")
		os.Exit(1)
	}

	targeter, err := newTargeter(scenario, opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printMetrics(runAttack(targeter, opts, scenario))
}

func newTargeter(scenario string, opts options) (vegeta.Targeter, error) {
	switch scenario {
	case "health":
		return vegeta.NewStaticTargeter(vegeta.Target{Method: http.MethodGet, URL: opts.baseURL + "/health"}), nil
	case "prs":
		return lifecycleTargeter(opts, pullRequestSteps), nil
	case "deployments":
		return lifecycleTargeter(opts, deploymentSteps), nil
	case "incidents":
		return lifecycleTargeter(opts, incidentSteps), nil
	case "github":
		return lifecycleTargeter(opts, githubSteps), nil
	case "stats":
		return lifecycleTargeter(opts, statsSteps), nil
	case "all":
		return lifecycleTargeter(opts, allSteps), nil
	}
	return nil, fmt.Errorf("unknown scenario: %s", scenario)
}

// step строит запрос по идентификатору текущего прогона
type step func(opts options, id string) vegeta.Target

// lifecycleTargeter проходит шаги по кругу; новый прогон получает свежий uuid
func lifecycleTargeter(opts options, steps []step) vegeta.Targeter {
	var (
		mu  sync.Mutex
		pos int
		id  = uuid.NewString()
	)

	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}

		mu.Lock()
		if pos == len(steps) {
			pos = 0
			id = uuid.NewString()
		}
		s, runId := steps[pos], id
		pos++
		mu.Unlock()

		*tgt = s(opts, runId)
		return nil
	}
}

func apiTarget(opts options, method, path string, body any) vegeta.Target {
	header := http.Header{"Content-Type": []string{"application/json"}}
	if opts.token != "" {
		header.Set("Authorization", "Token "+opts.token)
	}

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	return vegeta.Target{
		Method: method,
		URL:    opts.baseURL + "/api/v1" + path,
		Body:   payload,
		Header: header,
	}
}

var pullRequestSteps = []step{
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/pull-requests", map[string]any{
			"id":        id,
			"author":    opts.author,
			"additions": 120,
			"deletions": 40,
		})
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/pull-requests/"+id+"/reviewed", map[string]any{
			"approved":    true,
			"nb_comments": 2,
		})
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/pull-requests/"+id+"/merged", nil)
	},
}

var deploymentSteps = []step{
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/deployments", map[string]any{
			"id":              id,
			"project_id":      opts.project,
			"first_commit_at": time.Now().Add(-2 * time.Hour).UTC(),
		})
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/deployments/"+id+"/deployed", map[string]any{
			"create_if_not_exists": false,
		})
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodGet, "/deployments?project_id="+opts.project+"&limit=20", nil)
	},
}

var incidentSteps = []step{
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/incidents", map[string]any{
			"id":         id,
			"project_id": opts.project,
		})
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/incidents/"+id+"/restored", nil)
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/incidents/"+id+"/finished", nil)
	},
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodGet, "/incidents?filter=in-progress", nil)
	},
}

var statsSteps = []step{
	func(opts options, id string) vegeta.Target {
		return apiTarget(opts, http.MethodPost, "/ticketing/stats", map[string]any{})
	},
	func(opts options, id string) vegeta.Target {
		t := apiTarget(opts, http.MethodPost, "/ticketing/stats", map[string]any{})
		t.URL += "?format=csv"
		return t
	},
}

// githubSteps шлет подписанный вебхук pull_request; numeric id берется из uuid
var githubSteps = []step{
	func(opts options, id string) vegeta.Target {
		u := uuid.MustParse(id)
		body, _ := json.Marshal(map[string]any{
			"action":       "opened",
			"installation": map[string]any{"id": 1},
			"pull_request": map[string]any{
				"id":         int64(u.ID()),
				"number":     int(u.ID() % 10000),
				"user":       map[string]any{"login": opts.author},
				"created_at": time.Now().UTC(),
				"additions":  10,
				"deletions":  3,
			},
		})
		return vegeta.Target{
			Method: http.MethodPost,
			URL:    opts.baseURL + "/webhooks/github",
			Body:   body,
			Header: http.Header{
				"Content-Type":        []string{"application/json"},
				"X-GitHub-Event":      []string{"pull_request"},
				"X-GitHub-Delivery":   []string{id},
				"X-Hub-Signature-256": []string{"sha256=" + signature.Compute([]byte(opts.githubSecret), body)},
			},
		}
	},
}

var allSteps = concat(pullRequestSteps, deploymentSteps, incidentSteps, statsSteps)

func concat(groups ...[]step) []step {
	var out []step
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func runAttack(targeter vegeta.Targeter, opts options, name string) vegeta.Metrics {
	rate := vegeta.Rate{Freq: opts.rps, Per: time.Second}
	attacker := vegeta.NewAttacker(vegeta.Workers(1), vegeta.MaxWorkers(1))

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, opts.duration, name) {
		metrics.Add(res)
	}
	metrics.Close()

	return metrics
}

func printMetrics(metrics vegeta.Metrics) {
	fmt.Printf("\n=== Load Test Results ===\n\n")
	fmt.Printf("Requests Total:     %d\n", metrics.Requests)
	fmt.Printf("Success Rate:       %.2f%%\n", metrics.Success*100)
	fmt.Printf("Duration:           %v\n", metrics.Duration)

	if metrics.Requests == 0 {
		return
	}

	fmt.Printf("\nLatency:\n")
	fmt.Printf("  Mean:             %v\n", metrics.Latencies.Mean)
	fmt.Printf("  P50:              %v\n", metrics.Latencies.P50)
	fmt.Printf("  P95:              %v\n", metrics.Latencies.P95)
	fmt.Printf("  P99:              %v\n", metrics.Latencies.P99)
	fmt.Printf("  Max:              %v\n", metrics.Latencies.Max)

	fmt.Printf("\nStatus Codes:\n")
	for code, count := range metrics.StatusCodes {
		fmt.Printf("  %s: %d\n", code, count)
	}

	if len(metrics.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, err := range metrics.Errors {
			fmt.Printf("  %s\n", err)
		}
	}
	fmt.Printf("\n")
}
