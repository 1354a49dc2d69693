package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/lineup/internal/domain/types"
	"github.com/okian/lineup/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
	percentage          = 100
)

type outcome int

const (
	outcomeOK outcome = iota
	outcomeCached
	outcomeRejected
	outcomeInfeasible
	outcomeFailed
	outcomeInvalid
	outcomeUnfair
)

type task struct {
	index int
	team  string
	req   types.LineupRequest
}

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if cfg.Requests < 1 || cfg.Workers < 1 {
		return nil, errors.New("requests and workers must be positive")
	}
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting lineup load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS),
		logger.Int("teams", cfg.Teams),
		logger.Any("seed", cfg.Seed))

	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	tasks := generateTasks(cfg)
	stats.Generated = len(tasks)

	if err := submit(ctx, cfg, client, tasks, stats, log); err != nil {
		return stats, err
	}

	if cfg.Teams > 0 {
		stats.TeamsRead = readBack(ctx, cfg, client, tasks, log)
	}

	if cfg.OutputFile != "" {
		if err := saveRequests(cfg.OutputFile, tasks); err != nil {
			log.Warn(ctx, "failed to save requests", logger.Error(err))
		} else {
			log.Info(ctx, "requests saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if stats.Invalid > 0 {
		return stats, fmt.Errorf("%w: %d schedules", ErrInvalidLineup, stats.Invalid)
	}
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	status, _, err := client.Get(ctx, baseURL+"/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func generateTasks(cfg *Config) []task {
	gen := NewGenerator(cfg)
	teams := make([]string, cfg.Teams)
	for i := range teams {
		teams[i] = "load-" + uuid.NewString()
	}

	out := make([]task, cfg.Requests)
	for i := range out {
		out[i] = task{index: i, req: gen.Request()}
		if len(teams) > 0 {
			out[i].team = teams[i%len(teams)]
		}
	}
	return out
}

// submit fans tasks out to cfg.Workers submitters, paced by an optional limiter.
func submit(ctx context.Context, cfg *Config, client *HTTPClient, tasks []task, stats *Stats, log logger.Logger) error {
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}

	var (
		mu           sync.Mutex
		totalLatency time.Duration
		wg           sync.WaitGroup
	)
	ch := make(chan task, cfg.Workers*2)

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range ch {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				start := time.Now()
				res, err := submitOne(ctx, cfg, client, t)
				elapsed := time.Since(start)
				if err != nil && cfg.Verbose {
					log.Warn(ctx, "request failed", logger.Int("index", t.index), logger.Error(err))
				}

				mu.Lock()
				stats.Submitted++
				totalLatency += elapsed
				stats.MaxLatency = max(stats.MaxLatency, elapsed)
				switch res {
				case outcomeOK:
					stats.Successful++
				case outcomeCached:
					stats.Successful++
					stats.Cached++
				case outcomeRejected:
					stats.Rejected++
				case outcomeInfeasible:
					stats.Infeasible++
				case outcomeInvalid:
					stats.Invalid++
				case outcomeUnfair:
					stats.Successful++
					stats.Unfair++
				default:
					stats.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case ch <- t:
			}
		}
	}()
	wg.Wait()

	if stats.Submitted > 0 {
		stats.MeanLatency = totalLatency / time.Duration(stats.Submitted)
	}
	return ctx.Err()
}

func submitOne(ctx context.Context, cfg *Config, client *HTTPClient, t task) (outcome, error) {
	target := cfg.BaseURL + "/optimize"
	if t.team != "" {
		target = cfg.BaseURL + "/api/teams/" + url.PathEscape(t.team) + "/lineup"
	}

	status, body, err := client.PostJSON(ctx, target, t.req)
	if err != nil {
		return outcomeFailed, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return outcomeRejected, nil
	case http.StatusUnprocessableEntity:
		return outcomeInfeasible, nil
	default:
		return outcomeFailed, fmt.Errorf("status %d: %s", status, body)
	}

	var resp types.LineupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return outcomeFailed, fmt.Errorf("decode response: %w", err)
	}
	if err := VerifyResponse(t.req, resp); err != nil {
		return outcomeInvalid, err
	}
	if err := CheckFairness(resp); err != nil {
		return outcomeUnfair, err
	}
	if resp.Stats.Cached {
		return outcomeCached, nil
	}
	return outcomeOK, nil
}

// readBack fetches each team's latest lineup and returns how many answered.
func readBack(ctx context.Context, cfg *Config, client *HTTPClient, tasks []task, log logger.Logger) int {
	seen := make(map[string]bool)
	read := 0
	for _, t := range tasks {
		if t.team == "" || seen[t.team] {
			continue
		}
		seen[t.team] = true
		status, _, err := client.Get(ctx, cfg.BaseURL+"/api/teams/"+url.PathEscape(t.team)+"/lineup")
		if err != nil || status != http.StatusOK {
			if cfg.Verbose {
				log.Warn(ctx, "team read back failed", logger.String("team", t.team), logger.Int("status", status), logger.Error(err))
			}
			continue
		}
		read++
	}
	return read
}

func saveRequests(filename string, tasks []task) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	reqs := make([]types.LineupRequest, len(tasks))
	for i, t := range tasks {
		reqs[i] = t.req
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, filePermission)
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentage
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("cached", stats.Cached),
		logger.Int("rejected", stats.Rejected),
		logger.Int("infeasible", stats.Infeasible),
		logger.Int("failed", stats.Failed),
		logger.Int("invalid", stats.Invalid),
		logger.Int("unfair", stats.Unfair),
		logger.Int("teamsRead", stats.TeamsRead),
		logger.Duration("duration", stats.Duration),
		logger.Duration("meanLatency", stats.MeanLatency),
		logger.Duration("maxLatency", stats.MaxLatency),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond))
}
