// Package loadtest drives a running lineup service with random rosters and
// checks every returned schedule.
package loadtest

import (
	"runtime"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Requests        int           // Number of lineup requests to submit
	Workers         int           // Number of concurrent submitters
	RPS             float64       // Submission rate limit; 0 submits as fast as possible
	Timeout         time.Duration // HTTP request timeout
	Teams           int           // Distinct teams to store lineups under; 0 uses /optimize
	MinPlayers      int           // Smallest generated roster
	MaxPlayers      int           // Largest generated roster
	CannotPlayRatio float64       // Chance a preference is cannotPlay
	WantsRatio      float64       // Chance a preference is wantsToPlay
	Seed            uint64        // Generator seed; equal seeds give equal rosters
	OutputFile      string        // Optional file for the generated requests
	Verbose         bool          // Log every failed request
}

// DefaultConfig returns a Config with the tool's defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:9080",
		Requests:        500,
		Workers:         runtime.NumCPU() * 2,
		Timeout:         30 * time.Second,
		MinPlayers:      10,
		MaxPlayers:      15,
		CannotPlayRatio: 0.2,
		WantsRatio:      0.2,
		Seed:            1,
	}
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Successful  int
	Cached      int
	Rejected    int // 429 from the limiter or queue backpressure
	Infeasible  int // 422, the roster cannot be fielded
	Failed      int // transport errors and unexpected statuses
	Invalid     int // 200 with a schedule that breaks a lineup invariant
	Unfair      int // 200 with bench time spread wider than the fairness bound
	TeamsRead   int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
}
