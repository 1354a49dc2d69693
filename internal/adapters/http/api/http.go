// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/types"
	"github.com/okian/lineup/pkg/logger"
)

const (
	defaultMaxRosterSize = 40
	maxBodyBytes         = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GenerateLineup(ctx context.Context, teamID string, roster model.Roster, importance model.Importance) (types.LineupResponse, error)
	Optimize(ctx context.Context, roster model.Roster, importance model.Importance) (types.LineupResponse, error)
	LatestLineup(ctx context.Context, teamID string) (types.LineupResponse, error)
	LineupHistory(ctx context.Context, teamID string, n int) ([]types.LineupResponse, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	lineupHandler *LineupHandler

	limiter *Limiter
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxRoster int
	rps       float64
	burst     int
	logger    logger.Logger
}

// WithMaxRosterSize rejects larger rosters with 400.
func WithMaxRosterSize(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxRoster = n
		}
	}
}

// WithRateLimit limits the optimization endpoints; rps 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		c.rps, c.burst = rps, burst
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxRoster: defaultMaxRosterSize, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		lineupHandler: NewLineupHandler(deps, cfg.maxRoster, cfg.logger),
		limiter:       NewLimiter(cfg.rps, cfg.burst),
		logger:        cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limited := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return RequestIDMiddleware(MetricsMiddleware(s.limiter.Middleware(h, endpoint), endpoint))
	}

	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /optimize", limited(s.lineupHandler.HandleOptimize, "optimize"))
	mux.HandleFunc("POST /api/teams/{team_id}/lineup", limited(s.lineupHandler.HandlePostLineup, "lineup"))
	mux.HandleFunc("GET /api/teams/{team_id}/lineup", RequestIDMiddleware(MetricsMiddleware(s.lineupHandler.HandleGetLineup, "lineup")))
	mux.HandleFunc("GET /api/teams/{team_id}/lineups", RequestIDMiddleware(MetricsMiddleware(s.lineupHandler.HandleHistory, "lineups")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}
