// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/types"
	"github.com/okian/lineup/pkg/logger"
)

const defaultHistoryLimit = 5

// LineupHandler handles lineup generation and retrieval.
type LineupHandler struct {
	deps      Dependencies
	maxRoster int
	logger    logger.Logger
}

// NewLineupHandler creates a new lineup handler.
func NewLineupHandler(deps Dependencies, maxRoster int, l logger.Logger) *LineupHandler {
	return &LineupHandler{deps: deps, maxRoster: maxRoster, logger: l}
}

// HandlePostLineup handles POST /api/teams/{team_id}/lineup.
func (h *LineupHandler) HandlePostLineup(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_lineup"
	teamID, err := teamParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	roster, importance, err := h.decode(w, r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.GenerateLineup(r.Context(), teamID, roster, importance)
	if err != nil {
		h.logFailure(r, op, err)
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleOptimize handles POST /optimize; the result is not stored.
func (h *LineupHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "api.optimize"
	roster, importance, err := h.decode(w, r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.Optimize(r.Context(), roster, importance)
	if err != nil {
		h.logFailure(r, op, err)
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetLineup handles GET /api/teams/{team_id}/lineup.
func (h *LineupHandler) HandleGetLineup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_lineup"
	teamID, err := teamParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.LatestLineup(r.Context(), teamID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHistory handles GET /api/teams/{team_id}/lineups?limit=n.
func (h *LineupHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.lineup_history"
	teamID, err := teamParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer")))
			return
		}
		limit = n
	}
	out, err := h.deps.LineupHistory(r.Context(), teamID, limit)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_id": teamID, "lineups": out})
}

func (h *LineupHandler) decode(w http.ResponseWriter, r *http.Request) (model.Roster, model.Importance, error) {
	var req types.LineupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if len(req.Players) > h.maxRoster {
		return nil, nil, fmt.Errorf("roster of %d players exceeds the limit of %d", len(req.Players), h.maxRoster)
	}
	roster, err := req.ToRoster()
	if err != nil {
		return nil, nil, err
	}
	importance, err := req.ToImportance()
	if err != nil {
		return nil, nil, err
	}
	return roster, importance, nil
}

func (h *LineupHandler) logFailure(r *http.Request, op string, err error) {
	status, body := classify(err)
	log := h.logger.Debug
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		log = h.logger.Error
	}
	log(r.Context(), "lineup request failed",
		logger.String("op", op),
		logger.String("code", body.Code),
		logger.String("request_id", RequestID(r.Context())),
		logger.Error(err),
	)
}

func teamParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("team_id"))
	if id == "" {
		return "", fmt.Errorf("missing team_id")
	}
	return id, nil
}
