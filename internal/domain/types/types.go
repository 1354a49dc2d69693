// Package types contains the wire shapes shared by the HTTP API, the service
// and the load tool.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/lineup/internal/domain/model"
)

// LineupRequest is the body of the lineup endpoints.
type LineupRequest struct {
	Players    []PlayerInput   `json:"players"`
	Importance ImportanceInput `json:"importance"`
}

// PlayerInput accepts both the web client shape and the stored document shape.
type PlayerInput struct {
	ID          string
	Name        string
	Skill       float64
	Gender      string
	Preferences map[string]PreferenceValue
	Playing     bool
}

type playerWire struct {
	ID          string                     `json:"id"`
	PlayerID    string                     `json:"player_id"`
	Name        string                     `json:"name"`
	PlayerName  string                     `json:"player_name"`
	Skill       flexFloat                  `json:"skill"`
	Gender      string                     `json:"gender"`
	Positions   map[string]PreferenceValue `json:"positions"`
	Preferences map[string]PreferenceValue `json:"preferences"`
	Playing     *bool                      `json:"playing"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PlayerInput) UnmarshalJSON(data []byte) error {
	var w playerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = PlayerInput{
		ID:          firstNonEmpty(w.ID, w.PlayerID),
		Name:        firstNonEmpty(w.Name, w.PlayerName),
		Skill:       float64(w.Skill),
		Gender:      w.Gender,
		Preferences: w.Positions,
		Playing:     w.Playing == nil || *w.Playing,
	}
	if p.Preferences == nil {
		p.Preferences = w.Preferences
	}
	return nil
}

// MarshalJSON emits the web client shape.
func (p PlayerInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string                     `json:"id"`
		Name      string                     `json:"name"`
		Skill     float64                    `json:"skill"`
		Gender    string                     `json:"gender,omitempty"`
		Positions map[string]PreferenceValue `json:"positions"`
		Playing   bool                       `json:"playing"`
	}{p.ID, p.Name, p.Skill, p.Gender, p.Preferences, p.Playing})
}

// PreferenceValue is either a bare label or a select option {"value","label"}.
type PreferenceValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *PreferenceValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var opt struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &opt); err != nil {
			return err
		}
		*v = PreferenceValue(opt.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("preference must be a string or an option object: %w", err)
	}
	*v = PreferenceValue(s)
	return nil
}

// ImportanceInput accepts {"1B": 50, ...} or {"importance": {...}}.
type ImportanceInput map[string]float64

// UnmarshalJSON implements json.Unmarshaler.
func (imp *ImportanceInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if inner, ok := raw["importance"]; ok && len(raw) == 1 {
		return imp.UnmarshalJSON(inner)
	}
	out := make(ImportanceInput, len(raw))
	for k, v := range raw {
		var f flexFloat
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("importance %s: %w", k, err)
		}
		out[k] = float64(f)
	}
	*imp = out
	return nil
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a number")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", s)
	}
	*f = flexFloat(n)
	return nil
}

// ToRoster converts playing players to the domain roster. Positions and
// preference labels are parsed; range checks are left to the domain.
func (r LineupRequest) ToRoster() (model.Roster, error) {
	roster := make(model.Roster, 0, len(r.Players))
	for i, in := range r.Players {
		if !in.Playing {
			continue
		}
		if strings.TrimSpace(in.ID) == "" {
			return nil, fmt.Errorf("players[%d]: missing id", i)
		}
		prefs := make(map[model.Position]model.Preference, len(in.Preferences))
		for k, v := range in.Preferences {
			pos, err := model.ParsePosition(k)
			if err != nil {
				return nil, fmt.Errorf("player %s: %w", in.ID, err)
			}
			pref, err := model.ParsePreference(string(v))
			if err != nil {
				return nil, fmt.Errorf("player %s position %s: %w", in.ID, pos, err)
			}
			prefs[pos] = pref
		}
		roster = append(roster, model.Player{
			ID:          in.ID,
			Name:        firstNonEmpty(in.Name, in.ID),
			Skill:       in.Skill,
			Gender:      in.Gender,
			Preferences: prefs,
		})
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return roster, nil
}

// ToImportance converts and validates the importance map.
func (r LineupRequest) ToImportance() (model.Importance, error) {
	out := make(model.Importance, len(r.Importance))
	for k, w := range r.Importance {
		pos, err := model.ParsePosition(k)
		if err != nil {
			return nil, fmt.Errorf("importance: %w", err)
		}
		out[pos] = w
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// LineupResponse is the schedule as returned to clients.
type LineupResponse struct {
	ObjectiveValue float64               `json:"objective_value"`
	Schedule       map[string]InningView `json:"schedule"`
	PlayerSits     map[string]int        `json:"player_sits"`
	Score          model.Score           `json:"score"`
	TeamID         string                `json:"team_id,omitempty"`
	GeneratedAt    *time.Time            `json:"generated_at,omitempty"`
	Stats          StatsView             `json:"stats"`
}

// InningView lists one inning's field and bench.
type InningView struct {
	Field []FieldSlot `json:"field"`
	Bench []BenchSlot `json:"bench"`
}

// FieldSlot is one fielded player.
type FieldSlot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position string  `json:"position"`
	Skill    float64 `json:"skill"`
	Gender   string  `json:"gender,omitempty"`
}

// BenchSlot is one benched player.
type BenchSlot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatsView reports how the schedule was produced.
type StatsView struct {
	Passes         int   `json:"passes"`
	SwapsAccepted  int   `json:"swaps_accepted"`
	RelaxedInnings []int `json:"relaxed_innings,omitempty"`
	Interrupted    bool  `json:"interrupted"`
	Cached         bool  `json:"cached"`
	DurationMS     int64 `json:"duration_ms"`
}

// FromResult renders a result. Field slots follow the canonical position
// order and empty positions of a short roster are omitted.
func FromResult(res *model.Result) LineupResponse {
	byID := make(map[string]model.Player, len(res.Roster))
	for _, p := range res.Roster {
		byID[p.ID] = p
	}

	out := LineupResponse{
		ObjectiveValue: res.Score.Total,
		Schedule:       make(map[string]InningView, len(res.Schedule.Innings)),
		PlayerSits:     make(map[string]int, len(res.Roster)),
		Score:          res.Score,
		Stats: StatsView{
			Passes:         res.Stats.Passes,
			SwapsAccepted:  res.Stats.SwapsAccepted,
			RelaxedInnings: res.Stats.RelaxedInnings,
			Interrupted:    res.Stats.Interrupted,
			DurationMS:     res.Stats.Duration.Milliseconds(),
		},
	}

	for _, p := range res.Roster {
		out.PlayerSits[displayName(p)] = 0
	}
	for _, in := range res.Schedule.Innings {
		view := InningView{Field: make([]FieldSlot, 0, model.NumPositions), Bench: make([]BenchSlot, 0, len(in.Bench))}
		for _, pos := range model.Positions {
			id, ok := in.Field[pos]
			if !ok {
				continue
			}
			p := byID[id]
			view.Field = append(view.Field, FieldSlot{ID: id, Name: displayName(p), Position: string(pos), Skill: p.Skill, Gender: p.Gender})
		}
		for _, id := range in.Bench {
			p := byID[id]
			view.Bench = append(view.Bench, BenchSlot{ID: id, Name: displayName(p)})
			out.PlayerSits[displayName(p)]++
		}
		out.Schedule[strconv.Itoa(in.Number)] = view
	}
	return out
}

func displayName(p model.Player) string {
	return firstNonEmpty(p.Name, p.ID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
