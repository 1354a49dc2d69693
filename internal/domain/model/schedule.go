package model

import (
	"sort"
	"time"
)

// Inning is the assignment of one inning: who fields where and who sits.
type Inning struct {
	Number int                 // 1-based
	Field  map[Position]string // position -> player id; short-handed innings omit positions
	Bench  []string            // player ids, sorted
}

// RoleOf returns the position a player fields in this inning, or false when benched or absent.
func (in Inning) RoleOf(playerID string) (Position, bool) {
	for pos, id := range in.Field {
		if id == playerID {
			return pos, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (in Inning) Clone() Inning {
	field := make(map[Position]string, len(in.Field))
	for k, v := range in.Field {
		field[k] = v
	}
	bench := append([]string(nil), in.Bench...)
	return Inning{Number: in.Number, Field: field, Bench: bench}
}

// Schedule is a full game assignment.
type Schedule struct {
	Innings []Inning
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	out := Schedule{Innings: make([]Inning, len(s.Innings))}
	for i, in := range s.Innings {
		out.Innings[i] = in.Clone()
	}
	return out
}

// BenchCounts returns innings benched per player id.
func (s Schedule) BenchCounts() map[string]int {
	counts := make(map[string]int)
	for _, in := range s.Innings {
		for _, id := range in.Bench {
			counts[id]++
		}
	}
	return counts
}

// PositionCounts returns innings played per player id and position.
func (s Schedule) PositionCounts() map[string]map[Position]int {
	counts := make(map[string]map[Position]int)
	for _, in := range s.Innings {
		for pos, id := range in.Field {
			if counts[id] == nil {
				counts[id] = make(map[Position]int)
			}
			counts[id][pos]++
		}
	}
	return counts
}

// SortBench orders every inning's bench by player id.
func (s Schedule) SortBench() {
	for i := range s.Innings {
		sort.Strings(s.Innings[i].Bench)
	}
}

// Score is the objective breakdown of a schedule.
type Score struct {
	Skill           float64 `json:"skill"`
	BenchVariance   float64 `json:"bench_variance"`
	LowPrefVariance float64 `json:"low_pref_variance"`
	WantsViolations float64 `json:"wants_violations"`
	Repeats         float64 `json:"repeats"`
	Penalty         float64 `json:"penalty"`
	Total           float64 `json:"total"`
}

// RunStats describes how an optimization went.
type RunStats struct {
	Passes         int           `json:"passes"`
	SwapsAccepted  int           `json:"swaps_accepted"`
	RelaxedInnings []int         `json:"relaxed_innings,omitempty"`
	Interrupted    bool          `json:"interrupted"`
	Duration       time.Duration `json:"duration_ns"`
}

// Result is the outcome of one optimization.
type Result struct {
	Roster   Roster
	Schedule Schedule
	Score    Score
	Stats    RunStats
}
