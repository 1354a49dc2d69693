package loadtest

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/types"
)

// Verification failures.
var (
	ErrInvalidLineup = errors.New("invalid lineup")
	ErrUnfair        = errors.New("bench time spread exceeds bound")
)

// VerifyResponse checks the hard lineup rules: every inning fields
// min(10, roster) distinct players at distinct positions, every playing
// player appears exactly once per inning, nobody fields a cannotPlay
// position and player_sits matches the benches.
func VerifyResponse(req types.LineupRequest, resp types.LineupResponse) error {
	prefs := make(map[string]map[string]types.PreferenceValue)
	names := make(map[string]string)
	for _, p := range req.Players {
		if !p.Playing {
			continue
		}
		prefs[p.ID] = p.Preferences
		names[p.ID] = p.Name
		if names[p.ID] == "" {
			names[p.ID] = p.ID
		}
	}
	n := len(prefs)
	if n == 0 {
		return fmt.Errorf("%w: request has no playing players", ErrInvalidLineup)
	}
	if len(resp.Schedule) == 0 {
		return fmt.Errorf("%w: empty schedule", ErrInvalidLineup)
	}
	wantField := min(n, model.NumPositions)

	sits := make(map[string]int, n)
	for t := 1; t <= len(resp.Schedule); t++ {
		in, ok := resp.Schedule[strconv.Itoa(t)]
		if !ok {
			return fmt.Errorf("%w: inning %d missing", ErrInvalidLineup, t)
		}
		if len(in.Field) != wantField {
			return fmt.Errorf("%w: inning %d fields %d players, want %d", ErrInvalidLineup, t, len(in.Field), wantField)
		}

		seen := make(map[string]bool, n)
		positions := make(map[string]bool, model.NumPositions)
		for _, slot := range in.Field {
			pos, err := model.ParsePosition(slot.Position)
			if err != nil {
				return fmt.Errorf("%w: inning %d: %w", ErrInvalidLineup, t, err)
			}
			if positions[string(pos)] {
				return fmt.Errorf("%w: inning %d fills %s twice", ErrInvalidLineup, t, pos)
			}
			positions[string(pos)] = true

			p, ok := prefs[slot.ID]
			if !ok {
				return fmt.Errorf("%w: inning %d fields unknown player %s", ErrInvalidLineup, t, slot.ID)
			}
			if seen[slot.ID] {
				return fmt.Errorf("%w: inning %d lists %s twice", ErrInvalidLineup, t, slot.ID)
			}
			seen[slot.ID] = true
			if pref, err := model.ParsePreference(string(lookup(p, pos))); err != nil || !pref.Eligible() {
				return fmt.Errorf("%w: inning %d puts %s at %s", ErrInvalidLineup, t, slot.ID, pos)
			}
		}
		for _, b := range in.Bench {
			if _, ok := prefs[b.ID]; !ok {
				return fmt.Errorf("%w: inning %d benches unknown player %s", ErrInvalidLineup, t, b.ID)
			}
			if seen[b.ID] {
				return fmt.Errorf("%w: inning %d lists %s twice", ErrInvalidLineup, t, b.ID)
			}
			seen[b.ID] = true
			sits[b.ID]++
		}
		if len(seen) != n {
			return fmt.Errorf("%w: inning %d places %d of %d players", ErrInvalidLineup, t, len(seen), n)
		}
	}

	for id, name := range names {
		if got := resp.PlayerSits[name]; got != sits[id] {
			return fmt.Errorf("%w: player_sits[%s]=%d, benched %d", ErrInvalidLineup, name, got, sits[id])
		}
	}
	return nil
}

// CheckFairness reports ErrUnfair when the spread between the most and least
// benched players exceeds ceil(innings*benchSlots/n)+1.
func CheckFairness(resp types.LineupResponse) error {
	if len(resp.PlayerSits) == 0 {
		return nil
	}
	n := len(resp.PlayerSits)
	bench := max(n-model.NumPositions, 0)
	bound := int(math.Ceil(float64(len(resp.Schedule)*bench)/float64(n))) + 1

	lo, hi := math.MaxInt, 0
	for _, s := range resp.PlayerSits {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	if hi-lo > bound {
		return fmt.Errorf("%w: spread %d, bound %d", ErrUnfair, hi-lo, bound)
	}
	return nil
}

func lookup(prefs map[string]types.PreferenceValue, pos model.Position) types.PreferenceValue {
	if v, ok := prefs[string(pos)]; ok {
		return v
	}
	// the alias labels resolve to the same position
	for label, v := range prefs {
		if p, err := model.ParsePosition(label); err == nil && p == pos {
			return v
		}
	}
	return ""
}
