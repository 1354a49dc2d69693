package model

import (
	"fmt"
	"strings"
)

// Preference is a player's willingness to play a position.
type Preference int

const (
	CannotPlay Preference = iota
	CanPlay
	WantsToPlay
)

// Wire labels used by the web client.
const (
	wantsToPlayLabel = "wantsToPlay"
	canPlayLabel     = "canPlay"
	cannotPlayLabel  = "cannotPlay"
)

// ParsePreference accepts wantsToPlay, canPlay and cannotPlay in any case,
// ignoring separators ("wants_to_play", "Wants To Play").
func ParsePreference(s string) (Preference, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "wantstoplay", "wants":
		return WantsToPlay, nil
	case "canplay", "can":
		return CanPlay, nil
	case "cannotplay", "cannot", "cantplay":
		return CannotPlay, nil
	}
	return CannotPlay, fmt.Errorf("unknown preference %q", s)
}

// Eligible reports whether the player may field the position at all.
func (p Preference) Eligible() bool { return p != CannotPlay }

func (p Preference) String() string {
	switch p {
	case WantsToPlay:
		return wantsToPlayLabel
	case CanPlay:
		return canPlayLabel
	default:
		return cannotPlayLabel
	}
}
