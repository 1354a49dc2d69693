// Package repository keeps generated lineups per team.
package repository

import (
	"context"
	"time"

	"github.com/okian/lineup/internal/domain/model"
)

// Lineup is a stored optimization result.
type Lineup struct {
	TeamID      string
	GeneratedAt time.Time
	Result      *model.Result
}

// Store provides read/write access to generated lineups.
type Store interface {
	// Save records res as the team's newest lineup.
	Save(ctx context.Context, teamID string, res *model.Result) (Lineup, error)

	// Latest returns the team's newest lineup.
	// Returns ErrNotFound if the team has none.
	Latest(ctx context.Context, teamID string) (Lineup, error)

	// History returns up to n lineups for the team, newest first.
	History(ctx context.Context, teamID string, n int) ([]Lineup, error)

	// Count returns the number of teams with at least one lineup.
	Count(ctx context.Context) int
}
