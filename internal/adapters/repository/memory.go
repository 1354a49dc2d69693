package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/metrics"
)

const defaultHistoryDepth = 5

// MemoryStore is an in-process Store. Each team keeps a short ring of its
// most recent lineups, newest last.
type MemoryStore struct {
	mu    sync.RWMutex
	teams map[string][]Lineup
	depth int
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		teams: make(map[string][]Lineup),
		depth: defaultHistoryDepth,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStoredLineups(0)
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, teamID string, res *model.Result) (Lineup, error) {
	if err := ctx.Err(); err != nil {
		return Lineup{}, err
	}
	if strings.TrimSpace(teamID) == "" {
		return Lineup{}, ErrInvalidTeam
	}

	l := Lineup{TeamID: teamID, GeneratedAt: s.now().UTC(), Result: res}

	s.mu.Lock()
	hist := append(s.teams[teamID], l)
	if len(hist) > s.depth {
		hist = append(hist[:0:0], hist[len(hist)-s.depth:]...)
	}
	s.teams[teamID] = hist
	teams := len(s.teams)
	s.mu.Unlock()

	metrics.UpdateStoredLineups(teams)
	return l, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(ctx context.Context, teamID string) (Lineup, error) {
	if err := ctx.Err(); err != nil {
		return Lineup{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.teams[teamID]
	if len(hist) == 0 {
		return Lineup{}, ErrNotFound
	}
	return hist[len(hist)-1], nil
}

// History implements Store.
func (s *MemoryStore) History(ctx context.Context, teamID string, n int) ([]Lineup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.teams[teamID]
	if len(hist) == 0 {
		return nil, ErrNotFound
	}
	if n > len(hist) {
		n = len(hist)
	}
	out := make([]Lineup, 0, n)
	for i := len(hist) - 1; i >= len(hist)-n; i-- {
		out = append(out, hist[i])
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}
