package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithHistoryDepth sets how many lineups are kept per team.
func WithHistoryDepth(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.depth = n
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
