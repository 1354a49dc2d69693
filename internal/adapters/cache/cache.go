// Package cache stores optimization results keyed by a fingerprint of the
// request, so identical requests are answered without re-optimizing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/metrics"
)

// Cache stores results by key.
type Cache interface {
	// Get returns the cached result and true on a hit.
	Get(ctx context.Context, key string) (*model.Result, bool, error)
	// Set stores a result.
	Set(ctx context.Context, key string, res *model.Result) error
	// Name identifies the backend in metrics and logs.
	Name() string
}

// Fingerprint hashes everything that determines an optimization result: the
// roster (order independent), the importance weights, and salt describing the
// optimizer configuration.
func Fingerprint(roster model.Roster, importance model.Importance, salt string) string {
	players := append(model.Roster(nil), roster...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	h := sha256.New()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}

	write(salt)
	for _, pos := range model.Positions {
		if w, ok := importance[pos]; ok {
			write(string(pos) + "=" + strconv.FormatFloat(w, 'g', -1, 64))
		} else {
			write(string(pos) + "=-")
		}
	}
	for _, p := range players {
		write(p.ID)
		write(p.Name)
		write(p.Gender)
		write(strconv.FormatFloat(p.Skill, 'g', -1, 64))
		for _, pos := range model.Positions {
			write(strconv.Itoa(int(p.Preference(pos))))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Tiered consults caches in order and back-fills faster tiers on a hit in a
// slower one. Backend errors are counted and skipped.
type Tiered struct {
	tiers []Cache
}

// NewTiered builds a tiered cache; nil tiers are ignored.
func NewTiered(tiers ...Cache) *Tiered {
	t := &Tiered{}
	for _, c := range tiers {
		if c != nil {
			t.tiers = append(t.tiers, c)
		}
	}
	return t
}

// Name implements Cache.
func (t *Tiered) Name() string { return "tiered" }

// Len returns the number of tiers.
func (t *Tiered) Len() int { return len(t.tiers) }

// Get implements Cache.
func (t *Tiered) Get(ctx context.Context, key string) (*model.Result, bool, error) {
	var errs []error
	for i, c := range t.tiers {
		res, ok, err := c.Get(ctx, key)
		if err != nil {
			metrics.RecordCacheError(c.Name())
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		if !ok {
			metrics.RecordCacheMiss(c.Name())
			continue
		}
		metrics.RecordCacheHit(c.Name())
		for j := 0; j < i; j++ {
			if err := t.tiers[j].Set(ctx, key, res); err != nil {
				metrics.RecordCacheError(t.tiers[j].Name())
			}
		}
		return res, true, nil
	}
	return nil, false, errors.Join(errs...)
}

// Close closes every tier that holds connections.
func (t *Tiered) Close() error {
	var errs []error
	for _, c := range t.tiers {
		if closer, ok := c.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// Set implements Cache by writing every tier.
func (t *Tiered) Set(ctx context.Context, key string, res *model.Result) error {
	var errs []error
	for _, c := range t.tiers {
		if err := c.Set(ctx, key, res); err != nil {
			metrics.RecordCacheError(c.Name())
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
