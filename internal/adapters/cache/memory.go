package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/lineup/internal/domain/model"
)

const (
	defaultMemorySize = 1024
	defaultTTL        = time.Hour
)

// entry is a node of the recency list.
type entry struct {
	key     string
	res     *model.Result
	expires time.Time
	prev    *entry
	next    *entry
}

func (e *entry) reset() {
	*e = entry{}
}

// Memory is a bounded in-process cache with least-recently-used eviction
// and per-entry expiry. Stored results are shared, callers must not mutate them.
type Memory struct {
	mu      sync.Mutex
	items   map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
	pool    sync.Pool
}

// MemoryOption configures Memory.
type MemoryOption func(*Memory)

// WithMaxSize bounds the number of entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithMemoryTTL sets entry lifetime; zero or negative keeps entries until evicted.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		maxSize: defaultMemorySize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.items = make(map[string]*entry, m.maxSize)
	m.pool = sync.Pool{New: func() interface{} { return &entry{} }}
	return m
}

// Name implements Cache.
func (m *Memory) Name() string { return "memory" }

// Size returns the number of stored entries.
func (m *Memory) Size() int64 { return m.size.Load() }

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (*model.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && !m.now().Before(e.expires) {
		m.remove(e)
		return nil, false, nil
	}
	m.moveToFront(e)
	return e.res, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, res *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[key]; ok {
		e.res = res
		e.expires = m.now().Add(m.ttl)
		m.moveToFront(e)
		return nil
	}

	if len(m.items) >= m.maxSize && m.tail != nil {
		m.remove(m.tail)
	}

	e := m.pool.Get().(*entry)
	e.key = key
	e.res = res
	e.expires = m.now().Add(m.ttl)
	m.pushFront(e)
	m.items[key] = e
	m.size.Add(1)
	return nil
}

func (m *Memory) pushFront(e *entry) {
	e.prev = nil
	e.next = m.head
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *Memory) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (m *Memory) moveToFront(e *entry) {
	if m.head == e {
		return
	}
	m.unlink(e)
	m.pushFront(e)
}

func (m *Memory) remove(e *entry) {
	m.unlink(e)
	delete(m.items, e.key)
	e.reset()
	m.pool.Put(e)
	m.size.Add(-1)
}
