// internal/cache/store.go
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cache store is closed")

// ErrUnknownKey is returned by Refresh for keys without subscribers.
var ErrUnknownKey = errors.New("cache key has no subscribers")

// FetchFunc loads a fresh value for a key.
type FetchFunc func(ctx context.Context) (any, error)

// Snapshot is a point-in-time copy of a cache entry.
type Snapshot struct {
	Value       any
	Err         error
	UpdatedAt   time.Time
	Subscribers int
	Interval    time.Duration
}

// Handle identifies one subscription. Updates delivers the latest value after each successful fetch.
type Handle struct {
	key      string
	id       uint64
	interval time.Duration
	updates  chan any
}

// Key returns the subscribed key.
func (h *Handle) Key() string { return h.key }

// Updates returns a channel holding at most the latest fetched value.
func (h *Handle) Updates() <-chan any { return h.updates }

type entry struct {
	fetch FetchFunc

	value     any
	err       error
	hasValue  bool
	updatedAt time.Time

	subscribers map[uint64]*Handle
	interval    time.Duration

	cancel context.CancelFunc
	reset  chan time.Duration
	done   chan struct{}
}

// Store is a keyed polling cache. A fetch loop is started with the first
// subscriber of a key and torn down when the last one unsubscribes.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextID  uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	loops  errgroup.Group
	logger *zap.Logger

	// Statistics (accessed atomically)
	reads    uint64
	fetches  uint64
	failures uint64
}

// NewStore creates an empty store. Each test can build its own.
func NewStore(logger *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("cache"),
	}
}

// Subscribe registers interest in key. The loop fetches immediately and then
// every interval; with several subscribers the fastest interval wins.
// The fetch function of the first subscriber is used for the key.
func (s *Store) Subscribe(key string, fetch FetchFunc, interval time.Duration) (*Handle, error) {
	if interval <= 0 {
		return nil, errors.New("cache interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	s.nextID++
	h := &Handle{
		key:      key,
		id:       s.nextID,
		interval: interval,
		updates:  make(chan any, 1),
	}

	e, ok := s.entries[key]
	if !ok {
		ctx, cancel := context.WithCancel(s.ctx)
		e = &entry{
			fetch:       fetch,
			subscribers: make(map[uint64]*Handle),
			interval:    interval,
			cancel:      cancel,
			reset:       make(chan time.Duration, 1),
			done:        make(chan struct{}),
		}
		s.entries[key] = e
		e.subscribers[h.id] = h

		s.loops.Go(func() error {
			s.runLoop(ctx, key, e)
			return nil
		})
		s.logger.Debug("Fetch loop started", zap.String("key", key), zap.Duration("interval", interval))
		return h, nil
	}

	e.subscribers[h.id] = h
	if e.hasValue {
		h.updates <- e.value
	}
	if interval < e.interval {
		e.interval = interval
		s.signalReset(e, interval)
	}
	return h, nil
}

// Unsubscribe removes a subscription. The loop stops at zero subscribers,
// and Unsubscribe returns only after it has exited.
func (s *Store) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}

	s.mu.Lock()
	e, ok := s.entries[h.key]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, ok := e.subscribers[h.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(e.subscribers, h.id)

	if len(e.subscribers) == 0 {
		e.cancel()
		delete(s.entries, h.key)
		s.mu.Unlock()

		// fetchInto takes s.mu, so wait outside the lock
		<-e.done
		s.logger.Debug("Fetch loop stopped", zap.String("key", h.key))
		return
	}

	// The fastest remaining subscriber now defines the interval
	fastest := time.Duration(0)
	for _, sub := range e.subscribers {
		if fastest == 0 || sub.interval < fastest {
			fastest = sub.interval
		}
	}
	if fastest != e.interval {
		e.interval = fastest
		s.signalReset(e, fastest)
	}
	s.mu.Unlock()
}

// Get returns the last successfully fetched value for key.
func (s *Store) Get(key string) (any, bool) {
	atomic.AddUint64(&s.reads, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// Snapshot returns a copy of the entry state for key.
func (s *Store) Snapshot(key string) (Snapshot, bool) {
	atomic.AddUint64(&s.reads, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Value:       e.value,
		Err:         e.err,
		UpdatedAt:   e.updatedAt,
		Subscribers: len(e.subscribers),
		Interval:    e.interval,
	}, true
}

// Refresh fetches key synchronously and stores the result.
func (s *Store) Refresh(ctx context.Context, key string) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, ErrUnknownKey
	}
	return s.fetchInto(ctx, key, e)
}

// Keys returns the number of keys with active loops.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// GetStats returns cache statistics.
func (s *Store) GetStats() (reads, fetches, failures uint64) {
	return atomic.LoadUint64(&s.reads), atomic.LoadUint64(&s.fetches), atomic.LoadUint64(&s.failures)
}

// Close stops every fetch loop and waits for them to exit.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	s.cancel()
	return s.loops.Wait()
}

func (s *Store) runLoop(ctx context.Context, key string, e *entry) {
	defer close(e.done)

	if ctx.Err() != nil {
		return
	}
	_, _ = s.fetchInto(ctx, key, e)

	s.mu.Lock()
	interval := e.interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.reset:
			ticker.Reset(d)
		case <-ticker.C:
			// select picks randomly among ready cases
			if ctx.Err() != nil {
				return
			}
			_, _ = s.fetchInto(ctx, key, e)
		}
	}
}

func (s *Store) fetchInto(ctx context.Context, key string, e *entry) (any, error) {
	atomic.AddUint64(&s.fetches, 1)
	value, err := e.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		atomic.AddUint64(&s.failures, 1)
		e.err = err
		if ctx.Err() == nil {
			s.logger.Debug("Cache fetch failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	e.value = value
	e.err = nil
	e.hasValue = true
	e.updatedAt = time.Now()
	for _, h := range e.subscribers {
		publishLatest(h.updates, value)
	}
	return value, nil
}

// signalReset passes a new interval to the loop, replacing any pending one.
func (s *Store) signalReset(e *entry, d time.Duration) {
	select {
	case <-e.reset:
	default:
	}
	e.reset <- d
}

// publishLatest keeps only the newest value in a one-slot channel.
func publishLatest(ch chan any, v any) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
