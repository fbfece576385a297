package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item struct {
	data    []byte
	expires time.Time // zero: never
}

func (i item) expired(now time.Time) bool {
	return !i.expires.IsZero() && !now.Before(i.expires)
}

// MemoryStore keeps entries in process. Expired entries are dropped on read
// and by a janitor goroutine stopped by Close.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore starts a store sweeping expired entries every interval.
// A non-positive interval disables the janitor.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]item),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if interval > 0 {
		go s.janitor(interval)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, it := range s.items {
		if it.expired(now) {
			delete(s.items, k)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if it.expired(s.now()) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, ErrMiss
	}
	return append([]byte(nil), it.data...), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := item{data: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == ErrMiss {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Flush(context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]item)
	s.mu.Unlock()
	return nil
}

// Len counts live entries with the given key prefix.
func (s *MemoryStore) Len(prefix string) int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k, it := range s.items {
		if strings.HasPrefix(k, prefix) && !it.expired(now) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

var _ Store = (*MemoryStore)(nil)
