package session

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Values
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Values{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context, id string) (Values, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[id]
	if !ok {
		return nil, false, nil
	}
	// Hand out a copy so in-place mutation by the caller cannot leak into
	// the store without a Save.
	return cloneValues(v), true, nil
}

func (s *MemStore) Save(ctx context.Context, id string, values Values) error {
	cp := cloneValues(values)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = cp
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
