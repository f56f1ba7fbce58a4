package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[int64]Product
}

func NewMemStore() *MemStore {
	s := &MemStore{m: map[int64]Product{}}
	for _, p := range []Product{
		{ID: 1, Title: "Keyboard", Slug: "keyboard", Category: "peripherals", Price: decimal.RequireFromString("49.90"), Available: true},
		{ID: 2, Title: "Mouse", Slug: "mouse", Category: "peripherals", Price: decimal.RequireFromString("19.90"), Available: true},
		{ID: 3, Title: "Laptop", Slug: "laptop", Category: "computers", Price: decimal.RequireFromString("899.00"), Available: true},
	} {
		s.m[p.ID] = p
	}
	return s
}

// Put inserts or replaces a product.
func (s *MemStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = p
}

// Delete removes a product outright, as if it was unpublished.
func (s *MemStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	return p, ok, nil
}

func (s *MemStore) FindByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) ListAvailable(ctx context.Context, category string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		if !p.Available {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := map[string]struct{}{}
	for _, p := range s.m {
		set[p.Category] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}
