package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// MemoryCatalogRepo holds the test/category/time-slot catalogs in memory.
// Used when DB is disabled and by the service unit tests.
type MemoryCatalogRepo struct {
	mu         sync.RWMutex
	tests      map[string]domain.Test
	categories map[string]domain.TestCategory
	slots      map[string]domain.TimeSlot
}

func NewMemoryCatalogRepo() *MemoryCatalogRepo {
	return &MemoryCatalogRepo{
		tests:      map[string]domain.Test{},
		categories: map[string]domain.TestCategory{},
		slots:      map[string]domain.TimeSlot{},
	}
}

func (r *MemoryCatalogRepo) ListTests(_ context.Context, activeOnly bool) ([]*domain.Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Test{}
	for _, t := range r.tests {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCatalogRepo) GetTest(_ context.Context, testID string) (*domain.Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tests[testID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (r *MemoryCatalogRepo) GetTestsByIDs(_ context.Context, testIDs []string) ([]*domain.Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Test{}
	seen := map[string]bool{}
	for _, id := range testIDs {
		if seen[id] {
			continue // repeated ids collapse to one row, same as ANY($1) in SQL
		}
		seen[id] = true
		t, ok := r.tests[id]
		if !ok || !t.IsActive {
			continue // unknown ids are silently skipped
		}
		cp := t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryCatalogRepo) ListTestsByCategory(_ context.Context, categoryID string) ([]*domain.Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Test{}
	for _, t := range r.tests {
		if t.IsActive && t.CategoryID == categoryID {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCatalogRepo) CreateTest(_ context.Context, test *domain.Test) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := test.TestID
	if id == "" {
		id = uuid.NewString()
	}
	t := *test
	t.TestID = id
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.tests[id] = t
	return id, nil
}

func (r *MemoryCatalogRepo) UpdateTest(_ context.Context, testID string, test *domain.Test) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tests[testID]
	if !ok {
		return sql.ErrNoRows
	}
	t := *test
	t.TestID = testID
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now()
	r.tests[testID] = t
	return nil
}

func (r *MemoryCatalogRepo) ListCategories(_ context.Context, activeOnly bool) ([]*domain.TestCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TestCategory{}
	for _, c := range r.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryCatalogRepo) GetCategory(_ context.Context, categoryID string) (*domain.TestCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[categoryID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *MemoryCatalogRepo) CreateCategory(_ context.Context, category *domain.TestCategory) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := category.CategoryID
	if id == "" {
		id = uuid.NewString()
	}
	c := *category
	c.CategoryID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.categories[id] = c
	return id, nil
}

func (r *MemoryCatalogRepo) ListTimeSlots(_ context.Context, activeOnly bool) ([]*domain.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TimeSlot{}
	for _, s := range r.slots {
		if activeOnly && !s.IsActive {
			continue
		}
		cp := s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *MemoryCatalogRepo) GetTimeSlot(_ context.Context, slotID string) (*domain.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[slotID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

// SeedTimeSlot is a test/dev helper to load the fixed slot catalog.
func (r *MemoryCatalogRepo) SeedTimeSlot(slot domain.TimeSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.SlotID == "" {
		slot.SlotID = uuid.NewString()
	}
	r.slots[slot.SlotID] = slot
}
