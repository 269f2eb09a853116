package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"medtest-data/internal/domain"
)

// MemoryPincodesRepo in-memory serviceability table.
type MemoryPincodesRepo struct {
	mu       sync.RWMutex
	pincodes map[string]domain.PincodeInfo // pincode -> info
}

func NewMemoryPincodesRepo() *MemoryPincodesRepo {
	return &MemoryPincodesRepo{pincodes: map[string]domain.PincodeInfo{}}
}

func (r *MemoryPincodesRepo) GetPincode(_ context.Context, pincode string) (*domain.PincodeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pincodes[pincode]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r *MemoryPincodesRepo) ListServiceable(_ context.Context) ([]*domain.PincodeInfo, error) {
	return r.list(func(p domain.PincodeInfo) bool { return p.IsServiceable })
}

func (r *MemoryPincodesRepo) ListAll(_ context.Context) ([]*domain.PincodeInfo, error) {
	return r.list(func(domain.PincodeInfo) bool { return true })
}

func (r *MemoryPincodesRepo) SearchByCity(_ context.Context, city string) ([]*domain.PincodeInfo, error) {
	term := strings.ToLower(city)
	return r.list(func(p domain.PincodeInfo) bool {
		return p.IsServiceable && strings.Contains(strings.ToLower(p.City), term)
	})
}

func (r *MemoryPincodesRepo) SearchByState(_ context.Context, state string) ([]*domain.PincodeInfo, error) {
	term := strings.ToLower(state)
	return r.list(func(p domain.PincodeInfo) bool {
		return p.IsServiceable && strings.Contains(strings.ToLower(p.State), term)
	})
}

func (r *MemoryPincodesRepo) CreatePincode(_ context.Context, info *domain.PincodeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pincodes[info.Pincode]; exists {
		return ErrDuplicate
	}
	p := *info
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.pincodes[p.Pincode] = p
	return nil
}

func (r *MemoryPincodesRepo) UpdatePincode(_ context.Context, pincode string, info *domain.PincodeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.pincodes[pincode]
	if !ok {
		return sql.ErrNoRows
	}
	p := *info
	p.Pincode = pincode
	p.CreatedAt = old.CreatedAt
	r.pincodes[pincode] = p
	return nil
}

func (r *MemoryPincodesRepo) list(keep func(domain.PincodeInfo) bool) ([]*domain.PincodeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.PincodeInfo{}
	for _, p := range r.pincodes {
		if keep(p) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pincode < out[j].Pincode })
	return out, nil
}
