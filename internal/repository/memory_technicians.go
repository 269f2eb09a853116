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

// MemoryTechniciansRepo in-memory technician roster.
type MemoryTechniciansRepo struct {
	mu    sync.RWMutex
	techs map[string]domain.Technician
}

func NewMemoryTechniciansRepo() *MemoryTechniciansRepo {
	return &MemoryTechniciansRepo{techs: map[string]domain.Technician{}}
}

func (r *MemoryTechniciansRepo) ListTechnicians(_ context.Context, activeOnly bool) ([]*domain.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Technician{}
	for _, t := range r.techs {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryTechniciansRepo) GetTechnician(_ context.Context, technicianID string) (*domain.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.techs[technicianID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (r *MemoryTechniciansRepo) ListByPincode(_ context.Context, pincode string) ([]*domain.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Technician{}
	for _, t := range r.techs {
		if t.IsActive && t.Serves(pincode) {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryTechniciansRepo) CreateTechnician(_ context.Context, tech *domain.Technician) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := tech.TechnicianID
	if id == "" {
		id = uuid.NewString()
	}
	t := *tech
	t.TechnicianID = id
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.techs[id] = t
	return id, nil
}

func (r *MemoryTechniciansRepo) UpdateTechnician(_ context.Context, technicianID string, tech *domain.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.techs[technicianID]
	if !ok {
		return sql.ErrNoRows
	}
	t := *tech
	t.TechnicianID = technicianID
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now()
	r.techs[technicianID] = t
	return nil
}

// adjustLoad shifts current_orders by delta, clamped at zero.
// Called by MemoryOrdersRepo under its own lock ordering (orders -> techs).
func (r *MemoryTechniciansRepo) adjustLoad(technicianID string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[technicianID]
	if !ok {
		return
	}
	t.CurrentOrders += delta
	if t.CurrentOrders < 0 {
		t.CurrentOrders = 0
	}
	r.techs[technicianID] = t
}
