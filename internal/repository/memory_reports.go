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

// MemoryReportsRepo in-memory report store.
type MemoryReportsRepo struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
}

func NewMemoryReportsRepo() *MemoryReportsRepo {
	return &MemoryReportsRepo{reports: map[string]domain.Report{}}
}

func cloneReport(r domain.Report) domain.Report {
	cp := r
	cp.Tests = make([]domain.ReportTest, len(r.Tests))
	for i, t := range r.Tests {
		ct := t
		ct.Parameters = append([]domain.ReportParameter(nil), t.Parameters...)
		cp.Tests[i] = ct
	}
	return cp
}

func (r *MemoryReportsRepo) GetReport(_ context.Context, reportID string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[reportID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := cloneReport(rep)
	return &cp, nil
}

func (r *MemoryReportsRepo) ListReportsForUser(_ context.Context, userID string) ([]*domain.Report, error) {
	return r.list(func(rep domain.Report) bool { return rep.UserID == userID })
}

func (r *MemoryReportsRepo) ListAllReports(_ context.Context) ([]*domain.Report, error) {
	return r.list(func(domain.Report) bool { return true })
}

func (r *MemoryReportsRepo) ListReportsForOrder(_ context.Context, orderID string) ([]*domain.Report, error) {
	return r.list(func(rep domain.Report) bool { return rep.OrderID == orderID })
}

func (r *MemoryReportsRepo) CreateReport(_ context.Context, report *domain.Report) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := report.ReportID
	if id == "" {
		id = uuid.NewString()
	}
	rep := cloneReport(*report)
	rep.ReportID = id
	now := time.Now()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now
	r.reports[id] = rep
	return id, nil
}

func (r *MemoryReportsRepo) UpdateReport(_ context.Context, reportID string, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.reports[reportID]
	if !ok {
		return sql.ErrNoRows
	}
	rep := cloneReport(*report)
	rep.ReportID = reportID
	rep.CreatedAt = old.CreatedAt
	rep.UpdatedAt = time.Now()
	r.reports[reportID] = rep
	return nil
}

func (r *MemoryReportsRepo) ReplaceResults(_ context.Context, reportID string, tests []domain.ReportTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[reportID]
	if !ok {
		return sql.ErrNoRows
	}
	rep.Tests = make([]domain.ReportTest, len(tests))
	for i, t := range tests {
		ct := t
		ct.Parameters = append([]domain.ReportParameter(nil), t.Parameters...)
		rep.Tests[i] = ct
	}
	rep.UpdatedAt = time.Now()
	r.reports[reportID] = rep
	return nil
}

func (r *MemoryReportsRepo) list(keep func(domain.Report) bool) ([]*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Report{}
	for _, rep := range r.reports {
		if keep(rep) {
			cp := cloneReport(rep)
			out = append(out, &cp)
		}
	}
	// newest generation first; reports without a timestamp sink to the end
	sort.Slice(out, func(i, j int) bool {
		var a, b time.Time
		if out[i].GeneratedAt.Valid {
			a = out[i].GeneratedAt.Time
		}
		if out[j].GeneratedAt.Valid {
			b = out[j].GeneratedAt.Time
		}
		return a.After(b)
	})
	return out, nil
}
