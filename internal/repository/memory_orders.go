package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// MemoryOrdersRepo in-memory order store. Mirrors the transactional
// guarantees of the Postgres implementation under a single mutex:
// slot re-check + insert are one critical section, so two concurrent
// bookings cannot both claim the same slot.
type MemoryOrdersRepo struct {
	mu          sync.Mutex
	orders      map[string]domain.Order
	payments    map[string][]domain.Payment // orderID -> payments
	trackingSeq map[int]int                 // year -> last sequence number
	techs       *MemoryTechniciansRepo
}

// NewMemoryOrdersRepo creates the store. techs may be nil, in which case
// technician load counters are not maintained.
func NewMemoryOrdersRepo(techs *MemoryTechniciansRepo) *MemoryOrdersRepo {
	return &MemoryOrdersRepo{
		orders:      map[string]domain.Order{},
		payments:    map[string][]domain.Payment{},
		trackingSeq: map[int]int{},
		techs:       techs,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func slotHolding(status string) bool {
	return status == domain.OrderConfirmed || status == domain.OrderSampleCollected
}

func (r *MemoryOrdersRepo) CreateOrder(_ context.Context, order *domain.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Slot consumption re-check inside the critical section.
	for _, o := range r.orders {
		if slotHolding(o.Status) &&
			o.Address.Pincode == order.Address.Pincode &&
			sameDay(o.Appointment.Date, order.Appointment.Date) &&
			o.Appointment.TimeSlot.SlotID == order.Appointment.TimeSlot.SlotID {
			return "", ErrSlotTaken
		}
	}

	id := order.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	o := *order
	o.OrderID = id
	o.Tests = append([]domain.OrderTest(nil), order.Tests...)

	year := time.Now().Year()
	r.trackingSeq[year]++
	o.TrackingID = fmt.Sprintf("MT%d%03d", year, r.trackingSeq[year])

	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.orders[id] = o
	order.OrderID = id
	order.TrackingID = o.TrackingID
	return id, nil
}

func (r *MemoryOrdersRepo) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := o
	cp.Tests = append([]domain.OrderTest(nil), o.Tests...)
	return &cp, nil
}

func (r *MemoryOrdersRepo) GetOrderByTracking(_ context.Context, trackingID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.TrackingID == trackingID {
			cp := o
			cp.Tests = append([]domain.OrderTest(nil), o.Tests...)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryOrdersRepo) ListOrders(_ context.Context, filters OrderFilters) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range r.orders {
		if filters.UserID != "" && o.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		if filters.TechnicianID != "" &&
			(!o.Appointment.TechnicianID.Valid || o.Appointment.TechnicianID.String != filters.TechnicianID) {
			continue
		}
		cp := o
		cp.Tests = append([]domain.OrderTest(nil), o.Tests...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryOrdersRepo) UpdateStatus(_ context.Context, orderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	// Confirming consumes the slot: re-check under the same mutex so two
	// pending orders for one slot cannot both be confirmed.
	if slotHolding(status) && !slotHolding(o.Status) {
		for id, other := range r.orders {
			if id == orderID {
				continue
			}
			if slotHolding(other.Status) &&
				other.Address.Pincode == o.Address.Pincode &&
				sameDay(other.Appointment.Date, o.Appointment.Date) &&
				other.Appointment.TimeSlot.SlotID == o.Appointment.TimeSlot.SlotID {
				return ErrSlotTaken
			}
		}
	}
	// Cancelling an order releases its technician load.
	if status == domain.OrderCancelled && o.Status != domain.OrderCancelled &&
		o.Appointment.TechnicianID.Valid && r.techs != nil {
		r.techs.adjustLoad(o.Appointment.TechnicianID.String, -1)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.orders[orderID] = o
	return nil
}

func (r *MemoryOrdersRepo) AssignTechnician(_ context.Context, orderID, technicianID, name, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	if r.techs != nil {
		if o.Appointment.TechnicianID.Valid && o.Appointment.TechnicianID.String != technicianID {
			r.techs.adjustLoad(o.Appointment.TechnicianID.String, -1)
		}
		if !o.Appointment.TechnicianID.Valid || o.Appointment.TechnicianID.String != technicianID {
			r.techs.adjustLoad(technicianID, +1)
		}
	}
	o.Appointment.TechnicianID = sql.NullString{String: technicianID, Valid: true}
	o.Appointment.TechnicianName = sql.NullString{String: name, Valid: true}
	o.Appointment.TechnicianPhone = sql.NullString{String: phone, Valid: true}
	o.UpdatedAt = time.Now()
	r.orders[orderID] = o
	return nil
}

func (r *MemoryOrdersRepo) BookedSlotIDs(_ context.Context, date time.Time, pincode string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booked := []string{}
	for _, o := range r.orders {
		if slotHolding(o.Status) && o.Address.Pincode == pincode && sameDay(o.Appointment.Date, date) {
			booked = append(booked, o.Appointment.TimeSlot.SlotID)
		}
	}
	return booked, nil
}

func (r *MemoryOrdersRepo) MarkPaid(_ context.Context, orderID string, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	p := *payment
	if p.PaymentID == "" {
		p.PaymentID = uuid.NewString()
	}
	p.OrderID = orderID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.payments[orderID] = append(r.payments[orderID], p)

	o.Payment.Status = p.Status
	o.Payment.TransactionID = p.TransactionID
	o.Payment.PaidAt = p.PaidAt
	o.UpdatedAt = time.Now()
	r.orders[orderID] = o
	return nil
}

func (r *MemoryOrdersRepo) ListPayments(_ context.Context, orderID string) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Payment{}
	for _, p := range r.payments[orderID] {
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryOrdersRepo) Stats(_ context.Context) (*domain.OrderStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.OrderStats{}
	for _, o := range r.orders {
		stats.TotalOrders++
		switch o.Status {
		case domain.OrderPending, domain.OrderConfirmed, domain.OrderSampleCollected, domain.OrderProcessing:
			stats.PendingOrders++
		case domain.OrderCompleted:
			stats.CompletedOrders++
		}
		if o.Payment.Status == domain.PaymentStatusCompleted {
			stats.TotalRevenue += o.Payment.Amount
		}
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalOrders)
	}
	return stats, nil
}
