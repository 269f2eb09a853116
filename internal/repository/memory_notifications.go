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

// MemoryNotificationsRepo in-memory notification store.
type MemoryNotificationsRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

func NewMemoryNotificationsRepo() *MemoryNotificationsRepo {
	return &MemoryNotificationsRepo{items: map[string]domain.Notification{}}
}

func (r *MemoryNotificationsRepo) ListForUser(_ context.Context, userID string) ([]*domain.Notification, error) {
	return r.list(func(n domain.Notification) bool { return n.UserID == userID })
}

func (r *MemoryNotificationsRepo) ListUnread(_ context.Context, userID string) ([]*domain.Notification, error) {
	return r.list(func(n domain.Notification) bool { return n.UserID == userID && !n.IsRead })
}

func (r *MemoryNotificationsRepo) CreateNotification(_ context.Context, n *domain.Notification) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := n.NotificationID
	if id == "" {
		id = uuid.NewString()
	}
	item := *n
	item.NotificationID = id
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.items[id] = item
	return id, nil
}

func (r *MemoryNotificationsRepo) MarkRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	n.IsRead = true
	n.ReadAt = sql.NullTime{Time: time.Now(), Valid: true}
	r.items[notificationID] = n
	return nil
}

func (r *MemoryNotificationsRepo) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = sql.NullTime{Time: now, Valid: true}
			r.items[id] = n
		}
	}
	return nil
}

func (r *MemoryNotificationsRepo) list(keep func(domain.Notification) bool) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Notification{}
	for _, n := range r.items {
		if keep(n) {
			cp := n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
