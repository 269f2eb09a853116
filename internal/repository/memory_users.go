package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// MemoryUsersRepo supports auth/profile flows when DB is disabled,
// and backs the service unit tests.
type MemoryUsersRepo struct {
	mu        sync.RWMutex
	users     map[string]domain.User    // userID -> User
	addresses map[string]domain.Address // addressID -> Address
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{
		users:     map[string]domain.User{},
		addresses: map[string]domain.Address{},
	}
}

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r *MemoryUsersRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := user.UserID
	if id == "" {
		id = uuid.NewString()
	}
	u := *user
	u.UserID = id
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[id] = u
	return id, nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, userID string, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return sql.ErrNoRows
	}
	u := *user
	u.UserID = userID
	u.UpdatedAt = time.Now()
	r.users[userID] = u
	return nil
}

func (r *MemoryUsersRepo) ListAddresses(_ context.Context, userID string) ([]*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Address{}
	for _, a := range r.addresses {
		if a.UserID == userID {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryUsersRepo) GetAddress(_ context.Context, addressID string) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.addresses[addressID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r *MemoryUsersRepo) CreateAddress(_ context.Context, addr *domain.Address) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := addr.AddressID
	if id == "" {
		id = uuid.NewString()
	}
	a := *addr
	a.AddressID = id
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.IsDefault {
		r.clearDefaultLocked(a.UserID)
	}
	r.addresses[id] = a
	return id, nil
}

func (r *MemoryUsersRepo) UpdateAddress(_ context.Context, addressID string, addr *domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.addresses[addressID]
	if !ok {
		return sql.ErrNoRows
	}
	a := *addr
	a.AddressID = addressID
	a.UserID = old.UserID
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = time.Now()
	if a.IsDefault && !old.IsDefault {
		r.clearDefaultLocked(a.UserID)
	}
	r.addresses[addressID] = a
	return nil
}

func (r *MemoryUsersRepo) DeleteAddress(_ context.Context, userID, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addresses[addressID]
	if !ok || a.UserID != userID {
		return sql.ErrNoRows
	}
	delete(r.addresses, addressID)
	return nil
}

// SetDefaultAddress performs clear-then-set under one lock so no reader
// ever observes two defaults for the same user.
func (r *MemoryUsersRepo) SetDefaultAddress(_ context.Context, userID, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addresses[addressID]
	if !ok || a.UserID != userID {
		return sql.ErrNoRows
	}
	r.clearDefaultLocked(userID)
	a.IsDefault = true
	a.UpdatedAt = time.Now()
	r.addresses[addressID] = a
	return nil
}

func (r *MemoryUsersRepo) clearDefaultLocked(userID string) {
	for id, a := range r.addresses {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			r.addresses[id] = a
		}
	}
}
