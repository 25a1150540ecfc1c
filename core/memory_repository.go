package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryAccountRepository is an in-process AccountRepository used for local
// runs (STORAGE_DRIVER=memory) and tests. Records are copied on the way in and out.
type MemoryAccountRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{nextID: 1, byID: make(map[int64]*Account)}
}

func (r *MemoryAccountRepository) FindByUsername(_ context.Context, username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id int64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAccountRepository) Insert(_ context.Context, username, passwordHash string, role Role) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			return nil, ErrDuplicateUsername
		}
	}
	now := time.Now()
	a := &Account{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[a.ID] = a
	r.nextID++
	cp := *a
	return &cp, nil
}

func (r *MemoryAccountRepository) Update(_ context.Context, id int64, upd AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if upd.empty() {
		return nil
	}
	if upd.PasswordHash != nil {
		a.PasswordHash = *upd.PasswordHash
	}
	if upd.Locked != nil {
		a.Locked = *upd.Locked
	}
	if upd.PolicyEnforced != nil {
		a.PolicyEnforced = *upd.PolicyEnforced
	}
	if upd.FailedAttempts != nil {
		a.FailedAttempts = *upd.FailedAttempts
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryAccountRepository) ListOrderedByUsername(_ context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Account, 0, len(r.byID))
	for _, a := range r.byID {
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Username < items[j].Username })
	return items, nil
}
