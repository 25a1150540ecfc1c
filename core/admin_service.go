package core

import (
	"context"
	"log/slog"
	"strings"
)

// AccountDetail is one account with its neighbours in username order.
type AccountDetail struct {
	Account Account
	PrevID  *int64
	NextID  *int64
}

// AdminService implements the administrative mutations of the role gate.
type AdminService struct {
	repo AccountRepository
}

func NewAdminService(repo AccountRepository) *AdminService {
	return &AdminService{repo: repo}
}

// CreateAccount adds a USER account with an unset credential.
func (s *AdminService) CreateAccount(ctx context.Context, username string) (*Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrInvalidUsername
	}
	a, err := s.repo.Insert(ctx, username, "", RoleUser)
	if err != nil {
		return nil, storageErr("insert account", err)
	}
	slog.InfoContext(ctx, "account created", "account_id", a.ID, "username", a.Username)
	return a, nil
}

// SetLocked toggles the administrative lock. Unlocking also clears the
// failed-attempt counter, which is the only way out of a three-strikes termination.
func (s *AdminService) SetLocked(ctx context.Context, id int64, locked bool) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storageErr("find account", err)
	}
	if target.IsAdmin() {
		return ErrForbiddenOnRoot
	}
	upd := AccountUpdate{Locked: boolPtr(locked)}
	if !locked {
		upd.FailedAttempts = intPtr(0)
	}
	if err := s.repo.Update(ctx, id, upd); err != nil {
		return storageErr("update lock", err)
	}
	slog.InfoContext(ctx, "account lock changed", "account_id", id, "username", target.Username, "locked", locked)
	return nil
}

// SetPolicyEnforced toggles password-policy enforcement. Enabling is refused
// for the root account; disabling is always allowed.
func (s *AdminService) SetPolicyEnforced(ctx context.Context, id int64, enforced bool) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storageErr("find account", err)
	}
	if enforced && target.IsAdmin() {
		return ErrForbiddenOnRoot
	}
	if err := s.repo.Update(ctx, id, AccountUpdate{PolicyEnforced: boolPtr(enforced)}); err != nil {
		return storageErr("update policy", err)
	}
	slog.InfoContext(ctx, "account policy changed", "account_id", id, "username", target.Username, "enforced", enforced)
	return nil
}

func (s *AdminService) ListAccounts(ctx context.Context) ([]Account, error) {
	items, err := s.repo.ListOrderedByUsername(ctx)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	return items, nil
}

// GetAccount returns the account and the ids of its neighbours in username order.
func (s *AdminService) GetAccount(ctx context.Context, id int64) (*AccountDetail, error) {
	items, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		d := &AccountDetail{Account: items[i]}
		if i > 0 {
			prev := items[i-1].ID
			d.PrevID = &prev
		}
		if i < len(items)-1 {
			next := items[i+1].ID
			d.NextID = &next
		}
		return d, nil
	}
	return nil, ErrUserNotFound
}

// AccountSummary counts accounts by the flags shown on the admin dashboard.
type AccountSummary struct {
	Total          int `json:"total"`
	Locked         int `json:"locked"`
	PolicyEnforced int `json:"policy_enforced"`
	PasswordUnset  int `json:"password_unset"`
	Exhausted      int `json:"attempts_exhausted"`
}

// Summary tallies all accounts. An account counts as exhausted once its
// failed attempts reach maxFailures.
func (s *AdminService) Summary(ctx context.Context, maxFailures int) (AccountSummary, error) {
	var sum AccountSummary
	items, err := s.ListAccounts(ctx)
	if err != nil {
		return sum, err
	}
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailedAttempts
	}
	sum.Total = len(items)
	for _, a := range items {
		if a.Locked {
			sum.Locked++
		}
		if a.PolicyEnforced {
			sum.PolicyEnforced++
		}
		if !a.HasCredential() {
			sum.PasswordUnset++
		}
		if a.FailedAttempts >= maxFailures {
			sum.Exhausted++
		}
	}
	return sum, nil
}
