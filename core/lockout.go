package core

import (
	"context"
	"log/slog"
)

// DefaultMaxFailedAttempts is the three-strikes threshold.
const DefaultMaxFailedAttempts = 3

// AttemptOutcome is the result of recording a failed login.
type AttemptOutcome int

const (
	OutcomeRetry AttemptOutcome = iota
	OutcomeTerminated
)

func (o AttemptOutcome) String() string {
	if o == OutcomeTerminated {
		return "terminated"
	}
	return "retry"
}

// LockoutTracker keeps the persisted failed-attempt counter of an account.
// It never touches the administrative Locked flag.
type LockoutTracker struct {
	repo        AccountRepository
	maxFailures int
}

func NewLockoutTracker(repo AccountRepository, maxFailures int) *LockoutTracker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailedAttempts
	}
	return &LockoutTracker{repo: repo, maxFailures: maxFailures}
}

// Exhausted reports whether the account has already used up its attempts.
func (t *LockoutTracker) Exhausted(a *Account) bool {
	return a.FailedAttempts >= t.maxFailures
}

// RecordFailure increments the counter (read-then-write) and reports whether
// the threshold has been reached.
func (t *LockoutTracker) RecordFailure(ctx context.Context, a *Account) (AttemptOutcome, error) {
	attempts := a.FailedAttempts + 1
	if err := t.repo.Update(ctx, a.ID, AccountUpdate{FailedAttempts: intPtr(attempts)}); err != nil {
		return OutcomeRetry, storageErr("record failure", err)
	}
	a.FailedAttempts = attempts
	if attempts >= t.maxFailures {
		slog.WarnContext(ctx, "failed attempt threshold reached", "account_id", a.ID, "username", a.Username, "attempts", attempts)
		return OutcomeTerminated, nil
	}
	return OutcomeRetry, nil
}

// RecordSuccess resets the counter to zero.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, a *Account) error {
	if err := t.repo.Update(ctx, a.ID, AccountUpdate{FailedAttempts: intPtr(0)}); err != nil {
		return storageErr("record success", err)
	}
	a.FailedAttempts = 0
	return nil
}
