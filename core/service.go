package core

import (
	"context"
	"errors"
	"log/slog"
)

// LoginResult is the outcome of a successful login: the session payload and where to go next.
type LoginResult struct {
	User SessionUser
	Next Destination
}

// ChangeResult is the outcome of a successful password change. User reflects
// the new credential state and should replace the session payload.
type ChangeResult struct {
	User SessionUser
	Next Destination
}

// AuthService defines authentication behaviour.
type AuthService interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
	ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword, confirmPassword string) (ChangeResult, error)
}

// RepositoryAuthService runs the login and password-change state machines over an AccountRepository.
type RepositoryAuthService struct {
	users   AccountRepository
	hasher  CredentialHasher
	lockout *LockoutTracker
}

func NewRepositoryAuthService(users AccountRepository, hasher CredentialHasher, lockout *LockoutTracker) *RepositoryAuthService {
	return &RepositoryAuthService{users: users, hasher: hasher, lockout: lockout}
}

// Login evaluates one login attempt. Every step waits on the previous one;
// a storage fault at any point aborts with ErrStorageUnavailable and no session.
func (s *RepositoryAuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	a, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			slog.InfoContext(ctx, "login rejected: unknown user", "username", username)
		}
		return LoginResult{}, storageErr("find account", err)
	}
	if a.Locked {
		slog.InfoContext(ctx, "login rejected: account locked", "account_id", a.ID, "username", a.Username)
		return LoginResult{}, ErrAccountLocked
	}
	if s.lockout.Exhausted(a) {
		slog.WarnContext(ctx, "login refused: attempts exhausted", "account_id", a.ID, "username", a.Username)
		return LoginResult{}, ErrTerminated
	}

	if !s.hasher.Verify(password, a.PasswordHash) {
		outcome, err := s.lockout.RecordFailure(ctx, a)
		if err != nil {
			return LoginResult{}, err
		}
		if outcome == OutcomeTerminated {
			return LoginResult{}, ErrTerminated
		}
		slog.InfoContext(ctx, "login rejected: bad password", "account_id", a.ID, "username", a.Username, "attempts", a.FailedAttempts)
		return LoginResult{}, ErrBadPassword
	}

	if err := s.lockout.RecordSuccess(ctx, a); err != nil {
		return LoginResult{}, err
	}
	u := newSessionUser(a)
	slog.InfoContext(ctx, "login succeeded", "account_id", a.ID, "username", a.Username, "must_change_password", u.MustChangePassword)
	return LoginResult{User: u, Next: NextDestination(u)}, nil
}

// ChangePassword runs the password-change state machine for the account's own record.
// It never consults the lockout tracker and never looks at the role.
func (s *RepositoryAuthService) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword, confirmPassword string) (ChangeResult, error) {
	a, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return ChangeResult{}, storageErr("find account", err)
	}

	if a.HasCredential() {
		if !s.hasher.Verify(oldPassword, a.PasswordHash) {
			return ChangeResult{}, ErrWrongOldPassword
		}
	} else if oldPassword != "" {
		return ChangeResult{}, ErrOldPasswordMustBeEmpty
	}

	if newPassword != confirmPassword {
		return ChangeResult{}, ErrPasswordMismatch
	}
	if a.PolicyEnforced && !MeetsPolicy(newPassword) {
		return ChangeResult{}, ErrPolicyViolation
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return ChangeResult{}, err
	}
	if err := s.users.Update(ctx, a.ID, AccountUpdate{PasswordHash: stringPtr(hash)}); err != nil {
		return ChangeResult{}, storageErr("update credential", err)
	}
	a.PasswordHash = hash

	u := newSessionUser(a)
	slog.InfoContext(ctx, "password changed", "account_id", a.ID, "username", a.Username, "credential_set", a.HasCredential())
	return ChangeResult{User: u, Next: NextDestination(u)}, nil
}
